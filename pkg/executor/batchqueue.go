package executor

import (
	"context"
	"sync"
)

// BatchQueue wraps batch submission with a count of batches that were
// accepted but have not yet fully returned. It adds no concurrency
// control of its own beyond the counter bookkeeping.
type BatchQueue struct {
	executor *Executor

	mu        sync.Mutex
	submitted int
	resolved  int
}

// NewBatchQueue wraps the executor.
func NewBatchQueue(e *Executor) *BatchQueue {
	return &BatchQueue{executor: e}
}

// Backlog returns the number of submitted-but-unresolved batches.
func (q *BatchQueue) Backlog() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submitted - q.resolved
}

// Submit reports the current backlog through onBacklog (when given),
// forwards the tasks unchanged to the executor's SubmitBatch and
// returns the ordered results. Safe to call concurrently from many
// logical batch requests.
func (q *BatchQueue) Submit(ctx context.Context, tasks []Task, onBacklog func(int)) ([]Result, error) {
	q.mu.Lock()
	backlog := q.submitted - q.resolved
	q.submitted++
	q.mu.Unlock()

	if onBacklog != nil {
		onBacklog(backlog)
	}

	results, err := q.executor.SubmitBatch(ctx, tasks)

	q.mu.Lock()
	q.resolved++
	q.mu.Unlock()

	return results, err
}
