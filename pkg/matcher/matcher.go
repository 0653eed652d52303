// Package matcher scores transformed reply/answer pairs and keeps a
// running average across one evaluation batch.
package matcher

import (
	"fmt"
	"sync"

	"prompetition/pkg/transform"
)

// Matcher accumulates per-snippet scores into a batch aggregate.
// Accumulate must be called exactly once per snippet that contributes
// to the aggregate; a matcher instance belongs to a single batch and
// must not be shared across batch requests.
type Matcher interface {
	Name() string
	Accumulate(reply, answer any, weight float64) (float64, error)
	Score() float64
}

// AvgIoU scores set overlap: |reply ∩ answer| / |reply ∪ answer|,
// with 1.0 for two empty sets. The running sums are mutex-guarded so
// concurrently resolving evaluation units never lose or double-count
// a score.
type AvgIoU struct {
	mu     sync.Mutex
	sum    float64
	weight float64
}

// NameAvgIoU is the registry name of the set-overlap matcher.
const NameAvgIoU = "avg_iou"

func (m *AvgIoU) Name() string { return NameAvgIoU }

// Accumulate folds one comparison into the running average and
// returns the item score in [0, 1].
func (m *AvgIoU) Accumulate(reply, answer any, weight float64) (float64, error) {
	replySet, err := transform.ToSet(reply)
	if err != nil {
		return 0, fmt.Errorf("matcher: reply: %w", err)
	}
	answerSet, err := transform.ToSet(answer)
	if err != nil {
		return 0, fmt.Errorf("matcher: answer: %w", err)
	}

	intersection := 0
	for key := range replySet {
		if _, ok := answerSet[key]; ok {
			intersection++
		}
	}
	union := len(replySet) + len(answerSet) - intersection

	score := 1.0
	if union > 0 {
		score = float64(intersection) / float64(union)
	}

	m.mu.Lock()
	m.sum += score * weight
	m.weight += weight
	m.mu.Unlock()

	return score, nil
}

// Score returns the running weighted average, 0 before any
// accumulation.
func (m *AvgIoU) Score() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.weight > 0 {
		return m.sum / m.weight
	}
	return 0
}

// FromName builds a fresh matcher. Unknown names are a configuration
// error surfaced before any evaluation runs.
func FromName(name string) (Matcher, error) {
	switch name {
	case NameAvgIoU:
		return &AvgIoU{}, nil
	default:
		return nil, fmt.Errorf("matcher: unknown matcher %q", name)
	}
}

// Names lists the registered matcher names.
func Names() []string {
	return []string{NameAvgIoU}
}
