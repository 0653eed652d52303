// Package executor provides a rate-limited worker pool for expensive
// external calls. A fixed set of workers drains a bounded FIFO queue
// and each worker paces itself to a minimum interval between task
// completions, giving an approximate steady-state throughput of
// workers/interval. Pacing is best-effort smoothing: a task that runs
// longer than the interval is never throttled further.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultWorkers   = 5
	DefaultInterval  = time.Second
	DefaultQueueSize = 10000
)

var (
	// ErrQueueFull signals a non-blocking admission rejection.
	ErrQueueFull = errors.New("executor: admission queue is full")
	// ErrClosed is returned for submissions after Shutdown began.
	ErrClosed = errors.New("executor: shut down")
)

// Task is one opaque unit of asynchronous work. The executor owns it
// only while it runs and does not retain it afterward.
type Task func(ctx context.Context) (any, error)

// Result is the explicit outcome of a task: a value or a recorded
// failure. Submit reports task failures here instead of as its own
// error so that one failed task never aborts an enclosing batch.
type Result struct {
	Value any
	Err   error
}

// OK reports whether the task produced a value.
func (r Result) OK() bool { return r.Err == nil }

// Config fixes the pool shape at construction; there is no dynamic
// resizing.
type Config struct {
	Workers   int
	Interval  time.Duration
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Interval < 0 {
		c.Interval = DefaultInterval
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	return c
}

type job struct {
	ctx  context.Context
	task Task
	done chan Result
}

// Executor is a fixed-size paced worker pool over a bounded queue.
type Executor struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.RWMutex // guards enqueue against queue close
	queue  chan job
	closed bool

	stop chan struct{} // closed at shutdown, cuts pacing naps short
	wg   sync.WaitGroup
	once sync.Once
}

// New starts the pool. A nil logger disables failure logging.
func New(cfg Config, logger *zap.Logger) *Executor {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan job, cfg.QueueSize),
		stop:   make(chan struct{}),
	}
	e.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go e.worker()
	}
	return e
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for j := range e.queue {
		start := time.Now()
		j.done <- e.run(j)

		if elapsed := time.Since(start); elapsed < e.cfg.Interval {
			timer := time.NewTimer(e.cfg.Interval - elapsed)
			select {
			case <-timer.C:
			case <-e.stop:
				timer.Stop()
			}
		}
	}
}

func (e *Executor) run(j job) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("executor: task panic: %v", r)}
			e.logger.Warn("task panicked", zap.Any("panic", r))
		}
	}()

	value, err := j.task(j.ctx)
	if err != nil {
		e.logger.Warn("task failed", zap.Error(err))
		return Result{Err: err}
	}
	return Result{Value: value}
}

// Submit enqueues the task without blocking, failing with ErrQueueFull
// on overflow, then suspends the caller until that specific task
// resolves. A task failure comes back inside the Result, not as the
// returned error.
func (e *Executor) Submit(ctx context.Context, task Task) (Result, error) {
	if task == nil {
		return Result{}, errors.New("executor: nil task")
	}

	j := job{ctx: ctx, task: task, done: make(chan Result, 1)}

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return Result{}, ErrClosed
	}
	select {
	case e.queue <- j:
		e.mu.RUnlock()
	default:
		e.mu.RUnlock()
		return Result{}, ErrQueueFull
	}

	select {
	case res := <-j.done:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// SubmitBatch submits every task concurrently through Submit and
// returns the results positionally matched to the input order,
// regardless of completion order. Admission failures occupy their
// slot as a failed Result; the returned error is non-nil only when
// the context ended before the batch resolved.
func (e *Executor) SubmitBatch(ctx context.Context, tasks []Task) ([]Result, error) {
	results := make([]Result, len(tasks))

	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(i int, task Task) {
			defer wg.Done()
			res, err := e.Submit(ctx, task)
			if err != nil {
				res = Result{Err: err}
			}
			results[i] = res
		}(i, task)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Shutdown stops admissions, lets the queue drain completely and
// in-flight tasks finish, then releases the workers. Pacing naps are
// cut short. Safe to call more than once.
func (e *Executor) Shutdown() {
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.queue)
		e.mu.Unlock()

		close(e.stop)
		e.wg.Wait()
	})
}
