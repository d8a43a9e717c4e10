package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrQueueFull   = errors.New("task queue is full")
	ErrPoolStopped = errors.New("worker pool is stopped")
	ErrTaskRunning = errors.New("task with the same name is still registered")
)

// Config represents pool configuration
type Config struct {
	MaxWorkers  int           // maximum number of workers
	QueueSize   int           // task queue size
	TaskTimeout time.Duration // timeout for single task, 0 means none
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers: 4,
		QueueSize:  64,
	}
}

// Validate validates configuration
func (cfg *Config) Validate() error {
	if cfg.MaxWorkers < 1 {
		return errors.New("max workers must be greater than 0")
	}
	if cfg.QueueSize < 1 {
		return errors.New("queue size must be greater than 0")
	}
	if cfg.TaskTimeout < 0 {
		return errors.New("task timeout must be greater than or equal to 0")
	}
	return nil
}

// TaskFunc is the unit of work run by the pool. ctx is cancelled when the
// pool stops or the task timeout elapses.
type TaskFunc func(ctx context.Context) error

// PanicError wraps a value recovered from a panicking task
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Handle tracks one submitted task
type Handle struct {
	name string
	done chan struct{}
	err  error
}

// Name returns the task name
func (h *Handle) Name() string { return h.name }

// Done is closed when the task finished
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the task result; valid after Done is closed
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task finished or ctx is done
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) finish(err error) {
	h.err = err
	close(h.done)
}

type task struct {
	fn     TaskFunc
	handle *Handle
}

// Metrics tracks pool's operational metrics
type Metrics struct {
	ActiveWorkers  atomic.Int64
	PendingTasks   atomic.Int64
	CompletedTasks atomic.Int64
	FailedTasks    atomic.Int64
	ProcessingTime atomic.Int64 // nanoseconds
}

// Hook observes finished tasks
type Hook func(name string, duration time.Duration, err error)

// Pool represents a worker pool
type Pool struct {
	maxWorkers  int
	queueSize   int
	taskTimeout time.Duration

	tasks  chan *task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	stopped  bool
	registry map[string]*Handle
	hooks    []Hook

	metrics *Metrics
}

// NewPool creates a new worker pool
//
// Usage:
//
//	pool := worker.NewPool(&worker.Config{MaxWorkers: 4, QueueSize: 64})
//	pool.Start()
//	defer pool.Stop(ctx)
//
//	h, err := pool.Go("backup.telegram.export", exporter.Run)
//	if err != nil {
//	    return err
//	}
//	err = h.Wait(ctx)
func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		maxWorkers:  cfg.MaxWorkers,
		queueSize:   cfg.QueueSize,
		taskTimeout: cfg.TaskTimeout,
		tasks:       make(chan *task, cfg.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		registry:    make(map[string]*Handle),
		metrics:     &Metrics{},
	}
}

// OnFinish registers a hook called after every task
func (p *Pool) OnFinish(h Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, h)
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop cancels running tasks and waits for the workers until ctx is done.
// Queued tasks that never ran finish with ErrPoolStopped.
func (p *Pool) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return
	}

	for t := range p.tasks {
		p.metrics.PendingTasks.Add(-1)
		p.complete(t, 0, ErrPoolStopped)
	}
}

// Go submits a named task. Names are unique among registered tasks: a
// second submission under a name still queued or running is rejected.
func (p *Pool) Go(name string, fn TaskFunc) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil, ErrPoolStopped
	}
	if _, ok := p.registry[name]; ok {
		return nil, ErrTaskRunning
	}

	h := &Handle{name: name, done: make(chan struct{})}
	select {
	case p.tasks <- &task{fn: fn, handle: h}:
		p.registry[name] = h
		p.metrics.PendingTasks.Add(1)
		return h, nil
	default:
		return nil, ErrQueueFull
	}
}

// Active returns the handle of a registered task, if any
func (p *Pool) Active(name string) (*Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.registry[name]
	return h, ok
}

// worker represents a worker goroutine
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			p.processTask(t)
		}
	}
}

// processTask runs a single task and records its outcome
func (p *Pool) processTask(t *task) {
	start := time.Now()
	p.metrics.ActiveWorkers.Add(1)
	p.metrics.PendingTasks.Add(-1)

	err := p.run(t)

	elapsed := time.Since(start)
	p.metrics.ActiveWorkers.Add(-1)
	p.metrics.ProcessingTime.Add(elapsed.Nanoseconds())
	p.complete(t, elapsed, err)
}

func (p *Pool) run(t *task) (err error) {
	ctx, cancel := p.ctx, context.CancelFunc(func() {})
	if p.taskTimeout > 0 {
		ctx, cancel = context.WithTimeout(p.ctx, p.taskTimeout)
	}
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return t.fn(ctx)
}

func (p *Pool) complete(t *task, elapsed time.Duration, err error) {
	if err != nil {
		p.metrics.FailedTasks.Add(1)
	} else {
		p.metrics.CompletedTasks.Add(1)
	}

	p.mu.Lock()
	if p.registry[t.handle.name] == t.handle {
		delete(p.registry, t.handle.name)
	}
	hooks := p.hooks
	p.mu.Unlock()

	t.handle.finish(err)
	for _, h := range hooks {
		h(t.handle.name, elapsed, err)
	}
}

// GetMetrics returns the current metrics
func (p *Pool) GetMetrics() map[string]int64 {
	return map[string]int64{
		"active_workers":  p.metrics.ActiveWorkers.Load(),
		"pending_tasks":   p.metrics.PendingTasks.Load(),
		"completed_tasks": p.metrics.CompletedTasks.Load(),
		"failed_tasks":    p.metrics.FailedTasks.Load(),
		"processing_time": p.metrics.ProcessingTime.Load(),
	}
}

// IsBusy returns whether the pool is busy
func (p *Pool) IsBusy() bool {
	return p.metrics.ActiveWorkers.Load() >= int64(p.maxWorkers) ||
		p.metrics.PendingTasks.Load() >= int64(p.queueSize)
}
