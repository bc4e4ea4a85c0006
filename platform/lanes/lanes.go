// Package lanes provides a key-scoped serial task runner. All tasks sharing
// a lane key execute in arrival order under a per-lane concurrency cap
// (default 1); tasks on different keys never contend with each other.
// This is part of the platform layer and contains no business logic.
package lanes

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLaneCleared is delivered to tasks that were removed from a lane
// before they started running.
var ErrLaneCleared = errors.New("lane cleared before task started")

// Task is one asynchronous unit of work.
type Task func(ctx context.Context) (any, error)

// Result carries a task's outcome to the caller.
type Result struct {
	Value any
	Err   error
}

// WaitWarnFunc is invoked when a task waited longer than the configured
// threshold before starting. It receives the lane key, the wait duration,
// and the remaining queue depth. Backpressure signal, not a failure.
type WaitWarnFunc func(laneKey string, waited time.Duration, depth int)

type queuedTask struct {
	ctx        context.Context
	run        Task
	result     chan Result
	enqueuedAt time.Time
}

type lane struct {
	key         string
	queue       []*queuedTask
	active      int
	concurrency int
	generation  uint64
}

// Service owns the lane arena. The zero value is not usable; construct
// with New and inject it wherever per-key serialization is needed.
type Service struct {
	mu        sync.Mutex
	lanes     map[string]*lane
	warnAfter time.Duration
	onWait    WaitWarnFunc
}

// Option configures a Service.
type Option func(*Service)

// WithWaitWarning installs a callback fired when a task's queue wait
// exceeds threshold. A zero threshold disables the warning.
func WithWaitWarning(threshold time.Duration, fn WaitWarnFunc) Option {
	return func(s *Service) {
		s.warnAfter = threshold
		s.onWait = fn
	}
}

// New creates a lane service.
func New(opts ...Option) *Service {
	s := &Service{
		lanes: make(map[string]*lane),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) laneFor(key string) *lane {
	l, ok := s.lanes[key]
	if !ok {
		l = &lane{key: key, concurrency: 1}
		s.lanes[key] = l
	}
	return l
}

// Enqueue appends a task to the lane identified by laneKey and returns a
// channel that receives the task's outcome exactly once. Task errors are
// delivered on the channel and never stop the lane from draining.
func (s *Service) Enqueue(ctx context.Context, laneKey string, task Task) <-chan Result {
	qt := &queuedTask{
		ctx:        ctx,
		run:        task,
		result:     make(chan Result, 1),
		enqueuedAt: time.Now(),
	}

	s.mu.Lock()
	l := s.laneFor(laneKey)
	l.queue = append(l.queue, qt)
	s.pump(l)
	s.mu.Unlock()

	return qt.result
}

// Run enqueues a task and blocks until it completes or ctx is cancelled.
// On cancellation the task is not revoked; it will still run when its
// turn comes, with its result discarded.
func (s *Service) Run(ctx context.Context, laneKey string, task Task) (any, error) {
	select {
	case res := <-s.Enqueue(ctx, laneKey, task):
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetConcurrency sets the maximum number of simultaneously active tasks
// for a lane. Values below 1 are treated as 1 (full serialization).
func (s *Service) SetConcurrency(laneKey string, n int) {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	l := s.laneFor(laneKey)
	l.concurrency = n
	s.pump(l)
	s.mu.Unlock()
}

// Clear removes all queued-but-not-started tasks from a lane, delivering
// ErrLaneCleared to each. Active tasks run to completion. Returns the
// number of tasks removed.
func (s *Service) Clear(laneKey string) int {
	s.mu.Lock()
	l, ok := s.lanes[laneKey]
	if !ok {
		s.mu.Unlock()
		return 0
	}
	removed := l.queue
	l.queue = nil
	s.mu.Unlock()

	for _, qt := range removed {
		qt.result <- Result{Err: ErrLaneCleared}
	}
	return len(removed)
}

// Reset bumps every lane's generation so completions from before the
// reset are ignored, zeroes active counts, and resumes draining any lane
// with pending work. Used for graceful restart.
func (s *Service) Reset() {
	s.mu.Lock()
	for _, l := range s.lanes {
		l.generation++
		l.active = 0
		s.pump(l)
	}
	s.mu.Unlock()
}

// QueueDepth returns the number of queued-but-not-started tasks for a lane.
func (s *Service) QueueDepth(laneKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lanes[laneKey]; ok {
		return len(l.queue)
	}
	return 0
}

// TotalDepth returns the queued task count across all lanes.
func (s *Service) TotalDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, l := range s.lanes {
		total += len(l.queue)
	}
	return total
}

// pump starts queued tasks while capacity allows. Caller must hold s.mu.
func (s *Service) pump(l *lane) {
	for l.active < l.concurrency && len(l.queue) > 0 {
		qt := l.queue[0]
		l.queue = l.queue[1:]
		l.active++
		gen := l.generation
		depth := len(l.queue)
		go s.execute(l, qt, gen, depth)
	}
}

func (s *Service) execute(l *lane, qt *queuedTask, gen uint64, depth int) {
	waited := time.Since(qt.enqueuedAt)
	if s.warnAfter > 0 && waited > s.warnAfter && s.onWait != nil {
		s.onWait(l.key, waited, depth)
	}

	value, err := s.runTask(qt)
	qt.result <- Result{Value: value, Err: err}

	s.mu.Lock()
	// A completion recorded under a stale generation belongs to a lane
	// epoch that Reset already abandoned; it must not touch the counts.
	if l.generation == gen {
		l.active--
		s.pump(l)
	}
	s.mu.Unlock()
}

func (s *Service) runTask(qt *queuedTask) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return qt.run(qt.ctx)
}

func panicError(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return errors.New("task panic")
}
