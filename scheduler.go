package asyncstream

import (
	"container/list"
	"sync"

	"go.uber.org/zap"
)

// Scheduler runs deferred units of work. Schedule must not block the caller
// and must not run fn before returning; fn is run "later", either on another
// goroutine or on a loop that the caller does not occupy.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(fn func())

// Schedule implements Scheduler.
func (f SchedulerFunc) Schedule(fn func()) {
	f(fn)
}

// GoScheduler runs each unit of work on its own goroutine. A panic in a unit
// of work is recovered and logged. This is the default scheduler for an
// Adapter.
type GoScheduler struct {
	// Logger receives recovered panics. If nil, the package-level Logger is
	// used.
	Logger *zap.Logger
}

var _ Scheduler = (*GoScheduler)(nil)

// Schedule implements Scheduler.
func (s *GoScheduler) Schedule(fn func()) {
	l := s.Logger
	if l == nil {
		l = Logger()
	}
	go safeExecute(l, fn)
}

func safeExecute(l *zap.Logger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.Error("panic in scheduled task", zap.Any("panic", r))
		}
	}()
	fn()
}

// Loop is a cooperative scheduler that runs all units of work, one at a time
// and in the order they were scheduled, on a single goroutine.
//
// A unit of work that blocks holds up everything scheduled after it. An
// Adapter whose drain loops are run by a Loop may therefore stall its write
// direction while a read waits on the stream.
type Loop struct {
	logger *zap.Logger

	mu     sync.Mutex
	cond   sync.Cond
	tasks  *list.List
	closed bool
	done   chan struct{}
}

var _ Scheduler = (*Loop)(nil)

// NewLoop creates a new loop and starts its goroutine. If l is nil, the
// package-level Logger is used. The loop must be closed to release the
// goroutine.
func NewLoop(l *zap.Logger) *Loop {
	if l == nil {
		l = Logger()
	}
	loop := &Loop{
		logger: l,
		tasks:  list.New(),
		done:   make(chan struct{}),
	}
	loop.cond.L = &loop.mu
	go loop.run()
	return loop
}

// Schedule implements Scheduler. Work scheduled after the loop is closed
// is run on a new goroutine, so it is never dropped.
func (l *Loop) Schedule(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		go safeExecute(l.logger, fn)
		return
	}
	signal := l.tasks.Len() == 0
	l.tasks.PushBack(fn)
	if signal {
		l.cond.Signal()
	}
}

// Close stops accepting work for the loop goroutine and blocks until all
// previously scheduled work has run.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		l.cond.Broadcast()
	}
	l.mu.Unlock()
	<-l.done
}

// Done returns a channel that is closed once the loop goroutine exits.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run() {
	defer close(l.done)
	l.logger.Debug("scheduler loop started")
	for {
		fn, ok := l.dequeue()
		if !ok {
			l.logger.Debug("scheduler loop stopped")
			return
		}
		safeExecute(l.logger, fn)
	}
}

func (l *Loop) dequeue() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		element := l.tasks.Front()
		if element != nil {
			return l.tasks.Remove(element).(func()), true
		}
		if l.closed {
			return nil, false
		}
		l.cond.Wait()
	}
}
