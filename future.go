package asyncstream

import (
	"context"
	"sync"
)

// Future is the eventual result of an asynchronous operation. It settles
// exactly once, either resolved with a value or rejected with an error.
type Future[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	val       T
	err       error
	callbacks []func()
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func resolvedFuture[T any](val T) *Future[T] {
	f := newFuture[T]()
	f.settle(val, nil)
	return f
}

func rejectedFuture[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(zero, err)
	return f
}

// settle completes the future. Only the first call has any effect. Callbacks
// registered via whenDone run in the calling goroutine, in registration order.
func (f *Future[T]) settle(val T, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.val = val
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return true
}

func (f *Future[T]) resolve(val T) bool {
	return f.settle(val, nil)
}

func (f *Future[T]) reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

// whenDone arranges for fn to be called once the future settles. If it has
// already settled, fn is called immediately.
func (f *Future[T]) whenDone(fn func()) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn()
}

// Done returns a channel that is closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or the given context is done. The
// context only bounds the wait: the underlying operation is not cancelled and
// will still settle the future later.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		// in the event of a race, always respect the result
		select {
		case <-f.done:
			return f.val, f.err
		default:
		}
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the future's value and error without blocking. The bool
// is false if the future has not yet settled.
func (f *Future[T]) Result() (T, bool, error) {
	select {
	case <-f.done:
		return f.val, true, f.err
	default:
		var zero T
		return zero, false, nil
	}
}

// Join returns a future that settles once all the given futures have
// settled. It is rejected with the error of the first given future (in
// argument order) that failed, if any.
func Join(futures ...*Future[struct{}]) *Future[struct{}] {
	if len(futures) == 0 {
		return resolvedFuture(struct{}{})
	}
	joined := newFuture[struct{}]()
	var mu sync.Mutex
	remaining := len(futures)
	for _, f := range futures {
		f.whenDone(func() {
			mu.Lock()
			remaining--
			last := remaining == 0
			mu.Unlock()
			if !last {
				return
			}
			for _, f := range futures {
				if f.err != nil {
					joined.reject(f.err)
					return
				}
			}
			joined.resolve(struct{}{})
		})
	}
	return joined
}
