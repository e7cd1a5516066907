package asyncstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFutureSettlesOnce(t *testing.T) {
	f := newFuture[int]()
	_, done, _ := f.Result()
	require.False(t, done)

	require.True(t, f.resolve(42))
	require.False(t, f.resolve(7))
	require.False(t, f.reject(errors.New("ignored")))

	val, done, err := f.Result()
	require.True(t, done)
	require.NoError(t, err)
	require.Equal(t, 42, val)

	select {
	case <-f.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestFutureAwaitRespectsContext(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the future can still settle afterwards
	go f.resolve(3)
	val, err := f.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, val)
}

func TestFutureCallbacksRunInOrder(t *testing.T) {
	f := newFuture[string]()
	var calls []int
	f.whenDone(func() { calls = append(calls, 1) })
	f.whenDone(func() { calls = append(calls, 2) })
	require.Empty(t, calls)
	f.reject(errors.New("boom"))
	require.Equal(t, []int{1, 2}, calls)

	// registering after settlement runs immediately
	f.whenDone(func() { calls = append(calls, 3) })
	require.Equal(t, []int{1, 2, 3}, calls)
}

func TestJoin(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, done, err := Join().Result()
		require.True(t, done)
		require.NoError(t, err)
	})

	t.Run("waits for all", func(t *testing.T) {
		a, b := newFuture[struct{}](), newFuture[struct{}]()
		joined := Join(a, b)
		a.resolve(struct{}{})
		_, done, _ := joined.Result()
		require.False(t, done)
		b.resolve(struct{}{})
		_, done, err := joined.Result()
		require.True(t, done)
		require.NoError(t, err)
	})

	t.Run("first error in argument order", func(t *testing.T) {
		errA, errC := errors.New("a"), errors.New("c")
		a, b, c := newFuture[struct{}](), newFuture[struct{}](), newFuture[struct{}]()
		joined := Join(a, b, c)
		c.reject(errC)
		_, done, _ := joined.Result()
		require.False(t, done, "should wait for all inputs even after a failure")
		b.resolve(struct{}{})
		a.reject(errA)
		_, done, err := joined.Result()
		require.True(t, done)
		require.ErrorIs(t, err, errA)
	})
}
