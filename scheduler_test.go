package asyncstream

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	loop := NewLoop(nil)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 100; i++ {
		i := i
		loop.Schedule(func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
		})
	}
	loop.Close()

	require.Len(t, order, 100)
	for i, v := range order {
		require.Equal(t, i, v)
	}
	select {
	case <-loop.Done():
	default:
		t.Fatal("loop should be done after Close")
	}
}

func TestLoopRunsTasksScheduledByTasks(t *testing.T) {
	loop := NewLoop(nil)
	defer loop.Close()

	done := make(chan struct{})
	loop.Schedule(func() {
		loop.Schedule(func() {
			close(done)
		})
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("nested task never ran")
	}
}

func TestLoopRecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	loop := NewLoop(zap.New(core))

	var ran atomic.Bool
	loop.Schedule(func() { panic("boom") })
	loop.Schedule(func() { ran.Store(true) })
	loop.Close()

	require.True(t, ran.Load())
	require.Equal(t, 1, logs.FilterMessage("panic in scheduled task").Len())
}

func TestLoopScheduleAfterClose(t *testing.T) {
	loop := NewLoop(nil)
	loop.Close()

	done := make(chan struct{})
	loop.Schedule(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("work scheduled after Close was dropped")
	}
}

func TestGoSchedulerRecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := &GoScheduler{Logger: zap.New(core)}

	done := make(chan struct{})
	s.Schedule(func() {
		defer close(done)
		panic("boom")
	})
	<-done
	require.Eventually(t, func() bool {
		return logs.FilterMessage("panic in scheduled task").Len() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSchedulerFunc(t *testing.T) {
	var got []func()
	s := SchedulerFunc(func(fn func()) { got = append(got, fn) })
	s.Schedule(func() {})
	require.Len(t, got, 1)
}
