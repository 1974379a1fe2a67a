package core

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Main test items:
// 1. Tasks posted from one goroutine run in post order
func TestMessageLoop_FIFO(t *testing.T) {
	loop := newTestLoop()
	rec := &orderRecorder{}

	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, loop.PostTask(rec.task(name)))
	}
	require.NoError(t, loop.RunUntilIdle(context.Background()))

	assert.Equal(t, []string{"A", "B", "C"}, rec.get())
}

// Main test items:
// 1. No delayed task observes a run instant earlier than post instant + delay
// 2. Delayed tasks run in deadline order, not post order
func TestMessageLoop_DelayLowerBound(t *testing.T) {
	loop := newTestLoop()
	rec := &orderRecorder{}
	delays := []time.Duration{
		50 * time.Millisecond,
		0,
		20 * time.Millisecond,
		time.Millisecond,
		5 * time.Millisecond,
	}

	var early atomic.Int32
	for _, d := range delays {
		postedAt := NowTicks()
		require.NoError(t, loop.PostDelayedTask(func(context.Context) {
			if NowTicks().Sub(postedAt) < d {
				early.Add(1)
			}
			rec.add(d.String())
		}, d))
	}
	require.NoError(t, loop.PostDelayedTask(func(context.Context) { _ = loop.Quit() }, 80*time.Millisecond))

	require.NoError(t, loop.Run(context.Background()))

	assert.Zero(t, early.Load(), "a delayed task fired early")
	assert.Equal(t, []string{"0s", "1ms", "5ms", "20ms", "50ms"}, rec.get())
}

// Main test items:
// 1. Two delayed tasks with the same deadline and sequences 4294967295 and 0
// 2. The one stamped first (4294967295) runs first
func TestMessageLoop_TieBreakUnderSequenceOverflow(t *testing.T) {
	loop := newTestLoop()
	rec := &orderRecorder{}
	loop.incoming.seq = math.MaxUint32 - 1

	runAt := NowTicks().Add(10 * time.Millisecond)
	first := newPendingTask(rec.task("first"), "first", runAt, nil)
	second := newPendingTask(rec.task("second"), "second", runAt, nil)
	require.NoError(t, loop.post(first))
	require.NoError(t, loop.post(second))
	require.Equal(t, uint32(math.MaxUint32), first.Sequence)
	require.Equal(t, uint32(0), second.Sequence)

	require.NoError(t, loop.PostDelayedTask(func(context.Context) { _ = loop.Quit() }, 40*time.Millisecond))
	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, []string{"first", "second"}, rec.get())
}

func TestMessageLoop_ImmediateWorkBeforeDueDelayedWork(t *testing.T) {
	loop := newTestLoop()
	rec := &orderRecorder{}

	require.NoError(t, loop.PostDelayedTask(rec.task("delayed"), 0))
	require.NoError(t, loop.PostTask(rec.task("i1")))
	require.NoError(t, loop.PostTask(rec.task("i2")))
	require.NoError(t, loop.RunUntilIdle(context.Background()))

	assert.Equal(t, []string{"i1", "i2", "delayed"}, rec.get())
}

func TestMessageLoop_QuitRunsAfterQueuedWork(t *testing.T) {
	loop := newTestLoop()
	rec := &orderRecorder{}

	require.NoError(t, loop.PostTask(rec.task("A")))
	require.NoError(t, loop.Quit())
	require.NoError(t, loop.PostTask(rec.task("B")))

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, []string{"A"}, rec.get())
	assert.EqualValues(t, 1, loop.Stats().Pending)

	require.NoError(t, loop.RunUntilIdle(context.Background()))
	assert.Equal(t, []string{"A", "B"}, rec.get())
}

func TestMessageLoop_RunStopsOnContextCancel(t *testing.T) {
	loop := newTestLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, loop.IsRunning())
}

func TestMessageLoop_WakesForCrossGoroutinePost(t *testing.T) {
	loop := newTestLoop()
	ran := make(chan struct{})

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = loop.PostTask(func(context.Context) {
			close(ran)
			_ = loop.Quit()
		})
	}()

	start := time.Now()
	require.NoError(t, loop.Run(context.Background()))
	<-ran
	assert.Less(t, time.Since(start), time.Second)
}

func TestMessageLoop_RejectsBadArguments(t *testing.T) {
	loop := newTestLoop()
	assert.ErrorIs(t, loop.PostTask(nil), ErrNilTask)
	assert.ErrorIs(t, loop.PostDelayedTask(nil, time.Second), ErrNilTask)
	assert.ErrorIs(t, loop.PostDelayedTask(noopTask, -time.Millisecond), ErrNegativeDelay)
	assert.ErrorIs(t, loop.PostNamedTask("x", nil), ErrNilTask)
}

func TestMessageLoop_RunFromWrongGoroutine(t *testing.T) {
	loop := newTestLoop()
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(context.Background()) }()
	assert.ErrorIs(t, <-errc, ErrWrongThread)

	go func() { errc <- loop.Destroy() }()
	assert.ErrorIs(t, <-errc, ErrWrongThread)

	go func() { errc <- loop.AddDestructionObserver(&countingObserver{}) }()
	assert.ErrorIs(t, <-errc, ErrWrongThread)
}

func TestMessageLoop_NestedRunRejected(t *testing.T) {
	loop := newTestLoop()
	var nested error
	require.NoError(t, loop.PostTask(func(ctx context.Context) {
		nested = loop.Run(ctx)
	}))
	require.NoError(t, loop.RunUntilIdle(context.Background()))
	assert.ErrorIs(t, nested, ErrAlreadyRunning)
}

func TestMessageLoop_PanicRecovery(t *testing.T) {
	handler := NewTestPanicHandler()
	metrics := newRecordingMetrics()
	loop := newTestLoop(WithLoopName("panicky"), WithPanicHandler(handler), WithMetrics(metrics))

	ranAfter := false
	require.NoError(t, loop.PostTask(func(context.Context) { panic("boom") }))
	require.NoError(t, loop.PostTask(func(context.Context) { ranAfter = true }))
	require.NoError(t, loop.RunUntilIdle(context.Background()))

	assert.True(t, ranAfter, "loop keeps running after a panic")
	calls := handler.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "panicky", calls[0].LoopName)
	assert.Equal(t, -1, calls[0].ThreadID)
	assert.Equal(t, "boom", calls[0].PanicInfo)
	assert.NotEmpty(t, calls[0].Stack)
	assert.Equal(t, 1, metrics.Panics())

	stats := loop.Stats()
	assert.EqualValues(t, 1, stats.Panicked)
	assert.EqualValues(t, 2, stats.Executed)

	recent := loop.RecentTasks(2)
	require.Len(t, recent, 2)
	assert.False(t, recent[0].Panicked)
	assert.True(t, recent[1].Panicked)
}

func TestMessageLoop_TaskContext(t *testing.T) {
	loop := newTestLoop()
	var gotLoop *MessageLoop
	var gotRunner TaskRunner
	require.NoError(t, loop.PostTask(func(ctx context.Context) {
		gotLoop = CurrentMessageLoop(ctx)
		gotRunner = GetCurrentTaskRunner(ctx)
	}))
	require.NoError(t, loop.RunUntilIdle(context.Background()))

	assert.Same(t, loop, gotLoop)
	assert.Equal(t, TaskRunner(loop), gotRunner)
	assert.Nil(t, CurrentMessageLoop(context.Background()))
	assert.Nil(t, GetCurrentTaskRunner(context.Background()))
}

type countingObserver struct {
	calls   int
	onCall  func()
	pending func() LoopStats
	seen    LoopStats
}

func (o *countingObserver) WillDestroyCurrentMessageLoop() {
	o.calls++
	if o.pending != nil {
		o.seen = o.pending()
	}
	if o.onCall != nil {
		o.onCall()
	}
}

// Main test items:
// 1. Destroy drops immediate and delayed work without running it
// 2. Cleanups of dropped tasks run
// 3. Observers are notified after the queues are empty
// 4. Posting afterwards fails and is reported
func TestMessageLoop_DestroyDropsRemainingWork(t *testing.T) {
	metrics := newRecordingMetrics()
	loop := newTestLoop(WithMetrics(metrics))

	var ran, cleaned atomic.Int32
	body := func(context.Context) { ran.Add(1) }
	cleanup := func() { cleaned.Add(1) }

	require.NoError(t, loop.PostTaskWithCleanup(body, cleanup))
	require.NoError(t, loop.PostDelayedTaskWithCleanup(body, 10*time.Minute, cleanup))
	// route the delayed task into the delayed queue, leave one immediate task queued
	require.NoError(t, loop.Quit())
	require.NoError(t, loop.PostTaskWithCleanup(body, cleanup))
	require.NoError(t, loop.Run(context.Background()))
	require.EqualValues(t, 1, ran.Load())

	obs := &countingObserver{pending: loop.Stats}
	require.NoError(t, loop.AddDestructionObserver(obs))
	removed := &countingObserver{}
	require.NoError(t, loop.AddDestructionObserver(removed))
	require.NoError(t, loop.RemoveDestructionObserver(removed))

	require.NoError(t, loop.Destroy())
	require.NoError(t, loop.Destroy(), "second destroy is a no-op")

	assert.EqualValues(t, 1, ran.Load())
	assert.EqualValues(t, 3, cleaned.Load())
	assert.Equal(t, 1, obs.calls)
	assert.Zero(t, removed.calls)
	assert.Zero(t, obs.seen.Pending)
	assert.Zero(t, obs.seen.Delayed)
	assert.Equal(t, 2, metrics.Dropped())

	err := loop.PostTaskWithCleanup(body, cleanup)
	assert.ErrorIs(t, err, ErrLoopDestroyed)
	assert.EqualValues(t, 4, cleaned.Load(), "rejected task is dropped, not leaked")
	assert.Equal(t, 1, metrics.Rejected("destroyed"))
	assert.ErrorIs(t, loop.Run(context.Background()), ErrLoopDestroyed)

	stats := loop.Stats()
	assert.True(t, stats.Destroyed)
	assert.EqualValues(t, 2, stats.Dropped)
	assert.EqualValues(t, 1, stats.Rejected)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestMessageLoop_ReleaseSoon(t *testing.T) {
	loop := newTestLoop()
	closed := 0
	c := closerFunc(func() error { closed++; return errors.New("ignored") })

	require.NoError(t, loop.ReleaseSoon(c))
	assert.Zero(t, closed)
	require.NoError(t, loop.RunUntilIdle(context.Background()))
	assert.Equal(t, 1, closed)

	require.NoError(t, loop.ReleaseSoon(c))
	require.NoError(t, loop.Destroy())
	assert.Equal(t, 2, closed, "closed on destroy when never run")
}

func TestMessageLoop_IdleHandler(t *testing.T) {
	idleCalls := 0
	var loop *MessageLoop
	loop = newTestLoop(WithIdleHandler(func() bool {
		idleCalls++
		if idleCalls == 3 {
			_ = loop.Quit()
			return true
		}
		return idleCalls < 3
	}))

	require.NoError(t, loop.Run(context.Background()))
	assert.GreaterOrEqual(t, idleCalls, 3)
}

func TestMessageLoop_RecordsQueueDepthAndNames(t *testing.T) {
	metrics := newRecordingMetrics()
	loop := newTestLoop(WithMetrics(metrics), WithHistoryCapacity(4))

	require.NoError(t, loop.PostNamedTask("named", noopTask))
	require.NoError(t, loop.PostTask(noopTask))
	require.NoError(t, loop.RunUntilIdle(context.Background()))

	recent := loop.RecentTasks(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "named", recent[1].Name)
	assert.Contains(t, recent[0].Name, "noopTask")
	assert.True(t, SequenceBefore(recent[1].Sequence, recent[0].Sequence))

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, 1, metrics.durations["named"])
	assert.NotEmpty(t, metrics.depths)
	assert.Equal(t, 0, metrics.depths[len(metrics.depths)-1])
}

func TestMessageLoop_PostTaskAndReplySameLoop(t *testing.T) {
	loop := newTestLoop()
	rec := &orderRecorder{}

	require.NoError(t, loop.PostTaskAndReply(rec.task("task"), rec.task("reply"), loop))
	require.NoError(t, loop.PostTask(rec.task("other")))
	require.NoError(t, loop.RunUntilIdle(context.Background()))

	assert.Equal(t, []string{"task", "other", "reply"}, rec.get())
}
