package core

import (
	"context"
	"io"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// DestructionObserver is told when the loop it observes is about to be
// destroyed. Tasks still queued at that point have already been dropped.
type DestructionObserver interface {
	WillDestroyCurrentMessageLoop()
}

// MessageLoop is a single-goroutine task loop.
//
// Any goroutine may post. Only the goroutine that called NewMessageLoop may
// Run or Destroy the loop or touch its destruction observers. Tasks run one
// at a time, to completion, in post order; delayed tasks run no earlier than
// their deadline, ties broken by post order.
type MessageLoop struct {
	name     string
	owner    uint64
	threadID int
	runner   TaskRunner

	logger          Logger
	panicHandler    PanicHandler
	metrics         Metrics
	rejectedHandler RejectedTaskHandler
	idleHandler     func() bool
	history         *executionHistory

	pump     MessagePump
	incoming *IncomingQueue

	// loop goroutine only
	work                 *WorkQueue
	delayed              *DelayedQueue
	recentTime           TimeTicks
	quitWhenIdle         bool
	destructionObservers *ObserverList[DestructionObserver]

	running   atomic.Bool
	destroyed atomic.Bool

	pending  atomic.Int64
	delayedN atomic.Int64
	executed atomic.Int64
	panicked atomic.Int64
	dropped  atomic.Int64
	rejected atomic.Int64
}

var _ TaskRunner = (*MessageLoop)(nil)

// NewMessageLoop creates a loop owned by the calling goroutine.
func NewMessageLoop(opts ...LoopOption) *MessageLoop {
	cfg := resolveLoopOptions(opts)
	l := &MessageLoop{
		name:                 cfg.name,
		owner:                goroutineID(),
		threadID:             cfg.threadID,
		runner:               cfg.runner,
		logger:               cfg.logger,
		panicHandler:         cfg.panicHandler,
		metrics:              cfg.metrics,
		rejectedHandler:      cfg.rejectedHandler,
		idleHandler:          cfg.idleHandler,
		history:              newExecutionHistory(cfg.historyCapacity),
		pump:                 cfg.pump,
		incoming:             NewIncomingQueue(),
		work:                 NewWorkQueue(),
		delayed:              NewDelayedQueue(),
		destructionObservers: NewObserverList[DestructionObserver](),
	}
	if l.runner == nil {
		l.runner = l
	}
	return l
}

// Name returns the loop name
func (l *MessageLoop) Name() string { return l.name }

// IsRunning reports whether Run is currently executing.
func (l *MessageLoop) IsRunning() bool { return l.running.Load() }

// IsDestroyed reports whether Destroy has been called.
func (l *MessageLoop) IsDestroyed() bool { return l.destroyed.Load() }

// RunsTasksOnCurrentGoroutine reports whether the caller is the owner goroutine.
func (l *MessageLoop) RunsTasksOnCurrentGoroutine() bool {
	return goroutineID() == l.owner
}

// PostTask queues task for immediate execution. Safe from any goroutine.
func (l *MessageLoop) PostTask(task Task) error {
	return l.PostTaskWithCleanup(task, nil)
}

// PostDelayedTask queues task to run no earlier than delay from now.
func (l *MessageLoop) PostDelayedTask(task Task, delay time.Duration) error {
	return l.PostDelayedTaskWithCleanup(task, delay, nil)
}

// PostTaskWithCleanup is PostTask with a cleanup that runs exactly once,
// after the task ran or when the loop dropped it unrun.
func (l *MessageLoop) PostTaskWithCleanup(task Task, cleanup func()) error {
	if task == nil {
		return ErrNilTask
	}
	return l.post(newPendingTask(task, "", TimeTicks{}, cleanup))
}

// PostDelayedTaskWithCleanup is PostDelayedTask with a cleanup, see PostTaskWithCleanup.
func (l *MessageLoop) PostDelayedTaskWithCleanup(task Task, delay time.Duration, cleanup func()) error {
	if task == nil {
		return ErrNilTask
	}
	if delay < 0 {
		return ErrNegativeDelay
	}
	return l.post(newPendingTask(task, "", NowTicks().Add(delay), cleanup))
}

// PostNamedTask is PostTask with an explicit name for history and metrics.
func (l *MessageLoop) PostNamedTask(name string, task Task) error {
	if task == nil {
		return ErrNilTask
	}
	return l.post(newPendingTask(task, name, TimeTicks{}, nil))
}

func (l *MessageLoop) post(p *PendingTask) error {
	l.pending.Add(1)
	if !l.incoming.Push(p) {
		l.pending.Add(-1)
		l.rejected.Add(1)
		l.metrics.RecordTaskRejected(l.name, "destroyed")
		l.rejectedHandler.HandleRejectedTask(l.name, "destroyed")
		p.Reset()
		return ErrLoopDestroyed
	}
	l.pump.ScheduleWork()
	return nil
}

// PostTaskAndReply runs task on this loop, then posts reply to replyRunner.
// If task panics, reply will not be executed.
func (l *MessageLoop) PostTaskAndReply(task Task, reply Task, replyRunner TaskRunner) error {
	return postTaskAndReplyInternal(l, task, reply, replyRunner)
}

// ReleaseSoon closes c on the loop goroutine. If the loop is destroyed first
// c is closed during destruction instead, so it is never leaked.
func (l *MessageLoop) ReleaseSoon(c io.Closer) error {
	closeIt := func() {
		if err := c.Close(); err != nil {
			l.logger.Warn("release failed", F("loop", l.name), F("error", err))
		}
	}
	return l.PostTaskWithCleanup(func(context.Context) {}, closeIt)
}

// Quit posts a task that stops Run once everything queued ahead of it has run.
func (l *MessageLoop) Quit() error {
	return l.PostNamedTask("quit", func(context.Context) {
		l.pump.Quit()
	})
}

// Run pumps tasks until Quit is processed or ctx is done. It must be called
// from the goroutine that created the loop and may not be nested.
func (l *MessageLoop) Run(ctx context.Context) error {
	return l.run(ctx, false)
}

// RunUntilIdle runs every ready task, including delayed tasks already due,
// and returns once nothing is left to do right now.
func (l *MessageLoop) RunUntilIdle(ctx context.Context) error {
	return l.run(ctx, true)
}

func (l *MessageLoop) run(ctx context.Context, untilIdle bool) error {
	if !l.RunsTasksOnCurrentGoroutine() {
		return ErrWrongThread
	}
	if l.destroyed.Load() {
		return ErrLoopDestroyed
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	l.quitWhenIdle = untilIdle
	runCtx := context.WithValue(contextWithRunner(ctx, l.runner), messageLoopKey, l)

	l.logger.Debug("message loop running", F("loop", l.name))
	err := l.pump.Run(runCtx, l)
	l.logger.Debug("message loop stopped", F("loop", l.name))
	return err
}

// DoWork runs the next immediate task. Delayed tasks met on the way are
// moved to the delayed queue instead of being run.
func (l *MessageLoop) DoWork(ctx context.Context) bool {
	for {
		if l.work.Len() == 0 && l.incoming.SwapInto(l.work) == 0 {
			return false
		}
		for l.work.Len() > 0 {
			p := l.work.Pop()
			l.pending.Add(-1)
			if p.IsDelayed() {
				l.delayedN.Add(1)
				if l.delayed.Push(p) {
					l.pump.ScheduleDelayedWork(p.RunAt)
				}
				continue
			}
			l.runTask(ctx, p)
			return true
		}
	}
}

// DoDelayedWork runs the earliest delayed task if it is due. The cached
// recentTime is only refreshed when the head looks due, and since it never
// runs ahead of the real clock a task cannot fire early.
func (l *MessageLoop) DoDelayedWork(ctx context.Context, next *TimeTicks) bool {
	top := l.delayed.Peek()
	if top == nil {
		l.recentTime = TimeTicks{}
		*next = TimeTicks{}
		return false
	}

	if top.RunAt.After(l.recentTime) {
		l.recentTime = NowTicks()
		if top.RunAt.After(l.recentTime) {
			*next = top.RunAt
			return false
		}
	}

	p := l.delayed.Pop()
	l.delayedN.Add(-1)
	if head := l.delayed.Peek(); head != nil {
		*next = head.RunAt
	} else {
		*next = TimeTicks{}
	}
	l.runTask(ctx, p)
	return true
}

// DoIdleWork reports queue depth and calls the idle hook, if any.
func (l *MessageLoop) DoIdleWork(ctx context.Context) bool {
	l.metrics.RecordQueueDepth(l.name, int(l.pending.Load()+l.delayedN.Load()))
	if l.quitWhenIdle {
		l.pump.Quit()
		return false
	}
	if l.idleHandler != nil {
		return l.idleHandler()
	}
	return false
}

func (l *MessageLoop) runTask(ctx context.Context, p *PendingTask) {
	name := resolveTaskName(p.Task, p.Name)
	startedAt := time.Now()
	panicked := false

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				panicked = true
				stack := debug.Stack()
				l.panicked.Add(1)
				l.metrics.RecordTaskPanic(l.name, rec)
				l.panicHandler.HandlePanic(ctx, l.name, l.threadID, rec, stack)
			}
		}()
		p.Run(ctx)
	}()

	finishedAt := time.Now()
	duration := finishedAt.Sub(startedAt)
	l.executed.Add(1)
	l.metrics.RecordTaskDuration(l.name, name, duration)
	l.history.Add(TaskExecutionRecord{
		TaskID:     p.ID,
		Name:       name,
		LoopName:   l.name,
		Sequence:   p.Sequence,
		Delayed:    p.IsDelayed(),
		PostedAt:   p.PostedAt,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Duration:   duration,
		Panicked:   panicked,
	})
}

// AddDestructionObserver registers o. Owner goroutine only.
func (l *MessageLoop) AddDestructionObserver(o DestructionObserver) error {
	if !l.RunsTasksOnCurrentGoroutine() {
		return ErrWrongThread
	}
	return l.destructionObservers.AddObserver(o)
}

// RemoveDestructionObserver unregisters o. Owner goroutine only.
func (l *MessageLoop) RemoveDestructionObserver(o DestructionObserver) error {
	if !l.RunsTasksOnCurrentGoroutine() {
		return ErrWrongThread
	}
	l.destructionObservers.RemoveObserver(o)
	return nil
}

// Destroy drops every queued task without running it, runs their cleanups,
// then notifies destruction observers. Later posts fail with ErrLoopDestroyed.
// It must be called from the owner goroutine once Run has returned.
// Calling it again is a no-op.
func (l *MessageLoop) Destroy() error {
	if !l.RunsTasksOnCurrentGoroutine() {
		return ErrWrongThread
	}
	if l.running.Load() {
		return ErrAlreadyRunning
	}
	if !l.destroyed.CompareAndSwap(false, true) {
		return nil
	}

	dropped := 0
	for _, p := range l.work.Drain() {
		l.pending.Add(-1)
		p.Reset()
		dropped++
	}
	for _, p := range l.incoming.Close() {
		l.pending.Add(-1)
		p.Reset()
		dropped++
	}
	for _, p := range l.delayed.Clear() {
		l.delayedN.Add(-1)
		p.Reset()
		dropped++
	}

	if dropped > 0 {
		l.dropped.Add(int64(dropped))
		l.metrics.RecordTasksDropped(l.name, dropped)
		l.logger.Debug("dropped pending tasks", F("loop", l.name), F("count", dropped))
	}

	l.destructionObservers.ForEach(func(o DestructionObserver) {
		o.WillDestroyCurrentMessageLoop()
	})
	l.destructionObservers.Clear()
	return nil
}

// RecentTasks returns up to limit execution records, newest first.
func (l *MessageLoop) RecentTasks(limit int) []TaskExecutionRecord {
	return l.history.Recent(limit)
}

// Stats returns a snapshot of the loop counters. Safe from any goroutine.
func (l *MessageLoop) Stats() LoopStats {
	s := LoopStats{
		Name:      l.name,
		Running:   l.running.Load(),
		Destroyed: l.destroyed.Load(),
		Pending:   l.pending.Load(),
		Delayed:   l.delayedN.Load(),
		Executed:  l.executed.Load(),
		Panicked:  l.panicked.Load(),
		Dropped:   l.dropped.Load(),
		Rejected:  l.rejected.Load(),
	}
	if last, ok := l.history.Last(); ok {
		s.LastTaskName = last.Name
		s.LastTaskAt = last.FinishedAt
	}
	return s
}
