package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ThreadState is the lifecycle position of a WorkerThread.
type ThreadState int32

const (
	ThreadCreated ThreadState = iota
	ThreadStarting
	ThreadRunning
	ThreadStopping
	ThreadStopped
)

func (s ThreadState) String() string {
	switch s {
	case ThreadCreated:
		return "created"
	case ThreadStarting:
		return "starting"
	case ThreadRunning:
		return "running"
	case ThreadStopping:
		return "stopping"
	case ThreadStopped:
		return "stopped"
	default:
		return fmt.Sprintf("ThreadState(%d)", int32(s))
	}
}

// Attachment is any object stored on a thread by name.
type Attachment any

// Options tunes a single StartWithOptions call.
type Options struct {
	// StartTimeout bounds how long Start waits for the loop to come up.
	// Zero falls back to the thread's WithStartTimeout, and then to no limit.
	StartTimeout time.Duration
}

type threadOptions struct {
	startTimeout    time.Duration
	logger          Logger
	metrics         Metrics
	rejectedHandler RejectedTaskHandler
	loopOptions     []LoopOption
}

// ThreadOption configures a WorkerThread.
type ThreadOption func(*threadOptions)

// WithStartTimeout sets the default StartTimeout.
func WithStartTimeout(d time.Duration) ThreadOption {
	return func(o *threadOptions) { o.startTimeout = d }
}

// WithThreadLogger sets the logger for the thread and its loop.
func WithThreadLogger(l Logger) ThreadOption {
	return func(o *threadOptions) { o.logger = l }
}

// WithThreadMetrics sets the metrics sink for the thread and its loop.
func WithThreadMetrics(m Metrics) ThreadOption {
	return func(o *threadOptions) { o.metrics = m }
}

// WithThreadRejectedTaskHandler is told about posts refused because the
// thread was not running.
func WithThreadRejectedTaskHandler(h RejectedTaskHandler) ThreadOption {
	return func(o *threadOptions) { o.rejectedHandler = h }
}

// WithLoopOptions passes extra options to every loop the thread creates.
func WithLoopOptions(opts ...LoopOption) ThreadOption {
	return func(o *threadOptions) { o.loopOptions = append(o.loopOptions, opts...) }
}

// WorkerThread is a goroutine locked to its own OS thread, running one
// MessageLoop for its whole life.
//
// The loop is created on the new thread, so it is never visible half built.
// Start blocks until it exists. Stop queues a quit behind pending work, waits
// for the thread to exit and drops delayed work that was not yet due.
// A stopped thread can be started again with a fresh loop.
type WorkerThread struct {
	name string
	opts threadOptions

	// lifecycleMu serializes Start and Stop.
	lifecycleMu sync.Mutex

	// mu guards loop and state changes against concurrent posts.
	mu       sync.RWMutex
	loop     *MessageLoop
	state    atomic.Int32
	done     chan struct{}
	goid     atomic.Uint64
	threadID atomic.Int64
	last     LoopStats

	attachMu    sync.Mutex
	attachments map[string]Attachment

	inFlight atomic.Int64
}

var _ TaskRunner = (*WorkerThread)(nil)

// NewWorkerThread creates a thread in the Created state.
func NewWorkerThread(name string, opts ...ThreadOption) *WorkerThread {
	t := &WorkerThread{
		name:        name,
		attachments: make(map[string]Attachment),
	}
	for _, o := range opts {
		if o != nil {
			o(&t.opts)
		}
	}
	if t.opts.logger == nil {
		t.opts.logger = NewDefaultLogger()
	}
	if t.opts.metrics == nil {
		t.opts.metrics = &NilMetrics{}
	}
	if t.opts.rejectedHandler == nil {
		t.opts.rejectedHandler = &DefaultRejectedTaskHandler{Logger: t.opts.logger}
	}
	t.threadID.Store(-1)
	return t
}

// Name returns the thread name
func (t *WorkerThread) Name() string { return t.name }

// State returns the current lifecycle state.
func (t *WorkerThread) State() ThreadState { return ThreadState(t.state.Load()) }

// IsRunning reports whether the thread accepts tasks.
func (t *WorkerThread) IsRunning() bool { return t.State() == ThreadRunning }

// ThreadID returns the OS thread id of the running thread, or -1.
func (t *WorkerThread) ThreadID() int { return int(t.threadID.Load()) }

// onThread reports whether the caller is this thread's loop goroutine.
func (t *WorkerThread) onThread() bool {
	id := t.goid.Load()
	return id != 0 && id == goroutineID()
}

// Start starts the thread with default options and reports success.
func (t *WorkerThread) Start() bool {
	if err := t.StartWithOptions(Options{}); err != nil {
		t.opts.logger.Warn("thread start failed", F("thread", t.name), F("error", err))
		return false
	}
	return true
}

type threadStartup struct {
	ready     *WaitableEvent
	mu        sync.Mutex
	published bool
	abandoned bool
}

// StartWithOptions spawns the OS thread and blocks until its loop is running.
func (t *WorkerThread) StartWithOptions(o Options) error {
	if t.onThread() {
		return ErrAlreadyStarted
	}

	t.lifecycleMu.Lock()
	defer t.lifecycleMu.Unlock()

	switch t.State() {
	case ThreadCreated, ThreadStopped:
	default:
		return ErrAlreadyStarted
	}

	timeout := o.StartTimeout
	if timeout <= 0 {
		timeout = t.opts.startTimeout
	}

	startup := &threadStartup{ready: NewWaitableEvent(true, false)}
	done := make(chan struct{})
	t.mu.Lock()
	t.done = done
	t.state.Store(int32(ThreadStarting))
	t.mu.Unlock()

	go t.threadMain(startup, done)

	if timeout <= 0 {
		startup.ready.Wait()
		return nil
	}
	if startup.ready.TimedWait(timeout) {
		return nil
	}

	startup.mu.Lock()
	defer startup.mu.Unlock()
	if startup.published {
		return nil
	}
	startup.abandoned = true
	t.state.Store(int32(ThreadStopped))
	return fmt.Errorf("%w: %s after %s", ErrThreadStartTimeout, t.name, timeout)
}

func (t *WorkerThread) threadMain(startup *threadStartup, done chan struct{}) {
	defer close(done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid := currentThreadID()
	opts := make([]LoopOption, 0, len(t.opts.loopOptions)+5)
	opts = append(opts,
		WithLoopName(t.name),
		WithLogger(t.opts.logger),
		WithMetrics(t.opts.metrics),
	)
	opts = append(opts, t.opts.loopOptions...)
	opts = append(opts, withThreadID(tid), withCurrentRunner(t))
	loop := NewMessageLoop(opts...)

	startup.mu.Lock()
	if startup.abandoned {
		startup.mu.Unlock()
		_ = loop.Destroy()
		return
	}
	t.mu.Lock()
	t.loop = loop
	t.goid.Store(goroutineID())
	t.threadID.Store(int64(tid))
	t.state.Store(int32(ThreadRunning))
	t.mu.Unlock()
	startup.published = true
	startup.mu.Unlock()
	startup.ready.Signal()

	t.opts.logger.Info("thread started", F("thread", t.name), F("thread_id", tid))

	if err := loop.Run(context.Background()); err != nil {
		t.opts.logger.Error("message loop exited", F("thread", t.name), F("error", err))
	}

	t.mu.Lock()
	t.loop = nil
	t.state.Store(int32(ThreadStopping))
	t.mu.Unlock()

	if err := loop.Destroy(); err != nil {
		t.opts.logger.Error("message loop destroy failed", F("thread", t.name), F("error", err))
	}

	t.mu.Lock()
	t.last = loop.Stats()
	t.goid.Store(0)
	t.threadID.Store(-1)
	t.state.Store(int32(ThreadStopped))
	t.mu.Unlock()

	t.opts.logger.Info("thread stopped", F("thread", t.name))
}

// Stop queues a quit behind the work already posted and waits for the
// thread to exit. Stopping a thread that is not running does nothing.
// Called from the thread itself it only queues the quit.
func (t *WorkerThread) Stop() {
	if t.onThread() {
		t.mu.Lock()
		if loop := t.loop; loop != nil && t.State() == ThreadRunning {
			t.state.Store(int32(ThreadStopping))
			_ = loop.Quit()
		}
		t.mu.Unlock()
		return
	}

	t.lifecycleMu.Lock()
	defer t.lifecycleMu.Unlock()

	t.mu.Lock()
	loop, done := t.loop, t.done
	if loop != nil && t.State() == ThreadRunning {
		t.state.Store(int32(ThreadStopping))
		_ = loop.Quit()
	}
	t.mu.Unlock()

	if done != nil {
		<-done
	}
}

// PostTask queues task on the thread's loop.
func (t *WorkerThread) PostTask(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	return t.withLoop(func(l *MessageLoop) error {
		return l.PostTask(task)
	})
}

// PostDelayedTask queues task to run no earlier than delay from now.
func (t *WorkerThread) PostDelayedTask(task Task, delay time.Duration) error {
	if task == nil {
		return ErrNilTask
	}
	if delay < 0 {
		return ErrNegativeDelay
	}
	return t.withLoop(func(l *MessageLoop) error {
		return l.PostDelayedTask(task, delay)
	})
}

// PostTaskWithCleanup is PostTask with a cleanup that runs once, after the
// task ran or when it was dropped. A rejected post does not run cleanup.
func (t *WorkerThread) PostTaskWithCleanup(task Task, cleanup func()) error {
	if task == nil {
		return ErrNilTask
	}
	return t.withLoop(func(l *MessageLoop) error {
		return l.PostTaskWithCleanup(task, cleanup)
	})
}

// PostDelayedTaskWithCleanup is PostDelayedTask with a cleanup, as in
// PostTaskWithCleanup.
func (t *WorkerThread) PostDelayedTaskWithCleanup(task Task, delay time.Duration, cleanup func()) error {
	if task == nil {
		return ErrNilTask
	}
	if delay < 0 {
		return ErrNegativeDelay
	}
	return t.withLoop(func(l *MessageLoop) error {
		return l.PostDelayedTaskWithCleanup(task, delay, cleanup)
	})
}

func (t *WorkerThread) PostDelayedMillis(task Task, n int64) error {
	return t.PostDelayedTask(task, Milliseconds(n))
}

func (t *WorkerThread) PostDelayedSeconds(task Task, n int64) error {
	return t.PostDelayedTask(task, Seconds(n))
}

func (t *WorkerThread) PostDelayedMinutes(task Task, n int64) error {
	return t.PostDelayedTask(task, Minutes(n))
}

func (t *WorkerThread) PostDelayedHours(task Task, n int64) error {
	return t.PostDelayedTask(task, Hours(n))
}

func (t *WorkerThread) withLoop(fn func(l *MessageLoop) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.loop == nil || t.State() != ThreadRunning {
		reason := "not running"
		t.opts.metrics.RecordTaskRejected(t.name, reason)
		t.opts.rejectedHandler.HandleRejectedTask(t.name, reason)
		return ErrNotRunning
	}
	return fn(t.loop)
}

// PostTaskAndReply runs task on this thread, then posts reply to replyRunner.
// If task panics, reply will not be executed.
func (t *WorkerThread) PostTaskAndReply(task Task, reply Task, replyRunner TaskRunner) error {
	return postTaskAndReplyInternal(t, task, reply, replyRunner)
}

// WaitIdle blocks until every task posted before the call has run.
// Delayed tasks that are not yet due are not waited for.
func (t *WorkerThread) WaitIdle(ctx context.Context) error {
	barrier := NewWaitableEvent(true, false)
	if err := t.PostTask(func(context.Context) { barrier.Signal() }); err != nil {
		return err
	}
	return barrier.WaitContext(ctx)
}

// FlushAsync runs callback on the thread after all tasks posted before it.
func (t *WorkerThread) FlushAsync(callback func()) error {
	return t.PostTask(func(context.Context) { callback() })
}

// =============================================================================
// Attachments
// =============================================================================

// Attach stores obj under name. It fails if name is already taken.
func (t *WorkerThread) Attach(name string, obj Attachment) bool {
	if obj == nil {
		return false
	}
	t.attachMu.Lock()
	defer t.attachMu.Unlock()
	if _, ok := t.attachments[name]; ok {
		return false
	}
	t.attachments[name] = obj
	return true
}

// Get returns the object stored under name, or nil.
func (t *WorkerThread) Get(name string) Attachment {
	t.attachMu.Lock()
	defer t.attachMu.Unlock()
	return t.attachments[name]
}

// Detach removes name and reports whether it was present.
func (t *WorkerThread) Detach(name string) bool {
	t.attachMu.Lock()
	defer t.attachMu.Unlock()
	if _, ok := t.attachments[name]; !ok {
		return false
	}
	delete(t.attachments, name)
	return true
}

// =============================================================================
// In-flight accounting
// =============================================================================

// IncInFlight marks the start of one unit of outstanding work.
func (t *WorkerThread) IncInFlight() int64 {
	return t.inFlight.Add(1)
}

// DecInFlight marks the end of one unit of outstanding work. Unbalanced
// calls that would take the counter below zero panic with ErrInFlightUnderflow.
func (t *WorkerThread) DecInFlight() int64 {
	for {
		cur := t.inFlight.Load()
		if cur <= 0 {
			panic(fmt.Errorf("%w: thread %s", ErrInFlightUnderflow, t.name))
		}
		if t.inFlight.CompareAndSwap(cur, cur-1) {
			return cur - 1
		}
	}
}

// InFlight returns the outstanding work counter.
func (t *WorkerThread) InFlight() int64 {
	return t.inFlight.Load()
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns a snapshot of the thread and its loop.
func (t *WorkerThread) Stats() ThreadStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := ThreadStats{
		Name:     t.name,
		State:    t.State(),
		ThreadID: t.ThreadID(),
		InFlight: t.inFlight.Load(),
		Loop:     t.last,
	}
	if t.loop != nil {
		s.Loop = t.loop.Stats()
	}
	return s
}

// RecentTasks returns the newest execution records of the running loop.
func (t *WorkerThread) RecentTasks(limit int) []TaskExecutionRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.loop == nil {
		return nil
	}
	return t.loop.RecentTasks(limit)
}
