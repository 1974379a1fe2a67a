package core

// loopOptions holds configuration options for MessageLoop creation.
type loopOptions struct {
	name            string
	logger          Logger
	panicHandler    PanicHandler
	metrics         Metrics
	rejectedHandler RejectedTaskHandler
	historyCapacity int
	idleHandler     func() bool
	pump            MessagePump
	threadID        int
	runner          TaskRunner
}

// --- Loop Options ---

// LoopOption configures a MessageLoop instance.
type LoopOption interface {
	applyLoop(*loopOptions)
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions)
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) {
	l.applyLoopFunc(opts)
}

// WithLoopName names the loop in logs, metrics and execution history.
func WithLoopName(name string) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) {
		opts.name = name
	}}
}

// WithLogger sets the loop's logger. Defaults to NewDefaultLogger.
func WithLogger(logger Logger) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) {
		opts.logger = logger
	}}
}

// WithPanicHandler replaces the DefaultPanicHandler.
func WithPanicHandler(h PanicHandler) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) {
		opts.panicHandler = h
	}}
}

// WithMetrics sets the metrics sink. Defaults to NilMetrics.
func WithMetrics(m Metrics) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) {
		opts.metrics = m
	}}
}

// WithRejectedTaskHandler is notified of posts refused by a destroyed loop.
func WithRejectedTaskHandler(h RejectedTaskHandler) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) {
		opts.rejectedHandler = h
	}}
}

// WithHistoryCapacity sizes the execution history ring used by RecentTasks.
func WithHistoryCapacity(n int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) {
		opts.historyCapacity = n
	}}
}

// WithIdleHandler installs the idle hook. It runs on the loop goroutine when
// no task is ready and returns true if it did something worth another pass.
func WithIdleHandler(fn func() bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) {
		opts.idleHandler = fn
	}}
}

// WithMessagePump replaces the DefaultPump.
func WithMessagePump(p MessagePump) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) {
		opts.pump = p
	}}
}

func withThreadID(id int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) {
		opts.threadID = id
	}}
}

// withCurrentRunner sets what GetCurrentTaskRunner returns inside tasks.
func withCurrentRunner(r TaskRunner) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) {
		opts.runner = r
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) *loopOptions {
	cfg := &loopOptions{
		historyCapacity: defaultTaskHistoryCapacity,
		threadID:        -1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		opt.applyLoop(cfg)
	}
	if cfg.name == "" {
		cfg.name = "message-loop"
	}
	if cfg.logger == nil {
		cfg.logger = NewDefaultLogger()
	}
	if cfg.panicHandler == nil {
		cfg.panicHandler = &DefaultPanicHandler{Logger: cfg.logger}
	}
	if cfg.metrics == nil {
		cfg.metrics = &NilMetrics{}
	}
	if cfg.rejectedHandler == nil {
		cfg.rejectedHandler = &DefaultRejectedTaskHandler{Logger: cfg.logger}
	}
	if cfg.pump == nil {
		cfg.pump = NewDefaultPump()
	}
	return cfg
}
