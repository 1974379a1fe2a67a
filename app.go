package threadobject

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/Swind/go-threadobject/config"
	"github.com/Swind/go-threadobject/core"
)

var (
	// ErrAppShutdown is returned when registering with an App that has finished shutting down.
	ErrAppShutdown = errors.New("threadobject: app has been shut down")

	// ErrDuplicateThread is returned by NewThread when the name is taken.
	ErrDuplicateThread = errors.New("threadobject: thread name already registered")
)

// App is the process context. It owns named worker threads and lazily built
// singletons, and tears everything down in reverse order of registration.
//
// Construct one App at startup and pass it to whatever needs it:
//
//	app := threadobject.NewApp(config.MustLoad())
//	defer app.Shutdown()
//
//	io, err := app.NewThread("io")
type App struct {
	cfg     config.Config
	logger  core.Logger
	metrics core.Metrics

	mu         sync.Mutex
	exits      []func() error
	closing    bool
	closed     bool
	done       chan struct{}
	threads    map[string]*core.WorkerThread
	singletons map[any]*lazySlot
}

// AppOption configures an App.
type AppOption func(*App)

// WithAppLogger sets the logger handed to every thread the App creates.
func WithAppLogger(l core.Logger) AppOption {
	return func(a *App) { a.logger = l }
}

// WithAppMetrics sets the metrics sink handed to every thread the App creates.
func WithAppMetrics(m core.Metrics) AppOption {
	return func(a *App) { a.metrics = m }
}

// NewApp creates an App. Without WithAppLogger it logs through a logger
// built from cfg, writing to stderr.
func NewApp(cfg config.Config, opts ...AppOption) *App {
	a := &App{
		cfg:        cfg,
		done:       make(chan struct{}),
		threads:    make(map[string]*core.WorkerThread),
		singletons: make(map[any]*lazySlot),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = newConfiguredLogger(cfg)
	}
	if a.metrics == nil {
		a.metrics = &core.NilMetrics{}
	}
	return a
}

func (a *App) Config() config.Config { return a.cfg }
func (a *App) Logger() core.Logger   { return a.logger }
func (a *App) Metrics() core.Metrics { return a.metrics }

// AtExit registers fn to run during Shutdown. Callbacks run last-in,
// first-out. A callback may itself call AtExit; the new callback runs next.
func (a *App) AtExit(fn func() error) error {
	if fn == nil {
		return core.ErrNilTask
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAppShutdown
	}
	a.exits = append(a.exits, fn)
	return nil
}

// Shutdown runs every AtExit callback in reverse registration order and
// returns their joined errors. A panicking callback is recovered and reported
// as a *core.PanicError. Later calls wait for the first one to finish and
// return nil, so an AtExit callback must not call Shutdown.
func (a *App) Shutdown() error {
	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		<-a.done
		return nil
	}
	a.closing = true
	a.mu.Unlock()
	defer close(a.done)

	var errs []error
	for {
		a.mu.Lock()
		n := len(a.exits)
		if n == 0 {
			a.closed = true
			a.mu.Unlock()
			break
		}
		fn := a.exits[n-1]
		a.exits[n-1] = nil
		a.exits = a.exits[:n-1]
		a.mu.Unlock()

		if err := runExit(fn); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) != 0 {
		a.logger.Warn("app shutdown finished with errors", core.F("errors", len(errs)))
	} else {
		a.logger.Debug("app shutdown complete")
	}
	return errors.Join(errs...)
}

func runExit(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// NewThread creates and starts a worker thread that is stopped at Shutdown.
// The thread uses the App's logger, metrics, start timeout and history
// capacity; opts are applied after those.
func (a *App) NewThread(name string, opts ...core.ThreadOption) (*core.WorkerThread, error) {
	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		return nil, ErrAppShutdown
	}
	if _, ok := a.threads[name]; ok {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateThread, name)
	}
	base := []core.ThreadOption{
		core.WithThreadLogger(a.logger),
		core.WithThreadMetrics(a.metrics),
	}
	if a.cfg.StartTimeout > 0 {
		base = append(base, core.WithStartTimeout(a.cfg.StartTimeout))
	}
	if a.cfg.HistoryCapacity > 0 {
		base = append(base, core.WithLoopOptions(core.WithHistoryCapacity(a.cfg.HistoryCapacity)))
	}
	th := core.NewWorkerThread(name, append(base, opts...)...)
	a.threads[name] = th
	a.mu.Unlock()

	if err := th.StartWithOptions(core.Options{}); err != nil {
		a.mu.Lock()
		delete(a.threads, name)
		a.mu.Unlock()
		return nil, err
	}
	if err := a.AtExit(func() error {
		th.Stop()
		return nil
	}); err != nil {
		th.Stop()
		return nil, err
	}
	return th, nil
}

// Thread returns the thread registered under name, or nil.
func (a *App) Thread(name string) *core.WorkerThread {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.threads[name]
}

// ThreadStats snapshots every registered thread, sorted by name.
func (a *App) ThreadStats() []core.ThreadStats {
	a.mu.Lock()
	threads := make([]*core.WorkerThread, 0, len(a.threads))
	for _, th := range a.threads {
		threads = append(threads, th)
	}
	a.mu.Unlock()

	sort.Slice(threads, func(i, j int) bool { return threads[i].Name() < threads[j].Name() })
	out := make([]core.ThreadStats, len(threads))
	for i, th := range threads {
		out[i] = th.Stats()
	}
	return out
}

// =============================================================================
// Lazy singletons
// =============================================================================

type lazySlot struct {
	once  sync.Once
	value any
}

// Lazy is a value built on first use and owned by an App. One Lazy may be
// shared by several Apps; each App gets its own instance.
//
// When Close is set it is registered with AtExit right after New returns, so
// a singleton built from inside another's New is torn down first. Leave Close
// nil for values that need no teardown.
type Lazy[T any] struct {
	New   func(app *App) T
	Close func(T) error
}

// Get returns app's instance, constructing it on the first call. Concurrent
// callers block until construction finishes. Calling Get for the same Lazy
// from inside its own New deadlocks.
func (l *Lazy[T]) Get(app *App) T {
	app.mu.Lock()
	slot, ok := app.singletons[l]
	if !ok {
		slot = new(lazySlot)
		app.singletons[l] = slot
	}
	app.mu.Unlock()

	slot.once.Do(func() {
		v := l.New(app)
		slot.value = v
		if l.Close != nil {
			if err := app.AtExit(func() error { return l.Close(v) }); err != nil {
				app.logger.Warn("singleton built after shutdown will not be closed", core.F("error", err))
			}
		}
	})
	v, _ := slot.value.(T)
	return v
}
