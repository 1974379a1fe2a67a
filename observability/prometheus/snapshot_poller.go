package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-threadobject/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ThreadSnapshotProvider provides current thread stats snapshots.
type ThreadSnapshotProvider interface {
	Stats() core.ThreadStats
}

// LoopSnapshotProvider provides current loop stats snapshots.
type LoopSnapshotProvider interface {
	Stats() core.LoopStats
}

// ThreadStatsSource reports a set of threads that may change over time,
// such as every thread owned by an App.
type ThreadStatsSource interface {
	ThreadStats() []core.ThreadStats
}

// SnapshotPoller periodically exports thread and loop Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	providersMu sync.RWMutex
	threads     map[string]ThreadSnapshotProvider
	loops       map[string]LoopSnapshotProvider
	sources     []ThreadStatsSource

	threadRunning  *prom.GaugeVec
	threadInFlight *prom.GaugeVec

	loopPending  *prom.GaugeVec
	loopDelayed  *prom.GaugeVec
	loopExecuted *prom.GaugeVec
	loopPanicked *prom.GaugeVec
	loopDropped  *prom.GaugeVec
	loopRunning  *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = "threadobject"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	p := &SnapshotPoller{
		interval:       interval,
		threads:        make(map[string]ThreadSnapshotProvider),
		loops:          make(map[string]LoopSnapshotProvider),
		threadRunning:  gauge("thread_running", "Thread running state (1=running, 0=not running).", "thread", "state"),
		threadInFlight: gauge("thread_in_flight", "Outstanding requests bracketed by IncInFlight/DecInFlight.", "thread"),
		loopPending:    gauge("loop_pending", "Tasks posted to the loop that it has not yet run or scheduled.", "loop"),
		loopDelayed:    gauge("loop_delayed", "Delayed tasks waiting in the loop.", "loop"),
		loopExecuted:   gauge("loop_executed_total", "Loop executed task count snapshot.", "loop"),
		loopPanicked:   gauge("loop_panicked_total", "Loop panicked task count snapshot.", "loop"),
		loopDropped:    gauge("loop_dropped_total", "Loop dropped task count snapshot.", "loop"),
		loopRunning:    gauge("loop_running", "Loop running state (1=running, 0=idle or destroyed).", "loop"),
	}

	for _, vec := range []**prom.GaugeVec{
		&p.threadRunning, &p.threadInFlight,
		&p.loopPending, &p.loopDelayed, &p.loopExecuted,
		&p.loopPanicked, &p.loopDropped, &p.loopRunning,
	} {
		registered, err := registerCollector(reg, *vec)
		if err != nil {
			return nil, err
		}
		*vec = registered
	}
	return p, nil
}

// AddThread adds or replaces a thread snapshot provider by name.
func (p *SnapshotPoller) AddThread(name string, provider ThreadSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "thread")
	p.providersMu.Lock()
	p.threads[name] = provider
	p.providersMu.Unlock()
}

// AddLoop adds or replaces a loop snapshot provider by name.
func (p *SnapshotPoller) AddLoop(name string, provider LoopSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "loop")
	p.providersMu.Lock()
	p.loops[name] = provider
	p.providersMu.Unlock()
}

// AddSource adds a source whose threads are re-listed on every poll.
func (p *SnapshotPoller) AddSource(source ThreadStatsSource) {
	if p == nil || source == nil {
		return
	}
	p.providersMu.Lock()
	p.sources = append(p.sources, source)
	p.providersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.providersMu.RLock()
	defer p.providersMu.RUnlock()

	for name, provider := range p.threads {
		p.setThread(name, provider.Stats())
	}
	for _, source := range p.sources {
		for _, stats := range source.ThreadStats() {
			p.setThread(normalizeLabel(stats.Name, "thread"), stats)
		}
	}
	for name, provider := range p.loops {
		p.setLoop(name, provider.Stats())
	}
}

func (p *SnapshotPoller) setThread(name string, stats core.ThreadStats) {
	p.threadRunning.DeletePartialMatch(prom.Labels{"thread": name})
	p.threadRunning.WithLabelValues(name, stats.State.String()).Set(boolGauge(stats.State == core.ThreadRunning))
	p.threadInFlight.WithLabelValues(name).Set(float64(stats.InFlight))
	p.setLoop(name, stats.Loop)
}

func (p *SnapshotPoller) setLoop(name string, stats core.LoopStats) {
	p.loopPending.WithLabelValues(name).Set(float64(stats.Pending))
	p.loopDelayed.WithLabelValues(name).Set(float64(stats.Delayed))
	p.loopExecuted.WithLabelValues(name).Set(float64(stats.Executed))
	p.loopPanicked.WithLabelValues(name).Set(float64(stats.Panicked))
	p.loopDropped.WithLabelValues(name).Set(float64(stats.Dropped))
	p.loopRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
