package core

import "context"

// PumpDelegate is implemented by the loop a pump drives. All three methods
// run on the loop goroutine.
type PumpDelegate interface {
	// DoWork runs at most one immediate task and reports whether it did.
	DoWork(ctx context.Context) bool

	// DoDelayedWork runs at most one due delayed task. It stores the next
	// pending deadline in next, or the null instant when there is none.
	DoDelayedWork(ctx context.Context, next *TimeTicks) bool

	// DoIdleWork is called when neither queue had anything to run.
	DoIdleWork(ctx context.Context) bool
}

// MessagePump owns the sleep/wake cycle of a loop.
type MessagePump interface {
	// Run drives delegate until Quit is called or ctx is done.
	Run(ctx context.Context, delegate PumpDelegate) error

	// Quit makes Run return after the current pass. Loop goroutine only.
	Quit()

	// ScheduleWork wakes a sleeping Run. Safe from any goroutine.
	ScheduleWork()

	// ScheduleDelayedWork lowers the next wake deadline. Loop goroutine only.
	ScheduleDelayedWork(runAt TimeTicks)
}

// DefaultPump sleeps on an auto-reset WaitableEvent, either until the next
// delayed deadline or until ScheduleWork signals it.
type DefaultPump struct {
	event *WaitableEvent

	// loop goroutine only
	keepRunning     bool
	delayedWorkTime TimeTicks
}

var _ MessagePump = (*DefaultPump)(nil)

func NewDefaultPump() *DefaultPump {
	return &DefaultPump{event: NewWaitableEvent(false, false)}
}

// Run loops over DoWork, DoDelayedWork and DoIdleWork. Any phase that did
// work restarts the pass from DoWork, so immediate work always drains before
// delayed or idle work is looked at.
func (p *DefaultPump) Run(ctx context.Context, delegate PumpDelegate) error {
	p.keepRunning = true
	defer func() { p.keepRunning = false }()

	stop := context.AfterFunc(ctx, p.ScheduleWork)
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		didWork := delegate.DoWork(ctx)
		if !p.keepRunning {
			break
		}
		if didWork {
			continue
		}

		didWork = delegate.DoDelayedWork(ctx, &p.delayedWorkTime)
		if !p.keepRunning {
			break
		}
		if didWork {
			continue
		}

		didWork = delegate.DoIdleWork(ctx)
		if !p.keepRunning {
			break
		}
		if didWork {
			continue
		}

		if p.delayedWorkTime.IsNull() {
			p.event.Wait()
			continue
		}
		delay := p.delayedWorkTime.Sub(NowTicks())
		if delay > 0 {
			p.event.TimedWait(delay)
		} else {
			// deadline already passed; DoDelayedWork refreshes it next pass
			p.delayedWorkTime = TimeTicks{}
		}
	}
	return nil
}

func (p *DefaultPump) Quit() {
	p.keepRunning = false
}

func (p *DefaultPump) ScheduleWork() {
	p.event.Signal()
}

func (p *DefaultPump) ScheduleDelayedWork(runAt TimeTicks) {
	p.delayedWorkTime = runAt
}
