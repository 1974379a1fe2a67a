package core

import (
	"context"
	"sync"
	"time"
)

// WaitableEvent is a signalable event that goroutines can block on.
//
// A manual-reset event stays signaled after Signal until Reset is called and
// releases every waiter. An auto-reset event releases exactly one waiter per
// Signal; when nobody is waiting it stays signaled until the next waiter
// consumes it.
//
// Writes made before Signal are visible to the waiter it releases.
type WaitableEvent struct {
	mu          sync.Mutex
	manualReset bool
	signaled    bool
	waiters     []chan struct{}
}

// NewWaitableEvent creates an event in the requested mode and initial state.
func NewWaitableEvent(manualReset, initiallySignaled bool) *WaitableEvent {
	return &WaitableEvent{
		manualReset: manualReset,
		signaled:    initiallySignaled,
	}
}

// Signal puts the event into the signaled state, waking waiters per the reset mode.
func (e *WaitableEvent) Signal() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.manualReset {
		e.signaled = true
		for _, w := range e.waiters {
			w <- struct{}{}
		}
		e.waiters = nil
		return
	}

	if len(e.waiters) > 0 {
		w := e.waiters[0]
		e.waiters[0] = nil
		e.waiters = e.waiters[1:]
		w <- struct{}{}
		return
	}
	e.signaled = true
}

// Reset clears the signaled state.
func (e *WaitableEvent) Reset() {
	e.mu.Lock()
	e.signaled = false
	e.mu.Unlock()
}

// IsSignaled reports the current state. For an auto-reset event a true
// result consumes the signal, the same as a zero-timeout wait.
func (e *WaitableEvent) IsSignaled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.consumeLocked()
}

// Wait blocks until the event is signaled.
func (e *WaitableEvent) Wait() {
	_ = e.wait(context.Background(), nil)
}

// TimedWait blocks for at most timeout. It returns true if the event was
// signaled and false on timeout. A non-positive timeout only polls.
func (e *WaitableEvent) TimedWait(timeout time.Duration) bool {
	if timeout <= 0 {
		return e.IsSignaled()
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	return e.wait(context.Background(), timer.C) == nil
}

// WaitContext blocks until the event is signaled or ctx is done.
func (e *WaitableEvent) WaitContext(ctx context.Context) error {
	return e.wait(ctx, nil)
}

func (e *WaitableEvent) consumeLocked() bool {
	if !e.signaled {
		return false
	}
	if !e.manualReset {
		e.signaled = false
	}
	return true
}

// errWaitTimeout is internal; TimedWait converts it to a bool.
var errWaitTimeout = context.DeadlineExceeded

func (e *WaitableEvent) wait(ctx context.Context, timeout <-chan time.Time) error {
	e.mu.Lock()
	if e.consumeLocked() {
		e.mu.Unlock()
		return nil
	}
	ch := make(chan struct{}, 1)
	e.waiters = append(e.waiters, ch)
	e.mu.Unlock()

	var cause error
	select {
	case <-ch:
		return nil
	case <-timeout:
		cause = errWaitTimeout
	case <-ctx.Done():
		cause = ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.removeWaiterLocked(ch) {
		// Signal already dequeued us, so the wakeup belongs to this waiter.
		<-ch
		return nil
	}
	return cause
}

func (e *WaitableEvent) removeWaiterLocked(ch chan struct{}) bool {
	for i, w := range e.waiters {
		if w == ch {
			copy(e.waiters[i:], e.waiters[i+1:])
			e.waiters[len(e.waiters)-1] = nil
			e.waiters = e.waiters[:len(e.waiters)-1]
			return true
		}
	}
	return false
}
