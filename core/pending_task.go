package core

import (
	"context"
	"sync/atomic"
	"time"
)

// PendingTask is a task waiting in one of the loop's queues.
//
// RunAt is null for immediate work. Sequence is stamped when the task enters
// the incoming queue and only breaks ties between equal RunAt values.
type PendingTask struct {
	ID       TaskID
	Name     string
	Task     Task
	RunAt    TimeTicks
	Sequence uint32
	PostedAt time.Time

	// Cleanup runs exactly once, after the task ran or when it was dropped.
	Cleanup func()

	done  atomic.Bool
	index int // for heap interface
}

func newPendingTask(task Task, name string, runAt TimeTicks, cleanup func()) *PendingTask {
	return &PendingTask{
		ID:       GenerateTaskID(),
		Name:     name,
		Task:     task,
		RunAt:    runAt,
		PostedAt: time.Now(),
		Cleanup:  cleanup,
		index:    -1,
	}
}

// IsDelayed reports whether the task carries a scheduled instant.
func (p *PendingTask) IsDelayed() bool { return !p.RunAt.IsNull() }

// Run invokes the task at most once. Later calls are no-ops.
func (p *PendingTask) Run(ctx context.Context) {
	if !p.done.CompareAndSwap(false, true) {
		return
	}
	task, cleanup := p.Task, p.Cleanup
	p.Task, p.Cleanup = nil, nil
	if cleanup != nil {
		defer cleanup()
	}
	if task != nil {
		task(ctx)
	}
}

// Reset drops the task without running it.
func (p *PendingTask) Reset() {
	if !p.done.CompareAndSwap(false, true) {
		return
	}
	cleanup := p.Cleanup
	p.Task, p.Cleanup = nil, nil
	if cleanup != nil {
		cleanup()
	}
}

// Less orders p before o: earlier RunAt first, then the earlier sequence.
func (p *PendingTask) Less(o *PendingTask) bool {
	if !p.RunAt.Equal(o.RunAt) {
		return p.RunAt.Before(o.RunAt)
	}
	return SequenceBefore(p.Sequence, o.Sequence)
}

// SequenceBefore compares sequence numbers so that wrap-around at 2^32 does
// not invert order: 4294967295 comes before 0.
func SequenceBefore(a, b uint32) bool {
	return int32(a-b) < 0
}
