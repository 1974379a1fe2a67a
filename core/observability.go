package core

import "time"

// TaskExecutionRecord captures a completed task execution event.
type TaskExecutionRecord struct {
	TaskID     TaskID
	Name       string
	LoopName   string
	Sequence   uint32
	Delayed    bool
	PostedAt   time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Panicked   bool
}

// LoopStats is a point-in-time view of a message loop.
type LoopStats struct {
	Name      string
	Running   bool
	Destroyed bool
	Pending   int64
	Delayed   int64
	Executed  int64
	Panicked  int64
	Dropped   int64
	Rejected  int64

	LastTaskName string
	LastTaskAt   time.Time
}

// ThreadStats is a point-in-time view of a worker thread.
type ThreadStats struct {
	Name     string
	State    ThreadState
	ThreadID int
	InFlight int64
	Loop     LoopStats
}
