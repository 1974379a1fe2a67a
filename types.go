package threadobject

import "github.com/Swind/go-threadobject/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the threadobject package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// TaskRunner is the interface for posting tasks
type TaskRunner = core.TaskRunner

// WorkerThread owns a message loop running on a dedicated OS thread
type WorkerThread = core.WorkerThread

// MessageLoop is a per-goroutine task queue and pump
type MessageLoop = core.MessageLoop

// WaitableEvent is a manual- or auto-reset signal
type WaitableEvent = core.WaitableEvent

// TimeTicks is a monotonic instant
type TimeTicks = core.TimeTicks

type (
	WeakReference      = core.WeakReference
	WeakReferenceOwner = core.WeakReferenceOwner
	ThreadStats        = core.ThreadStats
)

// ObserverList holds observers that may be removed while being notified
type ObserverList[T comparable] = core.ObserverList[T]

// TaskWithResult and ReplyWithResult for generic PostTaskAndReply pattern
type TaskWithResult[T any] = core.TaskWithResult[T]
type ReplyWithResult[T any] = core.ReplyWithResult[T]

var (
	NewWorkerThread       = core.NewWorkerThread
	NewMessageLoop        = core.NewMessageLoop
	NewWaitableEvent      = core.NewWaitableEvent
	NewWeakReferenceOwner = core.NewWeakReferenceOwner
	NowTicks              = core.NowTicks
	BindWeak              = core.BindWeak
	PostTaskAndReply      = core.PostTaskAndReply
)

// GetCurrentTaskRunner retrieves the current TaskRunner from context
var GetCurrentTaskRunner = core.GetCurrentTaskRunner

// PostTaskAndReplyWithResult runs task on target and delivers its result to
// reply on replyRunner.
func PostTaskAndReplyWithResult[T any](target TaskRunner, task TaskWithResult[T], reply ReplyWithResult[T], replyRunner TaskRunner) error {
	return core.PostTaskAndReplyWithResult(target, task, reply, replyRunner)
}
