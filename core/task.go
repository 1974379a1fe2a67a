package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Task is the unit of work (Closure)
type Task func(ctx context.Context)

// TaskWithResult is a unit of work producing a value for a reply.
type TaskWithResult[T any] func(ctx context.Context) (T, error)

// ReplyWithResult receives the value produced by a TaskWithResult.
type ReplyWithResult[T any] func(ctx context.Context, result T, err error)

// TaskID identifies a posted task in logs and execution history.
type TaskID uuid.UUID

// GenerateTaskID returns a new random TaskID.
func GenerateTaskID() TaskID {
	return TaskID(uuid.New())
}

func (id TaskID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id was never assigned.
func (id TaskID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// =============================================================================
// TaskRunner: Define task submission interface
// =============================================================================

// TaskRunner accepts work from any goroutine.
// Both methods reject a nil task with ErrNilTask and PostDelayedTask rejects
// a negative delay with ErrNegativeDelay.
type TaskRunner interface {
	PostTask(task Task) error
	PostDelayedTask(task Task, delay time.Duration) error
}

// =============================================================================
// Context Helper
// =============================================================================
type taskRunnerKeyType struct{}
type messageLoopKeyType struct{}

var (
	taskRunnerKey  taskRunnerKeyType
	messageLoopKey messageLoopKeyType
)

// GetCurrentTaskRunner returns the runner executing the task that owns ctx.
func GetCurrentTaskRunner(ctx context.Context) TaskRunner {
	if v := ctx.Value(taskRunnerKey); v != nil {
		return v.(TaskRunner)
	}
	return nil
}

// CurrentMessageLoop returns the loop executing the task that owns ctx.
func CurrentMessageLoop(ctx context.Context) *MessageLoop {
	if v := ctx.Value(messageLoopKey); v != nil {
		return v.(*MessageLoop)
	}
	return nil
}

func contextWithRunner(ctx context.Context, runner TaskRunner) context.Context {
	return context.WithValue(ctx, taskRunnerKey, runner)
}
