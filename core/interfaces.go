package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
// This allows custom panic handling, logging, and recovery strategies.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called on the loop goroutine after the panic has been
	// recovered. The loop keeps running once it returns.
	//
	// Parameters:
	// - ctx: The context from the panicked task
	// - loopName: The name of the loop where the panic occurred
	// - threadID: The OS thread id of a worker thread, or -1 for a bare loop
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, loopName string, threadID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic value and stack at error level.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, loopName string, threadID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Error("task panicked",
		F("loop", loopName),
		F("thread_id", threadID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called from loop goroutines and should be non-blocking and fast
// to avoid impacting task execution performance.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	RecordTaskDuration(loopName string, taskName string, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(loopName string, panicInfo any)

	// RecordQueueDepth records the number of tasks waiting in the loop,
	// immediate and delayed combined. Called after each pump pass that did work.
	RecordQueueDepth(loopName string, depth int)

	// RecordTaskRejected records that a task was refused at post time.
	RecordTaskRejected(loopName string, reason string)

	// RecordTasksDropped records tasks discarded unrun when a loop was destroyed.
	RecordTasksDropped(loopName string, count int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(loopName string, taskName string, duration time.Duration) {
}
func (m *NilMetrics) RecordTaskPanic(loopName string, panicInfo any)    {}
func (m *NilMetrics) RecordQueueDepth(loopName string, depth int)       {}
func (m *NilMetrics) RecordTaskRejected(loopName string, reason string) {}
func (m *NilMetrics) RecordTasksDropped(loopName string, count int)     {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a task is refused, for example because
// it was posted to a thread that is not running.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	// HandleRejectedTask is called when a task is rejected.
	//
	// Parameters:
	// - loopName: The name of the loop or thread that refused the task
	// - reason: Why the task was rejected (e.g., "not running", "destroyed")
	HandleRejectedTask(loopName string, reason string)
}

// DefaultRejectedTaskHandler logs rejected tasks at warn level.
type DefaultRejectedTaskHandler struct {
	Logger Logger
}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(loopName string, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Warn("task rejected", F("loop", loopName), F("reason", reason))
}
