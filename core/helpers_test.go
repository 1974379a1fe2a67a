package core

import (
	"context"
	"sync"
	"time"
)

// TestPanicHandler is a mock panic handler for testing
type TestPanicHandler struct {
	mu    sync.Mutex
	calls []PanicCall
}

type PanicCall struct {
	LoopName  string
	ThreadID  int
	PanicInfo any
	Stack     []byte
}

func NewTestPanicHandler() *TestPanicHandler {
	return &TestPanicHandler{}
}

func (h *TestPanicHandler) HandlePanic(ctx context.Context, loopName string, threadID int, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, PanicCall{
		LoopName:  loopName,
		ThreadID:  threadID,
		PanicInfo: panicInfo,
		Stack:     stackTrace,
	})
}

func (h *TestPanicHandler) GetCalls() []PanicCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]PanicCall(nil), h.calls...)
}

// recordingLogger keeps the messages logged at warn level.
type recordingLogger struct {
	NoOpLogger
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Warn(msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Warns() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

// recordingMetrics keeps counts of every Metrics call.
type recordingMetrics struct {
	mu        sync.Mutex
	durations map[string]int
	panics    int
	rejected  map[string]int
	dropped   int
	depths    []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		durations: make(map[string]int),
		rejected:  make(map[string]int),
	}
}

func (m *recordingMetrics) RecordTaskDuration(loopName string, taskName string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[taskName]++
}

func (m *recordingMetrics) RecordTaskPanic(loopName string, panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics++
}

func (m *recordingMetrics) RecordQueueDepth(loopName string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depths = append(m.depths, depth)
}

func (m *recordingMetrics) RecordTaskRejected(loopName string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *recordingMetrics) RecordTasksDropped(loopName string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped += count
}

func (m *recordingMetrics) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

func (m *recordingMetrics) Rejected(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[reason]
}

func (m *recordingMetrics) Panics() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.panics
}

// orderRecorder collects labels from tasks running on any goroutine.
type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *orderRecorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, s)
}

func (r *orderRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func (r *orderRecorder) task(s string) Task {
	return func(context.Context) { r.add(s) }
}

func newTestLoop(opts ...LoopOption) *MessageLoop {
	return NewMessageLoop(append([]LoopOption{WithLogger(NewNoOpLogger())}, opts...)...)
}

func newTestThread(name string, opts ...ThreadOption) *WorkerThread {
	return NewWorkerThread(name, append([]ThreadOption{WithThreadLogger(NewNoOpLogger())}, opts...)...)
}
