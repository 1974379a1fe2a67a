package core

import (
	"reflect"
	"runtime"
	"sync"

	"github.com/eapache/queue"
)

const defaultTaskHistoryCapacity = 100

// executionHistory keeps the last capacity records a loop produced. The loop
// goroutine appends; Stats and RecentTasks read from anywhere.
type executionHistory struct {
	mu       sync.Mutex
	records  *queue.Queue
	capacity int
}

func newExecutionHistory(capacity int) *executionHistory {
	if capacity < 1 {
		capacity = defaultTaskHistoryCapacity
	}
	return &executionHistory{records: queue.New(), capacity: capacity}
}

// Add appends record, evicting the oldest one when full.
func (h *executionHistory) Add(record TaskExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.records.Length() == h.capacity {
		h.records.Remove()
	}
	h.records.Add(record)
}

// Recent returns up to limit records, newest first.
func (h *executionHistory) Recent(limit int) []TaskExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.records.Length()
	if n == 0 {
		return nil
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]TaskExecutionRecord, limit)
	for i := range out {
		out[i] = h.records.Get(-1 - i).(TaskExecutionRecord)
	}
	return out
}

func (h *executionHistory) Last() (TaskExecutionRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.records.Length() == 0 {
		return TaskExecutionRecord{}, false
	}
	return h.records.Get(-1).(TaskExecutionRecord), true
}

func resolveTaskName(task Task, explicit string) string {
	if explicit != "" {
		return explicit
	}

	if task == nil {
		return "anonymous"
	}

	v := reflect.ValueOf(task)
	if v.Kind() != reflect.Func {
		return "anonymous"
	}

	pc := v.Pointer()
	if pc == 0 {
		return "anonymous"
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "anonymous"
	}

	name := fn.Name()
	if name == "" {
		return "anonymous"
	}
	return name
}
