package core

import (
	"sync"

	"github.com/eapache/queue"
)

// =============================================================================
// IncomingQueue: multi-producer hand-off into the loop
// =============================================================================

// IncomingQueue is the only loop structure touched by other goroutines.
// Producers push under the mutex and the loop goroutine swaps the whole
// buffer out once its working queue runs dry.
type IncomingQueue struct {
	mu     sync.Mutex
	items  *queue.Queue
	seq    uint32
	closed bool
}

func NewIncomingQueue() *IncomingQueue {
	return &IncomingQueue{items: queue.New()}
}

// Push stamps the next sequence number on p and appends it.
// It returns false if the queue was closed, in which case p is untouched.
func (q *IncomingQueue) Push(p *PendingTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.seq++
	p.Sequence = q.seq
	q.items.Add(p)
	return true
}

// SwapInto moves every queued task into w when w is empty.
// It returns the number of tasks moved.
func (q *IncomingQueue) SwapInto(w *WorkQueue) int {
	if w.Len() != 0 {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.items.Length()
	if n == 0 {
		return 0
	}
	q.items, w.items = w.items, q.items
	return n
}

// Len returns the number of queued tasks.
func (q *IncomingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Close refuses further pushes and returns whatever was still queued.
func (q *IncomingQueue) Close() []*PendingTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return drainQueue(q.items)
}

// =============================================================================
// WorkQueue: single-consumer FIFO owned by the loop goroutine
// =============================================================================

// WorkQueue is not safe for concurrent use.
type WorkQueue struct {
	items *queue.Queue
}

func NewWorkQueue() *WorkQueue {
	return &WorkQueue{items: queue.New()}
}

func (w *WorkQueue) Push(p *PendingTask) { w.items.Add(p) }

// Pop removes the front task, or returns nil when empty.
func (w *WorkQueue) Pop() *PendingTask {
	if w.items.Length() == 0 {
		return nil
	}
	return w.items.Remove().(*PendingTask)
}

func (w *WorkQueue) Len() int { return w.items.Length() }

// Drain empties the queue and returns its tasks in order.
func (w *WorkQueue) Drain() []*PendingTask {
	return drainQueue(w.items)
}

func drainQueue(q *queue.Queue) []*PendingTask {
	out := make([]*PendingTask, 0, q.Length())
	for q.Length() > 0 {
		out = append(out, q.Remove().(*PendingTask))
	}
	return out
}
