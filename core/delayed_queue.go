package core

import "container/heap"

// delayedTaskHeap implements heap.Interface
type delayedTaskHeap []*PendingTask

func (h delayedTaskHeap) Len() int           { return len(h) }
func (h delayedTaskHeap) Less(i, j int) bool { return h[i].Less(h[j]) }
func (h delayedTaskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayedTaskHeap) Push(x any) {
	n := len(*h)
	item := x.(*PendingTask)
	item.index = n
	*h = append(*h, item)
}

func (h *delayedTaskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

// DelayedQueue is a min-heap of delayed tasks keyed on (RunAt, Sequence).
// It belongs to the loop goroutine and is not safe for concurrent use.
type DelayedQueue struct {
	pq delayedTaskHeap
}

func NewDelayedQueue() *DelayedQueue {
	return &DelayedQueue{pq: make(delayedTaskHeap, 0)}
}

// Push inserts p and reports whether it became the earliest deadline.
func (q *DelayedQueue) Push(p *PendingTask) bool {
	heap.Push(&q.pq, p)
	return p.index == 0
}

// Peek returns the earliest task without removing it.
func (q *DelayedQueue) Peek() *PendingTask {
	if len(q.pq) == 0 {
		return nil
	}
	return q.pq[0]
}

// Pop removes and returns the earliest task.
func (q *DelayedQueue) Pop() *PendingTask {
	if len(q.pq) == 0 {
		return nil
	}
	return heap.Pop(&q.pq).(*PendingTask)
}

func (q *DelayedQueue) Len() int { return len(q.pq) }

// Clear empties the heap and returns the removed tasks in no particular order.
func (q *DelayedQueue) Clear() []*PendingTask {
	out := []*PendingTask(q.pq)
	for _, p := range out {
		p.index = -1
	}
	q.pq = make(delayedTaskHeap, 0)
	return out
}
