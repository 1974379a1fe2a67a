package core

import "iter"

// ObserverList is an ordered set of observers that tolerates AddObserver and
// RemoveObserver calls from inside an iteration callback.
//
// Removing while an iterator is open leaves an empty slot behind so open
// iterators keep their position. Empty slots are compacted when the last
// iterator closes. Observers added during iteration are appended and are
// visited by iterators that have not yet reached the end.
//
// An ObserverList is bound to one goroutine, typically a loop goroutine.
type ObserverList[T comparable] struct {
	slots      []observerSlot[T]
	live       int
	iterators  int
	tombstones int
}

type observerSlot[T comparable] struct {
	observer T
	live     bool
}

func NewObserverList[T comparable]() *ObserverList[T] {
	return &ObserverList[T]{}
}

// AddObserver appends o. Adding an observer that is already present fails
// with ErrDuplicateObserver.
func (l *ObserverList[T]) AddObserver(o T) error {
	var zero T
	if o == zero {
		return ErrNilObserver
	}
	if l.indexOf(o) >= 0 {
		return ErrDuplicateObserver
	}
	l.slots = append(l.slots, observerSlot[T]{observer: o, live: true})
	l.live++
	return nil
}

// RemoveObserver removes o and reports whether it was present.
func (l *ObserverList[T]) RemoveObserver(o T) bool {
	i := l.indexOf(o)
	if i < 0 {
		return false
	}
	l.live--
	if l.iterators > 0 {
		var zero T
		l.slots[i] = observerSlot[T]{observer: zero}
		l.tombstones++
		return true
	}
	l.slots = append(l.slots[:i], l.slots[i+1:]...)
	return true
}

// HasObserver reports whether o is registered.
func (l *ObserverList[T]) HasObserver(o T) bool {
	return l.indexOf(o) >= 0
}

// Size returns the number of registered observers.
func (l *ObserverList[T]) Size() int { return l.live }

// Clear removes every observer.
func (l *ObserverList[T]) Clear() {
	if l.iterators > 0 {
		var zero T
		for i := range l.slots {
			if l.slots[i].live {
				l.slots[i] = observerSlot[T]{observer: zero}
				l.tombstones++
			}
		}
		l.live = 0
		return
	}
	l.slots = nil
	l.live = 0
	l.tombstones = 0
}

// ForEach calls fn for each observer in insertion order.
func (l *ObserverList[T]) ForEach(fn func(T)) {
	it := l.Iterator()
	defer it.Close()
	for o, ok := it.Next(); ok; o, ok = it.Next() {
		fn(o)
	}
}

// All returns an iterator over the observers for use with range.
func (l *ObserverList[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		it := l.Iterator()
		defer it.Close()
		for o, ok := it.Next(); ok; o, ok = it.Next() {
			if !yield(o) {
				return
			}
		}
	}
}

// Iterator opens an iterator. It must be closed.
func (l *ObserverList[T]) Iterator() *ObserverIterator[T] {
	l.iterators++
	return &ObserverIterator[T]{list: l}
}

func (l *ObserverList[T]) indexOf(o T) int {
	for i, s := range l.slots {
		if s.live && s.observer == o {
			return i
		}
	}
	return -1
}

func (l *ObserverList[T]) compact() {
	out := l.slots[:0]
	for _, s := range l.slots {
		if s.live {
			out = append(out, s)
		}
	}
	clear(l.slots[len(out):])
	l.slots = out
	l.tombstones = 0
}

// ObserverIterator walks an ObserverList skipping removed slots.
type ObserverIterator[T comparable] struct {
	list   *ObserverList[T]
	index  int
	closed bool
}

// Next returns the next live observer.
func (it *ObserverIterator[T]) Next() (T, bool) {
	var zero T
	if it.closed {
		return zero, false
	}
	for it.index < len(it.list.slots) {
		s := it.list.slots[it.index]
		it.index++
		if s.live {
			return s.observer, true
		}
	}
	return zero, false
}

// Close releases the iterator. The last iterator to close compacts the list.
func (it *ObserverIterator[T]) Close() {
	if it.closed {
		return
	}
	it.closed = true
	l := it.list
	l.iterators--
	if l.iterators == 0 && l.tombstones > 0 {
		l.compact()
	}
}
