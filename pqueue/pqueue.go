// Package pqueue provides an indexed binary heap: a priority queue that can
// also locate any key, so re-prioritizing or erasing an arbitrary key is
// O(log n) instead of O(n).
package pqueue

import "golang.org/x/exp/constraints"

type entry[K comparable, P constraints.Ordered] struct {
	key      K
	priority P
}

// Queue maps keys to priorities and keeps the extreme priority on top.
// The heap array and the key index are updated together on every swap, so
// index[k] is always the slot currently holding k.
//
// Queue is not safe for concurrent use.
type Queue[K comparable, P constraints.Ordered] struct {
	heap  []entry[K, P]
	index map[K]int
	// before reports whether a belongs closer to the top than b
	before func(a, b P) bool
}

// NewMin returns a queue whose Top is the key with the smallest priority.
func NewMin[K comparable, P constraints.Ordered]() *Queue[K, P] {
	return &Queue[K, P]{
		index:  make(map[K]int),
		before: func(a, b P) bool { return a < b },
	}
}

// NewMax returns a queue whose Top is the key with the largest priority.
func NewMax[K comparable, P constraints.Ordered]() *Queue[K, P] {
	return &Queue[K, P]{
		index:  make(map[K]int),
		before: func(a, b P) bool { return a > b },
	}
}

// SetPriority inserts key with the given priority, or moves it if it is
// already queued.
func (q *Queue[K, P]) SetPriority(key K, priority P) {
	if i, ok := q.index[key]; ok {
		old := q.heap[i].priority
		q.heap[i].priority = priority
		switch {
		case q.before(priority, old):
			q.up(i)
		case q.before(old, priority):
			q.down(i)
		}
		return
	}

	q.heap = append(q.heap, entry[K, P]{key: key, priority: priority})
	i := len(q.heap) - 1
	q.index[key] = i
	q.up(i)
}

// Top returns the key with the extreme priority. It panics on an empty queue.
func (q *Queue[K, P]) Top() K {
	if len(q.heap) == 0 {
		panic("pqueue: Top called on empty queue")
	}
	return q.heap[0].key
}

// TopPriority returns the extreme priority. It panics on an empty queue.
func (q *Queue[K, P]) TopPriority() P {
	if len(q.heap) == 0 {
		panic("pqueue: TopPriority called on empty queue")
	}
	return q.heap[0].priority
}

// Pop removes the top element. It panics on an empty queue.
func (q *Queue[K, P]) Pop() {
	if len(q.heap) == 0 {
		panic("pqueue: Pop called on empty queue")
	}
	q.removeAt(0)
}

// PopTop removes the top element and returns it.
func (q *Queue[K, P]) PopTop() (K, P) {
	key, priority := q.Top(), q.TopPriority()
	q.removeAt(0)
	return key, priority
}

// Erase removes key if it is queued.
func (q *Queue[K, P]) Erase(key K) {
	if i, ok := q.index[key]; ok {
		q.removeAt(i)
	}
}

// Priority returns the current priority of key.
func (q *Queue[K, P]) Priority(key K) (P, bool) {
	i, ok := q.index[key]
	if !ok {
		var zero P
		return zero, false
	}
	return q.heap[i].priority, true
}

// Contains reports whether key is queued.
func (q *Queue[K, P]) Contains(key K) bool {
	_, ok := q.index[key]
	return ok
}

// Empty reports whether the queue holds no keys.
func (q *Queue[K, P]) Empty() bool {
	return len(q.heap) == 0
}

// Len returns the number of queued keys.
func (q *Queue[K, P]) Len() int {
	return len(q.heap)
}

// Clear removes every key.
func (q *Queue[K, P]) Clear() {
	q.heap = q.heap[:0]
	q.index = make(map[K]int)
}

func (q *Queue[K, P]) removeAt(i int) {
	last := len(q.heap) - 1
	delete(q.index, q.heap[i].key)
	if i == last {
		q.heap = q.heap[:last]
		return
	}

	q.heap[i] = q.heap[last]
	q.index[q.heap[i].key] = i
	q.heap = q.heap[:last]

	// The moved entry may belong above or below its new slot
	if i > 0 && q.before(q.heap[i].priority, q.heap[(i-1)/2].priority) {
		q.up(i)
	} else {
		q.down(i)
	}
}

func (q *Queue[K, P]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.before(q.heap[i].priority, q.heap[parent].priority) {
			return
		}
		q.swap(i, parent)
		i = parent
	}
}

func (q *Queue[K, P]) down(i int) {
	n := len(q.heap)
	for {
		best := i
		left, right := 2*i+1, 2*i+2
		if left < n && q.before(q.heap[left].priority, q.heap[best].priority) {
			best = left
		}
		if right < n && q.before(q.heap[right].priority, q.heap[best].priority) {
			best = right
		}
		if best == i {
			return
		}
		q.swap(i, best)
		i = best
	}
}

func (q *Queue[K, P]) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.index[q.heap[i].key] = i
	q.index[q.heap[j].key] = j
}

// valid reports whether the heap order holds and the index matches every slot.
func (q *Queue[K, P]) valid() bool {
	if len(q.index) != len(q.heap) {
		return false
	}
	for i, e := range q.heap {
		if j, ok := q.index[e.key]; !ok || j != i {
			return false
		}
		if i > 0 && q.before(e.priority, q.heap[(i-1)/2].priority) {
			return false
		}
	}
	return true
}
