/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ring

const minQueueCap = 4

// Queue is a GC friendly FIFO queue backed by a growable ring buffer.
// items are kept in one slice which doubles when full and never shrinks.
// type V should NOT contain pointer for performance concern.
type Queue[V comparable] struct {
	items []V
	head  int
	size  int
}

// NewQueue creates a queue with room for capacity items before the first grow.
func NewQueue[V comparable](capacity int) *Queue[V] {
	if capacity < minQueueCap {
		capacity = minQueueCap
	}
	return &Queue[V]{items: make([]V, capacity)}
}

// NewQueueFromSlice creates a queue holding vv in order.
func NewQueueFromSlice[V comparable](vv []V) *Queue[V] {
	q := NewQueue[V](len(vv))
	for _, v := range vv {
		q.PushBack(v)
	}
	return q
}

// PushBack appends v to the tail of the queue.
func (q *Queue[V]) PushBack(v V) {
	if q.size == len(q.items) {
		q.grow()
	}
	q.items[q.slot(q.size)] = v
	q.size++
}

// PopFront removes and returns the head of the queue.
func (q *Queue[V]) PopFront() (V, bool) {
	var zero V
	if q.size == 0 {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return v, true
}

// Front returns the head of the queue without removing it.
func (q *Queue[V]) Front() (V, bool) {
	return q.Get(0)
}

// Get returns the ith item counted from the head.
func (q *Queue[V]) Get(i int) (V, bool) {
	if i < 0 || i >= q.size {
		var zero V
		return zero, false
	}
	return q.items[q.slot(i)], true
}

// Index returns the position of the first item equal to v, or -1.
func (q *Queue[V]) Index(v V) int {
	for i := 0; i < q.size; i++ {
		if q.items[q.slot(i)] == v {
			return i
		}
	}
	return -1
}

// RemoveAt removes the ith item. Items behind it keep their order.
func (q *Queue[V]) RemoveAt(i int) bool {
	if i < 0 || i >= q.size {
		return false
	}
	for j := i; j < q.size-1; j++ {
		q.items[q.slot(j)] = q.items[q.slot(j+1)]
	}
	var zero V
	q.items[q.slot(q.size-1)] = zero
	q.size--
	return true
}

// Remove removes the first item equal to v.
func (q *Queue[V]) Remove(v V) bool {
	return q.RemoveAt(q.Index(v))
}

// Do calls function f on each item of the queue in FIFO order.
func (q *Queue[V]) Do(f func(v V)) {
	for i := 0; i < q.size; i++ {
		f(q.items[q.slot(i)])
	}
}

// Values returns a copy of the items in FIFO order.
func (q *Queue[V]) Values() []V {
	vv := make([]V, 0, q.size)
	q.Do(func(v V) { vv = append(vv, v) })
	return vv
}

// Len returns the number of items in the queue.
func (q *Queue[V]) Len() int {
	return q.size
}

// Cap returns the number of items the queue holds before it grows.
func (q *Queue[V]) Cap() int {
	return len(q.items)
}

func (q *Queue[V]) slot(i int) int {
	return (q.head + i) % len(q.items)
}

// grow doubles the buffer and unwraps the items so head is back at 0.
func (q *Queue[V]) grow() {
	n := len(q.items) * 2
	if n < minQueueCap {
		n = minQueueCap
	}
	items := make([]V, n)
	for i := 0; i < q.size; i++ {
		items[i] = q.items[q.slot(i)]
	}
	q.items = items
	q.head = 0
}
