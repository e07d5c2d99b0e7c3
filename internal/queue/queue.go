package queue

import (
	ring "github.com/eapache/queue"
)

// FIFO is a first-in first-out buffer backed by a ring buffer, so removing
// from the head never shifts the remaining entries. It is not safe for
// concurrent use; callers serialize access.
type FIFO[T any] struct {
	buf *ring.Queue
}

// New returns an empty FIFO.
func New[T any]() *FIFO[T] {
	return &FIFO[T]{buf: ring.New()}
}

func (q *FIFO[T]) Len() int {
	return q.buf.Length()
}

// Push appends v at the tail.
func (q *FIFO[T]) Push(v T) {
	q.buf.Add(v)
}

// Pop removes and returns the head. ok is false when the queue is empty.
func (q *FIFO[T]) Pop() (v T, ok bool) {
	if q.buf.Length() == 0 {
		return v, false
	}
	return q.buf.Remove().(T), true
}

// Peek returns the head without removing it.
func (q *FIFO[T]) Peek() (v T, ok bool) {
	if q.buf.Length() == 0 {
		return v, false
	}
	return q.buf.Peek().(T), true
}

// Reset drops every entry and returns how many were discarded.
func (q *FIFO[T]) Reset() int {
	n := q.buf.Length()
	q.buf = ring.New()
	return n
}
