package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO_PreservesOrder(t *testing.T) {
	q := New[int]()
	for i := 1; i <= 100; i++ {
		q.Push(i)
	}

	for i := 1; i <= 100; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestFIFO_PopEmpty(t *testing.T) {
	q := New[string]()

	v, ok := q.Pop()

	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestFIFO_PeekDoesNotRemove(t *testing.T) {
	q := New[string]()
	q.Push("first")
	q.Push("second")

	for i := 0; i < 5; i++ {
		v, ok := q.Peek()
		require.True(t, ok)
		assert.Equal(t, "first", v)
	}
	assert.Equal(t, 2, q.Len())

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "first", v)
	assert.Equal(t, 1, q.Len())
}

func TestFIFO_PeekEmpty(t *testing.T) {
	q := New[int]()

	_, ok := q.Peek()

	assert.False(t, ok)
}

func TestFIFO_Reset(t *testing.T) {
	q := New[int]()
	assert.Equal(t, 0, q.Reset())

	q.Push(1)
	q.Push(2)
	q.Push(3)

	assert.Equal(t, 3, q.Reset())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.Reset())

	q.Push(4)
	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestFIFO_InterleavedWrapAround(t *testing.T) {
	q := New[int]()
	next := 0
	want := 0
	// Keep the buffer partially full while pushing past its initial capacity
	// so head and tail wrap.
	for round := 0; round < 50; round++ {
		for i := 0; i < 3; i++ {
			q.Push(next)
			next++
		}
		for i := 0; i < 2; i++ {
			v, ok := q.Pop()
			require.True(t, ok)
			assert.Equal(t, want, v)
			want++
		}
	}
	assert.Equal(t, next-want, q.Len())
}
