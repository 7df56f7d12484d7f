package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedQueueFIFO(t *testing.T) {
	t.Parallel()

	q := NewBoundedQueue(4)
	assert.Equal(t, 0, q.Len())

	for i := 0; i < 3; i++ {
		evicted := q.Push([]float32{float32(i)})
		assert.False(t, evicted)
	}
	assert.Equal(t, 3, q.Len())

	for i := 0; i < 3; i++ {
		buf, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, float32(i), buf[0])
	}

	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestBoundedQueueEvictsOldest(t *testing.T) {
	t.Parallel()

	// Pushing 11 buffers into a capacity-10 queue keeps the 10 most recent.
	q := NewBoundedQueue(10)
	for i := 0; i < 11; i++ {
		evicted := q.Push([]float32{float32(i)})
		assert.Equal(t, i == 10, evicted, "push %d", i)
	}

	require.Equal(t, 10, q.Len())
	for i := 1; i <= 10; i++ {
		buf, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, float32(i), buf[0])
	}
}

func TestBoundedQueueWrapsAround(t *testing.T) {
	t.Parallel()

	q := NewBoundedQueue(3)
	for i := 0; i < 10; i++ {
		q.Push([]float32{float32(i)})
		if i%2 == 1 {
			buf, ok := q.Pop()
			require.True(t, ok)
			assert.NotNil(t, buf)
		}
	}
	// Interleaved push/pop must preserve order of the survivors: ten pushes
	// minus five pops minus the evictions at pushes 5, 7 and 9.
	var got []float32
	for {
		buf, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, buf[0])
	}
	assert.Equal(t, []float32{8, 9}, got)
}

func TestBoundedQueueClear(t *testing.T) {
	t.Parallel()

	q := NewBoundedQueue(5)
	for i := 0; i < 5; i++ {
		q.Push(make([]float32, 8))
	}
	q.Clear()
	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)

	// Queue is reusable after Clear.
	q.Push([]float32{42})
	buf, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, float32(42), buf[0])
}

func TestBoundedQueueDefaultCapacity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultQueueDepth, NewBoundedQueue(0).Cap())
	assert.Equal(t, DefaultQueueDepth, NewBoundedQueue(-3).Cap())
	assert.Equal(t, 7, NewBoundedQueue(7).Cap())
}
