package containers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingQueueWrapsAround(t *testing.T) {
	rq := NewRingQueue[int](3)
	require.True(t, rq.IsEmpty())

	for i := 1; i <= 3; i++ {
		require.NoError(t, rq.Enqueue(i))
	}
	require.True(t, rq.IsFull())
	require.ErrorIs(t, rq.Enqueue(4), ErrQueueFull)

	v, err := rq.Dequeue()
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.NoError(t, rq.Enqueue(4))
	head, err := rq.Peek()
	require.NoError(t, err)
	require.Equal(t, 2, head)

	var drained []int
	rq.Drain(func(i int) { drained = append(drained, i) })
	require.Equal(t, []int{2, 3, 4}, drained)
	require.Equal(t, 0, rq.Len())
	require.Equal(t, 3, rq.Cap())
}

func TestRingQueueEmpty(t *testing.T) {
	rq := NewRingQueue[string](1)
	_, err := rq.Dequeue()
	require.ErrorIs(t, err, ErrQueueEmpty)
	_, err = rq.Peek()
	require.ErrorIs(t, err, ErrQueueEmpty)
}
