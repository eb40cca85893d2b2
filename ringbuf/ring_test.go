package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingFIFO(t *testing.T) {
	r := New[int](3)
	require.True(t, r.IsEmpty())

	require.NoError(t, r.Push(1))
	require.NoError(t, r.Push(2))
	require.NoError(t, r.Push(3))
	require.True(t, r.IsFull())
	require.ErrorIs(t, r.Push(4), ErrFull)

	v, err := r.Pop()
	require.NoError(t, err)
	require.Equal(t, 1, v)

	v, err = r.Pop()
	require.NoError(t, err)
	require.Equal(t, 2, v)

	require.NoError(t, r.Push(4))
	v, err = r.Pop()
	require.NoError(t, err)
	require.Equal(t, 3, v)
	v, err = r.Pop()
	require.NoError(t, err)
	require.Equal(t, 4, v)

	require.True(t, r.IsEmpty())
	_, err = r.Pop()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestRingStoredInvariant(t *testing.T) {
	r := New[int](4)
	pushes, pops := 0, 0
	ops := []bool{true, true, true, false, true, false, false, true, true, false}
	for _, isPush := range ops {
		if isPush {
			if err := r.Push(pushes); err == nil {
				pushes++
			}
		} else {
			if _, err := r.Pop(); err == nil {
				pops++
			}
		}
		require.Equal(t, pushes-pops, r.Stored())
	}
}

func TestRingPeekDoesNotConsume(t *testing.T) {
	r := New[string](2)
	require.NoError(t, r.Push("a"))
	v, err := r.Peek()
	require.NoError(t, err)
	require.Equal(t, "a", v)
	require.Equal(t, 1, r.Stored())
}

func TestRingPushBack(t *testing.T) {
	r := New[int](2)
	require.NoError(t, r.Push(1))
	v, err := r.Pop()
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.NoError(t, r.PushBack(v))
	v, err = r.Pop()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}
