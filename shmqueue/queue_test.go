package shmqueue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/ipcmutex"
)

func newTestQueue(t *testing.T, capacity int) *Queue {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "shmqueue")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	require.NoError(t, f.Truncate(64))

	stamp := make([]byte, ipcmutex.StampSize)
	mu, err := ipcmutex.New(int(f.Fd()), stamp)
	require.NoError(t, err)
	return New(mu, capacity)
}

func TestPushPopNoWait(t *testing.T) {
	q := newTestQueue(t, 2)
	require.NoError(t, q.PushNoWait(SharedMemBuffer{BufIndex: 1}))
	require.NoError(t, q.PushNoWait(SharedMemBuffer{BufIndex: 2}))
	require.Error(t, q.PushNoWait(SharedMemBuffer{BufIndex: 3}))

	b, more, err := q.PopNoWait()
	require.NoError(t, err)
	require.True(t, more)
	require.Equal(t, uint32(1), b.BufIndex)

	b, more, err = q.PopNoWait()
	require.NoError(t, err)
	require.False(t, more)
	require.Equal(t, uint32(2), b.BufIndex)

	_, _, err = q.PopNoWait()
	require.Error(t, err)
}

func TestPopAllNoWait(t *testing.T) {
	q := newTestQueue(t, 4)
	require.NoError(t, q.PushNoWait(SharedMemBuffer{BufIndex: 1}))
	require.NoError(t, q.PushNoWait(SharedMemBuffer{BufIndex: 2}))

	all, err := q.PopAllNoWait()
	require.NoError(t, err)
	require.Len(t, all, 2)

	n, err := q.Len()
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestPopWaitUnblocksOnPush(t *testing.T) {
	q := newTestQueue(t, 2)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan SharedMemBuffer, 1)
	go func() {
		b, _, err := q.PopWait(ctx)
		require.NoError(t, err)
		done <- b
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.PushNoWait(SharedMemBuffer{BufIndex: 42}))

	select {
	case b := <-done:
		require.Equal(t, uint32(42), b.BufIndex)
	case <-time.After(time.Second):
		t.Fatal("PopWait did not unblock")
	}
}

func TestPopWaitCancelled(t *testing.T) {
	q := newTestQueue(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := q.PopWait(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestPushWaitBlocksUntilSpace(t *testing.T) {
	q := newTestQueue(t, 1)
	require.NoError(t, q.PushNoWait(SharedMemBuffer{BufIndex: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- q.PushWait(ctx, SharedMemBuffer{BufIndex: 2})
	}()

	time.Sleep(20 * time.Millisecond)
	_, _, err := q.PopNoWait()
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("PushWait did not unblock")
	}
}
