package ipcmutex

import (
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMutex(t *testing.T) (*Mutex, []byte) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "ipcmutex")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	require.NoError(t, f.Truncate(64))

	stamp := make([]byte, StampSize)
	m, err := New(int(f.Fd()), stamp)
	require.NoError(t, err)
	return m, stamp
}

func TestLockUnlock(t *testing.T) {
	m, stamp := newTestMutex(t)
	require.NoError(t, m.Lock())
	_, held := m.holderPid()
	require.True(t, held)
	require.NoError(t, m.Unlock())
	_, held = m.holderPid()
	require.False(t, held)
	_ = stamp
}

func TestTryLockContention(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ipcmutex")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(64))

	stamp := make([]byte, StampSize)
	m1, err := New(int(f.Fd()), stamp)
	require.NoError(t, err)

	// A separate open() of the same file, as a second holder (process or
	// goroutine attaching the region independently) would have.
	f2, err := os.OpenFile(f.Name(), os.O_RDWR, 0)
	require.NoError(t, err)
	defer f2.Close()
	m2, err := New(int(f2.Fd()), stamp)
	require.NoError(t, err)

	require.NoError(t, m1.Lock())
	ok, err := m2.TryLock()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m1.Unlock())
	ok, err = m2.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, m2.Unlock())
}

func TestConcurrentIncrement(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "ipcmutex")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(64))

	stamp := make([]byte, StampSize)
	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each goroutine opens its own file description, matching how
			// independent shm.Attach callers would each hold their own fd.
			fh, err := os.OpenFile(f.Name(), os.O_RDWR, 0)
			require.NoError(t, err)
			defer fh.Close()
			m, err := New(int(fh.Fd()), stamp)
			require.NoError(t, err)
			for j := 0; j < 50; j++ {
				require.NoError(t, m.Lock())
				atomic.AddInt64(&counter, 1)
				require.NoError(t, m.Unlock())
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(400), counter)
}

func TestIsAlive(t *testing.T) {
	require.True(t, isAlive(int32(os.Getpid())))
	require.False(t, isAlive(0))
}
