package cmdsock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, handle Handler) (path string, stop func()) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "cmd.sock")
	srv, err := Listen(path, 50*time.Millisecond, handle)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()
	return path, func() {
		cancel()
		<-done
		srv.Close()
	}
}

func TestRequestResponseRoundTrip(t *testing.T) {
	path, stop := startTestServer(t, func(req []byte) ([]byte, error) {
		resp := make([]byte, len(req))
		for i, b := range req {
			resp[i] = b + 1
		}
		return resp, nil
	})
	defer stop()

	resp, err := Request(path, time.Second, []byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{2, 3, 4}, resp)
}

func TestOversizedFrameRejected(t *testing.T) {
	path, stop := startTestServer(t, func(req []byte) ([]byte, error) {
		return req, nil
	})
	defer stop()

	_, err := Request(path, time.Second, make([]byte, MaxFrameSize+1))
	require.Error(t, err)
}

func TestStaleSocketFileIsRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmd.sock")
	srv1, err := Listen(path, 50*time.Millisecond, func([]byte) ([]byte, error) { return nil, nil })
	require.NoError(t, err)
	srv1.listener.SetUnlinkOnClose(false)
	require.NoError(t, srv1.listener.Close()) // leave the file behind, simulating a crash

	srv2, err := Listen(path, 50*time.Millisecond, func([]byte) ([]byte, error) { return nil, nil })
	require.NoError(t, err)
	require.NoError(t, srv2.Close())
}
