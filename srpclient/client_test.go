package srpclient

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/cmdsock"
	"github.com/dcp-vardis/dcpd/srp"
	"github.com/dcp-vardis/dcpd/srpstore"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func startDaemon(t *testing.T) (sockPath string, store *srpstore.Store, stop func()) {
	t.Helper()
	sockPath = filepath.Join(t.TempDir(), "srp.sock")
	store = srpstore.New()
	mgr := srp.NewManager(store, wiretypes.NodeId{1})

	srv, err := cmdsock.Listen(sockPath, 20*time.Millisecond, mgr.Handle)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()
	return sockPath, store, func() {
		cancel()
		<-done
		srv.Close()
	}
}

func TestSetOwnSafetyDataReachesStore(t *testing.T) {
	sockPath, store, stop := startDaemon(t)
	defer stop()

	c := New(Config{ManagementSocket: sockPath, RequestTimeout: time.Second})
	require.NoError(t, c.SetOwnSafetyData(wiretypes.SafetyData{PositionX: 1, PositionY: 2, PositionZ: 3}))

	esd, ok := store.NextOwnExtendedSafetyData(wiretypes.NodeId{1}, time.Now(), time.Minute)
	require.True(t, ok)
	require.Equal(t, float32(1), esd.Data.PositionX)
}

func TestGetNeighbourUnknown(t *testing.T) {
	sockPath, _, stop := startDaemon(t)
	defer stop()

	c := New(Config{ManagementSocket: sockPath, RequestTimeout: time.Second})
	_, err := c.GetNeighbour(wiretypes.NodeId{9})
	require.Error(t, err)
}

func TestGetNeighbourFound(t *testing.T) {
	sockPath, store, stop := startDaemon(t)
	defer stop()

	neighbour := wiretypes.NodeId{2}
	store.Upsert(neighbour, wiretypes.SafetyData{PositionX: 5}, 1, time.Now())

	c := New(Config{ManagementSocket: sockPath, RequestTimeout: time.Second})
	n, err := c.GetNeighbour(neighbour)
	require.NoError(t, err)
	require.Equal(t, float32(5), n.SafetyData.PositionX)
}
