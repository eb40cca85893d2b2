package bp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func decodeHeader(frame []byte, hdr *Header) error {
	a := asm.NewAreaForReading(frame, len(frame))
	return hdr.Deserialize(a)
}

type fakeWriter struct {
	mu     sync.Mutex
	frames [][]byte
}

func (w *fakeWriter) WriteFrame(_ context.Context, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, append([]byte(nil), payload...))
	return nil
}

func (w *fakeWriter) last() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.frames) == 0 {
		return nil
	}
	return w.frames[len(w.frames)-1]
}

func TestTransmitterSkipsEmptyTick(t *testing.T) {
	reg := NewRegistry()
	w := &fakeWriter{}
	tx := NewTransmitter(TransmitterConfig{MaxBeaconSize: 512}, reg, w, nil)
	require.NoError(t, tx.tick(context.Background()))
	require.Empty(t, w.frames)
}

func TestTransmitterAssemblesBeaconFromActiveClients(t *testing.T) {
	reg := NewRegistry()
	h := newFakeHandle(wiretypes.ProtocolIdSRP)
	h.outbound = [][]byte{{1, 2, 3}}
	require.Equal(t, StatusOK, reg.Register(h))
	require.Equal(t, StatusOK, reg.SetActive(wiretypes.ProtocolIdSRP, true))

	w := &fakeWriter{}
	tx := NewTransmitter(TransmitterConfig{
		OwnNodeId:     wiretypes.NodeId{1, 2, 3, 4, 5, 6},
		MaxBeaconSize: 512,
	}, reg, w, nil)
	require.NoError(t, tx.tick(context.Background()))

	frame := w.last()
	require.NotEmpty(t, frame)

	var hdr Header
	require.NoError(t, decodeHeader(frame, &hdr))
	require.Equal(t, uint8(1), hdr.NumPayloads)
}

func TestTransmitterIgnoresInactiveClients(t *testing.T) {
	reg := NewRegistry()
	h := newFakeHandle(wiretypes.ProtocolIdSRP)
	h.outbound = [][]byte{{9, 9}}
	require.Equal(t, StatusOK, reg.Register(h)) // never activated

	w := &fakeWriter{}
	tx := NewTransmitter(TransmitterConfig{MaxBeaconSize: 512}, reg, w, nil)
	require.NoError(t, tx.tick(context.Background()))
	require.Empty(t, w.frames)
}

func TestNextIntervalWithoutJitterIsExact(t *testing.T) {
	cfg := TransmitterConfig{AvgPeriod: 100 * time.Millisecond}
	require.Equal(t, 100*time.Millisecond, nextInterval(nil, cfg))
}
