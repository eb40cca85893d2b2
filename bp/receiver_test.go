package bp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

type fakeReader struct {
	frames [][]byte
	i      int
}

func (r *fakeReader) ReadFrame(ctx context.Context) ([]byte, error) {
	if r.i >= len(r.frames) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f := r.frames[r.i]
	r.i++
	return f, nil
}

func buildBeacon(t *testing.T, sender wiretypes.NodeId, protocolId wiretypes.BPProtocolId, payload []byte) []byte {
	t.Helper()
	buf := make([]byte, 256)
	body := asm.NewArea(make([]byte, 200))
	ph := PayloadHeader{ProtocolId: protocolId, Length: wiretypes.BPLength(len(payload))}
	require.NoError(t, ph.Serialize(body))
	require.NoError(t, body.SerializeByteBlock(len(payload), payload))

	a := asm.NewArea(buf)
	hdr := Header{
		Version:     Version,
		MagicValue:  Magic,
		SenderId:    sender,
		Length:      wiretypes.BPLength(body.Used()),
		NumPayloads: 1,
		Seqno:       1,
	}
	require.NoError(t, hdr.Serialize(a))
	require.NoError(t, a.SerializeByteBlock(body.Used(), body.Bytes()))
	return a.Bytes()
}

func TestReceiverDemuxesPayloadToRegisteredClient(t *testing.T) {
	reg := NewRegistry()
	h := newFakeHandle(wiretypes.ProtocolIdSRP)
	require.Equal(t, StatusOK, reg.Register(h))
	require.Equal(t, StatusOK, reg.SetActive(wiretypes.ProtocolIdSRP, true))

	own := wiretypes.NodeId{1}
	sender := wiretypes.NodeId{2}
	frame := buildBeacon(t, sender, wiretypes.ProtocolIdSRP, []byte{7, 8, 9})

	rx := NewReceiver(own, reg, &fakeReader{frames: [][]byte{frame}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rx.handleFrame(ctx, frame)

	require.Len(t, h.inbound, 1)
	require.Equal(t, []byte{7, 8, 9}, h.inbound[0])
}

func TestReceiverDropsUnregisteredProtocol(t *testing.T) {
	reg := NewRegistry()
	own := wiretypes.NodeId{1}
	sender := wiretypes.NodeId{2}
	frame := buildBeacon(t, sender, wiretypes.ProtocolIdVardis, []byte{1})

	rx := NewReceiver(own, reg, &fakeReader{}, nil)
	rx.handleFrame(context.Background(), frame)
	// No panic, no registered handle to deliver to: nothing observable to
	// assert beyond "did not crash".
}

func TestReceiverIgnoresSelfOriginatedBeacon(t *testing.T) {
	reg := NewRegistry()
	h := newFakeHandle(wiretypes.ProtocolIdSRP)
	require.Equal(t, StatusOK, reg.Register(h))
	require.Equal(t, StatusOK, reg.SetActive(wiretypes.ProtocolIdSRP, true))

	own := wiretypes.NodeId{1}
	frame := buildBeacon(t, own, wiretypes.ProtocolIdSRP, []byte{1})

	rx := NewReceiver(own, reg, &fakeReader{}, nil)
	rx.handleFrame(context.Background(), frame)
	require.Empty(t, h.inbound)
}

func TestReceiverRejectsMalformedFrame(t *testing.T) {
	reg := NewRegistry()
	rx := NewReceiver(wiretypes.NodeId{1}, reg, &fakeReader{}, nil)
	rx.handleFrame(context.Background(), []byte{0, 1, 2})
}
