package bp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/bptransport"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func TestTransmitterAndReceiverExchangeOverChannelTransport(t *testing.T) {
	nodes := bptransport.NewChannelNetwork(2, 4)

	regA := NewRegistry()
	sender := newFakeHandle(wiretypes.ProtocolIdSRP)
	sender.outbound = [][]byte{{5, 6, 7}}
	require.Equal(t, StatusOK, regA.Register(sender))
	require.Equal(t, StatusOK, regA.SetActive(wiretypes.ProtocolIdSRP, true))
	txCfg := TransmitterConfig{OwnNodeId: wiretypes.NodeId{1}, MaxBeaconSize: 512}
	tx := NewTransmitter(txCfg, regA, nodes[0], nil)

	regB := NewRegistry()
	receiver := newFakeHandle(wiretypes.ProtocolIdSRP)
	require.Equal(t, StatusOK, regB.Register(receiver))
	require.Equal(t, StatusOK, regB.SetActive(wiretypes.ProtocolIdSRP, true))
	rx := NewReceiver(wiretypes.NodeId{2}, regB, nodes[1], nil)

	require.NoError(t, tx.tick(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	raw, err := nodes[1].ReadFrame(ctx)
	require.NoError(t, err)
	rx.handleFrame(context.Background(), raw)

	require.Len(t, receiver.inbound, 1)
	require.Equal(t, []byte{5, 6, 7}, receiver.inbound[0])
}
