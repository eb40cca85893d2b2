package srp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/srpstore"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func TestManagerSetOwnSafetyDataThenTransmit(t *testing.T) {
	store := srpstore.New()
	mgr := NewManager(store, wiretypes.NodeId{1})

	data := wiretypes.SafetyData{PositionX: 1, PositionY: 2, PositionZ: 3}
	body := asm.NewArea(make([]byte, 1+data.TotalSize()))
	require.NoError(t, body.SerializeByte(byte(CmdSetOwnSafetyData)))
	require.NoError(t, data.Serialize(body))

	resp, err := mgr.Handle(body.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte{byte(StatusOK)}, resp)

	out := asm.NewArea(make([]byte, 64))
	ok, status := Transmit(out, store, wiretypes.NodeId{1}, time.Now(), time.Minute)
	require.True(t, ok)
	require.Equal(t, StatusOK, status)
}

func TestManagerGetNeighbourUnknown(t *testing.T) {
	store := srpstore.New()
	mgr := NewManager(store, wiretypes.NodeId{1})

	var nodeId wiretypes.NodeId = wiretypes.NodeId{2}
	body := asm.NewArea(make([]byte, 1+nodeId.TotalSize()))
	require.NoError(t, body.SerializeByte(byte(CmdGetNeighbour)))
	require.NoError(t, nodeId.Serialize(body))

	resp, err := mgr.Handle(body.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte{byte(StatusNeighbourUnknown)}, resp)
}

func TestManagerGetNeighbourFound(t *testing.T) {
	store := srpstore.New()
	mgr := NewManager(store, wiretypes.NodeId{1})
	neighbour := wiretypes.NodeId{2}
	store.Upsert(neighbour, wiretypes.SafetyData{PositionX: 9}, 3, time.Now())

	body := asm.NewArea(make([]byte, 1+neighbour.TotalSize()))
	require.NoError(t, body.SerializeByte(byte(CmdGetNeighbour)))
	require.NoError(t, neighbour.Serialize(body))

	resp, err := mgr.Handle(body.Bytes())
	require.NoError(t, err)
	require.Equal(t, byte(StatusOK), resp[0])

	a := asm.NewAreaForReading(resp[1:], len(resp)-1)
	var sd wiretypes.SafetyData
	require.NoError(t, sd.Deserialize(a))
	require.Equal(t, float32(9), sd.PositionX)
}
