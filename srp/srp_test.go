package srp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/srpstore"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func TestTransmitThenReceiveUpsertsNeighbour(t *testing.T) {
	senderStore := srpstore.New()
	sender := wiretypes.NodeId{1, 1, 1, 1, 1, 1}
	now := time.Now()
	senderStore.SetOwnSafetyData(wiretypes.SafetyData{PositionX: 3}, now)

	buf := make([]byte, 64)
	a := asm.NewArea(buf)
	ok, status := Transmit(a, senderStore, sender, now, time.Second)
	require.True(t, ok)
	require.Equal(t, StatusOK, status)

	receiverStore := srpstore.New()
	receiver := wiretypes.NodeId{2, 2, 2, 2, 2, 2}
	r := asm.NewAreaForReading(a.Bytes(), a.Used())
	status = Receive(r, receiverStore, receiver, now)
	require.Equal(t, StatusOK, status)

	e, found := receiverStore.Lookup(sender)
	require.True(t, found)
	require.Equal(t, float32(3), e.SafetyData.PositionX)
}

func TestTransmitAfterKeepaliveExpiryReturnsFalse(t *testing.T) {
	store := srpstore.New()
	own := wiretypes.NodeId{1}
	now := time.Now()
	store.SetOwnSafetyData(wiretypes.SafetyData{}, now)

	buf := make([]byte, 64)
	a := asm.NewArea(buf)
	ok, status := Transmit(a, store, own, now.Add(2*time.Second), time.Second)
	require.False(t, ok)
	require.Equal(t, StatusKeepaliveExpired, status)
	require.Equal(t, 0, a.Used())
}

func TestReceiveDropsSelfOriginatedFrame(t *testing.T) {
	store := srpstore.New()
	own := wiretypes.NodeId{1, 1, 1, 1, 1, 1}
	now := time.Now()

	buf := make([]byte, 64)
	a := asm.NewArea(buf)
	esd := wiretypes.ExtendedSafetyData{NodeId: own, Timestamp: wiretypes.Now(), Seqno: 1}
	require.NoError(t, esd.Serialize(a))

	r := asm.NewAreaForReading(a.Bytes(), a.Used())
	status := Receive(r, store, own, now)
	require.Equal(t, StatusOK, status)
	require.Equal(t, 0, store.Len())
}

func TestReceiveMalformedFrame(t *testing.T) {
	store := srpstore.New()
	r := asm.NewAreaForReading([]byte{0x01, 0x02}, 2)
	status := Receive(r, store, wiretypes.NodeId{}, time.Now())
	require.Equal(t, StatusMalformedFrame, status)
}

func TestScrubEvictsStaleNeighbour(t *testing.T) {
	store := srpstore.New()
	id := wiretypes.NodeId{3}
	now := time.Now()
	store.Upsert(id, wiretypes.SafetyData{}, 0, now.Add(-time.Hour))

	evicted := Scrub(store, now, time.Minute)
	require.Equal(t, []wiretypes.NodeId{id}, evicted)
}
