package srpstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/wiretypes"
)

func TestNextOwnExtendedSafetyDataBeforeAnyDataSet(t *testing.T) {
	s := New()
	_, ok := s.NextOwnExtendedSafetyData(wiretypes.NodeId{1}, time.Now(), time.Second)
	require.False(t, ok)
}

func TestNextOwnExtendedSafetyDataIncrementsSeqno(t *testing.T) {
	s := New()
	now := time.Now()
	s.SetOwnSafetyData(wiretypes.SafetyData{PositionX: 1}, now)

	e1, ok := s.NextOwnExtendedSafetyData(wiretypes.NodeId{1}, now, time.Second)
	require.True(t, ok)
	e2, ok := s.NextOwnExtendedSafetyData(wiretypes.NodeId{1}, now.Add(10*time.Millisecond), time.Second)
	require.True(t, ok)
	require.Equal(t, e1.Seqno.Next(), e2.Seqno)
}

func TestKeepaliveExpiryStopsTransmission(t *testing.T) {
	s := New()
	now := time.Now()
	s.SetOwnSafetyData(wiretypes.SafetyData{}, now)

	_, ok := s.NextOwnExtendedSafetyData(wiretypes.NodeId{1}, now.Add(2*time.Second), time.Second)
	require.False(t, ok, "keepalive expired, no safety data should be emitted")
}

func TestUpsertAndLookup(t *testing.T) {
	s := New()
	id := wiretypes.NodeId{9, 9, 9, 9, 9, 9}
	now := time.Now()
	s.Upsert(id, wiretypes.SafetyData{PositionX: 5}, 3, now)

	e, ok := s.Lookup(id)
	require.True(t, ok)
	require.Equal(t, float32(5), e.SafetyData.PositionX)
	require.Equal(t, wiretypes.VarSeqno(3), e.Seqno)
}

func TestScrubRemovesStaleNeighbours(t *testing.T) {
	s := New()
	id := wiretypes.NodeId{1}
	now := time.Now()
	s.Upsert(id, wiretypes.SafetyData{}, 0, now.Add(-time.Hour))

	evicted := s.Scrub(now, time.Minute)
	require.Equal(t, []wiretypes.NodeId{id}, evicted)
	require.Equal(t, 0, s.Len())
}

func TestScrubKeepsFreshNeighbours(t *testing.T) {
	s := New()
	id := wiretypes.NodeId{1}
	now := time.Now()
	s.Upsert(id, wiretypes.SafetyData{}, 0, now)

	evicted := s.Scrub(now, time.Minute)
	require.Empty(t, evicted)
	require.Equal(t, 1, s.Len())
}
