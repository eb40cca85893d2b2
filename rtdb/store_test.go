package rtdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/wiretypes"
)

func TestCreateVariableCanJoinBothCreateQAndSummaryQ(t *testing.T) {
	// §4.12's CREATE_VARIABLES handler pushes a freshly learned variable
	// into both createQ and summaryQ at once; PushSummaryQ must allow this
	// even though the two queues are otherwise kept disjoint (see the
	// PushSummaryQ doc comment).
	s := New()
	s.Lock()
	defer s.Unlock()

	id := wiretypes.VarId(5)
	s.PushCreateQ(id)
	s.PushSummaryQ(id)

	require.Equal(t, 1, s.createQ.len())
	require.Equal(t, 1, s.summaryQ.len())
}

func TestDeleteQExcludesSummaryQ(t *testing.T) {
	s := New()
	s.Lock()
	defer s.Unlock()

	id := wiretypes.VarId(5)
	s.PushDeleteQ(id)
	s.PushSummaryQ(id) // must be a no-op: deleteQ and summaryQ are mutually exclusive

	require.Equal(t, 1, s.deleteQ.len())
	require.Equal(t, 0, s.summaryQ.len())
}

func TestDeleteQEvictsEverythingElse(t *testing.T) {
	s := New()
	s.Lock()
	defer s.Unlock()

	id := wiretypes.VarId(9)
	s.PushCreateQ(id)
	s.PushReqUpdateQ(id)

	s.PushDeleteQ(id)

	require.Equal(t, 0, s.createQ.len())
	require.Equal(t, 0, s.reqUpdateQ.len())
	require.Equal(t, 1, s.deleteQ.len())
}

func TestQueueNoDuplicates(t *testing.T) {
	s := New()
	s.Lock()
	defer s.Unlock()

	id := wiretypes.VarId(3)
	s.PushUpdateQ(id)
	s.PushUpdateQ(id)
	require.Equal(t, 1, s.updateQ.len())
}

func TestListMatching(t *testing.T) {
	s := New()
	s.Lock()
	e := DBEntry{Exists: true, Seqno: 5}
	s.Set(1, e)
	s.Set(2, DBEntry{Exists: true, Seqno: 1})
	s.Unlock()

	ids := s.ListMatching(func(e DBEntry) bool { return e.Seqno > 2 })
	require.Equal(t, []wiretypes.VarId{1}, ids)
}

func TestScrubTimeoutEstimatorFallsBackToGlobal(t *testing.T) {
	est, err := NewScrubTimeoutEstimator("", 30*time.Second)
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, est.Timeout(7))
}

func TestScrubTimeoutEstimatorAdapts(t *testing.T) {
	est, err := NewScrubTimeoutEstimator("", time.Second)
	require.NoError(t, err)

	base := time.Now()
	id := wiretypes.VarId(1)
	for i := 0; i < 5; i++ {
		est.Observe(id, base.Add(time.Duration(i)*10*time.Second))
	}

	timeout := est.Timeout(id)
	require.Greater(t, timeout, time.Second)
}

func TestScrubTimeoutGlobalFormula(t *testing.T) {
	est, err := NewScrubTimeoutEstimator("globalTimeout", 45*time.Second)
	require.NoError(t, err)

	base := time.Now()
	id := wiretypes.VarId(2)
	est.Observe(id, base)
	est.Observe(id, base.Add(time.Minute))
	est.Observe(id, base.Add(2*time.Minute))

	require.Equal(t, 45*time.Second, est.Timeout(id))
}
