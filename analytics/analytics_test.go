package analytics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndStats(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordVisit("10.0.0.1", "Mozilla/5.0", "/"))
	require.NoError(t, s.RecordVisit("10.0.0.1", "Mozilla/5.0", "/post/ward-picnic/"))
	require.NoError(t, s.RecordVisit("10.0.0.2", "Mozilla/5.0", "/"))

	st, err := s.Stats(30)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalVisits)
	assert.Equal(t, int64(2), st.UniqueVisitors)
	require.NotEmpty(t, st.TopPages)
	assert.Equal(t, "/", st.TopPages[0].Path)
	assert.Equal(t, int64(2), st.TopPages[0].Visits)
	assert.Len(t, st.Daily, 1)
}

func TestBotsNotCounted(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordVisit("66.249.0.1", "Googlebot/2.1", "/"))
	require.NoError(t, s.RecordVisit("1.2.3.4", "curl/8.0", "/"))

	st, err := s.Stats(30)
	require.NoError(t, err)
	assert.Zero(t, st.TotalVisits)
}

func TestVisitorIDIsNotRawIP(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RecordVisit("203.0.113.7", "Mozilla/5.0", "/"))

	var visitor string
	require.NoError(t, s.db.QueryRow(`SELECT visitor_id FROM visits`).Scan(&visitor))
	assert.NotContains(t, visitor, "203.0.113.7")
	assert.Len(t, visitor, 32)
}

func TestSaltPersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.db")

	s1, err := NewStore(path)
	require.NoError(t, err)
	salt1 := s1.salt
	require.NoError(t, s1.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, salt1, s2.salt)
}

func TestPruneDropsOldVisits(t *testing.T) {
	s := newTestStore(t)

	old := time.Now().UTC().AddDate(0, 0, -400)
	s.now = func() time.Time { return old }
	require.NoError(t, s.RecordVisit("10.0.0.1", "Mozilla/5.0", "/"))

	s.now = time.Now
	require.NoError(t, s.RecordVisit("10.0.0.2", "Mozilla/5.0", "/"))

	require.NoError(t, s.Prune(365))

	st, err := s.Stats(500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.TotalVisits)
}

func TestPruneSchedulerRunsUntilStopped(t *testing.T) {
	s := newTestStore(t)

	old := time.Now().UTC().AddDate(0, 0, -400)
	s.now = func() time.Time { return old }
	require.NoError(t, s.RecordVisit("10.0.0.1", "Mozilla/5.0", "/"))
	s.now = time.Now

	stop := s.StartPruneScheduler(365, 5*time.Millisecond)
	defer stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := s.Stats(500)
		require.NoError(t, err)
		if st.TotalVisits == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("scheduler never pruned the expired visit")
}
