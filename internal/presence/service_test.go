package presence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeplan/internal/config"
	"homeplan/internal/household"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "presence.json")
	s := NewFileStore(path)

	_, err := s.Load()
	require.ErrorIs(t, err, ErrNoSnapshot)

	in := &Table{
		RangeStart: "2024-06-03",
		RangeEnd:   "2024-06-03",
		Days: map[string]*Day{
			"2024-06-03": {Date: "2024-06-03", Present: map[string]bool{"rob": false, "aimee": true}, Headcount: 1, Notes: []string{"Rob: Office"}},
		},
		MatchedEvents: []MatchedEvent{{Title: "Office", Member: "rob", StartDate: "2024-06-03", EndDate: "2024-06-03"}},
	}
	require.NoError(t, s.Save(in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, in.Days, out.Days)
	assert.Equal(t, in.MatchedEvents, out.MatchedEvents)
}

func TestFileStore_CorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presence.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSnapshot))
}

func newTestService(t *testing.T, src *stubSource) (*Service, *MemoryStore) {
	t.Helper()
	store := &MemoryStore{}
	roster := household.FromConfig(config.DefaultHousehold())
	return NewService(newTestBuilder(t, src), store, roster, 1), store
}

func TestService_CurrentBuildsLazilyOnce(t *testing.T) {
	src := &stubSource{blobs: [][]byte{calendarText(event("Office", "DTSTART;VALUE=DATE:20240603", "DTEND;VALUE=DATE:20240604"))}}
	svc, _ := newTestService(t, src)

	_, err := svc.Snapshot()
	require.ErrorIs(t, err, ErrNoSnapshot)

	first, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.Days, 8)

	second, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestService_FailedRefreshKeepsSnapshot(t *testing.T) {
	src := &stubSource{blobs: [][]byte{calendarText(event("Office", "DTSTART;VALUE=DATE:20240603", "DTEND;VALUE=DATE:20240604"))}}
	svc, _ := newTestService(t, src)

	good, err := svc.Refresh(context.Background(), 0)
	require.NoError(t, err)

	src.err = errors.New("timeout")
	_, err = svc.Refresh(context.Background(), 2)
	require.ErrorIs(t, err, ErrUnavailable)

	kept, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Same(t, good, kept)
}

func TestService_CurrentPropagatesUnavailable(t *testing.T) {
	svc, _ := newTestService(t, &stubSource{err: errors.New("dns")})

	_, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_Absences(t *testing.T) {
	svc, _ := newTestService(t, &stubSource{})
	table := &Table{MatchedEvents: []MatchedEvent{
		{Title: "Camp", Member: "logan", StartDate: "2024-06-05", EndDate: "2024-06-06"},
		{Title: "Camp", Member: "dexter", StartDate: "2024-06-05", EndDate: "2024-06-06"},
		{Title: "Office", Member: "rob", StartDate: "2024-06-03", EndDate: "2024-06-03"},
		{Title: "Broken", Member: "rob", StartDate: "soon", EndDate: "later"},
	}}

	got := svc.Absences(table)
	require.Len(t, got, 3)
	assert.Equal(t, "rob", got[0].Member)
	assert.Equal(t, "Rob", got[0].MemberName)
	assert.Equal(t, "dexter", got[1].Member)
	assert.Equal(t, "logan", got[2].Member)
	assert.Equal(t, 6, got[2].Last.Day())
}

func TestTable_DayOutsideRange(t *testing.T) {
	var nilTable *Table
	assert.Nil(t, nilTable.Day(testDate(t, "2024-06-03")))

	table := &Table{Days: map[string]*Day{"2024-06-03": {Date: "2024-06-03"}}}
	assert.NotNil(t, table.Day(testDate(t, "2024-06-03")))
	assert.Nil(t, table.Day(testDate(t, "2024-06-04")))
}
