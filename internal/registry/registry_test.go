package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jacksery/bus-tracker/internal/transit"
)

func rec(id string, recordedAt time.Time) transit.Record {
	return transit.Record{
		ID:                 id,
		LineRef:            "42",
		ScheduledDeparture: recordedAt.Add(10 * time.Minute),
		ScheduledArrival:   recordedAt.Add(70 * time.Minute),
		RecordedAt:         recordedAt,
	}
}

func TestUpsertKeepsNewerObservation(t *testing.T) {
	g := New()
	t0 := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)

	require.True(t, g.Upsert(rec("a", t0)))
	require.True(t, g.Upsert(rec("a", t0.Add(time.Minute))))
	assert.False(t, g.Upsert(rec("a", t0.Add(-time.Minute))), "stale snapshot must not overwrite")

	got, ok := g.Get("a")
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Minute), got.RecordedAt)
}

func TestReviseUnknownRecord(t *testing.T) {
	g := New()
	assert.False(t, g.Revise("missing", time.Now(), time.Now()))
}

func TestReviseSetsExpectedDeparture(t *testing.T) {
	g := New()
	t0 := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	g.Upsert(rec("a", t0))

	expected := t0.Add(18 * time.Minute)
	require.True(t, g.Revise("a", expected, t0.Add(time.Minute)))

	got, _ := g.Get("a")
	require.NotNil(t, got.ExpectedDeparture)
	assert.Equal(t, expected, *got.ExpectedDeparture)
	assert.Equal(t, t0.Add(time.Minute), got.RecordedAt)

	// Stale revision is dropped.
	assert.False(t, g.Revise("a", t0, t0.Add(-time.Hour)))
}

func TestReviseScheduleOnlySeedBeforeDeparture(t *testing.T) {
	g := New()
	t0 := time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)

	// A journey loaded inside the preload horizon: departure still ahead,
	// never observed, so RecordedAt is the zero value.
	seeded := transit.Record{
		ID:                 "a",
		LineRef:            "42",
		ScheduledDeparture: t0.Add(30 * time.Minute),
		ScheduledArrival:   t0.Add(90 * time.Minute),
	}
	require.True(t, g.Upsert(seeded))

	// Departure estimates naturally arrive before departure; they must
	// supersede the bare schedule.
	expected := t0.Add(40 * time.Minute)
	require.True(t, g.Revise("a", expected, t0.Add(5*time.Minute)))

	got, ok := g.Get("a")
	require.True(t, ok)
	require.NotNil(t, got.ExpectedDeparture)
	assert.Equal(t, expected, *got.ExpectedDeparture)

	// A periodic re-seed of the same schedule-only row must not clobber
	// the applied revision.
	assert.False(t, g.Upsert(seeded))
	got, _ = g.Get("a")
	require.NotNil(t, got.ExpectedDeparture)
	assert.Equal(t, expected, *got.ExpectedDeparture)
}

func TestListOrdering(t *testing.T) {
	g := New()
	t0 := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	g.Upsert(rec("late", t0.Add(time.Hour)))
	g.Upsert(rec("early", t0))

	list := g.List()
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ID)
	assert.Equal(t, "late", list[1].ID)
}

func TestPrune(t *testing.T) {
	g := New()
	t0 := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	g.Upsert(rec("old", t0.Add(-6*time.Hour)))
	g.Upsert(rec("fresh", t0))

	removed := g.Prune(t0.Add(2*time.Hour), 4*time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, g.Len())
	_, ok := g.Get("fresh")
	assert.True(t, ok)
}
