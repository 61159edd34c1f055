// Package registry keeps the latest known snapshot of each transit record.
// It is seeded from the journey database and revised by the live feed.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/Jacksery/bus-tracker/internal/transit"
)

type Registry struct {
	mu      sync.RWMutex
	records map[string]transit.Record
}

func New() *Registry {
	return &Registry{records: make(map[string]transit.Record)}
}

// Upsert stores the record unless an entry with a newer observation already
// exists. It reports whether the record was stored.
func (g *Registry) Upsert(rec transit.Record) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.records[rec.ID]; ok && cur.RecordedAt.After(rec.RecordedAt) {
		return false
	}
	g.records[rec.ID] = rec
	return true
}

// Revise applies a departure-estimate revision from the live feed to an
// already known record. Revisions for unknown records are dropped, as are
// revisions older than the current observation.
func (g *Registry) Revise(id string, expected time.Time, recordedAt time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur, ok := g.records[id]
	if !ok || cur.RecordedAt.After(recordedAt) {
		return false
	}
	cur.ExpectedDeparture = &expected
	cur.RecordedAt = recordedAt
	g.records[id] = cur
	return true
}

func (g *Registry) Get(id string) (transit.Record, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.records[id]
	return rec, ok
}

// List returns all records ordered by scheduled departure, then ID.
func (g *Registry) List() []transit.Record {
	g.mu.RLock()
	out := make([]transit.Record, 0, len(g.records))
	for _, rec := range g.records {
		out = append(out, rec)
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDeparture.Equal(out[j].ScheduledDeparture) {
			return out[i].ScheduledDeparture.Before(out[j].ScheduledDeparture)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

// Prune removes records whose scheduled arrival lies further in the past
// than the retention window and returns how many were removed.
func (g *Registry) Prune(now time.Time, retention time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for id, rec := range g.records {
		if now.Sub(rec.ScheduledArrival) > retention {
			delete(g.records, id)
			removed++
		}
	}
	return removed
}
