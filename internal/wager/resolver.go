package wager

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jacksery/bus-tracker/internal/transit"
)

// RecordSource yields the current snapshot for a record, typically the
// registry.
type RecordSource interface {
	Get(id string) (transit.Record, bool)
}

// ResolverMetrics receives settlement counts and the running balance.
type ResolverMetrics interface {
	WagerResolved(outcome Outcome)
	SetBalance(balance int)
}

// Resolver periodically settles open wagers whose journeys have completed.
// The outcome is judged on the final departure slippage: a journey whose
// expected departure was later than scheduled arrives "late", earlier
// arrives "early", and no revision at all counts as exactly on time.
type Resolver struct {
	source   RecordSource
	store    *Store
	interval time.Duration
	metrics  ResolverMetrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewResolver(source RecordSource, store *Store, interval time.Duration, metrics ResolverMetrics, log zerolog.Logger) *Resolver {
	return &Resolver{
		source:   source,
		store:    store,
		interval: interval,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// Run sweeps until the context is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

// Sweep settles every open wager whose record has passed its scheduled
// arrival, and returns the number of wagers settled.
func (r *Resolver) Sweep(now time.Time) int {
	settled := 0
	for _, id := range r.store.OpenRecordIDs() {
		rec, ok := r.source.Get(id)
		if !ok {
			// Record pruned before settlement; treat the journey as
			// finished on schedule.
			rec = transit.Record{ID: id, ScheduledArrival: now.Add(-time.Second)}
		}
		if !now.After(rec.ScheduledArrival) {
			continue
		}
		w, ok := r.store.Resolve(id, FinalDelayMinutes(rec), now)
		if !ok {
			continue
		}
		settled++
		if r.metrics != nil {
			r.metrics.WagerResolved(w.Outcome)
			r.metrics.SetBalance(r.store.Balance())
		}
		r.log.Info().
			Str("wager", w.ID).
			Str("record", w.RecordID).
			Str("outcome", string(w.Outcome)).
			Int("amount", w.Amount).
			Msg("wager settled")
	}
	return settled
}

// FinalDelayMinutes is the departure slippage of a completed journey in whole
// minutes, zero when no revised departure was ever observed.
func FinalDelayMinutes(rec transit.Record) int {
	if rec.ExpectedDeparture == nil {
		return 0
	}
	return int(math.Round(rec.ExpectedDeparture.Sub(rec.ScheduledDeparture).Minutes()))
}
