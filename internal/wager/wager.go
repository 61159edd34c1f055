// Package wager holds the in-memory wager book: balance, open and settled
// wagers keyed by transit record, eligibility rules, and resolution once a
// journey completes. Nothing here is persisted.
package wager

import (
	"errors"
	"fmt"
	"time"

	"github.com/Jacksery/bus-tracker/internal/transit"
)

// Prediction is the punter's call on how the vehicle will arrive.
type Prediction string

const (
	PredictEarly Prediction = "early"
	PredictLate  Prediction = "late"
)

func ParsePrediction(s string) (Prediction, error) {
	switch Prediction(s) {
	case PredictEarly, PredictLate:
		return Prediction(s), nil
	default:
		return "", fmt.Errorf("invalid prediction %q (want %q or %q)", s, PredictEarly, PredictLate)
	}
}

// Outcome of a settled wager.
type Outcome string

const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
	OutcomePush Outcome = "push"
)

type Wager struct {
	ID         string     `json:"id"`
	RecordID   string     `json:"recordId"`
	LineRef    string     `json:"lineRef"`
	Amount     int        `json:"amount"`
	Prediction Prediction `json:"prediction"`
	Resolved   bool       `json:"resolved"`
	Outcome    Outcome    `json:"outcome,omitempty"`
	PlacedAt   time.Time  `json:"placedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

var (
	ErrInactive            = errors.New("record is not currently active")
	ErrDuplicateWager      = errors.New("an unresolved wager already exists for this record")
	ErrInsufficientBalance = errors.New("balance is lower than the stake")
	ErrStakeOutOfRange     = errors.New("stake is outside the allowed range")
)

// Limits bound the stake of a single wager.
type Limits struct {
	MinStake int
	MaxStake int
}

// View is a read-only projection of the store used by eligibility checks, so
// callers never reach into shared mutable state.
type View struct {
	Balance       int
	HasUnresolved func(recordID string) bool
}

// CanPlace reports whether a wager of the given amount may be placed on the
// record at the given instant: the record must be active, carry no unresolved
// wager, and the stake must be within limits and covered by the balance.
func CanPlace(rec transit.Record, now time.Time, v View, amount int, lim Limits) error {
	if amount < lim.MinStake || (lim.MaxStake > 0 && amount > lim.MaxStake) {
		return ErrStakeOutOfRange
	}
	if !transit.IsActive(rec, now) {
		return ErrInactive
	}
	if v.HasUnresolved != nil && v.HasUnresolved(rec.ID) {
		return ErrDuplicateWager
	}
	if v.Balance < amount {
		return ErrInsufficientBalance
	}
	return nil
}
