package wager

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jacksery/bus-tracker/internal/transit"
)

// Store is the mutable wager book. All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	balance int
	limits  Limits
	wagers  []*Wager
	open    map[string]*Wager // recordID -> unresolved wager
}

func NewStore(startingBalance int, limits Limits) *Store {
	return &Store{
		balance: startingBalance,
		limits:  limits,
		open:    make(map[string]*Wager),
	}
}

func (s *Store) Balance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

func (s *Store) Limits() Limits { return s.limits }

// View returns a point-in-time read-only projection for eligibility checks.
// The HasUnresolved closure reads live state, so a check immediately followed
// by Place still races; Place re-validates under the lock and is the
// authoritative gate.
func (s *Store) View() View {
	s.mu.Lock()
	balance := s.balance
	s.mu.Unlock()
	return View{
		Balance: balance,
		HasUnresolved: func(recordID string) bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			_, ok := s.open[recordID]
			return ok
		},
	}
}

// Place validates eligibility and, on success, deducts the stake and records
// the wager. now is injected so placement windows are testable.
func (s *Store) Place(rec transit.Record, amount int, pred Prediction, now time.Time) (Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Balance:       s.balance,
		HasUnresolved: func(recordID string) bool { _, ok := s.open[recordID]; return ok },
	}
	if err := CanPlace(rec, now, v, amount, s.limits); err != nil {
		return Wager{}, err
	}

	w := &Wager{
		ID:         uuid.NewString(),
		RecordID:   rec.ID,
		LineRef:    rec.LineRef,
		Amount:     amount,
		Prediction: pred,
		PlacedAt:   now,
	}
	s.balance -= amount
	s.wagers = append(s.wagers, w)
	s.open[rec.ID] = w
	return *w, nil
}

// Unresolved returns the open wager for a record, if any.
func (s *Store) Unresolved(recordID string) (Wager, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.open[recordID]
	if !ok {
		return Wager{}, false
	}
	return *w, true
}

// OpenRecordIDs lists the record IDs that carry an unresolved wager.
func (s *Store) OpenRecordIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.open))
	for id := range s.open {
		ids = append(ids, id)
	}
	return ids
}

// List returns all wagers, oldest first.
func (s *Store) List() []Wager {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Wager, len(s.wagers))
	for i, w := range s.wagers {
		out[i] = *w
	}
	return out
}

// Resolve settles the open wager for a record against the journey's final
// delay in whole minutes. A correct prediction pays twice the stake back; an
// exact on-time arrival is a push and only refunds the stake.
func (s *Store) Resolve(recordID string, finalDelayMinutes int, now time.Time) (Wager, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.open[recordID]
	if !ok {
		return Wager{}, false
	}
	delete(s.open, recordID)

	switch {
	case finalDelayMinutes == 0:
		w.Outcome = OutcomePush
		s.balance += w.Amount
	case (finalDelayMinutes > 0) == (w.Prediction == PredictLate):
		w.Outcome = OutcomeWon
		s.balance += 2 * w.Amount
	default:
		w.Outcome = OutcomeLost
	}
	w.Resolved = true
	resolvedAt := now
	w.ResolvedAt = &resolvedAt
	return *w, true
}
