package transit

import (
	"fmt"
	"math"
	"time"
)

// Status classifies a computed delay for display.
type Status int

const (
	StatusNone Status = iota
	StatusOnTime
	StatusBehind
	StatusAhead
)

func (s Status) String() string {
	switch s {
	case StatusOnTime:
		return "on_time"
	case StatusBehind:
		return "behind"
	case StatusAhead:
		return "ahead"
	default:
		return "none"
	}
}

// IsActive reports whether the record is en route at the given instant:
// within [effective departure, scheduled arrival], inclusive at both ends.
func IsActive(r Record, now time.Time) bool {
	dep := r.EffectiveDeparture()
	return !now.Before(dep) && !now.After(r.ScheduledArrival)
}

// DelayMinutes estimates the live delay in whole minutes. The departure
// slippage (expected minus scheduled departure) is interpolated by how far
// through the scheduled journey the vehicle is, so the estimate is near zero
// around departure and reaches the full slippage at arrival. The proportion
// is deliberately not clamped.
//
// ok is false when no expected departure exists, or when the schedule is
// degenerate (arrival equals departure), which would otherwise divide by zero.
func DelayMinutes(r Record, now time.Time) (minutes int, ok bool) {
	if r.ExpectedDeparture == nil {
		return 0, false
	}
	total := r.ScheduledArrival.Sub(r.ScheduledDeparture)
	if total == 0 {
		return 0, false
	}
	elapsed := now.Sub(r.ScheduledDeparture)
	proportion := float64(elapsed) / float64(total)
	slippage := r.ExpectedDeparture.Sub(r.ScheduledDeparture)
	return int(math.Round(slippage.Minutes() * proportion)), true
}

// Classify maps a delay in whole minutes onto a display status. Anything
// that rounds to less than a minute either way counts as on time.
func Classify(minutes int) Status {
	switch {
	case minutes > 0:
		return StatusBehind
	case minutes < 0:
		return StatusAhead
	default:
		return StatusOnTime
	}
}

// Label renders a delay as a short human-readable phrase.
func Label(minutes int) string {
	switch Classify(minutes) {
	case StatusBehind:
		return fmt.Sprintf("%d min behind", minutes)
	case StatusAhead:
		return fmt.Sprintf("%d min ahead", -minutes)
	default:
		return "on time"
	}
}
