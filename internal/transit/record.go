package transit

import "time"

// Record is a snapshot of a single vehicle journey as supplied by the data
// source. Identity fields are opaque display strings; only the timestamps
// feed the status calculations.
type Record struct {
	ID              string
	LineRef         string
	DirectionRef    string
	OperatorRef     string
	VehicleRef      string
	OriginName      string
	DestinationName string

	ScheduledDeparture time.Time
	ExpectedDeparture  *time.Time // nil when no revised estimate exists
	ScheduledArrival   time.Time
	RecordedAt         time.Time
}

// EffectiveDeparture is the revised departure estimate when one exists,
// otherwise the scheduled departure.
func (r Record) EffectiveDeparture() time.Time {
	if r.ExpectedDeparture != nil {
		return *r.ExpectedDeparture
	}
	return r.ScheduledDeparture
}
