package bus

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// Revision is a live update to a journey's departure estimate, published by
// the upstream data source on vehicles.<line>.<journey>.
type Revision struct {
	RecordID          string    `json:"recordId"`
	LineRef           string    `json:"lineRef"`
	ExpectedDeparture time.Time `json:"expectedDeparture"`
	RecordedAt        time.Time `json:"recordedAt"`
}

// SubscribeRevisions delivers decoded revisions to apply. Malformed or
// incomplete payloads are counted and dropped: the calculator only ever sees
// parsed instants.
func (b *Bus) SubscribeRevisions(subject string, apply func(Revision)) (*nats.Subscription, error) {
	return b.nc.Subscribe(subject, func(msg *nats.Msg) {
		if b.logSubjects {
			b.log.Debug().Str("subject", msg.Subject).Msg("nats revision")
		}
		var rev Revision
		if err := json.Unmarshal(msg.Data, &rev); err != nil {
			if b.metrics != nil {
				b.metrics.RevisionDecodeErrInc()
			}
			b.log.Warn().Err(err).Str("subject", msg.Subject).Msg("drop undecodable revision")
			return
		}
		if rev.RecordID == "" || rev.ExpectedDeparture.IsZero() {
			if b.metrics != nil {
				b.metrics.RevisionDecodeErrInc()
			}
			b.log.Warn().Str("subject", msg.Subject).Msg("drop incomplete revision")
			return
		}
		if rev.RecordedAt.IsZero() {
			rev.RecordedAt = time.Now()
		}
		if b.metrics != nil {
			b.metrics.RevisionsConsumedInc()
		}
		apply(rev)
	})
}
