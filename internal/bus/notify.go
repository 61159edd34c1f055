package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Jacksery/bus-tracker/internal/wager"
)

// WagerNotice is published on wagers.placed.<line> after a successful
// placement.
type WagerNotice struct {
	WagerID    string    `json:"wagerId"`
	RecordID   string    `json:"recordId"`
	LineRef    string    `json:"lineRef"`
	Amount     int       `json:"amount"`
	Prediction string    `json:"prediction"`
	Summary    string    `json:"summary"`
	PlacedAt   time.Time `json:"placedAt"`
}

// PublishWagerPlaced notifies subscribers of a freshly placed wager with a
// human-readable summary.
func (b *Bus) PublishWagerPlaced(w wager.Wager) error {
	notice := WagerNotice{
		WagerID:    w.ID,
		RecordID:   w.RecordID,
		LineRef:    w.LineRef,
		Amount:     w.Amount,
		Prediction: string(w.Prediction),
		Summary:    fmt.Sprintf("%d staked on line %s arriving %s", w.Amount, w.LineRef, w.Prediction),
		PlacedAt:   w.PlacedAt,
	}
	subject := fmt.Sprintf("wagers.placed.%s", subjectToken(w.LineRef))
	data, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	if b.logSubjects {
		b.log.Debug().Str("subject", subject).Msg("nats publish")
	}
	start := time.Now()
	err = b.nc.Publish(subject, data)
	if b.metrics != nil {
		b.metrics.PublishObserve(time.Since(start))
		if err != nil {
			b.metrics.NoticePublishErrInc()
		} else {
			b.metrics.NoticesPublishedInc()
		}
	}
	return err
}
