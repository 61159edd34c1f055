// Package bus carries the service's NATS traffic: the inbound feed of
// departure-estimate revisions and the outbound wager notifications.
package bus

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Metrics is the slice of the collector the bus reports into.
type Metrics interface {
	RevisionsConsumedInc()
	RevisionDecodeErrInc()
	NoticesPublishedInc()
	NoticePublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

type Bus struct {
	nc          *nats.Conn
	logSubjects bool
	metrics     Metrics
	log         zerolog.Logger
}

func Connect(url string, logSubjects bool, m Metrics, log zerolog.Logger) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.Name("bus-tracker"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn().Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &Bus{nc: nc, logSubjects: logSubjects, metrics: m, log: log}, nil
}

func (b *Bus) Close() {
	if b.nc != nil {
		b.nc.Drain()
		b.nc.Close()
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
