package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Jacksery/bus-tracker/internal/wager"
)

type Collector struct {
	reg *prometheus.Registry

	RecordsTracked prometheus.Gauge
	Balance        prometheus.Gauge

	JourneysLoaded prometheus.Counter
	RefreshErrors  prometheus.Counter

	WagersPlaced   prometheus.Counter
	WagersResolved *prometheus.CounterVec // outcome label: won|lost|push

	RevisionsConsumed  prometheus.Counter
	RevisionDecodeErrs prometheus.Counter
	NoticesPublished   prometheus.Counter
	NoticePublishErrs  prometheus.Counter
	NATSConnected      prometheus.Gauge
	PublishDuration    prometheus.Histogram

	HTTPDuration *prometheus.HistogramVec // route label

	log zerolog.Logger
}

func NewCollector(log zerolog.Logger) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RecordsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_records_tracked",
			Help: "Number of transit records currently in the registry.",
		}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_wager_balance",
			Help: "Current wager balance.",
		}),
		JourneysLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_journeys_loaded_total",
			Help: "Total journey records loaded from the database.",
		}),
		RefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_journey_refresh_errors_total",
			Help: "Total journey refresh failures.",
		}),
		WagersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_wagers_placed_total",
			Help: "Total wagers placed.",
		}),
		WagersResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_wagers_resolved_total",
			Help: "Total wagers resolved.",
		}, []string{"outcome"}),
		RevisionsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_revisions_consumed_total",
			Help: "Total departure revisions consumed from NATS.",
		}),
		RevisionDecodeErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_revision_decode_errors_total",
			Help: "Total revision payloads dropped as undecodable.",
		}),
		NoticesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_notices_published_total",
			Help: "Total wager notices published to NATS.",
		}),
		NoticePublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_notice_publish_errors_total",
			Help: "Total NATS notice publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS notice.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"route"}),
		log: log,
	}

	reg.MustRegister(
		c.RecordsTracked, c.Balance,
		c.JourneysLoaded, c.RefreshErrors,
		c.WagersPlaced, c.WagersResolved,
		c.RevisionsConsumed, c.RevisionDecodeErrs,
		c.NoticesPublished, c.NoticePublishErrs,
		c.NATSConnected, c.PublishDuration, c.HTTPDuration,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.log.Error().Err(err).Msg("metrics server error")
		}
	}()
	c.log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}

// Bus metrics interface.

func (c *Collector) RevisionsConsumedInc()           { c.RevisionsConsumed.Inc() }
func (c *Collector) RevisionDecodeErrInc()           { c.RevisionDecodeErrs.Inc() }
func (c *Collector) NoticesPublishedInc()            { c.NoticesPublished.Inc() }
func (c *Collector) NoticePublishErrInc()            { c.NoticePublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration)  { c.PublishDuration.Observe(d.Seconds()) }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

// API metrics interface.

func (c *Collector) WagerPlacedInc() { c.WagersPlaced.Inc() }
func (c *Collector) ObserveHTTP(route string, d time.Duration) {
	c.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Resolver metrics interface.

func (c *Collector) WagerResolved(outcome wager.Outcome) {
	c.WagersResolved.WithLabelValues(string(outcome)).Inc()
}
func (c *Collector) SetBalance(balance int) { c.Balance.Set(float64(balance)) }
