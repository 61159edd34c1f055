// Package api exposes the tracker's HTTP surface: vehicle snapshots with
// derived status, the wager book, and the balance.
package api

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/Jacksery/bus-tracker/internal/registry"
	"github.com/Jacksery/bus-tracker/internal/wager"
)

// Notifier is told about successful wager placements. Failures are logged,
// never surfaced to the client: the wager already stands.
type Notifier interface {
	PublishWagerPlaced(w wager.Wager) error
}

// Metrics is the slice of the collector the API reports into.
type Metrics interface {
	WagerPlacedInc()
	SetBalance(balance int)
	ObserveHTTP(route string, d time.Duration)
}

type Server struct {
	registry *registry.Registry
	store    *wager.Store
	notifier Notifier
	metrics  Metrics
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Server)

// WithClock overrides the wall clock, so handler output is deterministic in
// tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(reg *registry.Registry, store *wager.Store, notifier Notifier, m Metrics, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		registry: reg,
		store:    store,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/healthz", s.timed("/healthz", s.health))
	router.HandlerFunc(http.MethodGet, "/api/vehicles", s.timed("/api/vehicles", s.listVehicles))
	router.GET("/api/vehicles/:id", s.timedP("/api/vehicles/:id", s.getVehicle))
	router.HandlerFunc(http.MethodGet, "/api/wagers", s.timed("/api/wagers", s.listWagers))
	router.HandlerFunc(http.MethodPost, "/api/wagers", s.timed("/api/wagers", s.placeWager))
	router.HandlerFunc(http.MethodGet, "/api/balance", s.timed("/api/balance", s.balance))
	return router
}

// Serve starts the API server on addr.
func (s *Server) Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: s.Routes()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("api server error")
		}
	}()
	s.log.Info().Str("addr", addr).Msg("api listening")
	return srv
}

func (s *Server) timed(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, time.Since(start))
		}
	}
}

func (s *Server) timedP(route string, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		h(w, r, ps)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, time.Since(start))
		}
	}
}
