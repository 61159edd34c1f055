package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Jacksery/bus-tracker/internal/transit"
	"github.com/Jacksery/bus-tracker/internal/wager"
)

type vehicleView struct {
	ID              string `json:"id"`
	LineRef         string `json:"lineRef"`
	DirectionRef    string `json:"directionRef,omitempty"`
	OperatorRef     string `json:"operatorRef,omitempty"`
	VehicleRef      string `json:"vehicleRef,omitempty"`
	OriginName      string `json:"originName,omitempty"`
	DestinationName string `json:"destinationName,omitempty"`

	ScheduledDeparture time.Time  `json:"scheduledDeparture"`
	ExpectedDeparture  *time.Time `json:"expectedDeparture,omitempty"`
	ScheduledArrival   time.Time  `json:"scheduledArrival"`
	RecordedAt         time.Time  `json:"recordedAt"`

	Active        bool   `json:"active"`
	DelayMinutes  *int   `json:"delayMinutes,omitempty"`
	Status        string `json:"status,omitempty"`
	StatusLabel   string `json:"statusLabel,omitempty"`
	WagerEligible bool   `json:"wagerEligible"`
}

func newVehicleView(rec transit.Record, now time.Time) vehicleView {
	v := vehicleView{
		ID:                 rec.ID,
		LineRef:            rec.LineRef,
		DirectionRef:       rec.DirectionRef,
		OperatorRef:        rec.OperatorRef,
		VehicleRef:         rec.VehicleRef,
		OriginName:         rec.OriginName,
		DestinationName:    rec.DestinationName,
		ScheduledDeparture: rec.ScheduledDeparture,
		ExpectedDeparture:  rec.ExpectedDeparture,
		ScheduledArrival:   rec.ScheduledArrival,
		RecordedAt:         rec.RecordedAt,
		Active:             transit.IsActive(rec, now),
	}
	if minutes, ok := transit.DelayMinutes(rec, now); ok {
		v.DelayMinutes = &minutes
		v.Status = transit.Classify(minutes).String()
		v.StatusLabel = transit.Label(minutes)
	}
	return v
}

// vehicleView derives the display snapshot plus an eligibility preview: can
// a minimum-stake wager be placed on this record right now?
func (s *Server) vehicleView(rec transit.Record, now time.Time) vehicleView {
	v := newVehicleView(rec, now)
	lim := s.store.Limits()
	v.WagerEligible = wager.CanPlace(rec, now, s.store.View(), lim.MinStake, lim) == nil
	return v
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	recs := s.registry.List()
	views := make([]vehicleView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, s.vehicleView(rec, now))
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"vehicles": views})
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, ok := s.registry.Get(ps.ByName("id"))
	if !ok {
		s.sendError(w, http.StatusNotFound, "unknown vehicle record")
		return
	}
	s.sendJSON(w, http.StatusOK, s.vehicleView(rec, s.now()))
}

func (s *Server) listWagers(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]any{"wagers": s.store.List()})
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]int{"balance": s.store.Balance()})
}

type placeWagerRequest struct {
	RecordID   string `json:"recordId"`
	Amount     int    `json:"amount"`
	Prediction string `json:"prediction"`
}

func (s *Server) placeWager(w http.ResponseWriter, r *http.Request) {
	var req placeWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	pred, err := wager.ParsePrediction(req.Prediction)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, ok := s.registry.Get(req.RecordID)
	if !ok {
		s.sendError(w, http.StatusNotFound, "unknown vehicle record")
		return
	}

	placed, err := s.store.Place(rec, req.Amount, pred, s.now())
	if err != nil {
		switch {
		case errors.Is(err, wager.ErrDuplicateWager):
			s.sendError(w, http.StatusConflict, err.Error())
		case errors.Is(err, wager.ErrInactive),
			errors.Is(err, wager.ErrInsufficientBalance),
			errors.Is(err, wager.ErrStakeOutOfRange):
			s.sendError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.log.Error().Err(err).Msg("place wager")
			s.sendError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if s.metrics != nil {
		s.metrics.WagerPlacedInc()
		s.metrics.SetBalance(s.store.Balance())
	}
	if s.notifier != nil {
		if err := s.notifier.PublishWagerPlaced(placed); err != nil {
			s.log.Warn().Err(err).Str("wager", placed.ID).Msg("wager notice publish failed")
		}
	}
	s.log.Info().
		Str("wager", placed.ID).
		Str("record", placed.RecordID).
		Str("prediction", string(placed.Prediction)).
		Int("amount", placed.Amount).
		Msg("wager placed")
	s.sendJSON(w, http.StatusCreated, placed)
}
