package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jacksery/bus-tracker/internal/registry"
	"github.com/Jacksery/bus-tracker/internal/transit"
	"github.com/Jacksery/bus-tracker/internal/wager"
)

var testNow = time.Date(2025, 6, 12, 10, 30, 0, 0, time.UTC)

type stubNotifier struct{ notices []wager.Wager }

func (n *stubNotifier) PublishWagerPlaced(w wager.Wager) error {
	n.notices = append(n.notices, w)
	return nil
}

func newTestServer(t *testing.T, balance int) (*Server, *registry.Registry, *wager.Store, *stubNotifier) {
	t.Helper()
	reg := registry.New()
	store := wager.NewStore(balance, wager.Limits{MinStake: 1, MaxStake: 100})
	notifier := &stubNotifier{}
	srv := NewServer(reg, store, notifier, nil, zerolog.Nop(), WithClock(func() time.Time { return testNow }))
	return srv, reg, store, notifier
}

func seedRecord(reg *registry.Registry, id string, delayed bool) transit.Record {
	rec := transit.Record{
		ID:                 id,
		LineRef:            "42",
		OriginName:         "Depot",
		DestinationName:    "Harbour",
		ScheduledDeparture: testNow.Add(-30 * time.Minute),
		ScheduledArrival:   testNow.Add(30 * time.Minute),
		RecordedAt:         testNow.Add(-time.Minute),
	}
	if delayed {
		expected := rec.ScheduledDeparture.Add(10 * time.Minute)
		rec.ExpectedDeparture = &expected
	}
	reg.Upsert(rec)
	return rec
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	srv, _, _, _ := newTestServer(t, 100)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestListVehiclesDerivesStatus(t *testing.T) {
	srv, reg, _, _ := newTestServer(t, 100)
	seedRecord(reg, "j1", true)  // halfway through with 10 min slippage -> 5 behind
	seedRecord(reg, "j2", false) // no revision -> no delay shown

	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vehicles", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeEnvelope(t, rr)
	vehicles := body["data"].(map[string]any)["vehicles"].([]any)
	require.Len(t, vehicles, 2)

	first := vehicles[0].(map[string]any)
	assert.Equal(t, "j1", first["id"])
	assert.Equal(t, true, first["active"])
	assert.Equal(t, float64(5), first["delayMinutes"])
	assert.Equal(t, "behind", first["status"])
	assert.Equal(t, "5 min behind", first["statusLabel"])

	second := vehicles[1].(map[string]any)
	assert.Equal(t, "j2", second["id"])
	assert.Equal(t, true, second["active"])
	_, hasDelay := second["delayMinutes"]
	assert.False(t, hasDelay, "records without a revision carry no delay indicator")
}

func TestVehicleWagerEligibilityPreview(t *testing.T) {
	srv, reg, store, _ := newTestServer(t, 100)
	rec := seedRecord(reg, "j1", true)

	get := func() map[string]any {
		rr := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vehicles/j1", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		return decodeEnvelope(t, rr)["data"].(map[string]any)
	}

	assert.Equal(t, true, get()["wagerEligible"])

	// An open wager on the record makes it ineligible.
	_, err := store.Place(rec, 10, wager.PredictLate, testNow)
	require.NoError(t, err)
	assert.Equal(t, false, get()["wagerEligible"])
}

func TestVehicleIneligibleWhenBroke(t *testing.T) {
	srv, reg, _, _ := newTestServer(t, 0)
	seedRecord(reg, "j1", true)

	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vehicles/j1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	data := decodeEnvelope(t, rr)["data"].(map[string]any)
	assert.Equal(t, true, data["active"])
	assert.Equal(t, false, data["wagerEligible"])
}

func TestGetVehicleNotFound(t *testing.T) {
	srv, _, _, _ := newTestServer(t, 100)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/vehicles/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPlaceWager(t *testing.T) {
	srv, reg, store, notifier := newTestServer(t, 100)
	seedRecord(reg, "j1", true)

	payload := []byte(`{"recordId":"j1","amount":25,"prediction":"late"}`)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/wagers", bytes.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rr.Code)

	body := decodeEnvelope(t, rr)
	data := body["data"].(map[string]any)
	assert.Equal(t, "j1", data["recordId"])
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, 75, store.Balance())

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, "j1", notifier.notices[0].RecordID)
}

func TestPlaceWagerValidation(t *testing.T) {
	srv, reg, _, _ := newTestServer(t, 10)
	seedRecord(reg, "active", true)
	over := seedRecord(reg, "finished", true)
	over.ScheduledArrival = testNow.Add(-time.Hour)
	over.ScheduledDeparture = testNow.Add(-2 * time.Hour)
	reg.Upsert(over)

	tests := []struct {
		name    string
		payload string
		status  int
	}{
		{"malformed body", `{"recordId":`, http.StatusBadRequest},
		{"bad prediction", `{"recordId":"active","amount":5,"prediction":"maybe"}`, http.StatusBadRequest},
		{"unknown record", `{"recordId":"ghost","amount":5,"prediction":"late"}`, http.StatusNotFound},
		{"inactive record", `{"recordId":"finished","amount":5,"prediction":"late"}`, http.StatusUnprocessableEntity},
		{"stake above balance", `{"recordId":"active","amount":50,"prediction":"late"}`, http.StatusUnprocessableEntity},
		{"stake out of range", `{"recordId":"active","amount":0,"prediction":"late"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/wagers", bytes.NewReader([]byte(tc.payload)))
			srv.Routes().ServeHTTP(rr, req)
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestPlaceWagerDuplicate(t *testing.T) {
	srv, reg, _, _ := newTestServer(t, 100)
	seedRecord(reg, "j1", true)

	payload := `{"recordId":"j1","amount":10,"prediction":"late"}`
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/wagers", bytes.NewReader([]byte(payload))))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/wagers", bytes.NewReader([]byte(payload))))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestBalanceAndWagerList(t *testing.T) {
	srv, reg, store, _ := newTestServer(t, 100)
	rec := seedRecord(reg, "j1", true)
	_, err := store.Place(rec, 40, wager.PredictEarly, testNow)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/balance", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, float64(60), body["data"].(map[string]any)["balance"])

	rr = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/wagers", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body = decodeEnvelope(t, rr)
	wagers := body["data"].(map[string]any)["wagers"].([]any)
	require.Len(t, wagers, 1)
	assert.Equal(t, "early", wagers[0].(map[string]any)["prediction"])
}
