package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saxenaaman628/trip-poll/internal/controller"
	"github.com/saxenaaman628/trip-poll/internal/metrics"
	"github.com/saxenaaman628/trip-poll/internal/models"
	"github.com/saxenaaman628/trip-poll/internal/orchestrator"
	"github.com/saxenaaman628/trip-poll/internal/ranking"
	"github.com/saxenaaman628/trip-poll/internal/store"
)

const secret = "route-secret"

type stubSource struct{ err error }

func (s stubSource) Nearby(context.Context, models.LatLng, string, uint) ([]models.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	r1, r2 := 4.0, 3.0
	return []models.Candidate{
		{PlaceID: "p1", Name: "One", Rating: &r1},
		{PlaceID: "p2", Name: "Two", Rating: &r2},
	}, nil
}

type stubTravel struct{}

func (stubTravel) TravelTimes(_ context.Context, origins []models.LatLng, dests []models.Candidate, _ models.TravelMode) (ranking.Matrix, error) {
	m := make(ranking.Matrix, len(origins))
	for i := range m {
		m[i] = make([]ranking.TravelTime, len(dests))
	}
	return m, nil
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T, src orchestrator.CandidateSource) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheus(reg, "trip_poll")
	require.NoError(t, err)

	orch := orchestrator.New(store.NewMemory(), src, stubTravel{}, orchestrator.WithMetrics(rec))
	r := gin.New()
	RegisterRoutes(r, Deps{
		Controller: controller.New(orch),
		Reader:     NewReader(orch),
		JWTSecret:  secret,
		TokenTTL:   time.Hour,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login() models.TokenResponse {
	s.t.Helper()
	w := s.do(http.MethodPost, "/auth/anonymous", "", nil)
	require.Equal(s.t, http.StatusOK, w.Code)
	var tok models.TokenResponse
	decode(s.t, w, &tok)
	require.NotEmpty(s.t, tok.Token)
	return tok
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorKind(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var e models.ErrorResponse
	decode(t, w, &e)
	assert.NotEmpty(t, e.Error)
	return e.Kind
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, stubSource{})
	host := s.login()
	guest := s.login()
	assert.NotEqual(t, host.UserID, guest.UserID)

	w := s.do(http.MethodPost, "/api/sessions", "", map[string]string{"category": "Food"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/sessions", host.Token, map[string]string{"category": "Pizza"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", errorKind(t, w))

	w = s.do(http.MethodPost, "/api/sessions", host.Token, map[string]string{"category": "Food"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.CreateSessionResponse
	decode(t, w, &created)
	base := "/sessions/" + created.SessionID

	w = s.do(http.MethodPost, base+"/generate", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "failed_precondition", errorKind(t, w))

	w = s.do(http.MethodPost, base+"/participants", "", map[string]any{"name": "Ana"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, base+"/participants", guest.Token, map[string]any{
		"name":        "Ana",
		"location":    map[string]float64{"lat": 40.7, "lng": -74},
		"preferences": map[string]any{"travelMode": "Walk", "price": 2},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var details models.SessionDetails
	decode(t, w, &details)
	require.Len(t, details.Participants, 1)
	assert.Equal(t, guest.UserID, details.Participants[0].UserID)
	assert.Equal(t, models.StateGatheringParticipants, details.Session.PollState)

	w = s.do(http.MethodPost, base+"/generate", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, base+"/poll", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var poll models.Poll
	decode(t, w, &poll)
	require.Len(t, poll.Options, 2)
	assert.Equal(t, "p1", poll.Options[0].PlaceID)

	w = s.do(http.MethodPost, "/api"+base+"/vote", guest.Token, map[string]string{"optionId": "p2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var action models.ActionResponse
	decode(t, w, &action)
	assert.True(t, action.Success)

	w = s.do(http.MethodPost, "/api"+base+"/vote", guest.Token, map[string]string{"optionId": "p1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "failed_precondition", errorKind(t, w))

	w = s.do(http.MethodPost, "/api"+base+"/vote", host.Token, map[string]string{"optionId": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, base+"/result", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api"+base+"/close", guest.Token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api"+base+"/close", host.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result models.Result
	decode(t, w, &result)
	require.NotNil(t, result.Winner)
	assert.Equal(t, "p2", result.Winner.PlaceID)

	w = s.do(http.MethodGet, base+"/result", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, base+"/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event:snapshot"))
	assert.Contains(t, body, `"pollState":"completed"`)

	w = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "trip_poll_")
}

func TestExternalFailureMapsToBadGateway(t *testing.T) {
	s := newTestServer(t, stubSource{err: errors.New("quota exceeded")})
	host := s.login()

	w := s.do(http.MethodPost, "/api/sessions", host.Token, map[string]string{"category": "Drinks"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.CreateSessionResponse
	decode(t, w, &created)
	base := "/sessions/" + created.SessionID

	w = s.do(http.MethodPost, base+"/participants", "", map[string]any{
		"name":     "Ben",
		"location": map[string]float64{"lat": 1, "lng": 1},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, base+"/generate", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "external_service", errorKind(t, w))

	w = s.do(http.MethodGet, base+"/poll", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMiscRoutes(t *testing.T) {
	s := newTestServer(t, stubSource{})

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/sessions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorKind(t, w))

	w = s.do(http.MethodGet, "/sessions/missing/events", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
