package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/engine"
	"github.com/talgya/outbreak/internal/entropy"
)

const testKey = "secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	sim, err := engine.NewSimulation(config.Normal(), entropy.NewSeeded(5))
	require.NoError(t, err)
	sim.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	runner := engine.NewRunner(sim, 100)
	go runner.Run(ctx)
	hub := NewHub()
	go hub.Run(ctx)

	return NewServer(runner, hub, 0, testKey)
}

func do(t *testing.T, h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	h := newTestServer(t).Routes()

	rec := do(t, h, http.MethodGet, "/api/v1/status", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var st engine.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1000, st.Population)
	assert.True(t, st.Paused)
	assert.Equal(t, "none", st.Outcome)
	assert.Equal(t, "normal", st.Speed)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t).Routes()
	rec := do(t, h, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestToggleMeasure(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	rec := do(t, h, http.MethodPost, "/api/v1/measures/lockdown", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var res actionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.OK)

	var (
		active    bool
		lookupErr error
	)
	require.NoError(t, s.Runner.Do(context.Background(), func(sim *engine.Simulation) {
		m, err := sim.Measures.Lookup("lockdown")
		if lookupErr = err; err == nil {
			active = m.Active
		}
	}))
	require.NoError(t, lookupErr)
	assert.True(t, active)

	// Same day: cooldown refuses the second toggle.
	rec = do(t, h, http.MethodPost, "/api/v1/measures/lockdown", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.OK)
}

func TestUnknownMeasure(t *testing.T) {
	h := newTestServer(t).Routes()
	rec := do(t, h, http.MethodPost, "/api/v1/measures/curfew", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/skills/telepathy", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	rec := do(t, h, http.MethodPost, "/api/v1/pause", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.AdminKey = ""
	rec = do(t, s.Routes(), http.MethodPost, "/api/v1/pause", "", true)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSpeed(t *testing.T) {
	h := newTestServer(t).Routes()

	rec := do(t, h, http.MethodPost, "/api/v1/speed", `{"mode": 2}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fastest")

	rec = do(t, h, http.MethodPost, "/api/v1/speed", `{"mode": 7}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHire(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	rec := do(t, h, http.MethodPost, "/api/v1/hire", `{"role": "police", "count": 5}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var police int
	require.NoError(t, s.Runner.Do(context.Background(), func(sim *engine.Simulation) {
		police = sim.Ledger.Stats.PoliceCount
	}))
	assert.Equal(t, 15, police)

	rec = do(t, h, http.MethodPost, "/api/v1/hire", `{"role": "citizen", "count": 5}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/hire", `{"role": "police", "count": 0}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIncomeUnknownWeek(t *testing.T) {
	h := newTestServer(t).Routes()

	rec := do(t, h, http.MethodGet, "/api/v1/income/3", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/income/abc", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryWithoutDB(t *testing.T) {
	h := newTestServer(t).Routes()
	rec := do(t, h, http.MethodGet, "/api/v1/history", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.limiter = NewRateLimiter(2, time.Minute)
	h := s.Routes()

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodPost, "/api/v1/pause", "", true)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/v1/pause", "", true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestStoppedRunner(t *testing.T) {
	sim, err := engine.NewSimulation(config.Normal(), entropy.NewSeeded(5))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runner := engine.NewRunner(sim, 100)
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	s := NewServer(runner, NewHub(), 0, testKey)
	rec := do(t, s.Routes(), http.MethodGet, "/api/v1/status", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
