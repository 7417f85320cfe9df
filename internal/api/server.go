// Package api serves a running session over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token and are rate limited.
// Every handler reaches the simulation through the runner.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/engine"
	"github.com/talgya/outbreak/internal/persistence"
	"github.com/talgya/outbreak/internal/policy"
)

// Server serves the session state over HTTP.
type Server struct {
	Runner    *engine.Runner
	Hub       *Hub
	DB        *persistence.DB // optional history store
	SessionID string
	Port      int
	AdminKey  string // Bearer token for POST endpoints. Empty = POST disabled.

	limiter *RateLimiter
}

// NewServer wires a server to a runner and stream hub.
func NewServer(r *engine.Runner, hub *Hub, port int, adminKey string) *Server {
	return &Server{
		Runner:   r,
		Hub:      hub,
		Port:     port,
		AdminKey: adminKey,
		limiter:  NewRateLimiter(120, time.Minute),
	}
}

// Hooks returns simulation options that publish to the stream hub.
func (s *Server) Hooks() []engine.Option {
	return []engine.Option{
		engine.WithDayHook(func(rep engine.DayReport) { s.Hub.Publish("day", rep) }),
		engine.WithEventHook(func(e engine.Event) { s.Hub.Publish("event", e) }),
		engine.WithNotifier(engine.NotifierFunc(func(o economy.Outcome, day int) {
			s.Hub.Publish("outcome", map[string]any{"outcome": o.String(), "won": o.Won(), "day": day})
		})),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints.
		r.Get("/status", s.handleStatus)
		r.Get("/weekly", s.handleWeekly)
		r.Get("/income/{week}", s.handleIncome)
		r.Get("/events", s.handleEvents)
		r.Get("/rules", s.handleRules)
		r.Get("/history", s.handleHistory)
		r.Get("/sessions", s.handleSessions)
		r.Get("/stream", s.handleStream)

		// Control plane.
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Use(s.limiter.Middleware)
			r.Post("/speed", s.handleSpeed)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/measures/{name}", s.handleMeasure)
			r.Post("/skills/{name}", s.handleSkill)
			r.Post("/research", s.handleResearch)
			r.Post("/hire", s.handleHire)
			r.Post("/population", s.handlePopulation)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.limiter.RunCleanup(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "")

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no OUTBREAK_ADMIN_KEY set)")
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// do runs fn on the simulation goroutine, writing an error response if
// it could not run.
func (s *Server) do(w http.ResponseWriter, r *http.Request, fn func(*engine.Simulation)) bool {
	err := s.Runner.Do(r.Context(), fn)
	switch {
	case err == nil:
		return true
	case errors.Is(err, engine.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "simulation stopped")
	default:
		slog.Error("simulation call failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "simulation error")
	}
	return false
}

// actionResult is the reply to every control action. OK false means the
// action was refused and nothing changed.
type actionResult struct {
	OK     bool   `json:"ok"`
	Budget string `json:"budget"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st engine.Status
	if s.do(w, r, func(sim *engine.Simulation) { st = sim.Status() }) {
		writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	var weekly economy.Weekly
	if s.do(w, r, func(sim *engine.Simulation) { weekly = sim.Weekly() }) {
		writeJSON(w, http.StatusOK, weekly)
	}
}

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	week, err := strconv.Atoi(chi.URLParam(r, "week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "week must be an integer")
		return
	}
	var (
		st economy.IncomeStatement
		ok bool
	)
	if !s.do(w, r, func(sim *engine.Simulation) { st, ok = sim.IncomeForWeek(week) }) {
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no week %d", week))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"week":      week,
		"statement": st,
		"expenses":  st.Expenses(),
		"net":       st.Net(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be 1-1000")
			return
		}
		limit = n
	}
	var evs []engine.Event
	if s.do(w, r, func(sim *engine.Simulation) { evs = sim.RecentEvents(limit) }) {
		writeJSON(w, http.StatusOK, evs)
	}
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	var rules []string
	if s.do(w, r, func(sim *engine.Simulation) {
		for _, rule := range sim.Rules.Rules() {
			rules = append(rules, rule.String())
		}
	}) {
		writeJSON(w, http.StatusOK, rules)
	}
}

// handleHistory reads recorded days straight from the database; it does
// not touch the live session.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "history recording disabled")
		return
	}
	id := r.URL.Query().Get("session")
	if id == "" {
		id = s.SessionID
	}
	rows, err := s.DB.History(id)
	if err != nil {
		slog.Error("history query failed", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": id, "days": rows})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "history recording disabled")
		return
	}
	sessions, err := s.DB.Sessions(50)
	if err != nil {
		slog.Error("sessions query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "sessions unavailable")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleStream upgrades to a websocket that receives day reports,
// events and the outcome as they happen.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := newClient(s.Hub, conn)
	if !s.Hub.add(c) {
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode int `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	var setErr error
	var speed string
	if !s.do(w, r, func(sim *engine.Simulation) {
		if setErr = sim.SetSpeed(req.Mode); setErr == nil {
			speed = sim.Clock.Speed().String()
		}
	}) {
		return
	}
	if setErr != nil {
		writeError(w, http.StatusBadRequest, setErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"speed": speed})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if s.do(w, r, func(sim *engine.Simulation) { sim.Pause() }) {
		writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
	}
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if s.do(w, r, func(sim *engine.Simulation) { sim.Resume() }) {
		writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
	}
}

func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.action(w, r, func(sim *engine.Simulation) (bool, error) {
		return sim.ToggleMeasure(name)
	})
}

func (s *Server) handleSkill(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.action(w, r, func(sim *engine.Simulation) (bool, error) {
		return sim.ActivateSkill(name)
	})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, func(sim *engine.Simulation) (bool, error) {
		return sim.BuyResearch(), nil
	})
}

func (s *Server) handleHire(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role    string `json:"role"`
		Count   int    `json:"count"`
		TestKit bool   `json:"test_kit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	role, err := agents.ParseRole(req.Role)
	if err != nil || role == agents.RoleCitizen {
		writeError(w, http.StatusBadRequest, "role must be police or health_worker")
		return
	}
	if req.Count < 1 {
		writeError(w, http.StatusBadRequest, "count must be positive")
		return
	}
	s.action(w, r, func(sim *engine.Simulation) (bool, error) {
		if role == agents.RolePolice {
			return sim.HirePolice(req.Count), nil
		}
		return sim.HireHealthWorkers(req.Count, req.TestKit), nil
	})
}

func (s *Server) handlePopulation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Count < 1 || req.Count > 10_000 {
		writeError(w, http.StatusBadRequest, "count must be 1-10000")
		return
	}
	s.action(w, r, func(sim *engine.Simulation) (bool, error) {
		sim.AddNewPopulation(req.Count)
		return true, nil
	})
}

// action runs a control action and writes its result. Unknown names map
// to 404.
func (s *Server) action(w http.ResponseWriter, r *http.Request, fn func(*engine.Simulation) (bool, error)) {
	var (
		res actionResult
		err error
	)
	if !s.do(w, r, func(sim *engine.Simulation) {
		res.OK, err = fn(sim)
		res.Budget = sim.Ledger.BudgetString()
	}) {
		return
	}
	if errors.Is(err, policy.ErrUnknownMeasure) || errors.Is(err, policy.ErrUnknownSkill) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
