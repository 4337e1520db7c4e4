package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/GoPolymarket/paper-engine/internal/metrics"
	"github.com/GoPolymarket/paper-engine/internal/paper"
	"github.com/GoPolymarket/paper-engine/internal/performance"
)

// Session exposes the paper-trading session to the API layer.
type Session interface {
	Snapshot() paper.Snapshot
	Start()
	Stop()
	Running() bool
	SetManualLock(locked bool)
	PerformanceStats(engine string) (performance.Stats, bool)
	AllPerformanceStats() map[string]performance.Stats
	Capital() paper.CapitalView
	Risk() paper.RiskView
}

// KPIProvider exposes the daily activity summary (nil if unavailable).
type KPIProvider interface {
	Snapshot(now time.Time) metrics.DailyKPI
}

// Server is a lightweight HTTP API for operating and observing a session.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	session    Session
	kpi        KPIProvider
	log        zerolog.Logger
	startedAt  time.Time
}

// NewServer creates a new API server bound to addr. metricsHandler, when
// non-nil, is mounted at /metrics.
func NewServer(addr string, session Session, kpi KPIProvider, metricsHandler http.Handler, log zerolog.Logger) *Server {
	s := &Server{
		session:   session,
		kpi:       kpi,
		log:       log.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/trades", s.handleTrades)
		r.Get("/performance", s.handlePerformance)
		r.Get("/performance/{engine}", s.handleEnginePerformance)
		r.Get("/capital", s.handleCapital)
		r.Get("/risk", s.handleRisk)
		r.Get("/kpi", s.handleKPI)
		r.Post("/start", s.handleStart)
		r.Post("/stop", s.handleStop)
		r.Post("/lock", s.handleLock)
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	s.router = r

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins serving HTTP requests.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("api server listening")
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("api server stopped")
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GET /api/health: liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"ok":       true,
		"running":  s.session.Running(),
		"uptime_s": time.Since(s.startedAt).Seconds(),
	})
}

// GET /api/status: session snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.session.Snapshot())
}

// GET /api/trades: most recent settled trades, newest first. format=csv
// returns a spreadsheet-friendly export.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := paper.RecentTrades
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	trades := s.session.Snapshot().Trades
	out := make([]performance.Trade, 0, limit)
	for i := len(trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, trades[i])
	}

	if r.URL.Query().Get("format") == "csv" {
		s.writeTradesCSV(w, out)
		return
	}
	s.writeJSON(w, map[string]interface{}{"trades": out, "count": len(out)})
}

func (s *Server) writeTradesCSV(w http.ResponseWriter, trades []performance.Trade) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"timestamp", "id", "engine", "venue", "symbol", "direction", "entry_price", "position_size", "confidence", "regime", "volatility_score", "pnl", "is_win"})
	for _, t := range trades {
		_ = cw.Write([]string{
			t.Timestamp.UTC().Format(time.RFC3339),
			t.ID,
			t.Engine,
			t.Venue,
			t.Symbol,
			t.Direction,
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.PositionSize, 'f', 4, 64),
			strconv.FormatFloat(t.Confidence, 'f', 4, 64),
			t.Regime,
			strconv.FormatFloat(t.VolatilityScore, 'f', 2, 64),
			strconv.FormatFloat(t.PnL, 'f', 4, 64),
			strconv.FormatBool(t.IsWin),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.log.Warn().Err(err).Msg("trades csv export failed")
	}
}

// GET /api/performance: stats for every engine plus the aggregate.
func (s *Server) handlePerformance(w http.ResponseWriter, _ *http.Request) {
	all := s.session.AllPerformanceStats()
	engines := make([]string, 0, len(all))
	for name := range all {
		if name != performance.Aggregate {
			engines = append(engines, name)
		}
	}
	sort.Strings(engines)
	s.writeJSON(w, map[string]interface{}{
		"engines": engines,
		"stats":   all,
	})
}

// GET /api/performance/{engine}
func (s *Server) handleEnginePerformance(w http.ResponseWriter, r *http.Request) {
	engine := chi.URLParam(r, "engine")
	stats, ok := s.session.PerformanceStats(engine)
	if !ok {
		http.Error(w, fmt.Sprintf("no trades recorded for engine %q", engine), http.StatusNotFound)
		return
	}
	s.writeJSON(w, stats)
}

// GET /api/capital
func (s *Server) handleCapital(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.session.Capital())
}

// GET /api/risk
func (s *Server) handleRisk(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.session.Risk())
}

// GET /api/kpi: today's activity summary.
func (s *Server) handleKPI(w http.ResponseWriter, _ *http.Request) {
	if s.kpi == nil {
		http.Error(w, "kpi not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, s.kpi.Snapshot(time.Now()))
}

// POST /api/start
func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	s.session.Start()
	s.writeJSON(w, map[string]bool{"running": true})
}

// POST /api/stop
func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.session.Stop()
	s.writeJSON(w, map[string]bool{"running": false})
}

// POST /api/lock: body {"locked": bool}; an empty body engages the lock.
func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Locked *bool `json:"locked"`
	}{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	locked := true
	if req.Locked != nil {
		locked = *req.Locked
	}
	s.session.SetManualLock(locked)
	s.writeJSON(w, map[string]bool{"manual_lock": locked})
}
