package api

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPolymarket/paper-engine/internal/capital"
	"github.com/GoPolymarket/paper-engine/internal/metrics"
	"github.com/GoPolymarket/paper-engine/internal/paper"
	"github.com/GoPolymarket/paper-engine/internal/performance"
	"github.com/GoPolymarket/paper-engine/internal/risk"
)

type mockSession struct {
	running  bool
	locked   bool
	snapshot paper.Snapshot
	stats    map[string]performance.Stats
	capital  paper.CapitalView
	risk     paper.RiskView
}

func (m *mockSession) Snapshot() paper.Snapshot       { return m.snapshot }
func (m *mockSession) Start()                         { m.running = true }
func (m *mockSession) Stop()                          { m.running = false }
func (m *mockSession) Running() bool                  { return m.running }
func (m *mockSession) SetManualLock(locked bool)      { m.locked = locked }
func (m *mockSession) Capital() paper.CapitalView     { return m.capital }
func (m *mockSession) Risk() paper.RiskView           { return m.risk }
func (m *mockSession) AllPerformanceStats() map[string]performance.Stats {
	return m.stats
}
func (m *mockSession) PerformanceStats(engine string) (performance.Stats, bool) {
	s, ok := m.stats[engine]
	return s, ok
}

type mockKPI struct{ kpi metrics.DailyKPI }

func (m mockKPI) Snapshot(time.Time) metrics.DailyKPI { return m.kpi }

func newTestServer(session *mockSession) *Server {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("paper_engine_ticks_total 1\n"))
	})
	return NewServer(":0", session, mockKPI{metrics.DailyKPI{Day: "2024-03-04", Settled: 3}}, h, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func sampleTrades(n int) []performance.Trade {
	out := make([]performance.Trade, n)
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = performance.Trade{
			ID:        "t-" + string(rune('a'+i)),
			Engine:    "scalp",
			Venue:     "kraken",
			Symbol:    "btcusdt",
			Direction: "long",
			PnL:       1,
			IsWin:     true,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&mockSession{running: true})
	w := do(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["running"])
}

func TestHandleStatus(t *testing.T) {
	session := &mockSession{snapshot: paper.Snapshot{
		Running:      true,
		Symbol:       "btcusdt",
		Balance:      1011.44,
		PnL:          11.44,
		OpenPosition: &paper.Position{Entry: 199, Size: 14.3},
		Trades:       sampleTrades(2),
	}}
	w := do(t, newTestServer(session), http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var snap paper.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Equal(t, 1011.44, snap.Balance)
	require.NotNil(t, snap.OpenPosition)
	assert.Equal(t, 199.0, snap.OpenPosition.Entry)
	assert.Len(t, snap.Trades, 2)
}

func TestHandleTradesNewestFirstWithLimit(t *testing.T) {
	session := &mockSession{snapshot: paper.Snapshot{Trades: sampleTrades(5)}}
	w := do(t, newTestServer(session), http.MethodGet, "/api/trades?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Trades []performance.Trade `json:"trades"`
		Count  int                 `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "t-e", body.Trades[0].ID)
	assert.Equal(t, "t-d", body.Trades[1].ID)
}

func TestHandleTradesCSV(t *testing.T) {
	session := &mockSession{snapshot: paper.Snapshot{Trades: sampleTrades(3)}}
	w := do(t, newTestServer(session), http.MethodGet, "/api/trades?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "timestamp", rows[0][0])
	assert.Equal(t, "t-c", rows[1][1])
	assert.Equal(t, "true", rows[1][12])
}

func TestHandlePerformance(t *testing.T) {
	session := &mockSession{stats: map[string]performance.Stats{
		"session":             {Engine: "session", Wins: 1},
		"scalp":               {Engine: "scalp", Wins: 2, Losses: 1},
		performance.Aggregate: {Engine: performance.Aggregate, Wins: 3, Losses: 1},
	}}
	s := newTestServer(session)

	w := do(t, s, http.MethodGet, "/api/performance", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Engines []string                     `json:"engines"`
		Stats   map[string]performance.Stats `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, []string{"scalp", "session"}, body.Engines)
	assert.Equal(t, 3, body.Stats[performance.Aggregate].Wins)

	w = do(t, s, http.MethodGet, "/api/performance/scalp", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats performance.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Losses)

	w = do(t, s, http.MethodGet, "/api/performance/swing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCapitalAndRisk(t *testing.T) {
	session := &mockSession{
		capital: paper.CapitalView{
			Total:   1000,
			Reserve: 200,
			Cells:   []capital.Cell{{Engine: "scalp", Venue: "coinbase", Capital: 200}},
		},
		risk: paper.RiskView{State: risk.Locked(), ManualLock: true},
	}
	s := newTestServer(session)

	w := do(t, s, http.MethodGet, "/api/capital", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cv paper.CapitalView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cv))
	assert.Equal(t, 200.0, cv.Reserve)
	require.Len(t, cv.Cells, 1)

	w = do(t, s, http.MethodGet, "/api/risk", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, false, body["allowed"])
	assert.Equal(t, "manual", body["level"])
	assert.Equal(t, true, body["manual_lock"])
}

func TestHandleStartStopLock(t *testing.T) {
	session := &mockSession{}
	s := newTestServer(session)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/start", "").Code)
	assert.True(t, session.running)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/stop", "").Code)
	assert.False(t, session.running)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/lock", "").Code)
	assert.True(t, session.locked)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/lock", `{"locked":false}`).Code)
	assert.False(t, session.locked)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/lock", `{`).Code)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/api/start", "").Code)
}

func TestHandleKPIAndMetrics(t *testing.T) {
	s := newTestServer(&mockSession{})
	w := do(t, s, http.MethodGet, "/api/kpi", "")
	require.Equal(t, http.StatusOK, w.Code)
	var kpi metrics.DailyKPI
	require.NoError(t, json.NewDecoder(w.Body).Decode(&kpi))
	assert.Equal(t, 3, kpi.Settled)

	w = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "paper_engine_ticks_total")

	noKPI := NewServer(":0", &mockSession{}, nil, nil, zerolog.Nop())
	assert.Equal(t, http.StatusServiceUnavailable, do(t, noKPI, http.MethodGet, "/api/kpi", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, noKPI, http.MethodGet, "/metrics", "").Code)
}
