package paper

import (
	"fmt"
	"slices"
	"time"

	"github.com/GoPolymarket/paper-engine/internal/capital"
	"github.com/GoPolymarket/paper-engine/internal/performance"
)

// State is the persisted form of a session. An open position is not
// carried over: its PnL has not touched the pool yet, so dropping it leaves
// capital consistent.
type State struct {
	Symbol     string                             `msgpack:"symbol"`
	DailyPnL   float64                            `msgpack:"daily_pnl"`
	Day        time.Time                          `msgpack:"day"`
	Settled    int                                `msgpack:"settled"`
	Cursor     int                                `msgpack:"cursor"`
	ManualLock bool                               `msgpack:"manual_lock"`
	Pool       capital.State                      `msgpack:"pool"`
	Book       map[string]performance.EngineState `msgpack:"book"`
	Recent     []performance.Trade                `msgpack:"recent"`
	History    []float64                          `msgpack:"history"`
	SavedAt    time.Time                          `msgpack:"saved_at"`
}

func (t *Trader) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Symbol:     t.cfg.Symbol,
		DailyPnL:   t.dailyPnL,
		Day:        t.day,
		Settled:    t.settled,
		Cursor:     t.cursor,
		ManualLock: t.gov.ManualLock(),
		Pool:       t.pool.State(),
		Book:       t.book.State(),
		Recent:     append([]performance.Trade(nil), t.recent...),
		History:    t.history.Window(t.cfg.Symbol),
		SavedAt:    time.Now().UTC(),
	}
}

// Restore replaces the session's capital, performance and history with a
// saved state. The running flag is left as is.
func (t *Trader) Restore(s State) error {
	if s.Symbol != t.cfg.Symbol {
		return fmt.Errorf("paper: state is for symbol %q, session trades %q", s.Symbol, t.cfg.Symbol)
	}
	pool, err := capital.Restore(s.Pool)
	if err != nil {
		return fmt.Errorf("paper: restore capital: %w", err)
	}

	if !slices.Equal(s.Pool.Engines, t.cfg.Engines) || !slices.Equal(s.Pool.Venues, t.cfg.Venues) {
		t.log.Warn().
			Strs("engines", s.Pool.Engines).
			Strs("venues", s.Pool.Venues).
			Strs("config_engines", t.cfg.Engines).
			Strs("config_venues", t.cfg.Venues).
			Msg("restored pool layout differs from config, keeping the restored layout")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pool = pool
	t.book.Restore(s.Book)
	t.history.Load(t.cfg.Symbol, s.History)
	t.dailyPnL = s.DailyPnL
	t.settled = s.Settled
	t.day = s.Day
	n := len(pool.Cells())
	t.cursor = ((s.Cursor % n) + n) % n
	t.position = nil
	t.recent = append([]performance.Trade(nil), s.Recent...)
	if len(t.recent) > RecentTrades {
		t.recent = t.recent[len(t.recent)-RecentTrades:]
	}
	t.gov.SetManualLock(s.ManualLock)
	t.log.Info().Float64("total", pool.Total()).Int("settled", s.Settled).Msg("session restored")
	return nil
}
