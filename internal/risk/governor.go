package risk

import (
	"fmt"
	"sync"
)

// Level identifies which control produced a risk decision.
type Level string

const (
	LevelNormal    Level = "normal"
	LevelDaily     Level = "daily"
	LevelPortfolio Level = "portfolio"
	LevelManual    Level = "manual"
)

type Config struct {
	MaxDailyLossPct     float64 `yaml:"max_daily_loss_pct"`
	MaxTotalDrawdownPct float64 `yaml:"max_total_drawdown_pct"`
}

func DefaultConfig() Config {
	return Config{MaxDailyLossPct: 5, MaxTotalDrawdownPct: 25}
}

// State is derived on every evaluation and never stored.
type State struct {
	Allowed          bool    `json:"allowed"`
	Reason           string  `json:"reason,omitempty"`
	Level            Level   `json:"level"`
	DailyLossPct     float64 `json:"daily_loss_pct"`
	TotalDrawdownPct float64 `json:"total_drawdown_pct"`
}

// Evaluate is the portfolio-level gate. Daily loss is checked before total
// drawdown. Percentages are expressed as 0-100.
func Evaluate(totalCapital, peakCapital, dailyPnL float64, cfg Config) State {
	if totalCapital <= 0 {
		return State{Reason: "No capital remaining", Level: LevelPortfolio, DailyLossPct: 100, TotalDrawdownPct: 100}
	}
	var dailyLossPct, drawdownPct float64
	if dailyPnL < 0 {
		dailyLossPct = -dailyPnL / totalCapital * 100
	}
	if peakCapital > 0 && peakCapital > totalCapital {
		drawdownPct = (peakCapital - totalCapital) / peakCapital * 100
	}
	st := State{Allowed: true, Level: LevelNormal, DailyLossPct: dailyLossPct, TotalDrawdownPct: drawdownPct}
	switch {
	case dailyLossPct > cfg.MaxDailyLossPct:
		st.Allowed = false
		st.Level = LevelDaily
		st.Reason = fmt.Sprintf("Daily loss limit breached: %.2f%% > %.2f%%", dailyLossPct, cfg.MaxDailyLossPct)
	case drawdownPct > cfg.MaxTotalDrawdownPct:
		st.Allowed = false
		st.Level = LevelPortfolio
		st.Reason = fmt.Sprintf("Portfolio drawdown limit breached: %.2f%% > %.2f%%", drawdownPct, cfg.MaxTotalDrawdownPct)
	}
	return st
}

// Governor holds the thresholds and the operator kill switch. The manual lock
// is intent, not a derived condition, so callers check ManualLock before
// asking for a computed evaluation.
type Governor struct {
	mu         sync.RWMutex
	cfg        Config
	manualLock bool
}

func NewGovernor(cfg Config) *Governor {
	def := DefaultConfig()
	if cfg.MaxDailyLossPct <= 0 {
		cfg.MaxDailyLossPct = def.MaxDailyLossPct
	}
	if cfg.MaxTotalDrawdownPct <= 0 {
		cfg.MaxTotalDrawdownPct = def.MaxTotalDrawdownPct
	}
	return &Governor{cfg: cfg}
}

func (g *Governor) SetManualLock(locked bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.manualLock = locked
}

func (g *Governor) ManualLock() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.manualLock
}

func (g *Governor) Config() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// Evaluate runs the computed check with the governor's thresholds. It does
// not consult the manual lock.
func (g *Governor) Evaluate(totalCapital, peakCapital, dailyPnL float64) State {
	return Evaluate(totalCapital, peakCapital, dailyPnL, g.Config())
}

// Locked is the state reported while the manual lock is engaged.
func Locked() State {
	return State{Reason: "Manual lock engaged", Level: LevelManual}
}
