package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/GoPolymarket/paper-engine/internal/execution"
	"github.com/GoPolymarket/paper-engine/internal/paper"
	"github.com/GoPolymarket/paper-engine/internal/performance"
)

// DailyKPI is the per-UTC-day activity summary served by the API and sent
// with the daily notification.
type DailyKPI struct {
	Day             string         `json:"day"`
	Settled         int            `json:"settled"`
	Wins            int            `json:"wins"`
	WinRate         float64        `json:"win_rate"`
	RealizedPnL     float64        `json:"realized_pnl"`
	BlockEvents     int            `json:"block_events"`
	BlocksByLevel   map[string]int `json:"blocks_by_level"`
	LastBlockReason string         `json:"last_block_reason,omitempty"`
	BreakerTrips    int            `json:"breaker_trips"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// KPICollector accumulates DailyKPI and rolls over at UTC midnight.
type KPICollector struct {
	mu sync.Mutex

	dayStartUTC time.Time
	lastUpdated time.Time

	settled         int
	wins            int
	realizedPnL     float64
	blockEvents     int
	blocksByLevel   map[string]int
	lastBlockReason string
	breakerTrips    int
	// tripped survives day rollover; an engine stays halted until it wins.
	tripped map[string]bool
	// closed is the last day rolled over, kept for the daily summary.
	closed *DailyKPI
}

func NewKPICollector(now time.Time) *KPICollector {
	return &KPICollector{
		dayStartUTC:   startOfUTCDay(now),
		lastUpdated:   now.UTC(),
		blocksByLevel: make(map[string]int),
		tripped:       make(map[string]bool),
	}
}

func startOfUTCDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func (c *KPICollector) ensureDayLocked(now time.Time) {
	day := startOfUTCDay(now)
	if !day.After(c.dayStartUTC) {
		return
	}
	prev := c.currentLocked()
	c.closed = &prev
	c.dayStartUTC = day
	c.settled = 0
	c.wins = 0
	c.realizedPnL = 0
	c.blockEvents = 0
	c.blocksByLevel = make(map[string]int)
	c.lastBlockReason = ""
	c.breakerTrips = 0
}

func normalizeLevel(level string) string {
	clean := strings.ToLower(strings.TrimSpace(level))
	if clean == "" {
		return "unknown"
	}
	return clean
}

func (c *KPICollector) RecordSettlement(t performance.Trade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := t.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	c.ensureDayLocked(now)
	c.settled++
	if t.IsWin {
		c.wins++
		delete(c.tripped, t.Engine)
	}
	c.realizedPnL += t.PnL
	c.lastUpdated = now.UTC()
}

// RecordBlock counts a blocked decision. It reports whether the block is a
// fresh circuit-breaker trip for b.Engine, so callers alert once per trip.
func (c *KPICollector) RecordBlock(b paper.Block) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := b.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	c.ensureDayLocked(now)
	c.blockEvents++
	c.blocksByLevel[normalizeLevel(b.Level)]++
	fresh := b.Reason == execution.ReasonCircuitBreaker && !c.tripped[b.Engine]
	if fresh {
		c.tripped[b.Engine] = true
		c.breakerTrips++
	}
	c.lastBlockReason = b.Reason
	c.lastUpdated = now.UTC()
	return fresh
}

func (c *KPICollector) Snapshot(now time.Time) DailyKPI {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureDayLocked(now)
	return c.currentLocked()
}

// LastClosed returns the most recent day that rolled over, whether the
// rollover came from an event or from Snapshot.
func (c *KPICollector) LastClosed() (DailyKPI, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed == nil {
		return DailyKPI{}, false
	}
	return *c.closed, true
}

func (c *KPICollector) currentLocked() DailyKPI {
	levels := make(map[string]int, len(c.blocksByLevel))
	for k, v := range c.blocksByLevel {
		levels[k] = v
	}
	var winRate float64
	if c.settled > 0 {
		winRate = float64(c.wins) / float64(c.settled)
	}
	return DailyKPI{
		Day:             c.dayStartUTC.Format("2006-01-02"),
		Settled:         c.settled,
		Wins:            c.wins,
		WinRate:         winRate,
		RealizedPnL:     c.realizedPnL,
		BlockEvents:     c.blockEvents,
		BlocksByLevel:   levels,
		LastBlockReason: c.lastBlockReason,
		BreakerTrips:    c.breakerTrips,
		UpdatedAt:       c.lastUpdated,
	}
}
