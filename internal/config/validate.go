package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/GoPolymarket/paper-engine/internal/paper"
	"github.com/GoPolymarket/paper-engine/internal/risk"
)

// Validate checks high-impact runtime configuration constraints. Non-finite
// numbers are rejected everywhere.
func (c Config) Validate() error {
	floats := map[string]float64{
		"session.initial_capital":      c.Session.InitialCapital,
		"session.reserve_pct":          c.Session.ReservePct,
		"execution.requested_risk_pct": c.Execution.RequestedRiskPct,
		"execution.leverage":           c.Execution.Leverage,
		"execution.max_risk_pct":       c.Execution.MaxRiskPct,
		"execution.max_leverage":       c.Execution.MaxLeverage,
		"execution.capital_floor":      c.Execution.CapitalFloor,
		"execution.win_payoff":         c.Execution.WinPayoff,
		"execution.loss_payoff":        c.Execution.LossPayoff,
		"execution.range_penalty":      c.Execution.RangePenalty,
		"risk.max_daily_loss_pct":      c.Risk.MaxDailyLossPct,
		"risk.max_total_drawdown_pct":  c.Risk.MaxTotalDrawdownPct,
		"allocator.floor":              c.Allocator.Floor,
		"allocator.transfer_pct":       c.Allocator.TransferPct,
		"allocator.rotation_pct":       c.Allocator.RotationPct,
		"volatility.ceiling_pct":       c.Volatility.CeilingPct,
	}
	for name, v := range floats {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite, got %v", name, v)
		}
	}

	if c.Session.InitialCapital <= 0 {
		return fmt.Errorf("session.initial_capital must be > 0, got %f", c.Session.InitialCapital)
	}
	if c.Session.ReservePct < 0 || c.Session.ReservePct >= 1 {
		return fmt.Errorf("session.reserve_pct must be within [0,1), got %f", c.Session.ReservePct)
	}
	if len(c.Session.Engines) == 0 || len(c.Session.Venues) == 0 {
		return fmt.Errorf("session.engines and session.venues must not be empty")
	}
	if c.Session.HoldTicks < 0 {
		return fmt.Errorf("session.hold_ticks must be >= 0, got %d", c.Session.HoldTicks)
	}

	if c.Execution.RequestedRiskPct < 0 || c.Execution.Leverage < 0 {
		return fmt.Errorf("execution.requested_risk_pct and execution.leverage must be >= 0")
	}
	if c.Execution.MaxRiskPct <= 0 || c.Execution.MaxRiskPct > 100 {
		return fmt.Errorf("execution.max_risk_pct must be within (0,100], got %f", c.Execution.MaxRiskPct)
	}
	if c.Execution.MaxLeverage <= 0 {
		return fmt.Errorf("execution.max_leverage must be > 0, got %f", c.Execution.MaxLeverage)
	}
	for _, r := range c.Execution.StreakRules {
		if r.Threshold <= 0 {
			return fmt.Errorf("execution.streak_rules threshold must be > 0, got %d", r.Threshold)
		}
		switch r.Action {
		case risk.ActionHardStop:
		case risk.ActionDampen:
			if r.Factor <= 0 || r.Factor > 1 || math.IsNaN(r.Factor) {
				return fmt.Errorf("execution.streak_rules dampen factor must be within (0,1], got %v", r.Factor)
			}
		default:
			return fmt.Errorf("execution.streak_rules action must be 'dampen' or 'hard_stop', got %q", r.Action)
		}
	}

	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct > 100 {
		return fmt.Errorf("risk.max_daily_loss_pct must be within (0,100], got %f", c.Risk.MaxDailyLossPct)
	}
	if c.Risk.MaxTotalDrawdownPct <= 0 || c.Risk.MaxTotalDrawdownPct > 100 {
		return fmt.Errorf("risk.max_total_drawdown_pct must be within (0,100], got %f", c.Risk.MaxTotalDrawdownPct)
	}

	if c.Allocator.TransferPct < 0 || c.Allocator.TransferPct > 1 {
		return fmt.Errorf("allocator.transfer_pct must be within [0,1], got %f", c.Allocator.TransferPct)
	}
	if c.Allocator.RotationPct < 0 || c.Allocator.RotationPct > 1 {
		return fmt.Errorf("allocator.rotation_pct must be within [0,1], got %f", c.Allocator.RotationPct)
	}

	if c.Calendar.Blackout {
		if _, err := paper.ParseWeekday(c.Calendar.StartDay); err != nil {
			return fmt.Errorf("calendar.start_day: %w", err)
		}
		if c.Calendar.StartHour < 0 || c.Calendar.StartHour > 23 {
			return fmt.Errorf("calendar.start_hour must be within [0,23], got %d", c.Calendar.StartHour)
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, spec := range map[string]string{"scheduler.daily_reset": c.Scheduler.DailyReset, "scheduler.snapshot": c.Scheduler.Snapshot} {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Feed.Source)) {
	case "rtds", "":
	case "csv":
		if c.Feed.CSVPath == "" {
			return fmt.Errorf("feed.csv_path is required when feed.source is csv")
		}
	default:
		return fmt.Errorf("feed.source must be 'rtds' or 'csv', got %q", c.Feed.Source)
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id are required when telegram is enabled")
	}
	return nil
}
