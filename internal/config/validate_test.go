package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GoPolymarket/paper-engine/internal/risk"
)

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"nan risk", func(c *Config) { c.Execution.RequestedRiskPct = math.NaN() }, "must be finite"},
		{"inf leverage", func(c *Config) { c.Execution.Leverage = math.Inf(1) }, "must be finite"},
		{"zero capital", func(c *Config) { c.Session.InitialCapital = 0 }, "session.initial_capital"},
		{"reserve one", func(c *Config) { c.Session.ReservePct = 1 }, "session.reserve_pct"},
		{"no venues", func(c *Config) { c.Session.Venues = nil }, "must not be empty"},
		{"negative hold", func(c *Config) { c.Session.HoldTicks = -1 }, "hold_ticks"},
		{"zero max risk", func(c *Config) { c.Execution.MaxRiskPct = 0 }, "max_risk_pct"},
		{"bad streak action", func(c *Config) {
			c.Execution.StreakRules = []risk.StreakRule{{Threshold: 3, Action: "pause"}}
		}, "streak_rules action"},
		{"bad dampen factor", func(c *Config) {
			c.Execution.StreakRules = []risk.StreakRule{risk.Dampen(3, 1.5)}
		}, "dampen factor"},
		{"daily loss over 100", func(c *Config) { c.Risk.MaxDailyLossPct = 150 }, "max_daily_loss_pct"},
		{"rotation over 1", func(c *Config) { c.Allocator.RotationPct = 2 }, "rotation_pct"},
		{"bad weekday", func(c *Config) { c.Calendar.StartDay = "funday" }, "calendar.start_day"},
		{"bad hour", func(c *Config) { c.Calendar.StartHour = 24 }, "start_hour"},
		{"bad cron", func(c *Config) { c.Scheduler.DailyReset = "every day" }, "scheduler.daily_reset"},
		{"csv without path", func(c *Config) { c.Feed.Source = "csv" }, "csv_path"},
		{"unknown feed", func(c *Config) { c.Feed.Source = "kafka" }, "feed.source"},
		{"telegram without token", func(c *Config) { c.Telegram.Enabled = true }, "telegram"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestValidateIgnoresCalendarWhenBlackoutDisabled(t *testing.T) {
	cfg := Default()
	cfg.Calendar.Blackout = false
	cfg.Calendar.StartDay = "funday"
	assert.NoError(t, cfg.Validate())
}
