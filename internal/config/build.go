package config

import (
	"github.com/GoPolymarket/paper-engine/internal/execution"
	"github.com/GoPolymarket/paper-engine/internal/paper"
	"github.com/GoPolymarket/paper-engine/internal/risk"
	"github.com/GoPolymarket/paper-engine/internal/strategy"
)

// ToExecution maps the execution and volatility sections onto the engine
// config.
func (c Config) ToExecution() execution.Config {
	rules := append([]risk.StreakRule(nil), c.Execution.StreakRules...)
	return execution.Config{
		RequestedRiskPct: c.Execution.RequestedRiskPct,
		Leverage:         c.Execution.Leverage,
		Caps: execution.HumanCaps{
			MaxRiskPct:   c.Execution.MaxRiskPct,
			MaxLeverage:  c.Execution.MaxLeverage,
			CapitalFloor: c.Execution.CapitalFloor,
		},
		StreakRules:  rules,
		LongStride:   c.Execution.LongStride,
		Volatility:   strategy.VolatilityConfig{Window: c.Volatility.Window, CeilingPct: c.Volatility.CeilingPct},
		WinPayoff:    c.Execution.WinPayoff,
		LossPayoff:   c.Execution.LossPayoff,
		RangePenalty: c.Execution.RangePenalty,
	}
}

func (c Config) ToRisk() risk.Config {
	return risk.Config{
		MaxDailyLossPct:     c.Risk.MaxDailyLossPct,
		MaxTotalDrawdownPct: c.Risk.MaxTotalDrawdownPct,
	}
}

// ToPaper maps the session, allocator and calendar sections onto the
// session config. An unparsable start day disables the blackout; Validate
// reports it.
func (c Config) ToPaper() paper.Config {
	blackout := paper.Blackout{
		Enabled:   c.Calendar.Blackout,
		StartHour: c.Calendar.StartHour,
		Duration:  c.Calendar.Duration,
	}
	if day, err := paper.ParseWeekday(c.Calendar.StartDay); err == nil {
		blackout.StartDay = day
	} else {
		blackout.Enabled = false
	}
	return paper.Config{
		Symbol:         c.Session.Symbol,
		InitialCapital: c.Session.InitialCapital,
		Engines:        append([]string(nil), c.Session.Engines...),
		Venues:         append([]string(nil), c.Session.Venues...),
		ReservePct:     c.Session.ReservePct,
		Retention:      c.Session.Retention,
		HistorySize:    c.Session.HistorySize,
		HoldTicks:      c.Session.HoldTicks,
		Allocator: paper.AllocatorConfig{
			Floor:       c.Allocator.Floor,
			TransferPct: c.Allocator.TransferPct,
			RotationPct: c.Allocator.RotationPct,
			Every:       c.Allocator.RebalanceEvery,
			MinTrades:   c.Allocator.MinTrades,
		},
		Blackout: blackout,
	}
}
