package execution

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GoPolymarket/paper-engine/internal/performance"
	"github.com/GoPolymarket/paper-engine/internal/risk"
	"github.com/GoPolymarket/paper-engine/internal/rng"
	"github.com/GoPolymarket/paper-engine/internal/strategy"
)

// Block reasons reported by Execute besides the timeframe reasons from the
// strategy package.
const (
	ReasonCircuitBreaker    = "Circuit breaker: losing streak"
	ReasonExtremeVolatility = "Extreme volatility"
	ReasonCapitalFloor      = "Capital floor hit"
	ReasonInvalidRisk       = "Invalid risk parameters"
	ReasonNoSize            = "Position size is zero"
)

var reasonCodes = map[string]string{
	strategy.ReasonNeutralSignal:     "neutral_signal",
	strategy.ReasonTimeframeConflict: "timeframe_conflict",
	ReasonCircuitBreaker:             "circuit_breaker",
	ReasonExtremeVolatility:          "extreme_volatility",
	ReasonCapitalFloor:               "capital_floor",
	ReasonInvalidRisk:                "invalid_risk",
	ReasonNoSize:                     "no_size",
}

// ReasonCode maps a block reason to a short stable code for metric labels.
// Unknown reasons map to "other".
func ReasonCode(reason string) string {
	if code, ok := reasonCodes[reason]; ok {
		return code
	}
	return "other"
}

// HumanCaps are operator-set ceilings that requested parameters cannot exceed.
type HumanCaps struct {
	MaxRiskPct   float64 `yaml:"max_risk_pct"`
	MaxLeverage  float64 `yaml:"max_leverage"`
	CapitalFloor float64 `yaml:"capital_floor"`
}

type Config struct {
	RequestedRiskPct float64                   `yaml:"requested_risk_pct"`
	Leverage         float64                   `yaml:"leverage"`
	Caps             HumanCaps                 `yaml:"caps"`
	StreakRules      []risk.StreakRule         `yaml:"streak_rules"`
	LongStride       int                       `yaml:"long_stride"`
	Volatility       strategy.VolatilityConfig `yaml:"volatility"`
	WinPayoff        float64                   `yaml:"win_payoff"`
	LossPayoff       float64                   `yaml:"loss_payoff"`
	RangePenalty     float64                   `yaml:"range_penalty"`
}

func DefaultConfig() Config {
	return Config{
		RequestedRiskPct: 2,
		Leverage:         1,
		Caps:             HumanCaps{MaxRiskPct: 5, MaxLeverage: 3, CapitalFloor: 50},
		StreakRules:      risk.DefaultStreakRules(),
		LongStride:       5,
		Volatility:       strategy.DefaultVolatilityConfig(),
		WinPayoff:        0.8,
		LossPayoff:       0.6,
		RangePenalty:     0.05,
	}
}

// Request carries everything one evaluation needs. Wins, Losses and
// LosingStreak are the engine's rolling stats; DrawdownPct is portfolio-wide.
type Request struct {
	Engine       string
	Venue        string
	Symbol       string
	History      []float64
	Balance      float64
	Wins         int
	Losses       int
	LosingStreak int
	DrawdownPct  float64
	Timestamp    time.Time
}

// Result is either Blocked with a Reason, or settled with a Trade. A blocked
// result never carries a balance change.
type Result struct {
	Blocked    bool                  `json:"blocked"`
	Reason     string                `json:"reason,omitempty"`
	Trade      performance.Trade     `json:"trade"`
	NewBalance float64               `json:"new_balance"`
	Confirm    strategy.Confirmation `json:"confirmation"`
	Regime     strategy.Regime       `json:"regime,omitempty"`
	Volatility strategy.Volatility   `json:"volatility"`
	Streak     risk.StreakDecision   `json:"streak"`
}

func blocked(reason string) Result { return Result{Blocked: true, Reason: reason} }

// Engine runs the decision stack for one trade evaluation. It holds no
// per-trade state; callers supply rolling stats on each call.
type Engine struct {
	cfg Config
	rng rng.Source
	log zerolog.Logger
}

func New(cfg Config, src rng.Source, log zerolog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.LongStride <= 1 {
		cfg.LongStride = def.LongStride
	}
	if len(cfg.StreakRules) == 0 {
		cfg.StreakRules = def.StreakRules
	}
	if cfg.WinPayoff <= 0 {
		cfg.WinPayoff = def.WinPayoff
	}
	if cfg.LossPayoff <= 0 {
		cfg.LossPayoff = def.LossPayoff
	}
	return &Engine{
		cfg: cfg,
		rng: src,
		log: log.With().Str("component", "execution").Logger(),
	}
}

func (e *Engine) Config() Config { return e.cfg }

// Execute evaluates the gates in order; the first failing gate short-circuits.
func (e *Engine) Execute(req Request) Result {
	res := e.execute(req)
	if res.Blocked {
		e.log.Debug().
			Str("engine", req.Engine).
			Str("venue", req.Venue).
			Str("reason", res.Reason).
			Msg("execution blocked")
	}
	return res
}

func (e *Engine) execute(req Request) Result {
	engineType := strategy.EngineType(req.Engine)

	// 1. Multi-timeframe confirmation.
	short := strategy.GenerateSignal(req.History, engineType)
	long := strategy.GenerateSignal(strategy.Downsample(req.History, e.cfg.LongStride), engineType)
	confirm := strategy.ConfirmTimeframes(short, long)
	if !confirm.Confirmed {
		r := blocked(confirm.Reason)
		r.Confirm = confirm
		return r
	}

	// 2-3. Losing-streak rules: hard stop, else size dampening.
	streak := risk.EvaluateStreak(req.LosingStreak, e.cfg.StreakRules)
	if streak.Halted {
		r := blocked(ReasonCircuitBreaker)
		r.Confirm, r.Streak = confirm, streak
		return r
	}

	// 4. Regime, volatility and adaptive confidence.
	regime := strategy.DetectRegime(req.History)
	vol := strategy.ScoreVolatility(req.History, engineType, e.cfg.Volatility)
	if !vol.Allowed {
		r := blocked(ReasonExtremeVolatility)
		r.Confirm, r.Streak, r.Regime, r.Volatility = confirm, streak, regime, vol
		return r
	}
	base := short.Confidence
	if regime == strategy.RegimeRange {
		base -= e.cfg.RangePenalty
	}
	confidence := strategy.AdjustConfidence(base, req.Wins, req.Losses, req.DrawdownPct)

	// 5-6. Sizing under human caps.
	if !finite(e.cfg.RequestedRiskPct, e.cfg.Leverage, req.Balance, confidence) ||
		e.cfg.RequestedRiskPct < 0 || e.cfg.Leverage < 0 || req.Balance < 0 {
		return blocked(ReasonInvalidRisk)
	}
	riskPct := capAt(e.cfg.RequestedRiskPct, e.cfg.Caps.MaxRiskPct)
	leverage := capAt(e.cfg.Leverage, e.cfg.Caps.MaxLeverage)
	effectiveRisk := riskPct * confidence * vol.Multiplier * streak.Multiplier
	positionSize := req.Balance * effectiveRisk * leverage / 100
	if positionSize <= 0 {
		r := blocked(ReasonNoSize)
		r.Confirm, r.Streak, r.Regime, r.Volatility = confirm, streak, regime, vol
		return r
	}

	// 7. Outcome draw.
	isWin := e.rng.Float64() < confidence
	pnl := -e.cfg.LossPayoff * positionSize
	if isWin {
		pnl = e.cfg.WinPayoff * positionSize
	}
	newBalance := req.Balance + pnl

	// 8. Capital floor: the draw is discarded, nothing settles.
	if newBalance < e.cfg.Caps.CapitalFloor {
		r := blocked(ReasonCapitalFloor)
		r.Confirm, r.Streak, r.Regime, r.Volatility = confirm, streak, regime, vol
		return r
	}

	// 9. Settle.
	var entry float64
	if n := len(req.History); n > 0 {
		entry = req.History[n-1]
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	trade := performance.Trade{
		ID:              uuid.NewString(),
		Engine:          req.Engine,
		Venue:           req.Venue,
		Symbol:          req.Symbol,
		Direction:       string(confirm.Direction),
		EntryPrice:      entry,
		PnL:             pnl,
		IsWin:           isWin,
		PositionSize:    positionSize,
		Confidence:      confidence,
		Regime:          string(regime),
		VolatilityScore: vol.Score,
		Timestamp:       ts,
	}
	return Result{
		Trade:      trade,
		NewBalance: newBalance,
		Confirm:    confirm,
		Regime:     regime,
		Volatility: vol,
		Streak:     streak,
	}
}

// capAt limits v to limit when limit is positive.
func capAt(v, limit float64) float64 {
	if limit > 0 && v > limit {
		return limit
	}
	return v
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
