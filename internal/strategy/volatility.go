package strategy

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// VolatilityLevel buckets a volatility score.
type VolatilityLevel string

const (
	VolatilityLow     VolatilityLevel = "low"
	VolatilityNormal  VolatilityLevel = "normal"
	VolatilityHigh    VolatilityLevel = "high"
	VolatilityExtreme VolatilityLevel = "extreme"
)

// VolatilityConfig controls how realized volatility maps onto a 0-100 score.
type VolatilityConfig struct {
	// Window is the number of trailing prices used for returns.
	Window int `yaml:"window"`
	// CeilingPct is the per-tick return stddev (in percent) that scores 100.
	CeilingPct float64 `yaml:"ceiling_pct"`
}

func DefaultVolatilityConfig() VolatilityConfig {
	return VolatilityConfig{Window: 20, CeilingPct: 2.0}
}

// Volatility is the scored volatility for one evaluation.
type Volatility struct {
	Score      float64         `json:"score"`
	Level      VolatilityLevel `json:"level"`
	Multiplier float64         `json:"multiplier"`
	Allowed    bool            `json:"allowed"`
}

// neutralVolatilityScore is used when the window is too short to measure.
const neutralVolatilityScore = 50

// ScoreVolatility derives the score from the population stddev of simple
// returns over the trailing window of the same price history the signal and
// regime evaluators see.
func ScoreVolatility(history []float64, engine EngineType, cfg VolatilityConfig) Volatility {
	if cfg.Window < 2 {
		cfg.Window = DefaultVolatilityConfig().Window
	}
	if cfg.CeilingPct <= 0 {
		cfg.CeilingPct = DefaultVolatilityConfig().CeilingPct
	}
	window := history
	if len(window) > cfg.Window {
		window = window[len(window)-cfg.Window:]
	}
	returns := simpleReturns(window)
	if len(returns) < 2 {
		return ClassifyVolatility(neutralVolatilityScore, engine)
	}
	stdPct := stat.PopStdDev(returns, nil) * 100
	score := clamp(stdPct/cfg.CeilingPct*100, 0, 100)
	if math.IsNaN(score) {
		score = neutralVolatilityScore
	}
	return ClassifyVolatility(score, engine)
}

// ClassifyVolatility maps a score onto a level and position-size multiplier.
// Low volatility favours scalping and penalises longer-horizon engines.
func ClassifyVolatility(score float64, engine EngineType) Volatility {
	switch {
	case score > 85:
		return Volatility{Score: score, Level: VolatilityExtreme, Multiplier: 0, Allowed: false}
	case score > 65:
		return Volatility{Score: score, Level: VolatilityHigh, Multiplier: 0.7, Allowed: true}
	case score > 35:
		return Volatility{Score: score, Level: VolatilityNormal, Multiplier: 1.0, Allowed: true}
	}
	mult := 0.9
	if engine == Scalp {
		mult = 1.1
	}
	return Volatility{Score: score, Level: VolatilityLow, Multiplier: mult, Allowed: true}
}

func simpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}
