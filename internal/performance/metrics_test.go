package performance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pnlTrades(engine string, pnls ...float64) []Trade {
	out := make([]Trade, len(pnls))
	for i, p := range pnls {
		out[i] = Trade{Engine: engine, PnL: p, IsWin: p > 0}
	}
	return out
}

func TestEvaluateEmpty(t *testing.T) {
	assert.Equal(t, Metrics{}, Evaluate(nil))
	assert.Equal(t, Metrics{}, Evaluate([]Trade{}))
}

func TestEvaluateMixedTrades(t *testing.T) {
	m := Evaluate(pnlTrades("scalp", 10, -5, 8, -6))

	assert.Equal(t, 4, m.Trades)
	assert.InDelta(t, 0.5, m.WinRate, 1e-12)
	assert.InDelta(t, 18.0/11.0, m.ProfitFactor, 1e-12)
	assert.InDelta(t, 9, m.AverageWin, 1e-12)
	assert.InDelta(t, 5.5, m.AverageLoss, 1e-12)
	assert.InDelta(t, 1.75, m.Expectancy, 1e-12)
	assert.InDelta(t, 6, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, 7, m.NetPnL, 1e-12)
	assert.InDelta(t, 1.75/math.Sqrt(53.1875), m.Sharpe, 1e-9)
}

func TestEvaluateZeroStdDev(t *testing.T) {
	m := Evaluate(pnlTrades("scalp", 4, 4, 4))
	assert.Equal(t, 0.0, m.Sharpe)
	assert.Equal(t, 12.0, m.ProfitFactor, "no losses reports gross profit")
	assert.Equal(t, 0.0, m.MaxDrawdown)
}

func TestEvaluateAllLosses(t *testing.T) {
	m := Evaluate(pnlTrades("session", -3, -2))
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0.0, m.ProfitFactor)
	assert.InDelta(t, 5, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, -2.5, m.Expectancy, 1e-12)
}
