package performance

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics are derived from a trade sequence on demand and never stored.
type Metrics struct {
	Trades       int     `json:"trades"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	AverageWin   float64 `json:"average_win"`
	AverageLoss  float64 `json:"average_loss"`
	Expectancy   float64 `json:"expectancy"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	Sharpe       float64 `json:"sharpe"`
	NetPnL       float64 `json:"net_pnl"`
}

// Evaluate recomputes every metric from trades. An empty sequence yields the
// zero Metrics.
//
// AverageLoss is reported as a positive magnitude. ProfitFactor is gross
// profit over gross loss, or gross profit itself when there were no losses.
// MaxDrawdown walks cumulative PnL and keeps the widest peak-to-current gap.
// Sharpe is mean PnL over the population stddev of PnL, 0 when stddev is 0.
func Evaluate(trades []Trade) Metrics {
	if len(trades) == 0 {
		return Metrics{}
	}

	pnls := make([]float64, len(trades))
	var wins, losses int
	var grossWin, grossLoss float64
	var cum, peak, maxDD float64
	for i, t := range trades {
		pnls[i] = t.PnL
		if t.IsWin {
			wins++
			grossWin += t.PnL
		} else {
			losses++
			grossLoss += math.Abs(t.PnL)
		}
		cum += t.PnL
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}

	n := float64(len(trades))
	m := Metrics{
		Trades:      len(trades),
		WinRate:     float64(wins) / n,
		MaxDrawdown: maxDD,
		NetPnL:      cum,
	}
	if wins > 0 {
		m.AverageWin = grossWin / float64(wins)
	}
	if losses > 0 {
		m.AverageLoss = grossLoss / float64(losses)
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossWin / grossLoss
	} else {
		m.ProfitFactor = grossWin
	}
	m.Expectancy = m.WinRate*m.AverageWin - (1-m.WinRate)*m.AverageLoss

	mean, std := stat.PopMeanStdDev(pnls, nil)
	if std > 0 {
		m.Sharpe = mean / std
	}
	return m
}
