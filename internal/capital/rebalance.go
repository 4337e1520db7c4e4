package capital

import (
	"github.com/GoPolymarket/paper-engine/internal/performance"
)

const (
	DefaultFloor       = 100
	DefaultTransferPct = 0.05
)

// Transfer describes a rebalance move. Amount is 0 when nothing moved.
type Transfer struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// Rebalance tops up the poorest engine when its total falls below floor by
// moving transferPct of the richest engine's total to it, split evenly
// across venues on both sides. The reserve is never touched.
func (p *Pool) Rebalance(floor, transferPct float64) Transfer {
	if !finite(floor) || !finite(transferPct) || transferPct <= 0 {
		return Transfer{}
	}
	if transferPct > 1 {
		transferPct = 1
	}
	totals := p.EngineTotals()
	lowest, highest := p.engines[0], p.engines[0]
	for _, e := range p.engines[1:] {
		if totals[e] < totals[lowest] {
			lowest = e
		}
		if totals[e] > totals[highest] {
			highest = e
		}
	}
	if lowest == highest || totals[lowest] >= floor || totals[highest] <= totals[lowest] {
		return Transfer{}
	}

	amount := totals[highest] * transferPct
	before := p.Total()
	p.withdraw(highest, amount, totals[highest])
	p.deposit(lowest, amount, totals[lowest], true)
	p.mustConserve("rebalance", before)
	return Transfer{From: highest, To: lowest, Amount: amount}
}

// Rotate moves each engine a fraction rate of the way toward a target share
// of tradable capital proportional to weights. Engines missing from weights,
// or with negative weights, get weight 0. Total capital is conserved and no
// cell goes negative. It returns the per-engine change.
func (p *Pool) Rotate(weights map[string]float64, rate float64) map[string]float64 {
	deltas := make(map[string]float64, len(p.engines))
	if !finite(rate) || rate <= 0 {
		return deltas
	}
	if rate > 1 {
		rate = 1
	}
	var weightSum float64
	for _, e := range p.engines {
		if w := weights[e]; finite(w) && w > 0 {
			weightSum += w
		}
	}
	if weightSum <= 0 {
		return deltas
	}

	totals := p.EngineTotals()
	var tradable float64
	for _, e := range p.engines {
		tradable += totals[e]
	}
	before := p.Total()
	for _, e := range p.engines {
		w := weights[e]
		if !finite(w) || w < 0 {
			w = 0
		}
		target := tradable * w / weightSum
		delta := rate * (target - totals[e])
		switch {
		case delta < 0:
			p.withdraw(e, -delta, totals[e])
		case delta > 0:
			p.deposit(e, delta, totals[e], false)
		}
		deltas[e] = delta
	}
	p.mustConserve("rotate", before)
	return deltas
}

// withdraw takes amount from engine's cells. The even split is used when every
// cell can cover its share; otherwise the draw is proportional to holdings.
func (p *Pool) withdraw(engine string, amount, engineTotal float64) {
	share := amount / float64(len(p.venues))
	even := true
	for _, v := range p.venues {
		if p.cells[p.index[Key{engine, v}]].Capital < share {
			even = false
			break
		}
	}
	for _, v := range p.venues {
		c := &p.cells[p.index[Key{engine, v}]]
		if even {
			c.Capital -= share
		} else {
			c.Capital -= amount * c.Capital / engineTotal
		}
		if c.Capital < 0 {
			c.Capital = 0
		}
	}
}

// deposit adds amount to engine's cells, evenly or in proportion to current
// holdings. An empty engine always receives an even split.
func (p *Pool) deposit(engine string, amount, engineTotal float64, even bool) {
	for _, v := range p.venues {
		c := &p.cells[p.index[Key{engine, v}]]
		if even || engineTotal <= 0 {
			c.Capital += amount / float64(len(p.venues))
		} else {
			c.Capital += amount * c.Capital / engineTotal
		}
	}
}

const (
	neutralWeight = 0.5
	minWeight     = 0.1
)

// PerformanceWeights turns per-engine statistics into rotation weights: the
// cumulative win rate once an engine has minTrades trades, a neutral 0.5
// before that, never below 0.1 so a cold engine can recover.
func PerformanceWeights(engines []string, stats map[string]performance.Stats, minTrades int) map[string]float64 {
	out := make(map[string]float64, len(engines))
	for _, e := range engines {
		s, ok := stats[e]
		total := s.Wins + s.Losses
		if !ok || total == 0 || total < minTrades {
			out[e] = neutralWeight
			continue
		}
		w := float64(s.Wins) / float64(total)
		if w < minWeight {
			w = minWeight
		}
		out[e] = w
	}
	return out
}
