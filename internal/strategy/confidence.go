package strategy

const (
	MinConfidence = 0.45
	MaxConfidence = 0.85

	coldStartTrades = 10
)

// AdjustConfidence nudges a base confidence using the rolling win rate and
// current drawdown. With fewer than 10 recorded trades the base is returned
// untouched. Thresholds are cumulative.
func AdjustConfidence(base float64, wins, losses int, drawdownPct float64) float64 {
	total := wins + losses
	if total < coldStartTrades {
		return base
	}
	winRate := float64(wins) / float64(total)
	c := base

	if winRate > 0.6 {
		c += 0.05
	}
	if winRate > 0.7 {
		c += 0.07
	}
	if winRate < 0.5 {
		c -= 0.05
	}
	if winRate < 0.4 {
		c -= 0.1
	}
	if drawdownPct > 10 {
		c -= 0.05
	}
	if drawdownPct > 20 {
		c -= 0.1
	}
	return clamp(c, MinConfidence, MaxConfidence)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
