package strategy

import "gonum.org/v1/gonum/stat"

const (
	fastMA          = 10
	slowMA          = 20
	regimeThreshold = 0.01
)

// DetectRegime compares the 10-point and 20-point moving averages. A relative
// gap above +1% is an uptrend, below -1% a downtrend, anything else a range.
func DetectRegime(history []float64) Regime {
	if len(history) < slowMA {
		return RegimeNeutral
	}
	fast := stat.Mean(history[len(history)-fastMA:], nil)
	slow := stat.Mean(history[len(history)-slowMA:], nil)
	if slow == 0 {
		return RegimeRange
	}
	diff := (fast - slow) / slow
	switch {
	case diff > regimeThreshold:
		return RegimeUptrend
	case diff < -regimeThreshold:
		return RegimeDowntrend
	default:
		return RegimeRange
	}
}
