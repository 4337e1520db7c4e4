package strategy

import "gonum.org/v1/gonum/stat"

const neutralConfidence = 0.5

// directionConfidence holds the fixed confidence per engine type and side.
// The values are intentionally static so every decision stays explainable.
var directionConfidence = map[EngineType]map[Direction]float64{
	Scalp:   {Long: 0.65, Short: 0.62},
	Session: {Long: 0.72, Short: 0.68},
}

const defaultDirectionConfidence = 0.60

// GenerateSignal compares the latest price to the mean of the last
// MinHistory prices. Fewer points than that yields a neutral signal.
func GenerateSignal(history []float64, engine EngineType) Signal {
	if len(history) < MinHistory {
		return Signal{Direction: Neutral, Confidence: neutralConfidence}
	}
	window := history[len(history)-MinHistory:]
	mean := stat.Mean(window, nil)
	momentum := history[len(history)-1] - mean

	var dir Direction
	switch {
	case momentum > 0:
		dir = Long
	case momentum < 0:
		dir = Short
	default:
		return Signal{Direction: Neutral, Confidence: neutralConfidence}
	}
	return Signal{Direction: dir, Confidence: confidenceFor(engine, dir)}
}

func confidenceFor(engine EngineType, dir Direction) float64 {
	if byDir, ok := directionConfidence[engine]; ok {
		if c, ok := byDir[dir]; ok {
			return c
		}
	}
	return defaultDirectionConfidence
}

// Downsample keeps every stride-th price counting back from the latest one,
// returning them in chronological order. It builds the long-horizon view for
// multi-timeframe confirmation.
func Downsample(history []float64, stride int) []float64 {
	if stride <= 1 {
		out := make([]float64, len(history))
		copy(out, history)
		return out
	}
	n := (len(history) + stride - 1) / stride
	out := make([]float64, n)
	for i, j := len(history)-1, n-1; i >= 0 && j >= 0; i, j = i-stride, j-1 {
		out[j] = history[i]
	}
	return out
}
