package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyVolatilityBoundaries(t *testing.T) {
	tests := []struct {
		score   float64
		engine  EngineType
		level   VolatilityLevel
		mult    float64
		allowed bool
	}{
		{90, Scalp, VolatilityExtreme, 0, false},
		{85, Scalp, VolatilityHigh, 0.7, true},
		{66, Session, VolatilityHigh, 0.7, true},
		{65, Session, VolatilityNormal, 1.0, true},
		{36, Scalp, VolatilityNormal, 1.0, true},
		{35, Scalp, VolatilityLow, 1.1, true},
		{10, Session, VolatilityLow, 0.9, true},
	}
	for _, tt := range tests {
		v := ClassifyVolatility(tt.score, tt.engine)
		assert.Equal(t, tt.level, v.Level, "score %.0f", tt.score)
		assert.Equal(t, tt.mult, v.Multiplier, "score %.0f", tt.score)
		assert.Equal(t, tt.allowed, v.Allowed, "score %.0f", tt.score)
	}
}

func TestScoreVolatilityFromHistory(t *testing.T) {
	cfg := DefaultVolatilityConfig()

	calm := ScoreVolatility(ramp(100, 0, 30), Scalp, cfg)
	assert.Equal(t, 0.0, calm.Score)
	assert.Equal(t, VolatilityLow, calm.Level)
	assert.Equal(t, 1.1, calm.Multiplier)

	choppy := make([]float64, 30)
	for i := range choppy {
		choppy[i] = 100
		if i%2 == 1 {
			choppy[i] = 104
		}
	}
	wild := ScoreVolatility(choppy, Session, cfg)
	assert.Equal(t, 100.0, wild.Score)
	assert.False(t, wild.Allowed)

	short := ScoreVolatility([]float64{100}, Session, cfg)
	assert.Equal(t, 50.0, short.Score)
	assert.Equal(t, VolatilityNormal, short.Level)
}

func TestScoreVolatilityIsIdempotent(t *testing.T) {
	h := []float64{100, 100.4, 100.1, 100.9, 100.2, 100.6, 101, 100.7}
	cfg := VolatilityConfig{Window: 5, CeilingPct: 1}
	assert.Equal(t, ScoreVolatility(h, Scalp, cfg), ScoreVolatility(h, Scalp, cfg))
}
