package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPresetConservativeClamps(t *testing.T) {
	cfg := Default()
	cfg.Execution.MaxRiskPct = 10
	cfg.Execution.MaxLeverage = 5
	cfg.Execution.RequestedRiskPct = 4

	require.NoError(t, ApplyPreset(&cfg, "conservative"))
	assert.Equal(t, 1.0, cfg.Execution.MaxRiskPct)
	assert.Equal(t, 1.0, cfg.Execution.MaxLeverage)
	assert.Equal(t, 1.0, cfg.Execution.RequestedRiskPct)
	assert.Equal(t, 2.0, cfg.Risk.MaxDailyLossPct)
	assert.Equal(t, 10.0, cfg.Risk.MaxTotalDrawdownPct)
	assert.Equal(t, 100.0, cfg.Execution.CapitalFloor)
	assert.Equal(t, "conservative", cfg.Preset)
	assert.NoError(t, cfg.Validate())
}

func TestApplyPresetAggressiveRaisesCaps(t *testing.T) {
	cfg := Default()
	cfg.Execution.MaxLeverage = 1
	require.NoError(t, ApplyPreset(&cfg, " Aggressive "))
	assert.Equal(t, 3.0, cfg.Execution.MaxLeverage)
	assert.Equal(t, 5.0, cfg.Execution.MaxRiskPct)
	assert.Equal(t, 2.0, cfg.Execution.Leverage)
}

func TestApplyPresetStandardAndEmpty(t *testing.T) {
	cfg := Default()
	before := cfg
	require.NoError(t, ApplyPreset(&cfg, ""))
	require.NoError(t, ApplyPreset(&cfg, "standard"))
	assert.Equal(t, before, cfg)
}

func TestApplyPresetUnknown(t *testing.T) {
	cfg := Default()
	assert.ErrorContains(t, ApplyPreset(&cfg, "yolo"), "unknown preset")
}
