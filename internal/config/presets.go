package config

import (
	"fmt"
	"strings"
)

// ApplyPreset tightens or loosens the human caps.
// Supported presets:
// - conservative: small risk, no leverage, high capital floor
// - standard:     configured values
// - aggressive:   allows up to 3x leverage and 5% risk per trade
func ApplyPreset(cfg *Config, preset string) error {
	p := strings.ToLower(strings.TrimSpace(preset))
	if p == "" {
		return nil
	}

	switch p {
	case "conservative", "safe":
		clampMaxFloat(&cfg.Execution.MaxRiskPct, 1)
		clampMaxFloat(&cfg.Execution.MaxLeverage, 1)
		clampMaxFloat(&cfg.Execution.RequestedRiskPct, 1)
		clampMaxFloat(&cfg.Risk.MaxDailyLossPct, 2)
		clampMaxFloat(&cfg.Risk.MaxTotalDrawdownPct, 10)
		clampMinFloat(&cfg.Execution.CapitalFloor, 100)
	case "standard":
	case "aggressive":
		clampMinFloat(&cfg.Execution.MaxRiskPct, 5)
		clampMinFloat(&cfg.Execution.MaxLeverage, 3)
		clampMinFloat(&cfg.Execution.Leverage, 2)
	default:
		return fmt.Errorf("unknown preset %q (supported: conservative|standard|aggressive)", preset)
	}
	cfg.Preset = p
	return nil
}

func clampMaxFloat(v *float64, max float64) {
	if max <= 0 {
		return
	}
	if *v <= 0 || *v > max {
		*v = max
	}
}

func clampMinFloat(v *float64, min float64) {
	if *v < min {
		*v = min
	}
}
