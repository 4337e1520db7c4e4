package risk

import "sort"

// Action is what a streak rule does once its threshold is reached.
type Action string

const (
	ActionDampen   Action = "dampen"
	ActionHardStop Action = "hard_stop"
)

// StreakRule fires when an engine's losing streak reaches Threshold.
type StreakRule struct {
	Threshold int     `yaml:"threshold" json:"threshold"`
	Action    Action  `yaml:"action" json:"action"`
	Factor    float64 `yaml:"factor" json:"factor"`
}

func Dampen(threshold int, factor float64) StreakRule {
	return StreakRule{Threshold: threshold, Action: ActionDampen, Factor: factor}
}

func HardStop(threshold int) StreakRule {
	return StreakRule{Threshold: threshold, Action: ActionHardStop}
}

// DefaultStreakRules dampen size at 3 and 5 losses and halt the engine at 7.
func DefaultStreakRules() []StreakRule {
	return []StreakRule{Dampen(3, 0.7), Dampen(5, 0.5), HardStop(7)}
}

// StreakDecision is the combined effect of every rule that fired.
type StreakDecision struct {
	Halted     bool    `json:"halted"`
	Multiplier float64 `json:"multiplier"`
	Threshold  int     `json:"threshold"`
}

// EvaluateStreak walks rules in increasing severity. The most severe matching
// rule wins: a hard stop overrides any dampening, and a later dampen factor
// replaces an earlier one.
func EvaluateStreak(streak int, rules []StreakRule) StreakDecision {
	ordered := make([]StreakRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Threshold < ordered[j].Threshold })

	d := StreakDecision{Multiplier: 1}
	for _, r := range ordered {
		if streak < r.Threshold {
			break
		}
		d.Threshold = r.Threshold
		switch r.Action {
		case ActionHardStop:
			d.Halted = true
			d.Multiplier = 0
			return d
		case ActionDampen:
			d.Multiplier = r.Factor
		}
	}
	return d
}
