package strategy

// EngineType names a strategy engine. The set is open: unknown types fall
// back to default confidences and volatility multipliers.
type EngineType string

const (
	Scalp   EngineType = "scalp"
	Session EngineType = "session"
)

// Direction is the side a signal points to.
type Direction string

const (
	Long    Direction = "long"
	Short   Direction = "short"
	Neutral Direction = "neutral"
)

// Signal is an ephemeral directional view with a raw confidence score.
type Signal struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
}

// Regime classifies market state from moving-average divergence.
type Regime string

const (
	RegimeNeutral   Regime = "neutral"
	RegimeUptrend   Regime = "uptrend"
	RegimeDowntrend Regime = "downtrend"
	RegimeRange     Regime = "range"
)

// MinHistory is the number of prices the signal and regime evaluators need
// before they produce anything other than a neutral answer.
const MinHistory = 20
