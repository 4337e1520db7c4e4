package strategy

const (
	ReasonNeutralSignal     = "Neutral signal detected"
	ReasonTimeframeConflict = "Timeframe conflict"
)

// Confirmation is the outcome of the multi-timeframe gate.
type Confirmation struct {
	Confirmed bool      `json:"confirmed"`
	Direction Direction `json:"direction"`
	Reason    string    `json:"reason,omitempty"`
}

// ConfirmTimeframes only confirms when both horizons point the same,
// non-neutral way.
func ConfirmTimeframes(short, long Signal) Confirmation {
	if short.Direction == Neutral || long.Direction == Neutral {
		return Confirmation{Direction: Neutral, Reason: ReasonNeutralSignal}
	}
	if short.Direction != long.Direction {
		return Confirmation{Direction: Neutral, Reason: ReasonTimeframeConflict}
	}
	return Confirmation{Confirmed: true, Direction: short.Direction}
}
