package performance

import "time"

// Trade is an immutable settlement record. Only the execution engine creates
// trades; nothing mutates one after creation.
type Trade struct {
	ID              string    `json:"id" msgpack:"id"`
	Engine          string    `json:"engine" msgpack:"engine"`
	Venue           string    `json:"venue" msgpack:"venue"`
	Symbol          string    `json:"symbol" msgpack:"symbol"`
	Direction       string    `json:"direction" msgpack:"direction"`
	EntryPrice      float64   `json:"entry_price" msgpack:"entry_price"`
	PnL             float64   `json:"pnl" msgpack:"pnl"`
	IsWin           bool      `json:"is_win" msgpack:"is_win"`
	PositionSize    float64   `json:"position_size" msgpack:"position_size"`
	Confidence      float64   `json:"confidence" msgpack:"confidence"`
	Regime          string    `json:"regime" msgpack:"regime"`
	VolatilityScore float64   `json:"volatility_score" msgpack:"volatility_score"`
	Timestamp       time.Time `json:"timestamp" msgpack:"timestamp"`
}
