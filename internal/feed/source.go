package feed

import (
	"context"
	"time"
)

// Tick is a single price observation pushed by a market-data source.
type Tick struct {
	Symbol    string
	Price     float64
	Timestamp time.Time
}

// Source streams ticks until ctx is cancelled or the upstream ends, at which
// point the channel is closed.
type Source interface {
	Subscribe(ctx context.Context) (<-chan Tick, error)
}
