package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/rtds"
	"github.com/rs/zerolog"
)

// RTDSSource adapts the Polymarket real-time data service crypto price stream.
type RTDSSource struct {
	client  rtds.Client
	symbols []string
	log     zerolog.Logger
}

func NewRTDSSource(client rtds.Client, symbols []string, log zerolog.Logger) *RTDSSource {
	return &RTDSSource{
		client:  client,
		symbols: symbols,
		log:     log.With().Str("component", "rtds").Logger(),
	}
}

func (s *RTDSSource) Subscribe(ctx context.Context) (<-chan Tick, error) {
	if s.client == nil {
		return nil, fmt.Errorf("rtds: no client configured")
	}
	if len(s.symbols) == 0 {
		return nil, fmt.Errorf("rtds: no symbols configured")
	}
	events, err := s.client.SubscribeCryptoPrices(ctx, s.symbols)
	if err != nil {
		return nil, fmt.Errorf("rtds: subscribe crypto prices: %w", err)
	}
	s.log.Info().Strs("symbols", s.symbols).Msg("subscribed to crypto prices")

	out := make(chan Tick, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					s.log.Warn().Msg("crypto price stream closed")
					return
				}
				tick, ok := convertCryptoEvent(ev)
				if !ok {
					continue
				}
				select {
				case out <- tick:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func convertCryptoEvent(ev rtds.CryptoPriceEvent) (Tick, bool) {
	price, _ := ev.Value.Float64()
	if price <= 0 {
		return Tick{}, false
	}
	return Tick{
		Symbol:    ev.Symbol,
		Price:     price,
		Timestamp: time.Unix(ev.Timestamp/1000, (ev.Timestamp%1000)*1e6).UTC(),
	}, true
}
