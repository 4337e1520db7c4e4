package feed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSourceReadAll(t *testing.T) {
	data := "timestamp,price\n" +
		"2024-03-04T10:00:00Z,100.5\n" +
		"1709546460000, 101\n"
	ticks, err := NewCSVSource("BTC", strings.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	assert.Equal(t, "BTC", ticks[0].Symbol)
	assert.Equal(t, 100.5, ticks[0].Price)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), ticks[0].Timestamp)
	assert.Equal(t, 101.0, ticks[1].Price)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 1, 0, 0, time.UTC), ticks[1].Timestamp)
}

func TestCSVSourceRejectsBadRows(t *testing.T) {
	_, err := NewCSVSource("BTC", strings.NewReader("2024-03-04T10:00:00Z,100\nnot-a-time,101\n")).ReadAll()
	assert.ErrorContains(t, err, "line 2")

	_, err = NewCSVSource("BTC", strings.NewReader("2024-03-04T10:00:00Z,100\n2024-03-04T10:01:00Z,abc\n")).ReadAll()
	assert.ErrorContains(t, err, "parse price")

	_, err = NewCSVSource("BTC", strings.NewReader("2024-03-04T10:00:00Z\n")).ReadAll()
	assert.ErrorContains(t, err, "expected timestamp,price")
}

func TestCSVSourceSubscribeStreamsInOrder(t *testing.T) {
	data := "1709546400000,1\n1709546460000,2\n1709546520000,3\n"
	ch, err := NewCSVSource("ETH", strings.NewReader(data)).Subscribe(context.Background())
	require.NoError(t, err)

	var prices []float64
	for tick := range ch {
		prices = append(prices, tick.Price)
	}
	assert.Equal(t, []float64{1, 2, 3}, prices)
}

func TestRTDSSourceRequiresClientAndSymbols(t *testing.T) {
	_, err := NewRTDSSource(nil, []string{"btcusdt"}, zerolog.Nop()).Subscribe(context.Background())
	assert.ErrorContains(t, err, "no client")
}
