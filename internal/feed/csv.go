package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// CSVSource replays "timestamp,price" rows. Timestamps may be RFC3339 or
// unix milliseconds; a header row is skipped.
type CSVSource struct {
	symbol string
	r      io.Reader
}

func NewCSVSource(symbol string, r io.Reader) *CSVSource {
	return &CSVSource{symbol: symbol, r: r}
}

// ReadAll parses every row up front.
func (s *CSVSource) ReadAll() ([]Tick, error) {
	reader := csv.NewReader(s.r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var ticks []Tick
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("csv: line %d: expected timestamp,price", line)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("csv: line %d: parse price: %w", line, err)
		}
		ts, err := parseTimestamp(rec[0])
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		ticks = append(ticks, Tick{Symbol: s.symbol, Price: price, Timestamp: ts})
	}
	return ticks, nil
}

func (s *CSVSource) Subscribe(ctx context.Context) (<-chan Tick, error) {
	ticks, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make(chan Tick)
	go func() {
		defer close(out)
		for _, t := range ticks {
			select {
			case out <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return ts.UTC(), nil
}
