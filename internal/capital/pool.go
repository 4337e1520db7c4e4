package capital

import (
	"errors"
	"fmt"
	"math"
)

// DefaultReservePct is the share of capital never exposed to trading.
const DefaultReservePct = 0.2

// Key addresses one allocation cell.
type Key struct {
	Engine string
	Venue  string
}

// Cell is the tradable capital assigned to one engine on one venue.
type Cell struct {
	Engine  string  `json:"engine" msgpack:"engine"`
	Venue   string  `json:"venue" msgpack:"venue"`
	Capital float64 `json:"capital" msgpack:"capital"`
}

// Pool owns the session's simulated capital as a flat engine x venue table
// plus an untouched reserve. It is not safe for concurrent use; the owning
// session serializes access.
//
// Invariants: reserve + sum(cells) only changes through Settle, and the peak
// never decreases. Breaking either is a programming error and panics.
type Pool struct {
	reserve float64
	cells   []Cell
	index   map[Key]int
	engines []string
	venues  []string
	peak    float64
}

// Allocate splits totalCapital into a reserve of reservePct and spreads the
// remainder evenly over every engine x venue cell.
func Allocate(totalCapital float64, engines, venues []string, reservePct float64) (*Pool, error) {
	if !finite(totalCapital) || totalCapital <= 0 {
		return nil, fmt.Errorf("capital: total capital must be positive, got %v", totalCapital)
	}
	if !finite(reservePct) || reservePct < 0 || reservePct >= 1 {
		return nil, fmt.Errorf("capital: reserve pct must be within [0,1), got %v", reservePct)
	}
	if len(engines) == 0 || len(venues) == 0 {
		return nil, errors.New("capital: at least one engine and one venue are required")
	}
	if err := checkUnique("engine", engines); err != nil {
		return nil, err
	}
	if err := checkUnique("venue", venues); err != nil {
		return nil, err
	}

	reserve := totalCapital * reservePct
	per := (totalCapital - reserve) / float64(len(engines)*len(venues))
	p := &Pool{
		reserve: reserve,
		cells:   make([]Cell, 0, len(engines)*len(venues)),
		index:   make(map[Key]int, len(engines)*len(venues)),
		engines: append([]string(nil), engines...),
		venues:  append([]string(nil), venues...),
	}
	for _, e := range engines {
		for _, v := range venues {
			p.index[Key{e, v}] = len(p.cells)
			p.cells = append(p.cells, Cell{Engine: e, Venue: v, Capital: per})
		}
	}
	p.peak = p.Total()
	return p, nil
}

// Total sums the reserve and every cell.
func Total(cells []Cell, reserve float64) float64 {
	sum := reserve
	for _, c := range cells {
		sum += c.Capital
	}
	return sum
}

func (p *Pool) Total() float64   { return Total(p.cells, p.reserve) }
func (p *Pool) Reserve() float64 { return p.reserve }
func (p *Pool) Peak() float64    { return p.peak }

func (p *Pool) Engines() []string { return append([]string(nil), p.engines...) }
func (p *Pool) Venues() []string  { return append([]string(nil), p.venues...) }

// Tradable is the capital outside the reserve.
func (p *Pool) Tradable() float64 { return p.Total() - p.reserve }

// Cells returns a copy of the allocation table in engine-major order.
func (p *Pool) Cells() []Cell {
	out := make([]Cell, len(p.cells))
	copy(out, p.cells)
	return out
}

func (p *Pool) Capital(engine, venue string) (float64, bool) {
	i, ok := p.index[Key{engine, venue}]
	if !ok {
		return 0, false
	}
	return p.cells[i].Capital, true
}

func (p *Pool) EngineTotal(engine string) float64 {
	var sum float64
	for _, c := range p.cells {
		if c.Engine == engine {
			sum += c.Capital
		}
	}
	return sum
}

func (p *Pool) EngineTotals() map[string]float64 {
	out := make(map[string]float64, len(p.engines))
	for _, e := range p.engines {
		out[e] = 0
	}
	for _, c := range p.cells {
		out[c.Engine] += c.Capital
	}
	return out
}

// DrawdownPct is the decline of total capital from its peak, 0-100.
func (p *Pool) DrawdownPct() float64 {
	if p.peak <= 0 {
		return 0
	}
	dd := (p.peak - p.Total()) / p.peak * 100
	if dd < 0 {
		return 0
	}
	return dd
}

// Settle applies a trade's PnL to its cell. It is the only operation allowed
// to change total capital.
func (p *Pool) Settle(engine, venue string, pnl float64) error {
	if !finite(pnl) {
		return fmt.Errorf("capital: non-finite pnl %v", pnl)
	}
	i, ok := p.index[Key{engine, venue}]
	if !ok {
		return fmt.Errorf("capital: unknown cell %s/%s", engine, venue)
	}
	if p.cells[i].Capital+pnl < 0 {
		return fmt.Errorf("capital: settlement of %.4f would overdraw %s/%s (%.4f)", pnl, engine, venue, p.cells[i].Capital)
	}
	before := p.Total()
	p.cells[i].Capital += pnl
	p.mustConserve("settle", before+pnl)

	prevPeak := p.peak
	if total := p.Total(); total > p.peak {
		p.peak = total
	}
	if p.peak < prevPeak {
		panic(fmt.Sprintf("capital: peak decreased from %.8f to %.8f", prevPeak, p.peak))
	}
	return nil
}

func (p *Pool) mustConserve(op string, expected float64) {
	got := p.Total()
	if math.Abs(got-expected) > tolerance(expected) {
		panic(fmt.Sprintf("capital: %s broke conservation: total %.8f, expected %.8f", op, got, expected))
	}
	for _, c := range p.cells {
		if c.Capital < -tolerance(expected) {
			panic(fmt.Sprintf("capital: %s left %s/%s negative (%.8f)", op, c.Engine, c.Venue, c.Capital))
		}
	}
}

func tolerance(total float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(total))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkUnique(kind string, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("capital: empty %s name", kind)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("capital: duplicate %s %q", kind, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

// State is the persisted form of a pool.
type State struct {
	Reserve float64  `msgpack:"reserve"`
	Peak    float64  `msgpack:"peak"`
	Engines []string `msgpack:"engines"`
	Venues  []string `msgpack:"venues"`
	Cells   []Cell   `msgpack:"cells"`
}

func (p *Pool) State() State {
	return State{
		Reserve: p.reserve,
		Peak:    p.peak,
		Engines: p.Engines(),
		Venues:  p.Venues(),
		Cells:   p.Cells(),
	}
}

// Restore rebuilds a pool from a persisted state. Every engine x venue cell
// must be present exactly once.
func Restore(s State) (*Pool, error) {
	if len(s.Engines) == 0 || len(s.Venues) == 0 {
		return nil, errors.New("capital: restored state has no engines or venues")
	}
	p := &Pool{
		reserve: s.Reserve,
		peak:    s.Peak,
		engines: append([]string(nil), s.Engines...),
		venues:  append([]string(nil), s.Venues...),
		index:   make(map[Key]int, len(s.Cells)),
	}
	for _, c := range s.Cells {
		k := Key{c.Engine, c.Venue}
		if _, dup := p.index[k]; dup {
			return nil, fmt.Errorf("capital: duplicate cell %s/%s", c.Engine, c.Venue)
		}
		if !finite(c.Capital) || c.Capital < 0 {
			return nil, fmt.Errorf("capital: invalid capital %v for %s/%s", c.Capital, c.Engine, c.Venue)
		}
		p.index[k] = len(p.cells)
		p.cells = append(p.cells, c)
	}
	if len(p.cells) != len(s.Engines)*len(s.Venues) {
		return nil, fmt.Errorf("capital: expected %d cells, got %d", len(s.Engines)*len(s.Venues), len(p.cells))
	}
	for _, e := range s.Engines {
		for _, v := range s.Venues {
			if _, ok := p.index[Key{e, v}]; !ok {
				return nil, fmt.Errorf("capital: missing cell %s/%s", e, v)
			}
		}
	}
	if total := p.Total(); p.peak < total {
		p.peak = total
	}
	return p, nil
}
