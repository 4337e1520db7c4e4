package performance

import (
	"sort"
	"sync"
)

// Aggregate is the key under which the all-engine statistics are reported.
const Aggregate = "all"

// DefaultRetention bounds the per-engine trade log.
const DefaultRetention = 500

// Stats is a read-only view of one engine's performance.
type Stats struct {
	Engine       string  `json:"engine"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	LosingStreak int     `json:"losing_streak"`
	Metrics      Metrics `json:"metrics"`
}

type record struct {
	wins         int
	losses       int
	losingStreak int
	trades       []Trade
}

func (r *record) add(t Trade, retention int) {
	if t.IsWin {
		r.wins++
		r.losingStreak = 0
	} else {
		r.losses++
		r.losingStreak++
	}
	r.trades = append(r.trades, t)
	if len(r.trades) > retention {
		r.trades = append([]Trade(nil), r.trades[len(r.trades)-retention:]...)
	}
}

func (r *record) stats(engine string) Stats {
	return Stats{
		Engine:       engine,
		Wins:         r.wins,
		Losses:       r.losses,
		LosingStreak: r.losingStreak,
		Metrics:      Evaluate(r.trades),
	}
}

// Book keeps per-engine and aggregate trade history. Engine records are
// created lazily on the first trade. Win and loss counters are cumulative;
// the trade log is trimmed to the retention window.
type Book struct {
	mu        sync.RWMutex
	retention int
	engines   map[string]*record
	aggregate *record
}

func NewBook(retention int) *Book {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Book{
		retention: retention,
		engines:   make(map[string]*record),
		aggregate: &record{},
	}
}

// Update appends a settled trade to its engine and to the aggregate.
func (b *Book) Update(t Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.engines[t.Engine]
	if !ok {
		r = &record{}
		b.engines[t.Engine] = r
	}
	r.add(t, b.retention)
	b.aggregate.add(t, b.retention)
}

// Stats returns the statistics for engine. The second value is false when the
// engine has no trades yet; the returned Stats is then zero-valued.
func (b *Book) Stats(engine string) (Stats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if engine == Aggregate {
		return b.aggregate.stats(Aggregate), true
	}
	r, ok := b.engines[engine]
	if !ok {
		return Stats{Engine: engine}, false
	}
	return r.stats(engine), true
}

// All returns statistics for every engine that has traded plus the aggregate.
func (b *Book) All() map[string]Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]Stats, len(b.engines)+1)
	for name, r := range b.engines {
		out[name] = r.stats(name)
	}
	out[Aggregate] = b.aggregate.stats(Aggregate)
	return out
}

// Counts returns cumulative wins, losses and the current losing streak.
func (b *Book) Counts(engine string) (wins, losses, streak int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.engines[engine]
	if !ok {
		return 0, 0, 0
	}
	return r.wins, r.losses, r.losingStreak
}

// Trades returns a copy of the retained trades for engine, oldest first.
func (b *Book) Trades(engine string) []Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r := b.aggregate
	if engine != Aggregate {
		var ok bool
		if r, ok = b.engines[engine]; !ok {
			return nil
		}
	}
	out := make([]Trade, len(r.trades))
	copy(out, r.trades)
	return out
}

// Engines lists engines with at least one trade, sorted.
func (b *Book) Engines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.engines))
	for name := range b.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EngineState is the persisted form of one engine record.
type EngineState struct {
	Wins         int     `msgpack:"wins"`
	Losses       int     `msgpack:"losses"`
	LosingStreak int     `msgpack:"losing_streak"`
	Trades       []Trade `msgpack:"trades"`
}

// State captures the book for persistence, keyed by engine and Aggregate.
func (b *Book) State() map[string]EngineState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]EngineState, len(b.engines)+1)
	snap := func(r *record) EngineState {
		trades := make([]Trade, len(r.trades))
		copy(trades, r.trades)
		return EngineState{Wins: r.wins, Losses: r.losses, LosingStreak: r.losingStreak, Trades: trades}
	}
	for name, r := range b.engines {
		out[name] = snap(r)
	}
	out[Aggregate] = snap(b.aggregate)
	return out
}

// Restore replaces the book's contents with a previously captured state.
func (b *Book) Restore(state map[string]EngineState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.engines = make(map[string]*record, len(state))
	b.aggregate = &record{}
	for name, s := range state {
		r := &record{wins: s.Wins, losses: s.Losses, losingStreak: s.LosingStreak}
		r.trades = append(r.trades, s.Trades...)
		if len(r.trades) > b.retention {
			r.trades = r.trades[len(r.trades)-b.retention:]
		}
		if name == Aggregate {
			b.aggregate = r
			continue
		}
		b.engines[name] = r
	}
}
