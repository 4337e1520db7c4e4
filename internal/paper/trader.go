package paper

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/paper-engine/internal/capital"
	"github.com/GoPolymarket/paper-engine/internal/execution"
	"github.com/GoPolymarket/paper-engine/internal/feed"
	"github.com/GoPolymarket/paper-engine/internal/performance"
	"github.com/GoPolymarket/paper-engine/internal/risk"
)

// RecentTrades is how many settled trades a snapshot carries.
const RecentTrades = 50

type AllocatorConfig struct {
	Floor       float64
	TransferPct float64
	RotationPct float64
	// Every runs rebalance and rotation after this many settlements.
	Every     int
	MinTrades int
}

type Config struct {
	Symbol         string
	InitialCapital float64
	Engines        []string
	Venues         []string
	ReservePct     float64
	Retention      int
	HistorySize    int
	// HoldTicks is how many ticks a position stays open before it is
	// realized. Zero settles on the opening tick.
	HoldTicks int
	Allocator AllocatorConfig
	Blackout  Blackout
}

func DefaultConfig() Config {
	return Config{
		Symbol:         "BTC",
		InitialCapital: 1000,
		Engines:        []string{"scalp", "session"},
		Venues:         []string{"coinbase", "kraken"},
		ReservePct:     capital.DefaultReservePct,
		Retention:      performance.DefaultRetention,
		HistorySize:    feed.DefaultHistorySize,
		HoldTicks:      3,
		Allocator: AllocatorConfig{
			Floor:       capital.DefaultFloor,
			TransferPct: capital.DefaultTransferPct,
			RotationPct: 0.1,
			Every:       10,
			MinTrades:   10,
		},
		Blackout: DefaultBlackout(),
	}
}

// Action is what a tick did.
type Action string

const (
	ActionSkipped Action = "skipped"
	ActionBlocked Action = "blocked"
	ActionOpened  Action = "opened"
	ActionHeld    Action = "held"
	ActionClosed  Action = "closed"
)

const (
	ReasonStopped      = "Session stopped"
	ReasonBlackout     = "Blackout window"
	ReasonInvalidPrice = "Invalid price"
	ReasonOtherSymbol  = "Symbol not traded by this session"

	// LevelExecution marks blocks raised by the execution stack rather than
	// the portfolio governor.
	LevelExecution = "execution"
)

// Block codes outside the execution stack. Execution blocks use
// execution.ReasonCode.
const (
	CodeManualLock     = "manual_lock"
	CodeDailyLoss      = "daily_loss"
	CodeDrawdown       = "portfolio_drawdown"
	CodeSettleRejected = "settle_rejected"
)

type TickResult struct {
	Action Action             `json:"action"`
	Reason string             `json:"reason,omitempty"`
	Level  string             `json:"level,omitempty"`
	Trade  *performance.Trade `json:"trade,omitempty"`
}

// Block is emitted to OnBlock subscribers.
type Block struct {
	Engine    string    `json:"engine,omitempty"`
	Venue     string    `json:"venue,omitempty"`
	Code      string    `json:"code"`
	Reason    string    `json:"reason"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// Position is an executed decision waiting to be realized.
type Position struct {
	Engine    string    `json:"engine"`
	Venue     string    `json:"venue"`
	Symbol    string    `json:"symbol"`
	Direction string    `json:"direction"`
	Entry     float64   `json:"entry"`
	Size      float64   `json:"size"`
	OpenedAt  time.Time `json:"opened_at"`
	TicksHeld int       `json:"ticks_held"`

	trade performance.Trade
}

type Snapshot struct {
	Running      bool                `json:"running"`
	Symbol       string              `json:"symbol"`
	Balance      float64             `json:"balance"`
	PnL          float64             `json:"pnl"`
	DailyPnL     float64             `json:"daily_pnl"`
	Peak         float64             `json:"peak"`
	DrawdownPct  float64             `json:"drawdown_pct"`
	ManualLock   bool                `json:"manual_lock"`
	OpenPosition *Position           `json:"open_position"`
	Trades       []performance.Trade `json:"trades"`
}

type CapitalView struct {
	Total       float64            `json:"total"`
	Reserve     float64            `json:"reserve"`
	Tradable    float64            `json:"tradable"`
	Peak        float64            `json:"peak"`
	DrawdownPct float64            `json:"drawdown_pct"`
	Engines     map[string]float64 `json:"engines"`
	Cells       []capital.Cell     `json:"cells"`
}

type RiskView struct {
	risk.State
	ManualLock bool        `json:"manual_lock"`
	Limits     risk.Config `json:"limits"`
}

// Trader is one paper-trading session: it owns a capital pool and a
// performance book and feeds each tick through the execution engine. Ticks
// are serialized by the session mutex; hooks run after it is released.
type Trader struct {
	mu sync.Mutex

	cfg     Config
	exec    *execution.Engine
	gov     *risk.Governor
	pool    *capital.Pool
	book    *performance.Book
	history *feed.History
	log     zerolog.Logger

	running  bool
	dailyPnL float64
	day      time.Time
	position *Position
	recent   []performance.Trade
	cursor   int
	settled  int

	onSettle []func(performance.Trade)
	onBlock  []func(Block)
}

func New(cfg Config, exec *execution.Engine, gov *risk.Governor, log zerolog.Logger) (*Trader, error) {
	if exec == nil {
		return nil, errors.New("paper: execution engine is required")
	}
	if gov == nil {
		gov = risk.NewGovernor(risk.DefaultConfig())
	}
	cfg = withDefaults(cfg)
	pool, err := capital.Allocate(cfg.InitialCapital, cfg.Engines, cfg.Venues, cfg.ReservePct)
	if err != nil {
		return nil, fmt.Errorf("paper: allocate capital: %w", err)
	}
	return &Trader{
		cfg:     cfg,
		exec:    exec,
		gov:     gov,
		pool:    pool,
		book:    performance.NewBook(cfg.Retention),
		history: feed.NewHistory(cfg.HistorySize),
		log:     log.With().Str("component", "paper").Str("symbol", cfg.Symbol).Logger(),
	}, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = def.InitialCapital
	}
	if len(cfg.Engines) == 0 {
		cfg.Engines = def.Engines
	}
	if len(cfg.Venues) == 0 {
		cfg.Venues = def.Venues
	}
	if cfg.ReservePct < 0 {
		cfg.ReservePct = def.ReservePct
	}
	if cfg.HoldTicks < 0 {
		cfg.HoldTicks = 0
	}
	if cfg.Allocator.Floor <= 0 {
		cfg.Allocator.Floor = def.Allocator.Floor
	}
	if cfg.Allocator.TransferPct <= 0 {
		cfg.Allocator.TransferPct = def.Allocator.TransferPct
	}
	if cfg.Allocator.RotationPct <= 0 {
		cfg.Allocator.RotationPct = def.Allocator.RotationPct
	}
	if cfg.Allocator.Every <= 0 {
		cfg.Allocator.Every = def.Allocator.Every
	}
	if cfg.Allocator.MinTrades <= 0 {
		cfg.Allocator.MinTrades = def.Allocator.MinTrades
	}
	return cfg
}

func (t *Trader) Config() Config { return t.cfg }

// OnSettle registers fn to be called with every realized trade.
func (t *Trader) OnSettle(fn func(performance.Trade)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettle = append(t.onSettle, fn)
}

// OnBlock registers fn to be called whenever a decision is blocked.
func (t *Trader) OnBlock(fn func(Block)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onBlock = append(t.onBlock, fn)
}

func (t *Trader) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		t.log.Info().Msg("session started")
	}
	t.running = true
}

func (t *Trader) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.log.Info().Msg("session stopped")
	}
	t.running = false
}

func (t *Trader) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// SetManualLock engages or releases the operator kill switch. It takes
// precedence over every computed risk check.
func (t *Trader) SetManualLock(locked bool) {
	t.gov.SetManualLock(locked)
	t.log.Warn().Bool("locked", locked).Msg("manual lock changed")
}

// Tick processes one price observation.
func (t *Trader) Tick(symbol string, price float64, ts time.Time) TickResult {
	t.mu.Lock()
	res, blockEv := t.tick(symbol, price, ts)
	settleHooks, blockHooks := t.onSettle, t.onBlock
	t.mu.Unlock()

	if res.Action == ActionClosed && res.Trade != nil {
		for _, fn := range settleHooks {
			fn(*res.Trade)
		}
	}
	if blockEv != nil {
		for _, fn := range blockHooks {
			fn(*blockEv)
		}
	}
	return res
}

func (t *Trader) tick(symbol string, price float64, ts time.Time) (TickResult, *Block) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return TickResult{Action: ActionSkipped, Reason: ReasonInvalidPrice}, nil
	}
	if !t.running {
		return TickResult{Action: ActionSkipped, Reason: ReasonStopped}, nil
	}
	if t.cfg.Symbol != "" && symbol != t.cfg.Symbol {
		return TickResult{Action: ActionSkipped, Reason: ReasonOtherSymbol}, nil
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	t.rollDay(ts)
	if t.cfg.Blackout.Contains(ts) {
		return TickResult{Action: ActionSkipped, Reason: ReasonBlackout}, nil
	}
	t.history.Push(symbol, price)

	if t.position != nil {
		t.position.TicksHeld++
		if t.position.TicksHeld < t.cfg.HoldTicks {
			return TickResult{Action: ActionHeld}, nil
		}
		return t.close()
	}
	return t.open(symbol, ts)
}

func (t *Trader) open(symbol string, ts time.Time) (TickResult, *Block) {
	if t.gov.ManualLock() {
		st := risk.Locked()
		return t.blocked("", "", CodeManualLock, st.Reason, string(st.Level), ts)
	}
	if st := t.gov.Evaluate(t.pool.Total(), t.pool.Peak(), t.dailyPnL); !st.Allowed {
		code := CodeDrawdown
		if st.Level == risk.LevelDaily {
			code = CodeDailyLoss
		}
		return t.blocked("", "", code, st.Reason, string(st.Level), ts)
	}

	cells := t.pool.Cells()
	cell := cells[t.cursor%len(cells)]
	t.cursor = (t.cursor + 1) % len(cells)

	wins, losses, streak := t.book.Counts(cell.Engine)
	res := t.exec.Execute(execution.Request{
		Engine:       cell.Engine,
		Venue:        cell.Venue,
		Symbol:       symbol,
		History:      t.history.Window(symbol),
		Balance:      cell.Capital,
		Wins:         wins,
		Losses:       losses,
		LosingStreak: streak,
		DrawdownPct:  t.pool.DrawdownPct(),
		Timestamp:    ts,
	})
	if res.Blocked {
		return t.blocked(cell.Engine, cell.Venue, execution.ReasonCode(res.Reason), res.Reason, LevelExecution, ts)
	}

	t.position = &Position{
		Engine:    res.Trade.Engine,
		Venue:     res.Trade.Venue,
		Symbol:    symbol,
		Direction: res.Trade.Direction,
		Entry:     res.Trade.EntryPrice,
		Size:      res.Trade.PositionSize,
		OpenedAt:  ts,
		trade:     res.Trade,
	}
	t.log.Debug().
		Str("engine", cell.Engine).
		Str("venue", cell.Venue).
		Str("direction", res.Trade.Direction).
		Float64("size", res.Trade.PositionSize).
		Msg("position opened")
	if t.cfg.HoldTicks == 0 {
		return t.close()
	}
	return TickResult{Action: ActionOpened}, nil
}

func (t *Trader) close() (TickResult, *Block) {
	pos := t.position
	t.position = nil
	trade := pos.trade

	if err := t.pool.Settle(trade.Engine, trade.Venue, trade.PnL); err != nil {
		t.log.Error().Err(err).Str("trade_id", trade.ID).Msg("settlement rejected")
		return t.blocked(trade.Engine, trade.Venue, CodeSettleRejected, err.Error(), LevelExecution, trade.Timestamp)
	}
	t.book.Update(trade)
	t.dailyPnL += trade.PnL
	t.recent = append(t.recent, trade)
	if len(t.recent) > RecentTrades {
		t.recent = append([]performance.Trade(nil), t.recent[len(t.recent)-RecentTrades:]...)
	}
	t.settled++

	t.log.Info().
		Str("trade_id", trade.ID).
		Str("engine", trade.Engine).
		Str("venue", trade.Venue).
		Bool("win", trade.IsWin).
		Float64("pnl", trade.PnL).
		Float64("total", t.pool.Total()).
		Msg("trade settled")

	if t.settled%t.cfg.Allocator.Every == 0 {
		t.reallocate()
	}
	return TickResult{Action: ActionClosed, Trade: &trade}, nil
}

func (t *Trader) reallocate() {
	a := t.cfg.Allocator
	if tr := t.pool.Rebalance(a.Floor, a.TransferPct); tr.Amount > 0 {
		t.log.Info().Str("from", tr.From).Str("to", tr.To).Float64("amount", tr.Amount).Msg("capital rebalanced")
	}
	weights := capital.PerformanceWeights(t.pool.Engines(), t.book.All(), a.MinTrades)
	deltas := t.pool.Rotate(weights, a.RotationPct)
	t.log.Debug().Interface("deltas", deltas).Msg("capital rotated")
}

func (t *Trader) blocked(engine, venue, code, reason, level string, ts time.Time) (TickResult, *Block) {
	t.log.Debug().Str("engine", engine).Str("reason", reason).Str("level", level).Msg("decision blocked")
	return TickResult{Action: ActionBlocked, Reason: reason, Level: level},
		&Block{Engine: engine, Venue: venue, Code: code, Reason: reason, Level: level, Timestamp: ts}
}

// rollDay zeroes the daily PnL when ts falls on a later UTC day than the
// last one seen. Ticks stamped earlier than that day never roll it back.
func (t *Trader) rollDay(ts time.Time) (float64, bool) {
	day := startOfUTCDay(ts)
	if t.day.IsZero() {
		t.day = day
		return 0, false
	}
	if !day.After(t.day) {
		return 0, false
	}
	prev := t.dailyPnL
	t.day = day
	t.dailyPnL = 0
	t.log.Info().Str("day", day.Format("2006-01-02")).Float64("closed_daily_pnl", prev).Msg("daily pnl rolled over")
	return prev, true
}

// RollDay applies the UTC day boundary at now without waiting for a tick.
// It reports the closed day's PnL and whether a rollover happened.
func (t *Trader) RollDay(now time.Time) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollDay(now)
}

func startOfUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ResetDaily zeroes the daily PnL and returns the value it had.
func (t *Trader) ResetDaily() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.dailyPnL
	t.dailyPnL = 0
	t.log.Info().Float64("daily_pnl", prev).Msg("daily pnl reset")
	return prev
}

func (t *Trader) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.pool.Total()
	snap := Snapshot{
		Running:     t.running,
		Symbol:      t.cfg.Symbol,
		Balance:     cents(total),
		PnL:         cents(total - t.cfg.InitialCapital),
		DailyPnL:    cents(t.dailyPnL),
		Peak:        cents(t.pool.Peak()),
		DrawdownPct: t.pool.DrawdownPct(),
		ManualLock:  t.gov.ManualLock(),
		Trades:      append([]performance.Trade{}, t.recent...),
	}
	if t.position != nil {
		pos := *t.position
		snap.OpenPosition = &pos
	}
	return snap
}

func (t *Trader) Capital() CapitalView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return CapitalView{
		Total:       t.pool.Total(),
		Reserve:     t.pool.Reserve(),
		Tradable:    t.pool.Tradable(),
		Peak:        t.pool.Peak(),
		DrawdownPct: t.pool.DrawdownPct(),
		Engines:     t.pool.EngineTotals(),
		Cells:       t.pool.Cells(),
	}
}

// Risk reports the portfolio gate as the next tick would see it.
func (t *Trader) Risk() RiskView {
	t.mu.Lock()
	defer t.mu.Unlock()
	view := RiskView{ManualLock: t.gov.ManualLock(), Limits: t.gov.Config()}
	if view.ManualLock {
		view.State = risk.Locked()
		return view
	}
	view.State = t.gov.Evaluate(t.pool.Total(), t.pool.Peak(), t.dailyPnL)
	return view
}

func (t *Trader) PerformanceStats(engine string) (performance.Stats, bool) {
	return t.book.Stats(engine)
}

func (t *Trader) AllPerformanceStats() map[string]performance.Stats {
	return t.book.All()
}

func cents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
