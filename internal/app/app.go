package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/GoPolymarket/paper-engine/internal/config"
	"github.com/GoPolymarket/paper-engine/internal/execution"
	"github.com/GoPolymarket/paper-engine/internal/feed"
	"github.com/GoPolymarket/paper-engine/internal/metrics"
	"github.com/GoPolymarket/paper-engine/internal/notify"
	"github.com/GoPolymarket/paper-engine/internal/paper"
	"github.com/GoPolymarket/paper-engine/internal/performance"
	"github.com/GoPolymarket/paper-engine/internal/risk"
	"github.com/GoPolymarket/paper-engine/internal/rng"
	"github.com/GoPolymarket/paper-engine/internal/store"
)

const alertTimeout = 10 * time.Second

// Notifier defines alert methods used by the app.
type Notifier interface {
	NotifySettlement(ctx context.Context, t performance.Trade) error
	NotifyBlock(ctx context.Context, reason, level string) error
	NotifyCircuitBreaker(ctx context.Context, engine string, streak int) error
	NotifyManualLock(ctx context.Context, locked bool) error
	NotifyDailySummary(ctx context.Context, dailyPnL, balance float64, trades int, winRate float64) error
}

// Snapshotter persists the session state.
type Snapshotter interface {
	Save(v any) error
	Load(v any) error
}

// App hosts one paper-trading session: it feeds ticks from a source, runs
// the daily reset and snapshot jobs, and fans settlement and block events out
// to metrics and notifications.
type App struct {
	cfg     config.Config
	session *paper.Trader
	source  feed.Source
	log     zerolog.Logger

	notifier Notifier
	store    Snapshotter
	metrics  *metrics.Registry
	kpi      *metrics.KPICollector

	alerts sync.WaitGroup
	// summarized is the last day a daily summary went out for.
	summarized string

	mu      sync.RWMutex
	running bool
}

func New(cfg config.Config, source feed.Source, src rng.Source, log zerolog.Logger) (*App, error) {
	if src == nil {
		src = rng.New(uint64(time.Now().UnixNano()))
	}
	engine := execution.New(cfg.ToExecution(), src, log)
	gov := risk.NewGovernor(cfg.ToRisk())
	gov.SetManualLock(cfg.Risk.ManualLock)

	session, err := paper.New(cfg.ToPaper(), engine, gov, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		session: session,
		source:  source,
		log:     log.With().Str("component", "app").Logger(),
		kpi:     metrics.NewKPICollector(time.Now()),
	}
	if cfg.Telegram.Enabled {
		a.notifier = notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.BlockAlertInterval)
	}
	if cfg.Store.Enabled && cfg.Store.Path != "" {
		a.store = store.NewFile(cfg.Store.Path)
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	session.OnSettle(a.handleSettle)
	session.OnBlock(a.handleBlock)
	return a, nil
}

// SetNotifier replaces the notifier; nil disables alerts.
func (a *App) SetNotifier(n Notifier) { a.notifier = n }

// SetStore replaces the snapshot store; nil disables persistence.
func (a *App) SetStore(s Snapshotter) { a.store = s }

func (a *App) Metrics() *metrics.Registry { return a.metrics }
func (a *App) KPI() *metrics.KPICollector { return a.kpi }
func (a *App) Session() *paper.Trader     { return a.session }

// Restore loads the last snapshot into the session. A missing snapshot is
// not an error.
func (a *App) Restore() error {
	if a.store == nil {
		return nil
	}
	var st paper.State
	if err := a.store.Load(&st); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return a.session.Restore(st)
}

// Run restores state, starts the scheduler and the session, and processes
// ticks until ctx is cancelled or the source ends.
func (a *App) Run(ctx context.Context) error {
	if a.source == nil {
		return errors.New("app: no price source configured")
	}
	if err := a.Restore(); err != nil {
		a.log.Warn().Err(err).Msg("snapshot restore failed, starting fresh")
	}

	sched := newScheduler(a.log)
	// Replayed ticks carry their own clock and roll the day themselves.
	if a.cfg.Feed.Source != "csv" {
		if err := sched.add("daily_reset", a.cfg.Scheduler.DailyReset, a.dailyReset); err != nil {
			return fmt.Errorf("app: schedule daily reset: %w", err)
		}
	}
	if a.store != nil {
		if err := sched.add("snapshot", a.cfg.Scheduler.Snapshot, a.SaveSnapshot); err != nil {
			return fmt.Errorf("app: schedule snapshot: %w", err)
		}
	}
	sched.start()
	defer sched.stop()

	ticks, err := a.source.Subscribe(ctx)
	if err != nil {
		return err
	}

	a.session.Start()
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()
	a.log.Info().Str("symbol", a.cfg.Session.Symbol).Msg("trading loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick, ok := <-ticks:
			if !ok {
				a.log.Info().Msg("price source exhausted")
				return nil
			}
			a.HandleTick(tick)
		}
	}
}

// HandleTick pushes one tick through the session and records it.
func (a *App) HandleTick(t feed.Tick) paper.TickResult {
	res := a.session.Tick(t.Symbol, t.Price, t.Timestamp)
	if a.metrics != nil {
		a.metrics.ObserveTick(res)
		if res.Action == paper.ActionClosed {
			a.metrics.ObserveSession(a.session.Snapshot(), a.session.Capital())
		}
	}
	return res
}

func (a *App) handleSettle(t performance.Trade) {
	a.kpi.RecordSettlement(t)
	if a.metrics != nil {
		a.metrics.ObserveSettlement(t)
	}
	a.alert("settlement", func(ctx context.Context, n Notifier) error {
		return n.NotifySettlement(ctx, t)
	})
}

func (a *App) handleBlock(b paper.Block) {
	fresh := a.kpi.RecordBlock(b)
	if a.metrics != nil {
		a.metrics.ObserveBlock(b)
	}
	switch {
	case fresh:
		streak := 0
		if st, ok := a.session.PerformanceStats(b.Engine); ok {
			streak = st.LosingStreak
		}
		a.alert("circuit_breaker", func(ctx context.Context, n Notifier) error {
			return n.NotifyCircuitBreaker(ctx, b.Engine, streak)
		})
	case b.Level != paper.LevelExecution:
		a.alert("block", func(ctx context.Context, n Notifier) error {
			return n.NotifyBlock(ctx, b.Reason, b.Level)
		})
	}
}

// alert sends in the background so a slow chat API never stalls ticks.
func (a *App) alert(kind string, send func(context.Context, Notifier) error) {
	n := a.notifier
	if n == nil {
		return
	}
	a.alerts.Add(1)
	go func() {
		defer a.alerts.Done()
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()
		if err := send(ctx, n); err != nil && !errors.Is(err, notify.ErrThrottled) {
			a.log.Warn().Err(err).Str("alert", kind).Msg("notification failed")
		}
	}()
}

// dailyReset closes the UTC day on the session and the KPI collector when no
// tick has done so yet, then sends the closed day's summary once.
func (a *App) dailyReset() error {
	now := time.Now()
	if pnl, rolled := a.session.RollDay(now); rolled {
		a.log.Info().Float64("daily_pnl", pnl).Msg("daily pnl reset")
	}
	a.kpi.Snapshot(now)
	snap := a.session.Snapshot()
	if a.metrics != nil {
		a.metrics.ObserveSession(snap, a.session.Capital())
	}

	closed, ok := a.kpi.LastClosed()
	if !ok || closed.Day == a.summarized {
		return nil
	}
	a.summarized = closed.Day
	a.alert("daily_summary", func(ctx context.Context, n Notifier) error {
		return n.NotifyDailySummary(ctx, closed.RealizedPnL, snap.Balance, closed.Settled, closed.WinRate)
	})
	return nil
}

// SaveSnapshot persists the session state.
func (a *App) SaveSnapshot() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Save(a.session.State()); err != nil {
		return fmt.Errorf("app: save snapshot: %w", err)
	}
	return nil
}

// Shutdown stops the session, persists it and waits for pending alerts.
func (a *App) Shutdown(ctx context.Context) {
	a.log.Info().Msg("shutting down...")
	a.session.Stop()
	if err := a.SaveSnapshot(); err != nil {
		a.log.Error().Err(err).Msg("final snapshot failed")
	}

	done := make(chan struct{})
	go func() {
		a.alerts.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn().Msg("pending notifications abandoned")
	}

	snap := a.session.Snapshot()
	a.log.Info().
		Float64("balance", snap.Balance).
		Float64("pnl", snap.PnL).
		Int("recent_trades", len(snap.Trades)).
		Msg("session complete")
}

// IsRunning reports whether the trading loop is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// The methods below let the App serve as the API's session.

func (a *App) Snapshot() paper.Snapshot { return a.session.Snapshot() }
func (a *App) Start()                   { a.session.Start() }
func (a *App) Stop()                    { a.session.Stop() }
func (a *App) Running() bool            { return a.session.Running() }
func (a *App) Capital() paper.CapitalView {
	return a.session.Capital()
}
func (a *App) Risk() paper.RiskView { return a.session.Risk() }

func (a *App) PerformanceStats(engine string) (performance.Stats, bool) {
	return a.session.PerformanceStats(engine)
}

func (a *App) AllPerformanceStats() map[string]performance.Stats {
	return a.session.AllPerformanceStats()
}

// SetManualLock forwards to the session and announces the change.
func (a *App) SetManualLock(locked bool) {
	a.session.SetManualLock(locked)
	if a.metrics != nil {
		a.metrics.ObserveSession(a.session.Snapshot(), a.session.Capital())
	}
	a.alert("manual_lock", func(ctx context.Context, n Notifier) error {
		return n.NotifyManualLock(ctx, locked)
	})
}
