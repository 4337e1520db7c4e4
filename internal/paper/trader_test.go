package paper

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPolymarket/paper-engine/internal/execution"
	"github.com/GoPolymarket/paper-engine/internal/performance"
	"github.com/GoPolymarket/paper-engine/internal/risk"
	"github.com/GoPolymarket/paper-engine/internal/rng"
)

// monday is 2024-03-04 00:00 UTC, well clear of the weekend blackout.
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func newTrader(t *testing.T, cfg Config, execCfg execution.Config, src rng.Source) *Trader {
	t.Helper()
	exec := execution.New(execCfg, src, zerolog.Nop())
	tr, err := New(cfg, exec, risk.NewGovernor(risk.DefaultConfig()), zerolog.Nop())
	require.NoError(t, err)
	return tr
}

// feedRamp sends n rising prices one minute apart starting at price 100.
func feedRamp(tr *Trader, n int) []TickResult {
	out := make([]TickResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, tr.Tick("BTC", 100+float64(i), monday.Add(time.Duration(i)*time.Minute)))
	}
	return out
}

func immediateConfig() Config {
	cfg := DefaultConfig()
	cfg.HoldTicks = 0
	return cfg
}

func TestTickIgnoredUntilStarted(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.New(1))
	res := tr.Tick("BTC", 100, monday)
	assert.Equal(t, ActionSkipped, res.Action)
	assert.Equal(t, ReasonStopped, res.Reason)
	assert.Equal(t, 0, tr.history.Len("BTC"))
	assert.False(t, tr.Snapshot().Running)
}

func TestTickRejectsInvalidInput(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.New(1))
	tr.Start()
	assert.Equal(t, ReasonInvalidPrice, tr.Tick("BTC", math.NaN(), monday).Reason)
	assert.Equal(t, ReasonInvalidPrice, tr.Tick("BTC", -1, monday).Reason)
	assert.Equal(t, ReasonOtherSymbol, tr.Tick("ETH", 100, monday).Reason)
	assert.Equal(t, 0, tr.history.Len("BTC"))
}

func TestTickDuringBlackoutIsNoop(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.New(1))
	tr.Start()
	saturday := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	res := tr.Tick("BTC", 100, saturday)
	assert.Equal(t, ActionSkipped, res.Action)
	assert.Equal(t, ReasonBlackout, res.Reason)
	assert.Equal(t, 0, tr.history.Len("BTC"))
	assert.Equal(t, 1000.0, tr.Snapshot().Balance)
}

func TestWarmupBlocksOnNeutralSignal(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.New(1))
	tr.Start()
	var blocks []Block
	tr.OnBlock(func(b Block) { blocks = append(blocks, b) })

	results := feedRamp(tr, 19)
	for _, r := range results {
		assert.Equal(t, ActionBlocked, r.Action)
		assert.Equal(t, LevelExecution, r.Level)
	}
	assert.Len(t, blocks, 19)
	assert.Empty(t, tr.Snapshot().Trades)
}

func TestWinningSessionSettlesAndKeepsPeakMonotonic(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.NewSequence(0.1, 0.9))
	tr.Start()
	var settled []performance.Trade
	tr.OnSettle(func(tt performance.Trade) { settled = append(settled, tt) })

	prevPeak := tr.Capital().Peak
	closed := 0
	for i := 0; i < 160; i++ {
		res := tr.Tick("BTC", 100+float64(i), monday.Add(time.Duration(i)*time.Minute))
		if res.Action == ActionClosed {
			closed++
		}
		peak := tr.Capital().Peak
		assert.GreaterOrEqual(t, peak, prevPeak)
		prevPeak = peak
	}

	require.NotZero(t, closed)
	assert.Len(t, settled, closed)

	snap := tr.Snapshot()
	assert.LessOrEqual(t, len(snap.Trades), RecentTrades)
	assert.InDelta(t, snap.Balance-1000, snap.PnL, 0.011)
	assert.Nil(t, snap.OpenPosition)

	var net float64
	for _, tt := range settled {
		net += tt.PnL
	}
	assert.InDelta(t, 1000+net, tr.Capital().Total, 1e-6)

	all := tr.AllPerformanceStats()
	require.Contains(t, all, performance.Aggregate)
	assert.Equal(t, closed, all[performance.Aggregate].Wins+all[performance.Aggregate].Losses)
}

func TestRoundRobinAcrossCells(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.NewSequence(0.1))
	tr.Start()
	var settled []performance.Trade
	tr.OnSettle(func(tt performance.Trade) { settled = append(settled, tt) })
	feedRamp(tr, 140)

	require.GreaterOrEqual(t, len(settled), 4)
	seen := map[string]bool{}
	for _, tt := range settled[:4] {
		seen[tt.Engine+"/"+tt.Venue] = true
	}
	assert.Len(t, seen, 4)
}

func TestCapitalFloorLeavesBalanceUnchanged(t *testing.T) {
	execCfg := execution.DefaultConfig()
	execCfg.Caps.CapitalFloor = 199.5
	tr := newTrader(t, immediateConfig(), execCfg, rng.NewSequence(0.99))
	tr.Start()

	results := feedRamp(tr, 140)
	floorHits := 0
	for _, r := range results {
		if r.Reason == execution.ReasonCapitalFloor {
			floorHits++
		}
		assert.NotEqual(t, ActionClosed, r.Action)
	}
	assert.NotZero(t, floorHits)
	assert.Equal(t, 1000.0, tr.Snapshot().Balance)
	for _, c := range tr.Capital().Cells {
		assert.Equal(t, 200.0, c.Capital)
	}
}

func TestHoldTicksDelaysRealization(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoldTicks = 2
	tr := newTrader(t, cfg, execution.DefaultConfig(), rng.NewSequence(0.1))
	tr.Start()

	results := feedRamp(tr, 140)
	opened := -1
	for i, r := range results {
		if r.Action == ActionOpened {
			opened = i
			break
		}
	}
	require.NotEqual(t, -1, opened)
	require.Greater(t, len(results), opened+2)
	assert.Equal(t, ActionHeld, results[opened+1].Action)
	assert.Equal(t, ActionClosed, results[opened+2].Action)
	require.NotNil(t, results[opened+2].Trade)
	assert.True(t, results[opened+2].Trade.IsWin)
}

func TestOpenPositionVisibleInSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoldTicks = 5
	tr := newTrader(t, cfg, execution.DefaultConfig(), rng.NewSequence(0.1))
	tr.Start()

	for i := 0; i < 140; i++ {
		res := tr.Tick("BTC", 100+float64(i), monday.Add(time.Duration(i)*time.Minute))
		if res.Action == ActionOpened {
			snap := tr.Snapshot()
			require.NotNil(t, snap.OpenPosition)
			assert.Equal(t, 100+float64(i), snap.OpenPosition.Entry)
			assert.Positive(t, snap.OpenPosition.Size)
			assert.Equal(t, 1000.0, snap.Balance)
			return
		}
	}
	t.Fatal("no position opened")
}

func TestManualLockBlocksBeforeExecution(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.NewSequence(0.1))
	tr.Start()
	tr.SetManualLock(true)

	results := feedRamp(tr, 140)
	for _, r := range results {
		assert.Equal(t, ActionBlocked, r.Action)
		assert.Equal(t, string(risk.LevelManual), r.Level)
	}
	view := tr.Risk()
	assert.True(t, view.ManualLock)
	assert.False(t, view.Allowed)
	assert.True(t, tr.Snapshot().ManualLock)

	tr.SetManualLock(false)
	assert.True(t, tr.Risk().Allowed)
}

func TestResetDailyReturnsPreviousPnL(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.NewSequence(0.1))
	tr.Start()
	feedRamp(tr, 140)

	daily := tr.Snapshot().DailyPnL
	require.Positive(t, daily)
	assert.InDelta(t, daily, tr.ResetDaily(), 0.006)
	assert.Zero(t, tr.Snapshot().DailyPnL)
}

func TestStateRestoreRoundTrip(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.NewSequence(0.1, 0.9))
	tr.Start()
	feedRamp(tr, 140)
	before := tr.Snapshot()

	restored := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.New(3))
	require.NoError(t, restored.Restore(tr.State()))
	after := restored.Snapshot()

	assert.Equal(t, before.Balance, after.Balance)
	assert.Equal(t, before.Peak, after.Peak)
	assert.Equal(t, len(before.Trades), len(after.Trades))
	assert.Equal(t, tr.history.Window("BTC"), restored.history.Window("BTC"))
	assert.False(t, after.Running)

	other := DefaultConfig()
	other.Symbol = "ETH"
	eth := newTrader(t, other, execution.DefaultConfig(), rng.New(3))
	assert.Error(t, eth.Restore(tr.State()))
}

func TestNewRequiresExecutionEngine(t *testing.T) {
	_, err := New(DefaultConfig(), nil, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestDailyLossRollsOverWithTickDay(t *testing.T) {
	exec := execution.New(execution.DefaultConfig(), rng.NewSequence(0.99), zerolog.Nop())
	gov := risk.NewGovernor(risk.Config{MaxDailyLossPct: 0.5, MaxTotalDrawdownPct: 90})
	tr, err := New(immediateConfig(), exec, gov, zerolog.Nop())
	require.NoError(t, err)
	tr.Start()
	var blocks []Block
	tr.OnBlock(func(b Block) { blocks = append(blocks, b) })

	feedRamp(tr, 160)
	require.Negative(t, tr.Snapshot().DailyPnL)
	require.Equal(t, risk.LevelDaily, tr.Risk().Level)
	last := blocks[len(blocks)-1]
	assert.Equal(t, CodeDailyLoss, last.Code)
	assert.Contains(t, last.Reason, "Daily loss")

	tuesday := monday.Add(33 * time.Hour)
	res := tr.Tick("BTC", 260, tuesday)
	assert.NotEqual(t, string(risk.LevelDaily), res.Level)
	assert.Greater(t, tr.Snapshot().DailyPnL, -5.0)
	assert.Less(t, tr.Capital().Total, 1000.0, "rollover resets daily pnl, not capital")
}

func TestRollDayOnlyMovesForward(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.NewSequence(0.1))
	tr.Start()
	feedRamp(tr, 140)
	daily := tr.Snapshot().DailyPnL
	require.Positive(t, daily)

	_, rolled := tr.RollDay(monday.Add(23 * time.Hour))
	assert.False(t, rolled)
	_, rolled = tr.RollDay(monday.Add(-time.Hour))
	assert.False(t, rolled)
	assert.Equal(t, daily, tr.Snapshot().DailyPnL)

	closed, rolled := tr.RollDay(monday.Add(25 * time.Hour))
	assert.True(t, rolled)
	assert.InDelta(t, daily, closed, 0.006)
	assert.Zero(t, tr.Snapshot().DailyPnL)

	_, rolled = tr.RollDay(monday.Add(26 * time.Hour))
	assert.False(t, rolled)
}

func TestRestoreNormalizesCursor(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.NewSequence(0.1))
	st := tr.State()
	st.Cursor = -7

	restored := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.NewSequence(0.1))
	require.NoError(t, restored.Restore(st))
	assert.Equal(t, 1, restored.cursor)

	restored.Start()
	assert.NotPanics(t, func() { feedRamp(restored, 140) })
}

func TestStateCarriesDay(t *testing.T) {
	tr := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.NewSequence(0.1))
	tr.Start()
	feedRamp(tr, 5)
	st := tr.State()
	assert.Equal(t, monday, st.Day)

	restored := newTrader(t, immediateConfig(), execution.DefaultConfig(), rng.NewSequence(0.1))
	require.NoError(t, restored.Restore(st))
	_, rolled := restored.RollDay(monday.Add(2 * time.Hour))
	assert.False(t, rolled)
}
