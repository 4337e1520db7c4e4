package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoPolymarket/paper-engine/internal/paper"
	"github.com/GoPolymarket/paper-engine/internal/performance"
)

// Registry holds the session's Prometheus collectors on a private registry
// so tests and multiple sessions never collide on the default one.
type Registry struct {
	reg *prometheus.Registry

	Ticks        *prometheus.CounterVec
	Blocks       *prometheus.CounterVec
	Settlements  *prometheus.CounterVec
	PnL          *prometheus.CounterVec
	Capital      *prometheus.GaugeVec
	TotalCapital prometheus.Gauge
	PeakCapital  prometheus.Gauge
	DrawdownPct  prometheus.Gauge
	DailyPnL     prometheus.Gauge
	ManualLock   prometheus.Gauge
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paper_engine_ticks_total",
				Help: "Price ticks processed, by resulting action",
			},
			[]string{"action"},
		),
		Blocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paper_engine_blocks_total",
				Help: "Blocked decisions by level and reason code",
			},
			[]string{"level", "code"},
		),
		Settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paper_engine_settlements_total",
				Help: "Realized trades by engine, venue and outcome",
			},
			[]string{"engine", "venue", "outcome"},
		),
		PnL: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paper_engine_pnl_gross",
				Help: "Gross realized profit and loss magnitude by engine and side",
			},
			[]string{"engine", "side"},
		),
		Capital: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "paper_engine_cell_capital",
				Help: "Capital allocated to each engine and venue",
			},
			[]string{"engine", "venue"},
		),
		TotalCapital: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paper_engine_total_capital",
			Help: "Reserve plus all allocated capital",
		}),
		PeakCapital: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paper_engine_peak_capital",
			Help: "Highest total capital observed",
		}),
		DrawdownPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paper_engine_drawdown_pct",
			Help: "Decline of total capital from its peak, 0-100",
		}),
		DailyPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paper_engine_daily_pnl",
			Help: "Realized PnL since the last daily reset",
		}),
		ManualLock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paper_engine_manual_lock",
			Help: "1 while the operator kill switch is engaged",
		}),
	}
	r.reg.MustRegister(
		r.Ticks, r.Blocks, r.Settlements, r.PnL, r.Capital,
		r.TotalCapital, r.PeakCapital, r.DrawdownPct, r.DailyPnL, r.ManualLock,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) ObserveTick(res paper.TickResult) {
	r.Ticks.WithLabelValues(string(res.Action)).Inc()
}

// ObserveBlock counts a block by its code. The free-form reason stays in
// logs so label cardinality is bounded.
func (r *Registry) ObserveBlock(b paper.Block) {
	code := b.Code
	if code == "" {
		code = "other"
	}
	r.Blocks.WithLabelValues(b.Level, code).Inc()
}

func (r *Registry) ObserveSettlement(t performance.Trade) {
	outcome, side := "loss", "loss"
	amount := -t.PnL
	if t.IsWin {
		outcome, side = "win", "profit"
		amount = t.PnL
	}
	r.Settlements.WithLabelValues(t.Engine, t.Venue, outcome).Inc()
	if amount > 0 {
		r.PnL.WithLabelValues(t.Engine, side).Add(amount)
	}
}

// ObserveSession copies the session's capital and risk gauges.
func (r *Registry) ObserveSession(snap paper.Snapshot, capital paper.CapitalView) {
	for _, c := range capital.Cells {
		r.Capital.WithLabelValues(c.Engine, c.Venue).Set(c.Capital)
	}
	r.TotalCapital.Set(capital.Total)
	r.PeakCapital.Set(capital.Peak)
	r.DrawdownPct.Set(capital.DrawdownPct)
	r.DailyPnL.Set(snap.DailyPnL)
	lock := 0.0
	if snap.ManualLock {
		lock = 1
	}
	r.ManualLock.Set(lock)
}
