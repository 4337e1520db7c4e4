package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	polymarket "github.com/GoPolymarket/polymarket-go-sdk"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/GoPolymarket/paper-engine/internal/api"
	"github.com/GoPolymarket/paper-engine/internal/app"
	"github.com/GoPolymarket/paper-engine/internal/config"
	"github.com/GoPolymarket/paper-engine/internal/feed"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a live paper session",
	Long: `Run a paper session fed by live crypto prices (or a CSV file when
feed.source is csv). The HTTP API, Prometheus metrics, the daily reset and the
snapshot store start according to config. Stops on SIGINT or SIGTERM.

Examples:
  paper-engine run
  paper-engine run --config config.yaml --preset conservative`,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	log.Info().
		Str("symbol", cfg.Session.Symbol).
		Str("preset", cfg.Preset).
		Str("feed", cfg.Feed.Source).
		Float64("initial_capital", cfg.Session.InitialCapital).
		Float64("max_risk_pct", cfg.Execution.MaxRiskPct).
		Float64("max_daily_loss_pct", cfg.Risk.MaxDailyLossPct).
		Msg("paper-engine starting")

	source, closeSource, err := buildSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	a, err := app.New(cfg, source, outcomeSource(cfg.Seed), log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var apiServer *api.Server
	if cfg.API.Enabled {
		var metricsHandler http.Handler
		if reg := a.Metrics(); reg != nil {
			metricsHandler = reg.Handler()
		}
		apiServer = api.NewServer(cfg.API.Addr, a, a.KPI(), metricsHandler, log)
		if err := apiServer.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("api server failed to start")
			apiServer = nil
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Info().Msg("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("run error")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if apiServer != nil {
		_ = apiServer.Shutdown(shutdownCtx)
	}
	a.Shutdown(shutdownCtx)
	return nil
}

// buildSource picks the price feed named by feed.source.
func buildSource(cfg config.Config, log zerolog.Logger) (feed.Source, func(), error) {
	switch cfg.Feed.Source {
	case "csv":
		f, err := os.Open(cfg.Feed.CSVPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv feed: %w", err)
		}
		return feed.NewCSVSource(cfg.Session.Symbol, f), func() { _ = f.Close() }, nil
	default:
		client := polymarket.NewClient()
		symbols := cfg.Feed.Symbols
		if len(symbols) == 0 {
			symbols = []string{cfg.Session.Symbol}
		}
		return feed.NewRTDSSource(client.RTDS, symbols, log), func() {}, nil
	}
}
