package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoPolymarket/paper-engine/internal/app"
	"github.com/GoPolymarket/paper-engine/internal/feed"
	"github.com/GoPolymarket/paper-engine/internal/paper"
	"github.com/GoPolymarket/paper-engine/internal/performance"
)

var (
	replayCSV    string
	replaySymbol string
	replaySeed   uint64
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a CSV price file through an offline session",
	Long: `Replay reads timestamp,price rows and drives a fresh session through
them with the API, snapshot store and notifications disabled. The final
snapshot, capital table and per-engine performance are printed as JSON.

Examples:
  paper-engine replay --csv prices.csv
  paper-engine replay --csv prices.csv --seed 42 --preset aggressive`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayCSV, "csv", "", "CSV file of timestamp,price rows")
	replayCmd.Flags().StringVar(&replaySymbol, "symbol", "", "Symbol to tag rows with (default: session symbol)")
	replayCmd.Flags().Uint64Var(&replaySeed, "seed", 0, "Outcome seed (default: config seed)")
	_ = replayCmd.MarkFlagRequired("csv")
}

type replayReport struct {
	Snapshot    paper.Snapshot               `json:"snapshot"`
	Capital     paper.CapitalView            `json:"capital"`
	Performance map[string]performance.Stats `json:"performance"`
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.API.Enabled = false
	cfg.Store.Enabled = false
	cfg.Telegram.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Feed.Source = "csv"
	cfg.Feed.CSVPath = replayCSV
	if replaySymbol != "" {
		cfg.Session.Symbol = replaySymbol
	}
	if replaySeed != 0 {
		cfg.Seed = replaySeed
	}
	log := newLogger(cfg)

	f, err := os.Open(replayCSV)
	if err != nil {
		return fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	a, err := app.New(cfg, feed.NewCSVSource(cfg.Session.Symbol, f), outcomeSource(cfg.Seed), log)
	if err != nil {
		return err
	}
	if err := a.Run(context.Background()); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	a.Shutdown(context.Background())

	report := replayReport{
		Snapshot:    a.Snapshot(),
		Capital:     a.Capital(),
		Performance: a.AllPerformanceStats(),
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
