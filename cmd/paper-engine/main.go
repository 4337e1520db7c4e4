package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/GoPolymarket/paper-engine/internal/config"
	"github.com/GoPolymarket/paper-engine/internal/rng"
)

var (
	cfgPath string
	preset  string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "paper-engine",
	Short: "Paper-trading decision engine",
	Long: `paper-engine drives a simulated trading session from a price feed:
signals are confirmed across timeframes, gated by volatility and risk, sized
under human caps and settled against a per-engine, per-venue capital pool.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "Risk preset: conservative|standard|aggressive")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers file, .env, environment and preset, then validates.
func loadConfig() (config.Config, error) {
	config.LoadDotEnv(envFile)
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load config %s: %w", cfgPath, err)
		}
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	p := cfg.Preset
	if strings.TrimSpace(preset) != "" {
		p = preset
	}
	if err := config.ApplyPreset(&cfg, p); err != nil {
		return cfg, fmt.Errorf("invalid preset: %w", err)
	}
	cfg.Preset = p
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.LogFormat == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Str("service", "paper-engine").Logger()
}

// outcomeSource returns nil for seed 0 so the app seeds from the clock.
func outcomeSource(seed uint64) rng.Source {
	if seed == 0 {
		return nil
	}
	return rng.New(seed)
}
