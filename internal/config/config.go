package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/GoPolymarket/paper-engine/internal/risk"
)

type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// Seed fixes the outcome generator; 0 seeds from the clock.
	Seed   uint64 `yaml:"seed"`
	Preset string `yaml:"preset"`

	Session    SessionConfig    `yaml:"session"`
	Execution  ExecutionConfig  `yaml:"execution"`
	Risk       RiskConfig       `yaml:"risk"`
	Allocator  AllocatorConfig  `yaml:"allocator"`
	Volatility VolatilityConfig `yaml:"volatility"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Feed       FeedConfig       `yaml:"feed"`
	API        APIConfig        `yaml:"api"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Store      StoreConfig      `yaml:"store"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type SessionConfig struct {
	Symbol         string   `yaml:"symbol"`
	InitialCapital float64  `yaml:"initial_capital"`
	Engines        []string `yaml:"engines"`
	Venues         []string `yaml:"venues"`
	ReservePct     float64  `yaml:"reserve_pct"`
	Retention      int      `yaml:"retention"`
	HistorySize    int      `yaml:"history_size"`
	HoldTicks      int      `yaml:"hold_ticks"`
}

type ExecutionConfig struct {
	RequestedRiskPct float64           `yaml:"requested_risk_pct"`
	Leverage         float64           `yaml:"leverage"`
	MaxRiskPct       float64           `yaml:"max_risk_pct"`
	MaxLeverage      float64           `yaml:"max_leverage"`
	CapitalFloor     float64           `yaml:"capital_floor"`
	StreakRules      []risk.StreakRule `yaml:"streak_rules"`
	LongStride       int               `yaml:"long_stride"`
	WinPayoff        float64           `yaml:"win_payoff"`
	LossPayoff       float64           `yaml:"loss_payoff"`
	RangePenalty     float64           `yaml:"range_penalty"`
}

type RiskConfig struct {
	MaxDailyLossPct     float64 `yaml:"max_daily_loss_pct"`
	MaxTotalDrawdownPct float64 `yaml:"max_total_drawdown_pct"`
	ManualLock          bool    `yaml:"manual_lock"`
}

type AllocatorConfig struct {
	Floor          float64 `yaml:"floor"`
	TransferPct    float64 `yaml:"transfer_pct"`
	RotationPct    float64 `yaml:"rotation_pct"`
	RebalanceEvery int     `yaml:"rebalance_every"`
	MinTrades      int     `yaml:"min_trades"`
}

type VolatilityConfig struct {
	Window     int     `yaml:"window"`
	CeilingPct float64 `yaml:"ceiling_pct"`
}

type CalendarConfig struct {
	Blackout  bool          `yaml:"blackout"`
	StartDay  string        `yaml:"start_day"`
	StartHour int           `yaml:"start_hour"`
	Duration  time.Duration `yaml:"duration"`
}

// SchedulerConfig holds cron expressions evaluated in UTC.
type SchedulerConfig struct {
	DailyReset string `yaml:"daily_reset"`
	Snapshot   string `yaml:"snapshot"`
}

type FeedConfig struct {
	Source  string   `yaml:"source"`
	Symbols []string `yaml:"symbols"`
	CSVPath string   `yaml:"csv_path"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type TelegramConfig struct {
	Enabled            bool          `yaml:"enabled"`
	BotToken           string        `yaml:"bot_token"`
	ChatID             string        `yaml:"chat_id"`
	BlockAlertInterval time.Duration `yaml:"block_alert_interval"`
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "console",
		Preset:    "standard",
		Session: SessionConfig{
			Symbol:         "btcusdt",
			InitialCapital: 1000,
			Engines:        []string{"scalp", "session"},
			Venues:         []string{"coinbase", "kraken"},
			ReservePct:     0.2,
			Retention:      500,
			HistorySize:    200,
			HoldTicks:      3,
		},
		Execution: ExecutionConfig{
			RequestedRiskPct: 2,
			Leverage:         1,
			MaxRiskPct:       5,
			MaxLeverage:      3,
			CapitalFloor:     50,
			StreakRules:      risk.DefaultStreakRules(),
			LongStride:       5,
			WinPayoff:        0.8,
			LossPayoff:       0.6,
			RangePenalty:     0.05,
		},
		Risk: RiskConfig{
			MaxDailyLossPct:     5,
			MaxTotalDrawdownPct: 25,
		},
		Allocator: AllocatorConfig{
			Floor:          100,
			TransferPct:    0.05,
			RotationPct:    0.1,
			RebalanceEvery: 10,
			MinTrades:      10,
		},
		Volatility: VolatilityConfig{
			Window:     20,
			CeilingPct: 2,
		},
		Calendar: CalendarConfig{
			Blackout:  true,
			StartDay:  "friday",
			StartHour: 18,
			Duration:  36 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			DailyReset: "0 0 * * *",
			Snapshot:   "*/5 * * * *",
		},
		Feed: FeedConfig{
			Source:  "rtds",
			Symbols: []string{"btcusdt"},
		},
		API: APIConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Telegram: TelegramConfig{
			BlockAlertInterval: time.Minute,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "data/session.msgpack",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("PAPER_LOG_LEVEL")); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("PAPER_PRESET")); v != "" {
		c.Preset = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("PAPER_SYMBOL")); v != "" {
		c.Session.Symbol = v
	}
	if v := strings.TrimSpace(os.Getenv("PAPER_INITIAL_CAPITAL")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Session.InitialCapital = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("PAPER_SEED")); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Seed = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("PAPER_MANUAL_LOCK")); v != "" {
		c.Risk.ManualLock = strings.EqualFold(v, "true") || v == "1"
	}
	if v := strings.TrimSpace(os.Getenv("PAPER_API_ADDR")); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv("PAPER_STORE_PATH")); v != "" {
		c.Store.Path = v
	}
}
