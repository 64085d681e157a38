package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/selivandex/etf-signals/pkg/models"
)

// Config represents application configuration
type Config struct {
	Universe UniverseConfig `envconfig:"UNIVERSE"`
	Macro    MacroConfig    `envconfig:"MACRO"`
	Labels   LabelConfig    `envconfig:"LABELS"`
	Pipeline PipelineConfig `envconfig:"PIPELINE"`
	Database DatabaseConfig `envconfig:"DATABASE"`
	Archive  ArchiveConfig  `envconfig:"ARCHIVE"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Telegram TelegramConfig `envconfig:"TELEGRAM"`
	Logging  LoggingConfig  `envconfig:"LOGGING"`
}

// UniverseConfig defines the asset basket and its reference proxies
type UniverseConfig struct {
	// Target ETFs that get feature and label rows
	Symbols []string `envconfig:"UNIVERSE_SYMBOLS" default:"SPY,QQQ,DIA,IWM"`
	// Benchmark symbol; its trading dates define the alignment calendar
	Benchmark string `envconfig:"UNIVERSE_BENCHMARK" default:"SPY"`
	// Cross-asset proxies consumed by context features only
	Proxies []string `envconfig:"UNIVERSE_PROXIES" default:"^VIX,^VIX9D,^VVIX,UUP,GLD,USO,HYG,LQD,TLT,RSP"`
}

// MacroConfig controls macro-series ingestion and alignment
type MacroConfig struct {
	Series []string `envconfig:"MACRO_SERIES" default:"DGS2,DGS10,FEDFUNDS,EFFR,T10YIE,BAMLH0A0HYM2,WALCL,RRPONTSYD,SOFR"`
	// MaxGapDays is the forward-fill staleness ceiling in calendar days.
	// A value older than this is left absent rather than stale-filled.
	MaxGapDays int    `envconfig:"MACRO_MAX_GAP_DAYS" default:"7"`
	FredAPIKey string `envconfig:"FRED_API_KEY" required:"false"`
}

// LabelConfig selects the active labeling policy
type LabelConfig struct {
	// Policy is "threshold" (three-class with neutral band) or "binary"
	Policy string `envconfig:"LABEL_POLICY" default:"threshold"`
	// Threshold on the volatility-scaled return; exactly at the boundary
	// classifies as neutral (strict inequality for up/down)
	Threshold float64 `envconfig:"LABEL_THRESHOLD" default:"0.25"`
	// ClipSigma bounds the scaled return for outlier robustness
	ClipSigma float64 `envconfig:"LABEL_CLIP_SIGMA" default:"3.0"`
}

// PipelineConfig controls batch execution
type PipelineConfig struct {
	// Concurrency is the number of assets processed in parallel
	Concurrency    int           `envconfig:"PIPELINE_CONCURRENCY" default:"4"`
	FetchAttempts  int           `envconfig:"PIPELINE_FETCH_ATTEMPTS" default:"4"`
	FetchBackoff   time.Duration `envconfig:"PIPELINE_FETCH_BACKOFF" default:"500ms"`
	MigrationsPath string        `envconfig:"PIPELINE_MIGRATIONS_PATH" default:"./migrations"`
	// Warm-up bars fetched before the requested start so the longest
	// rolling windows (200d SMA, 60d drawdown, lags) are populated
	WarmupTradingDays int `envconfig:"PIPELINE_WARMUP_TRADING_DAYS" default:"260"`
}

// DatabaseConfig represents database connection parameters
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"etfsignals"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// ArchiveConfig enables the optional ClickHouse analytical mirror
type ArchiveConfig struct {
	Enabled  bool   `envconfig:"ARCHIVE_ENABLED" default:"false"`
	Addr     string `envconfig:"ARCHIVE_ADDR" default:"localhost:9000"`
	Database string `envconfig:"ARCHIVE_DATABASE" default:"etfsignals"`
	User     string `envconfig:"ARCHIVE_USER" default:"default"`
	Password string `envconfig:"ARCHIVE_PASSWORD" required:"false"`
}

// RedisConfig enables the optional distributed run lock
type RedisConfig struct {
	Addrs   []string      `envconfig:"REDIS_ADDRS" required:"false"`
	LockTTL time.Duration `envconfig:"REDIS_LOCK_TTL" default:"30m"`
}

// TelegramConfig enables optional run-summary notifications
type TelegramConfig struct {
	BotToken    string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID      int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
	NotifyOnRun bool   `envconfig:"TELEGRAM_NOTIFY_ON_RUN" default:"true"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if len(c.Universe.Symbols) == 0 {
		return fmt.Errorf("at least one universe symbol is required")
	}

	benchmarkOK := false
	for _, s := range c.Universe.Symbols {
		if s == c.Universe.Benchmark {
			benchmarkOK = true
			break
		}
	}
	if !benchmarkOK {
		return fmt.Errorf("benchmark %q must be part of the universe symbols", c.Universe.Benchmark)
	}

	if c.Macro.MaxGapDays < 1 {
		return fmt.Errorf("macro max_gap_days must be at least 1")
	}

	switch models.LabelPolicy(c.Labels.Policy) {
	case models.PolicyThreshold, models.PolicyBinary:
	default:
		return fmt.Errorf("label policy must be %q or %q", models.PolicyThreshold, models.PolicyBinary)
	}

	if c.Labels.Threshold <= 0 {
		return fmt.Errorf("label threshold must be positive")
	}
	if c.Labels.ClipSigma <= 0 {
		return fmt.Errorf("label clip_sigma must be positive")
	}

	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline concurrency must be at least 1")
	}
	if c.Pipeline.WarmupTradingDays < 0 {
		return fmt.Errorf("warmup trading days must not be negative")
	}

	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// LabelPolicy returns the typed active policy
func (c *LabelConfig) LabelPolicy() models.LabelPolicy {
	return models.LabelPolicy(c.Policy)
}
