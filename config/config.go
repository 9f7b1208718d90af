package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full scanner configuration.
type Config struct {
	Scanner  ScannerConfig  `yaml:"scanner"`
	IBKR     IBKRConfig     `yaml:"ibkr"`
	Storage  StorageConfig  `yaml:"storage"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// ScannerConfig holds the default scan parameters and the snapshot cache TTL.
type ScannerConfig struct {
	Params             domain.ScanParameters `yaml:"params"`
	SnapshotTTLSeconds int                   `yaml:"snapshot_ttl_seconds"`
}

// IBKRConfig points at the Client Portal gateway.
type IBKRConfig struct {
	BaseURL               string  `yaml:"base_url"`
	VerifyTLS             bool    `yaml:"verify_tls"` // the local gateway uses a self-signed cert
	RatePerSec            float64 `yaml:"rate_per_sec"`
	Burst                 int     `yaml:"burst"`
	MaxRetries            int     `yaml:"max_retries"`
	PreflightDelayMs      int     `yaml:"preflight_delay_ms"`
	TimeoutSeconds        int     `yaml:"timeout_seconds"`
	BreakerFailures       uint32  `yaml:"breaker_failures"`
	BreakerTimeoutSeconds int     `yaml:"breaker_timeout_seconds"`
}

// StorageConfig controls where scan history is kept.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// ScheduleConfig lists the deals re-scanned in -schedule mode.
type ScheduleConfig struct {
	Cron  string       `yaml:"cron"` // seconds-first cron spec or "@every 15m"
	Deals []DealConfig `yaml:"deals"`
}

// DealConfig is a deal as written in YAML.
type DealConfig struct {
	Ticker         string   `yaml:"ticker"`
	DealPrice      float64  `yaml:"deal_price"`
	ExpectedClose  string   `yaml:"expected_close"` // YYYY-MM-DD
	Confidence     *float64 `yaml:"confidence"`     // omitted uses the default
	ReferencePrice float64  `yaml:"reference_price"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // e.g. ":9102"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and the .env file if present. Environment values
// override YAML for the keys they cover. Scan parameters missing from the file
// keep their defaults; the result is validated.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg := Config{Scanner: ScannerConfig{Params: domain.DefaultScanParameters()}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate checks the scan parameters and every scheduled deal.
func (c *Config) Validate() error {
	if err := c.Scanner.Params.Validate(); err != nil {
		return fmt.Errorf("scanner.params: %w", err)
	}
	for i, d := range c.Schedule.Deals {
		if _, err := d.Deal(); err != nil {
			return fmt.Errorf("schedule.deals[%d]: %w", i, err)
		}
	}
	return nil
}

// SnapshotTTL returns the snapshot cache TTL.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.Scanner.SnapshotTTLSeconds) * time.Second
}

// Deal converts the YAML form to a validated domain.Deal.
func (d DealConfig) Deal() (domain.Deal, error) {
	closeDate, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(d.ExpectedClose), time.UTC)
	if err != nil {
		return domain.Deal{}, domain.InvalidParameterError("expectedCloseDate", d.ExpectedClose, "expected YYYY-MM-DD")
	}
	deal := domain.Deal{
		Ticker:            strings.ToUpper(strings.TrimSpace(d.Ticker)),
		DealPrice:         d.DealPrice,
		ExpectedCloseDate: closeDate,
		Confidence:        d.Confidence,
		ReferencePrice:    d.ReferencePrice,
	}
	if err := deal.Validate(); err != nil {
		return domain.Deal{}, err
	}
	return deal, nil
}

// applyEnvOverrides overwrites values with environment variables when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("IBKR_BASE_URL"); v != "" {
		cfg.IBKR.BaseURL = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("SCHEDULE_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
}

// setDefaults fills required values left empty.
func setDefaults(cfg *Config) {
	if cfg.Scanner.SnapshotTTLSeconds <= 0 {
		cfg.Scanner.SnapshotTTLSeconds = 900
	}
	if cfg.IBKR.BaseURL == "" {
		cfg.IBKR.BaseURL = "https://localhost:5001/v1/api"
	}
	if cfg.IBKR.RatePerSec <= 0 {
		cfg.IBKR.RatePerSec = 8
	}
	if cfg.IBKR.Burst <= 0 {
		cfg.IBKR.Burst = 4
	}
	if cfg.IBKR.MaxRetries <= 0 {
		cfg.IBKR.MaxRetries = 3
	}
	if cfg.IBKR.PreflightDelayMs <= 0 {
		cfg.IBKR.PreflightDelayMs = 500
	}
	if cfg.IBKR.TimeoutSeconds <= 0 {
		cfg.IBKR.TimeoutSeconds = 15
	}
	if cfg.IBKR.BreakerFailures == 0 {
		cfg.IBKR.BreakerFailures = 5
	}
	if cfg.IBKR.BreakerTimeoutSeconds <= 0 {
		cfg.IBKR.BreakerTimeoutSeconds = 30
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "mascan.db"
	}
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "0 */15 9-16 * * 1-5"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
