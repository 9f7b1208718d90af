package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/config"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_SampleFile(t *testing.T) {
	cfg, err := config.Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultScanParameters(), cfg.Scanner.Params)
	assert.Equal(t, 15*time.Minute, cfg.SnapshotTTL())
	require.Len(t, cfg.Schedule.Deals, 1)

	d, err := cfg.Schedule.Deals[0].Deal()
	require.NoError(t, err)
	assert.Equal(t, "ACME", d.Ticker)
	assert.Equal(t, time.Date(2027, 3, 16, 0, 0, 0, 0, time.UTC), d.ExpectedCloseDate)
	require.NotNil(t, d.Confidence)
	assert.Equal(t, 0.8, *d.Confidence)
}

func TestDealConfig_ZeroConfidenceIsKept(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
schedule:
  deals:
    - ticker: acme
      deal_price: 250
      expected_close: "2025-03-16"
      confidence: 0
    - ticker: beta
      deal_price: 40
      expected_close: "2025-06-30"
`))
	require.NoError(t, err)
	require.Len(t, cfg.Schedule.Deals, 2)

	zero, err := cfg.Schedule.Deals[0].Deal()
	require.NoError(t, err)
	require.NotNil(t, zero.Confidence)
	assert.Equal(t, 0.0, *zero.Confidence)

	unset, err := cfg.Schedule.Deals[1].Deal()
	require.NoError(t, err)
	assert.Nil(t, unset.Confidence)
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
scanner:
  params:
    days_before_close: 30
    deal_confidence: 0.9
`))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Scanner.Params.DaysBeforeClose)
	assert.Equal(t, 20.0, cfg.Scanner.Params.StrikeLowerBoundPct)
	assert.Equal(t, 5, cfg.Scanner.Params.TopStrategiesPerExpiration)
	require.NotNil(t, cfg.Scanner.Params.DealConfidence)
	assert.Equal(t, 0.9, *cfg.Scanner.Params.DealConfidence)

	assert.Equal(t, "https://localhost:5001/v1/api", cfg.IBKR.BaseURL)
	assert.Equal(t, 3, cfg.IBKR.MaxRetries)
	assert.Equal(t, uint32(5), cfg.IBKR.BreakerFailures)
	assert.Equal(t, "mascan.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("IBKR_BASE_URL", "https://gateway:5000/v1/api")
	t.Setenv("METRICS_ADDR", ":9102")

	cfg, err := config.Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "https://gateway:5000/v1/api", cfg.IBKR.BaseURL)
	assert.Equal(t, ":9102", cfg.Metrics.Addr)
}

func TestLoad_RejectsInvalidParams(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
scanner:
  params:
    short_strike_lower_pct: 75
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestLoad_RejectsBadDeal(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
schedule:
  deals:
    - ticker: ACME
      deal_price: 250
      expected_close: "March"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule.deals[0]")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
