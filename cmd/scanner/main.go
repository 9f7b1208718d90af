package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/config"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/adapters/fixture"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/adapters/ibkr"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/adapters/notify"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/adapters/storage"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/marketdata"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/metrics"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/ports"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/scanner"
)

// paramFlags collects repeated -param key=value flags.
type paramFlags map[string]string

func (p paramFlags) String() string { return fmt.Sprint(map[string]string(p)) }

func (p paramFlags) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	p[strings.TrimSpace(k)] = val
	return nil
}

// optionalFloat is a float flag that remembers whether it was given.
type optionalFloat struct{ v *float64 }

func (o *optionalFloat) String() string {
	if o.v == nil {
		return ""
	}
	return strconv.FormatFloat(*o.v, 'f', -1, 64)
}

func (o *optionalFloat) Set(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	o.v = &f
	return nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	ticker := flag.String("ticker", "", "target ticker to scan")
	dealPrice := flag.Float64("deal-price", 0, "per-share deal consideration")
	closeDate := flag.String("close", "", "expected close date (YYYY-MM-DD)")
	var confidence optionalFloat
	flag.Var(&confidence, "confidence", "probability the deal closes (0-1), omitted uses the default")
	refPrice := flag.Float64("reference-price", 0, "unaffected price if the deal breaks, 0 estimates it")
	params := paramFlags{}
	flag.Var(params, "param", "scan parameter override key=value (repeatable), e.g. daysBeforeClose=30")
	dryRun := flag.Bool("dry-run", false, "read chains from the fixture file and skip storage")
	fixturePath := flag.String("fixture", "testdata/fixtures/option_chains.json", "chain fixture used by -dry-run")
	scheduleMode := flag.Bool("schedule", false, "re-scan the configured deals on the configured cron")
	table := flag.Bool("table", false, "print the full candidate table")
	asJSON := flag.Bool("json", false, "print the scan result as JSON")
	watch := flag.Int("watch", 0, "persist the N-th candidate of the scan as watched (1-based)")
	history := flag.Bool("history", false, "print stored scan history and watched candidates, then exit")
	unwatch := flag.String("unwatch", "", "remove a watched candidate by ID, then exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("ma-scanner starting",
		"config", *configPath,
		"dry_run", *dryRun,
		"schedule", *scheduleMode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store ports.CandidateStore
	var sqlStore *storage.SQLiteStorage
	if !*dryRun {
		sqlStore, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	if *history || *unwatch != "" {
		if store == nil {
			slog.Error("history commands need storage; drop -dry-run")
			os.Exit(1)
		}
		if err := runHistory(ctx, os.Stdout, store, *ticker, *unwatch); err != nil {
			slog.Error("history command failed", "err", err)
			os.Exit(1)
		}
		return
	}

	recorder := metrics.New()
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, recorder)
		defer shutdown(srv)
	}

	var provider ports.ChainProvider
	if *dryRun {
		provider = fixture.New(*fixturePath)
	} else {
		provider = ibkr.NewClient(ibkrConfig(cfg.IBKR))
	}
	session := marketdata.New(provider, recorder)

	scanCfg := scanner.DefaultConfig()
	scanCfg.Params = cfg.Scanner.Params
	scanCfg.SnapshotTTL = cfg.SnapshotTTL()

	var notifier ports.Notifier = notify.NewConsole(*table)
	if *asJSON {
		notifier = notify.NewJSON(os.Stdout)
	}

	svc := scanner.New(scanCfg, session, store, notifier, scanner.WithMetrics(recorder))

	if *scheduleMode {
		if err := runSchedule(ctx, svc, cfg); err != nil {
			slog.Error("scheduler exited with error", "err", err)
			os.Exit(1)
		}
		slog.Info("ma-scanner stopped cleanly")
		return
	}

	req, err := buildRequest(svc.DefaultParams(), *ticker, *dealPrice, *closeDate, confidence.v, *refPrice, params)
	if err != nil {
		slog.Error("invalid scan request", "err", err)
		os.Exit(2)
	}

	res, err := svc.ScanAndReport(ctx, req)
	if err != nil {
		slog.Error("scan failed", "ticker", req.Deal.Ticker, "kind", domain.KindOf(err), "err", err)
		os.Exit(1)
	}

	if *watch > 0 {
		if *watch > len(res.Candidates) {
			slog.Error("watch index out of range", "watch", *watch, "candidates", len(res.Candidates))
			os.Exit(2)
		}
		id, err := svc.Watch(ctx, res.Ticker, res.Candidates[*watch-1])
		if err != nil {
			slog.Error("watch failed", "err", err)
			os.Exit(1)
		}
		slog.Info("candidate watched", "id", id, "label", res.Candidates[*watch-1].Describe())
	}
}

// buildRequest assembles a scan request from flags over the configured defaults.
func buildRequest(defaults domain.ScanParameters, ticker string, dealPrice float64, closeDate string,
	confidence *float64, refPrice float64, overrides map[string]string,
) (scanner.ScanRequest, error) {
	deal, err := config.DealConfig{
		Ticker:         ticker,
		DealPrice:      dealPrice,
		ExpectedClose:  closeDate,
		Confidence:     confidence,
		ReferencePrice: refPrice,
	}.Deal()
	if err != nil {
		return scanner.ScanRequest{}, err
	}

	p, err := domain.ApplyScanParameters(defaults, overrides)
	if err != nil {
		return scanner.ScanRequest{}, err
	}
	return scanner.ScanRequest{Deal: deal, Params: p}, nil
}

func ibkrConfig(c config.IBKRConfig) ibkr.Config {
	return ibkr.Config{
		BaseURL:            c.BaseURL,
		InsecureSkipVerify: !c.VerifyTLS,
		RatePerSec:         c.RatePerSec,
		Burst:              c.Burst,
		MaxRetries:         c.MaxRetries,
		PreflightDelay:     time.Duration(c.PreflightDelayMs) * time.Millisecond,
		Timeout:            time.Duration(c.TimeoutSeconds) * time.Second,
		BreakerFailures:    c.BreakerFailures,
		BreakerTimeout:     time.Duration(c.BreakerTimeoutSeconds) * time.Second,
	}
}

func serveMetrics(addr string, rec *metrics.Recorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err, "addr", addr)
		}
	}()
	slog.Info("metrics listening", "addr", addr)
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
