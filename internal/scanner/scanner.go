package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/marketdata"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/metrics"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/ports"
	"github.com/google/uuid"
)

// Config holds the scan service settings.
type Config struct {
	// Params are the defaults applied when a request carries none.
	Params domain.ScanParameters
	// SnapshotTTL is how long a fetched chain stays available to GenerateStrategies.
	SnapshotTTL time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Params:      domain.DefaultScanParameters(),
		SnapshotTTL: 15 * time.Minute,
	}
}

// ScanRequest is one deal to scan with its parameters.
type ScanRequest struct {
	Deal   domain.Deal
	Params domain.ScanParameters
}

// Service runs the two-step scan: fetch a chain through the market-data session,
// then generate strategies from the cached snapshot.
type Service struct {
	cfg       Config
	session   *marketdata.Session
	store     ports.CandidateStore
	notifier  ports.Notifier
	metrics   *metrics.Recorder
	snapshots *snapshotStore
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics attaches a Prometheus recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// New creates a Service. store and notifier may be nil.
func New(
	cfg Config,
	session *marketdata.Session,
	store ports.CandidateStore,
	notifier ports.Notifier,
	opts ...Option,
) *Service {
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = DefaultConfig().SnapshotTTL
	}
	s := &Service{
		cfg:      cfg,
		session:  session,
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshots = newSnapshotStore(cfg.SnapshotTTL, s.now)
	return s
}

// DefaultParams returns the parameters configured for this service.
func (s *Service) DefaultParams() domain.ScanParameters {
	return s.cfg.Params
}

// FetchChain validates the request, fetches the chain and caches it under a new
// reference. Invalid parameters are rejected before the session is touched.
func (s *Service) FetchChain(ctx context.Context, req ScanRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", fmt.Errorf("scanner.FetchChain: %w", err)
	}

	start := time.Now()
	snap, err := s.session.FetchChain(ctx, ChainRequest(req.Deal, req.Params))
	s.metrics.RecordFetch(req.Deal.Ticker, time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", fmt.Errorf("scanner.FetchChain: %w", err)
		}
		return "", fmt.Errorf("scanner.FetchChain: %w",
			domain.ConnectionError("fetch chain", req.Deal.Ticker, err))
	}
	if snap.Ticker == "" {
		snap.Ticker = req.Deal.Ticker
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = s.now()
	}

	ref := uuid.New().String()
	s.snapshots.put(ref, snap)
	slog.Info("chain cached",
		"ticker", snap.Ticker,
		"ref", ref,
		"spot", snap.SpotPrice,
		"contracts", len(snap.Contracts),
		"cached", s.snapshots.size(),
	)
	return ref, nil
}

// GenerateStrategies runs the pipeline on a cached snapshot.
func (s *Service) GenerateStrategies(_ context.Context, ref string, deal domain.Deal, params domain.ScanParameters) (domain.ScanResult, error) {
	if err := validateRequest(ScanRequest{Deal: deal, Params: params}); err != nil {
		return domain.ScanResult{}, fmt.Errorf("scanner.GenerateStrategies: %w", err)
	}
	snap, ok := s.snapshots.get(ref)
	if !ok {
		return domain.ScanResult{}, fmt.Errorf("scanner.GenerateStrategies: %w",
			domain.InvalidParameterError("ref", ref, "unknown or expired snapshot"))
	}

	now := s.now()
	res, err := NewPipeline(params).Run(snap, deal, now)
	if err != nil {
		s.metrics.RecordScan(deal.Ticker, outcomeOf(err))
		return domain.ScanResult{}, fmt.Errorf("scanner.GenerateStrategies: %w", err)
	}
	s.metrics.RecordScan(deal.Ticker, "ok")
	s.metrics.RecordCandidates(deal.Ticker, len(res.Candidates), res.Rejected)

	return domain.ScanResult{
		Ref:        ref,
		Ticker:     deal.Ticker,
		ScannedAt:  now,
		SpotPrice:  snap.SpotPrice,
		DealPrice:  deal.DealPrice,
		Candidates: res.Candidates,
		Rejected:   res.Rejected,
	}, nil
}

// Scan fetches and generates in one call.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (domain.ScanResult, error) {
	ref, err := s.FetchChain(ctx, req)
	if err != nil {
		s.metrics.RecordScan(req.Deal.Ticker, outcomeOf(err))
		return domain.ScanResult{}, err
	}
	return s.GenerateStrategies(ctx, ref, req.Deal, req.Params)
}

// ScanAndReport runs a scan, then notifies and persists the result. Notifier and
// storage failures are logged; only scan failures are returned.
func (s *Service) ScanAndReport(ctx context.Context, req ScanRequest) (domain.ScanResult, error) {
	start := time.Now()

	res, err := s.Scan(ctx, req)
	if err != nil {
		return domain.ScanResult{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, res); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	if s.store != nil {
		if err := s.store.SaveScan(ctx, domain.NewScanRecord(res)); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	slog.Info("scan complete",
		"ticker", res.Ticker,
		"candidates", len(res.Candidates),
		"rejected", res.Rejected,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

// Watch persists a candidate as a watched record and returns its ID.
func (s *Service) Watch(ctx context.Context, ticker string, c domain.SpreadCandidate) (string, error) {
	if s.store == nil {
		return "", errors.New("scanner.Watch: no candidate store configured")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("scanner.Watch: marshal: %w", err)
	}
	w := domain.WatchedCandidate{
		ID:        uuid.New().String(),
		Ticker:    ticker,
		Label:     c.Describe(),
		Payload:   payload,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.WatchCandidate(ctx, w); err != nil {
		return "", fmt.Errorf("scanner.Watch: %w", err)
	}
	return w.ID, nil
}

func validateRequest(req ScanRequest) error {
	if err := req.Params.Validate(); err != nil {
		return err
	}
	return req.Deal.Validate()
}

func outcomeOf(err error) string {
	if k := domain.KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELLED"
	}
	return "ERROR"
}
