// Package schedule re-scans a fixed list of deals on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/scanner"
	"github.com/robfig/cron/v3"
)

// Scanner is what a cycle drives; *scanner.Service satisfies it.
type Scanner interface {
	ScanAndReport(ctx context.Context, req scanner.ScanRequest) (domain.ScanResult, error)
}

// Scheduler runs one cycle over every configured deal per cron tick. A tick
// that fires while the previous cycle is still running is skipped.
type Scheduler struct {
	cron     *cron.Cron
	scanner  Scanner
	requests []scanner.ScanRequest
	ctx      context.Context
}

// New registers the cycle under spec (six fields, seconds first, or a
// descriptor such as "@every 15m"). ctx bounds every scan the scheduler starts.
func New(ctx context.Context, s Scanner, spec string, requests []scanner.ScanRequest) (*Scheduler, error) {
	logger := cronLogger{}
	sch := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		scanner:  s,
		requests: requests,
		ctx:      ctx,
	}
	if _, err := sch.cron.AddFunc(spec, sch.RunNow); err != nil {
		return nil, fmt.Errorf("schedule.New: register %q: %w", spec, err)
	}
	return sch, nil
}

// Start starts the cron scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "deals", len(s.requests))
}

// Stop stops future ticks and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunNow runs one cycle synchronously. Deals are scanned in order; a failed
// scan is logged and the cycle moves on.
func (s *Scheduler) RunNow() {
	start := time.Now()
	ok := 0
	for _, req := range s.requests {
		if s.ctx.Err() != nil {
			slog.Info("scan cycle interrupted", "err", s.ctx.Err())
			return
		}
		if _, err := s.scanner.ScanAndReport(s.ctx, req); err != nil {
			slog.Warn("scheduled scan failed",
				"ticker", req.Deal.Ticker,
				"kind", domain.KindOf(err),
				"err", err,
			)
			continue
		}
		ok++
	}
	slog.Info("scan cycle complete",
		"deals", len(s.requests),
		"ok", ok,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
