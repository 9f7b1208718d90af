package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/config"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/schedule"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/scanner"
)

// runSchedule runs one cycle immediately, then re-scans the configured deals
// on cfg.Schedule.Cron until ctx is cancelled.
func runSchedule(ctx context.Context, svc *scanner.Service, cfg *config.Config) error {
	if len(cfg.Schedule.Deals) == 0 {
		return errors.New("no deals configured under schedule.deals")
	}

	reqs := make([]scanner.ScanRequest, 0, len(cfg.Schedule.Deals))
	for i, dc := range cfg.Schedule.Deals {
		deal, err := dc.Deal()
		if err != nil {
			return fmt.Errorf("schedule.deals[%d]: %w", i, err)
		}
		reqs = append(reqs, scanner.ScanRequest{Deal: deal, Params: cfg.Scanner.Params})
	}

	sch, err := schedule.New(ctx, svc, cfg.Schedule.Cron, reqs)
	if err != nil {
		return err
	}

	slog.Info("schedule mode", "cron", cfg.Schedule.Cron, "deals", len(reqs))
	sch.RunNow()
	sch.Start()
	<-ctx.Done()
	sch.Stop()
	return nil
}
