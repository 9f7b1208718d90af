package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/ports"
	"github.com/olekukonko/tablewriter"
)

const historyWindow = 30 * 24 * time.Hour

// runHistory prints the last 30 days of scans and the watched candidates for
// ticker (all tickers when empty), or removes one watched candidate.
func runHistory(ctx context.Context, w io.Writer, store ports.CandidateStore, ticker, unwatchID string) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if unwatchID != "" {
		if err := store.Unwatch(ctx, unwatchID); err != nil {
			return fmt.Errorf("unwatch %s: %w", unwatchID, err)
		}
		fmt.Fprintf(w, "removed watched candidate %s\n", unwatchID)
		return nil
	}

	now := time.Now().UTC()
	scans, err := store.GetHistory(ctx, ticker, now.Add(-historyWindow), now)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	fmt.Fprintf(w, "\nScans since %s (%d)\n", now.Add(-historyWindow).Format(time.DateOnly), len(scans))
	table := tablewriter.NewWriter(w)
	table.Header("Scanned", "Ticker", "Spot", "Deal", "Strategies", "Rejected", "Best", "Yield")
	for _, s := range scans {
		table.Append(
			s.ScannedAt.Local().Format("2006-01-02 15:04"),
			s.Ticker,
			fmt.Sprintf("%.2f", s.SpotPrice),
			fmt.Sprintf("%.2f", s.DealPrice),
			fmt.Sprintf("%d", s.CandidateCount),
			fmt.Sprintf("%d", s.Rejected),
			s.BestLabel,
			fmt.Sprintf("%.1f%%", s.BestYield*100),
		)
	}
	table.Render()

	watched, err := store.ListWatched(ctx, ticker)
	if err != nil {
		return fmt.Errorf("watched: %w", err)
	}
	fmt.Fprintf(w, "\nWatched candidates (%d)\n", len(watched))
	wt := tablewriter.NewWriter(w)
	wt.Header("ID", "Ticker", "Candidate", "Since")
	for _, c := range watched {
		wt.Append(c.ID, c.Ticker, c.Label, c.CreatedAt.Local().Format(time.DateOnly))
	}
	wt.Render()
	return nil
}
