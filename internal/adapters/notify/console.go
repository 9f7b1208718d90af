package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implements ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole writes to stdout: one summary line per scan, or the full
// candidate table when table is set.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter is NewConsole over an arbitrary writer.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify prints the scan in the configured mode.
func (c *Console) Notify(_ context.Context, r domain.ScanResult) error {
	if len(r.Candidates) == 0 {
		fmt.Fprintf(c.out, "[%s] %s spot %.2f deal %.2f | no strategies found (%d rejected)\n",
			stamp(r.ScannedAt), r.Ticker, r.SpotPrice, r.DealPrice, r.Rejected)
		return nil
	}

	if c.table {
		c.printFull(r)
	} else {
		c.printCompact(r)
	}
	return nil
}

// printCompact prints the headline numbers and the top candidates on one line.
func (c *Console) printCompact(r domain.ScanResult) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s spot %.2f deal %.2f | %d strategies (%d rejected)",
		stamp(r.ScannedAt), r.Ticker, r.SpotPrice, r.DealPrice, len(r.Candidates), r.Rejected)

	for i, cand := range r.Candidates {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | %s cost %.2f yld %s pop %s",
			cand.Describe(), cand.Midpoint.Cost,
			pct(cand.Midpoint.AnnualizedYield), pct(cand.Midpoint.ProbabilityOfProfit))
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull prints every candidate with both price scenarios.
func (c *Console) printFull(r domain.ScanResult) {
	fmt.Fprintf(c.out, "\n[%s] %s spot %.2f deal %.2f | %d strategies (%d rejected) ref %s\n",
		stamp(r.ScannedAt), r.Ticker, r.SpotPrice, r.DealPrice, len(r.Candidates), r.Rejected, r.Ref)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Expiry", "DTE", "Strategy", "Strikes",
		"Cost mid", "Cost far", "Max profit", "Yield mid", "Yield far", "POP", "E[ret]", "Edge", "Liq")

	for i, cand := range r.Candidates {
		table.Append(
			fmt.Sprintf("%d", i+1),
			cand.Expiration.Format(time.DateOnly),
			fmt.Sprintf("%d", cand.DaysToExpiration),
			string(cand.Strategy),
			strikesLabel(cand),
			fmt.Sprintf("%.2f", cand.Midpoint.Cost),
			fmt.Sprintf("%.2f", cand.FarTouch.Cost),
			fmt.Sprintf("%.2f", cand.Midpoint.MaxProfit),
			pct(cand.Midpoint.AnnualizedYield),
			pct(cand.FarTouch.AnnualizedYield),
			pct(cand.Midpoint.ProbabilityOfProfit),
			pct(cand.Midpoint.ExpectedReturn),
			fmt.Sprintf("%+.1fpp", cand.Midpoint.EdgeVsMarket*100),
			fmt.Sprintf("%.0f", cand.LiquidityScore),
		)
	}
	table.Render()
}

// strikesLabel renders "long/short" for verticals and the single strike otherwise.
func strikesLabel(c domain.SpreadCandidate) string {
	if c.Strategy.IsVertical() {
		return fmt.Sprintf("%.2f/%.2f", c.LongStrike(), c.ShortStrike())
	}
	return fmt.Sprintf("%.2f", c.LongStrike())
}

func pct(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("15:04:05")
}
