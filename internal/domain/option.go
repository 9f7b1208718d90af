package domain

import (
	"math"
	"sort"
	"time"
)

// OptionType is the right of an option contract.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// ParseOptionType accepts the usual spellings ("C", "call", "PUT", ...).
func ParseOptionType(s string) (OptionType, bool) {
	switch s {
	case "C", "c", "CALL", "Call", "call":
		return Call, true
	case "P", "p", "PUT", "Put", "put":
		return Put, true
	}
	return "", false
}

// OptionContract is one listed option as quoted by the market-data session.
// Read-only inside the scanner.
type OptionContract struct {
	ConID        int
	Symbol       string
	Strike       float64
	Expiration   time.Time // date only, UTC midnight
	Type         OptionType
	Bid          float64
	Ask          float64
	Last         float64
	OpenInterest int64
	Volume       int64
	ImpliedVol   float64 // annualized, 0.35 = 35%
	Delta        float64
}

// Finite returns the name of the first non-finite price field, or "" when strike,
// bid and ask are all finite.
func (c OptionContract) Finite() string {
	switch {
	case math.IsNaN(c.Strike) || math.IsInf(c.Strike, 0):
		return "strike"
	case math.IsNaN(c.Bid) || math.IsInf(c.Bid, 0):
		return "bid"
	case math.IsNaN(c.Ask) || math.IsInf(c.Ask, 0):
		return "ask"
	}
	return ""
}

// HasTwoSidedQuote reports whether both sides are quoted and not crossed.
// Contracts without it cannot be priced at midpoint or far touch.
func (c OptionContract) HasTwoSidedQuote() bool {
	return c.Bid > 0 && c.Ask > 0 && c.Ask >= c.Bid
}

// Mid returns (bid+ask)/2, or Last when the contract is not two-sided.
func (c OptionContract) Mid() float64 {
	if c.HasTwoSidedQuote() {
		return (c.Bid + c.Ask) / 2
	}
	return c.Last
}

// SpreadPct is the bid-ask width as a fraction of the midpoint.
// Returns +Inf for contracts without a usable quote.
func (c OptionContract) SpreadPct() float64 {
	mid := c.Mid()
	if !c.HasTwoSidedQuote() || mid <= 0 {
		return math.Inf(1)
	}
	return (c.Ask - c.Bid) / mid
}

// ChainSnapshot is the option chain of one ticker at one point in time.
// It has no identity beyond the data supplied for a scan and is never mutated.
type ChainSnapshot struct {
	Ticker    string
	SpotPrice float64
	FetchedAt time.Time
	Contracts []OptionContract
}

// Expirations returns the distinct expirations in ascending order.
func (s ChainSnapshot) Expirations() []time.Time {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, c := range s.Contracts {
		if !seen[c.Expiration] {
			seen[c.Expiration] = true
			out = append(out, c.Expiration)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (negative if b is before a).
func DaysBetween(a, b time.Time) int {
	return int(math.Round(DateOnly(b).Sub(DateOnly(a)).Hours() / 24))
}
