package scanner

import (
	"math"
	"sort"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/ports"
)

// Bounds are the strike and expiration ranges a scan considers. All inclusive.
type Bounds struct {
	StrikeMin  float64
	StrikeMax  float64
	ExpiryFrom time.Time
	ExpiryTo   time.Time
}

// ComputeBounds derives the ranges from the deal and parameters:
//
//	strikes:     [dealPrice × (1 − lower%), reference × (1 + upper%)]
//	expirations: [close − daysBeforeClose, close + daysAfterClose]
//
// reference is the spot price; when it is unknown the deal price stands in.
func ComputeBounds(deal domain.Deal, spot float64, p domain.ScanParameters) Bounds {
	ref := spot
	if ref <= 0 {
		ref = deal.DealPrice
	}
	closeDate := domain.DateOnly(deal.ExpectedCloseDate)
	return Bounds{
		StrikeMin:  deal.DealPrice * (1 - p.StrikeLowerBoundPct/100),
		StrikeMax:  ref * (1 + p.StrikeUpperBoundPct/100),
		ExpiryFrom: closeDate.AddDate(0, 0, -p.DaysBeforeClose),
		ExpiryTo:   closeDate.AddDate(0, 0, p.DaysAfterClose),
	}
}

// ChainRequest turns bounds into a provider request. Spot is not known before the
// fetch, so the upper strike is taken against the deal price; the filter applies the
// spot-referenced bound once the snapshot is in hand.
func ChainRequest(deal domain.Deal, p domain.ScanParameters) ports.ChainRequest {
	b := ComputeBounds(deal, deal.DealPrice, p)
	return ports.ChainRequest{
		Ticker:     deal.Ticker,
		StrikeMin:  b.StrikeMin,
		StrikeMax:  b.StrikeMax,
		ExpiryFrom: b.ExpiryFrom,
		ExpiryTo:   b.ExpiryTo,
	}
}

// strikeEpsilon absorbs float error in percentage bounds; strikes are quoted in cents.
const strikeEpsilon = 1e-9

// Filter keeps the contracts of a snapshot that fall inside a scan's bounds.
type Filter struct {
	params domain.ScanParameters
}

// NewFilter creates a Filter with the given parameters.
func NewFilter(p domain.ScanParameters) *Filter {
	return &Filter{params: p}
}

// Apply returns a new snapshot with the contracts inside the bounds, ordered by
// expiration, then calls before puts, then strike. Expirations on or before today are
// stale and dropped. An empty result is a NoContractsInRangeError.
func (f *Filter) Apply(snap domain.ChainSnapshot, deal domain.Deal, now time.Time) (domain.ChainSnapshot, error) {
	b := ComputeBounds(deal, snap.SpotPrice, f.params)
	today := domain.DateOnly(now)

	kept := make([]domain.OptionContract, 0, len(snap.Contracts))
	for _, c := range snap.Contracts {
		if f.passes(c, b, today) {
			kept = append(kept, c)
		}
	}

	if len(kept) == 0 {
		return domain.ChainSnapshot{}, domain.NoContractsInRangeError(
			"scanner.Filter.Apply", deal.Ticker,
			b.StrikeMin, b.StrikeMax,
			b.ExpiryFrom.Format(time.DateOnly), b.ExpiryTo.Format(time.DateOnly),
		)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, c := kept[i], kept[j]
		if !a.Expiration.Equal(c.Expiration) {
			return a.Expiration.Before(c.Expiration)
		}
		if a.Type != c.Type {
			return a.Type == domain.Call
		}
		return a.Strike < c.Strike
	})

	return domain.ChainSnapshot{
		Ticker:    snap.Ticker,
		SpotPrice: snap.SpotPrice,
		FetchedAt: snap.FetchedAt,
		Contracts: kept,
	}, nil
}

// passes reports whether a contract lies inside the bounds and is not stale.
// A non-finite strike never passes.
func (f *Filter) passes(c domain.OptionContract, b Bounds, today time.Time) bool {
	if math.IsNaN(c.Strike) || math.IsInf(c.Strike, 0) {
		return false
	}
	if c.Strike < b.StrikeMin-strikeEpsilon || c.Strike > b.StrikeMax+strikeEpsilon {
		return false
	}
	exp := domain.DateOnly(c.Expiration)
	if exp.Before(b.ExpiryFrom) || exp.After(b.ExpiryTo) {
		return false
	}
	return exp.After(today)
}
