// Package fixture serves option chains from a local JSON file, for dry runs
// without a market-data gateway.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/ports"
)

// chainFile is the on-disk layout: one entry per ticker.
type chainFile struct {
	Chains []chainEntry `json:"chains"`
}

type chainEntry struct {
	Ticker    string          `json:"ticker"`
	SpotPrice float64         `json:"spotPrice"`
	Contracts []contractEntry `json:"contracts"`
}

// contractEntry carries either an absolute expiration ("2025-03-21") or a
// day offset from fetch time, so sample files do not go stale.
type contractEntry struct {
	ConID        int     `json:"conid"`
	Strike       float64 `json:"strike"`
	Expiration   string  `json:"expiration,omitempty"`
	DTE          int     `json:"dte,omitempty"`
	Type         string  `json:"type"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	OpenInterest int64   `json:"openInterest"`
	Volume       int64   `json:"volume"`
	ImpliedVol   float64 `json:"impliedVol"`
	Delta        float64 `json:"delta"`
}

// Provider is a ports.ChainProvider backed by a JSON file. The file is read on
// every fetch so it can be edited between scans.
type Provider struct {
	path string
	now  func() time.Time
}

// New returns a Provider reading path.
func New(path string) *Provider {
	return &Provider{path: path, now: time.Now}
}

// WithClock overrides the time used for FetchedAt and relative expirations.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

// FetchChain returns the stored chain for req.Ticker. Contracts are not
// trimmed to the request bounds; the scanner filters them.
func (p *Provider) FetchChain(ctx context.Context, req ports.ChainRequest) (domain.ChainSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChainSnapshot{}, err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return domain.ChainSnapshot{}, fmt.Errorf("fixture.FetchChain: read %q: %w", p.path, err)
	}
	var f chainFile
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.ChainSnapshot{}, fmt.Errorf("fixture.FetchChain: parse %q: %w", p.path, err)
	}

	now := p.now().UTC()
	for _, ch := range f.Chains {
		if !strings.EqualFold(ch.Ticker, req.Ticker) {
			continue
		}
		snap := domain.ChainSnapshot{
			Ticker:    strings.ToUpper(ch.Ticker),
			SpotPrice: ch.SpotPrice,
			FetchedAt: now,
			Contracts: make([]domain.OptionContract, 0, len(ch.Contracts)),
		}
		for i, e := range ch.Contracts {
			oc, err := e.toDomain(snap.Ticker, now)
			if err != nil {
				return domain.ChainSnapshot{}, fmt.Errorf("fixture.FetchChain: %s contract %d: %w", snap.Ticker, i, err)
			}
			snap.Contracts = append(snap.Contracts, oc)
		}
		return snap, nil
	}
	return domain.ChainSnapshot{}, fmt.Errorf("fixture.FetchChain: no chain for %s in %q", req.Ticker, p.path)
}

func (e contractEntry) toDomain(ticker string, now time.Time) (domain.OptionContract, error) {
	typ, ok := domain.ParseOptionType(e.Type)
	if !ok {
		return domain.OptionContract{}, fmt.Errorf("unknown type %q", e.Type)
	}

	exp := domain.DateOnly(now).AddDate(0, 0, e.DTE)
	if e.Expiration != "" {
		t, err := time.ParseInLocation(time.DateOnly, e.Expiration, time.UTC)
		if err != nil {
			return domain.OptionContract{}, fmt.Errorf("expiration: %w", err)
		}
		exp = t
	}

	return domain.OptionContract{
		ConID:        e.ConID,
		Symbol:       ticker,
		Strike:       e.Strike,
		Expiration:   exp,
		Type:         typ,
		Bid:          e.Bid,
		Ask:          e.Ask,
		Last:         e.Last,
		OpenInterest: e.OpenInterest,
		Volume:       e.Volume,
		ImpliedVol:   e.ImpliedVol,
		Delta:        e.Delta,
	}, nil
}
