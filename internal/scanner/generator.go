package scanner

import (
	"sort"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

// Generator enumerates candidate structures from a filtered chain. It assigns the
// strategy type and leg sides; pricing is left to the evaluator.
type Generator struct {
	params domain.ScanParameters
}

// NewGenerator creates a Generator with the given parameters.
func NewGenerator(p domain.ScanParameters) *Generator {
	return &Generator{params: p}
}

// ShortBand is the range a short strike (or a single long strike) must fall in:
// [dealPrice × (1 − shortLower%), dealPrice × (1 + shortUpper%)].
func ShortBand(deal domain.Deal, p domain.ScanParameters) (lo, hi float64) {
	return deal.DealPrice * (1 - p.ShortStrikeLowerPct/100),
		deal.DealPrice * (1 + p.ShortStrikeUpperPct/100)
}

// Generate walks each expiration and option type. For every pair of adjacent
// priceable strikes no wider than MaxSpreadWidth it emits each orientation whose
// short strike is in the band; every priceable contract in the band also yields a
// single long. Contracts without a two-sided quote are skipped.
func (g *Generator) Generate(snap domain.ChainSnapshot, deal domain.Deal) []domain.SpreadCandidate {
	bandLo, bandHi := ShortBand(deal, g.params)
	inBand := func(k float64) bool {
		return k >= bandLo-strikeEpsilon && k <= bandHi+strikeEpsilon
	}

	type key struct {
		exp time.Time
		typ domain.OptionType
	}
	groups := make(map[key][]domain.OptionContract)
	var keys []key
	for _, c := range snap.Contracts {
		if !c.HasTwoSidedQuote() {
			continue
		}
		k := key{domain.DateOnly(c.Expiration), c.Type}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], c)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].exp.Equal(keys[j].exp) {
			return keys[i].exp.Before(keys[j].exp)
		}
		return keys[i].typ == domain.Call && keys[j].typ != domain.Call
	})

	var out []domain.SpreadCandidate
	for _, k := range keys {
		strikes := distinctByStrike(groups[k])

		for _, c := range strikes {
			if !inBand(c.Strike) {
				continue
			}
			st := domain.CallLong
			if c.Type == domain.Put {
				st = domain.PutLong
			}
			out = append(out, candidate(st, k.exp, leg(c, domain.Buy)))
		}

		for i := 0; i+1 < len(strikes); i++ {
			lo, hi := strikes[i], strikes[i+1]
			if hi.Strike-lo.Strike > g.params.MaxSpreadWidth+strikeEpsilon {
				continue
			}
			out = append(out, verticals(k.typ, k.exp, lo, hi, inBand)...)
		}
	}
	return out
}

// verticals builds the debit and credit orientations of one adjacent pair, keeping
// those whose short strike is in the band.
func verticals(typ domain.OptionType, exp time.Time, lo, hi domain.OptionContract, inBand func(float64) bool) []domain.SpreadCandidate {
	var out []domain.SpreadCandidate
	if typ == domain.Call {
		if inBand(hi.Strike) {
			out = append(out, candidate(domain.CallDebitVertical, exp, leg(lo, domain.Buy), leg(hi, domain.Sell)))
		}
		if inBand(lo.Strike) {
			out = append(out, candidate(domain.CallCreditVertical, exp, leg(lo, domain.Sell), leg(hi, domain.Buy)))
		}
		return out
	}
	if inBand(lo.Strike) {
		out = append(out, candidate(domain.PutDebitVertical, exp, leg(lo, domain.Sell), leg(hi, domain.Buy)))
	}
	if inBand(hi.Strike) {
		out = append(out, candidate(domain.PutCreditVertical, exp, leg(lo, domain.Buy), leg(hi, domain.Sell)))
	}
	return out
}

// distinctByStrike sorts by strike and keeps the first contract quoted at each strike.
func distinctByStrike(cs []domain.OptionContract) []domain.OptionContract {
	sorted := make([]domain.OptionContract, len(cs))
	copy(sorted, cs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Strike < sorted[j].Strike })

	out := make([]domain.OptionContract, 0, len(sorted))
	for _, c := range sorted {
		if n := len(out); n > 0 && out[n-1].Strike == c.Strike {
			continue
		}
		out = append(out, c)
	}
	return out
}

func leg(c domain.OptionContract, side domain.Side) domain.OptionLeg {
	return domain.OptionLeg{Contract: c, Side: side, Quantity: 1}
}

func candidate(st domain.StrategyType, exp time.Time, legs ...domain.OptionLeg) domain.SpreadCandidate {
	return domain.SpreadCandidate{Strategy: st, Expiration: exp, Legs: legs}
}
