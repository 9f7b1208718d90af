package scanner

import (
	"sort"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

// Rank groups candidates by expiration, orders each group and keeps at most topN
// per group. Groups are concatenated earliest expiration first.
//
// Within a group: midpoint annualized yield desc, liquidity desc, short strike asc,
// then strategy and long strike so equal scores always come out in the same order.
func Rank(cands []domain.SpreadCandidate, topN int) []domain.SpreadCandidate {
	groups := make(map[time.Time][]domain.SpreadCandidate)
	var exps []time.Time
	for _, c := range cands {
		exp := domain.DateOnly(c.Expiration)
		if _, ok := groups[exp]; !ok {
			exps = append(exps, exp)
		}
		groups[exp] = append(groups[exp], c)
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].Before(exps[j]) })

	out := make([]domain.SpreadCandidate, 0, len(cands))
	for _, exp := range exps {
		g := groups[exp]
		sort.SliceStable(g, func(i, j int) bool { return rankLess(g[i], g[j]) })
		if topN > 0 && len(g) > topN {
			g = g[:topN]
		}
		out = append(out, g...)
	}
	return out
}

func rankLess(a, b domain.SpreadCandidate) bool {
	if a.Midpoint.AnnualizedYield != b.Midpoint.AnnualizedYield {
		return a.Midpoint.AnnualizedYield > b.Midpoint.AnnualizedYield
	}
	if a.LiquidityScore != b.LiquidityScore {
		return a.LiquidityScore > b.LiquidityScore
	}
	if a.ShortStrike() != b.ShortStrike() {
		return a.ShortStrike() < b.ShortStrike()
	}
	if a.Strategy != b.Strategy {
		return a.Strategy.Ordinal() < b.Strategy.Ordinal()
	}
	return a.LongStrike() < b.LongStrike()
}
