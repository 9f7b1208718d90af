package scanner

import "github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"

// ScoreLiquidity attaches the composite liquidity score of the candidate's legs.
// Advisory only; it never removes a candidate.
func ScoreLiquidity(c domain.SpreadCandidate) domain.SpreadCandidate {
	contracts := make([]domain.OptionContract, len(c.Legs))
	for i, l := range c.Legs {
		contracts[i] = l.Contract
	}
	c.LiquidityScore = domain.LiquidityScore(contracts)
	return c
}
