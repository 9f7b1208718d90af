package scanner

import (
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

// Evaluator prices each candidate twice: at midpoint and at far touch.
type Evaluator struct {
	dealPrice float64
}

// NewEvaluator creates an Evaluator for a deal. The deal price caps a long call's payoff.
func NewEvaluator(deal domain.Deal) *Evaluator {
	return &Evaluator{dealPrice: deal.DealPrice}
}

// Evaluate fills cost, max profit and breakeven of both scenarios.
func (e *Evaluator) Evaluate(c domain.SpreadCandidate) domain.SpreadCandidate {
	mid := domain.PriceStructure(c.Strategy, c.Legs, e.dealPrice, domain.Midpoint)
	far := domain.PriceStructure(c.Strategy, c.Legs, e.dealPrice, domain.FarTouch)

	c.Midpoint = domain.Evaluation{Cost: mid.Cost, MaxProfit: mid.MaxProfit, Breakeven: mid.Breakeven}
	c.FarTouch = domain.Evaluation{Cost: far.Cost, MaxProfit: far.MaxProfit, Breakeven: far.Breakeven}
	return c
}
