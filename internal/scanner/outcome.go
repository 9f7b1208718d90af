package scanner

import (
	"math"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

const daysPerYear = 365.0

// OutcomeModel turns deal mechanics into probability of profit and returns.
//
// Probability of profit blends two scenarios weighted by deal confidence c:
//
//	P = c · P(threshold cleared | centered on dealPrice)
//	  + (1 − c) · P(threshold cleared | centered on breakPrice)
//
// each a zero-drift lognormal with the expiration's median implied vol.
type OutcomeModel struct {
	dealPrice  float64
	confidence float64
	breakPrice float64
	spot       float64
	vols       map[time.Time]float64
	today      time.Time
}

// NewOutcomeModel prepares the model for one filtered snapshot.
func NewOutcomeModel(snap domain.ChainSnapshot, deal domain.Deal, p domain.ScanParameters, now time.Time) *OutcomeModel {
	conf := p.Confidence(deal)
	spot := snap.SpotPrice
	if spot <= 0 {
		spot = deal.DealPrice
	}

	byExp := make(map[time.Time][]domain.OptionContract)
	for _, c := range snap.Contracts {
		exp := domain.DateOnly(c.Expiration)
		byExp[exp] = append(byExp[exp], c)
	}
	vols := make(map[time.Time]float64, len(byExp))
	for exp, cs := range byExp {
		vols[exp] = domain.MedianIV(cs)
	}

	return &OutcomeModel{
		dealPrice:  deal.DealPrice,
		confidence: conf,
		breakPrice: deal.BreakPrice(spot, conf),
		spot:       spot,
		vols:       vols,
		today:      domain.DateOnly(now),
	}
}

// Apply sets days to expiration and the probabilistic fields of both evaluations.
func (m *OutcomeModel) Apply(c domain.SpreadCandidate) domain.SpreadCandidate {
	days := domain.DaysBetween(m.today, c.Expiration)
	c.DaysToExpiration = days
	c.Midpoint = m.evaluate(c, c.Midpoint, days)
	c.FarTouch = m.evaluate(c, c.FarTouch, days)
	return c
}

func (m *OutcomeModel) evaluate(c domain.SpreadCandidate, e domain.Evaluation, days int) domain.Evaluation {
	simple := SimpleReturn(e.Cost, e.MaxProfit, days)
	e.AnnualizedYield = AnnualizedYield(simple, days)

	threshold := e.Breakeven
	ref, ok := c.ShortLeg()
	if ok {
		threshold = ref.Contract.Strike
	} else if len(c.Legs) > 0 {
		ref = c.Legs[0]
	}

	years := math.Max(float64(days), 0) / daysPerYear
	sigma, ok := m.vols[domain.DateOnly(c.Expiration)]
	if !ok {
		sigma = domain.FallbackVolatility
	}
	bullish := c.Strategy.Bullish()

	p := domain.DealOutcomeProbability(bullish, m.confidence, m.dealPrice, m.breakPrice, threshold, sigma, years)
	e.ProbabilityOfProfit = p

	e.ExpectedReturn = 0
	if e.Cost > 0 && days > 0 {
		e.ExpectedReturn = p*simple - (1 - p)
	}

	market := domain.MarketProbability(ref.Contract, bullish, m.spot, threshold, years)
	e.EdgeVsMarket = (p - market) * 100
	return e
}

// SimpleReturn is maxProfit/cost for debit structures, 0 when the cost is not
// positive or the contract has no time left.
func SimpleReturn(cost, maxProfit float64, days int) float64 {
	if cost <= 0 || days <= 0 {
		return 0
	}
	r := maxProfit / cost
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// AnnualizedYield scales a simple return to a 365-day year, 0 when the result
// would not be finite.
func AnnualizedYield(simple float64, days int) float64 {
	if days <= 0 {
		return 0
	}
	y := simple * (daysPerYear / float64(days))
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0
	}
	return y
}
