package domain

import "github.com/shopspring/decimal"

// PriceScenario is the execution-price assumption a structure is evaluated under.
type PriceScenario string

const (
	// Midpoint fills every leg at (bid+ask)/2.
	Midpoint PriceScenario = "MIDPOINT"
	// FarTouch buys at the ask and sells at the bid.
	FarTouch PriceScenario = "FAR_TOUCH"
)

var two = decimal.NewFromInt(2)

// LegPrice is the per-contract fill price of one leg under the scenario.
func LegPrice(c OptionContract, side Side, sc PriceScenario) decimal.Decimal {
	bid := decimal.NewFromFloat(c.Bid)
	ask := decimal.NewFromFloat(c.Ask)
	if sc == FarTouch {
		if side == Sell {
			return bid
		}
		return ask
	}
	return bid.Add(ask).Div(two)
}

// StructureCost is the signed premium of the structure: BUY legs add, SELL legs subtract.
// Negative means a net credit.
func StructureCost(legs []OptionLeg, sc PriceScenario) decimal.Decimal {
	cost := decimal.Zero
	for _, l := range legs {
		qty := l.Quantity
		if qty == 0 {
			qty = 1
		}
		signed := decimal.NewFromInt(int64(l.Side.Sign() * qty))
		cost = cost.Add(LegPrice(l.Contract, l.Side, sc).Mul(signed))
	}
	return cost
}

// Payoff is the deterministic part of an evaluation: what the structure costs,
// what it can earn and where it breaks even.
type Payoff struct {
	Cost      float64
	MaxProfit float64
	Breakeven float64
}

// PriceStructure computes cost, max profit and breakeven of a structure.
//
// Verticals:
//
//	maxProfit = strikeWidth − cost
//	breakeven = K_lo + |cost| (calls), K_hi − |cost| (puts)
//
// Singles, with the stock pinned at the deal price on close:
//
//	long call: maxProfit = max(dealPrice − K, 0) − cost, breakeven = K + cost
//	long put:  maxProfit = K − cost,                     breakeven = K − cost
func PriceStructure(strategy StrategyType, legs []OptionLeg, dealPrice float64, sc PriceScenario) Payoff {
	cost := StructureCost(legs, sc)
	var maxProfit, breakeven decimal.Decimal

	if strategy.IsVertical() && len(legs) == 2 {
		lo := decimal.NewFromFloat(legs[0].Contract.Strike)
		hi := decimal.NewFromFloat(legs[1].Contract.Strike)
		if lo.GreaterThan(hi) {
			lo, hi = hi, lo
		}
		maxProfit = hi.Sub(lo).Sub(cost)
		if strategy.OptionType() == Call {
			breakeven = lo.Add(cost.Abs())
		} else {
			breakeven = hi.Sub(cost.Abs())
		}
	} else if len(legs) > 0 {
		k := decimal.NewFromFloat(legs[0].Contract.Strike)
		switch strategy {
		case CallLong:
			intrinsic := decimal.Max(decimal.NewFromFloat(dealPrice).Sub(k), decimal.Zero)
			maxProfit = intrinsic.Sub(cost)
			breakeven = k.Add(cost)
		default:
			maxProfit = k.Sub(cost)
			breakeven = k.Sub(cost)
		}
	}

	return Payoff{
		Cost:      cost.InexactFloat64(),
		MaxProfit: maxProfit.InexactFloat64(),
		Breakeven: breakeven.InexactFloat64(),
	}
}
