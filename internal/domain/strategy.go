package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// StrategyType is the closed set of structures the scanner produces.
// Assigned once by the generator and never re-derived from the legs.
type StrategyType string

const (
	CallLong           StrategyType = "CALL_LONG"
	PutLong            StrategyType = "PUT_LONG"
	CallDebitVertical  StrategyType = "CALL_DEBIT_VERTICAL"
	CallCreditVertical StrategyType = "CALL_CREDIT_VERTICAL"
	PutDebitVertical   StrategyType = "PUT_DEBIT_VERTICAL"
	PutCreditVertical  StrategyType = "PUT_CREDIT_VERTICAL"
)

// AllStrategyTypes lists every variant in ranking tie-break order.
var AllStrategyTypes = []StrategyType{
	CallLong, PutLong,
	CallDebitVertical, CallCreditVertical,
	PutDebitVertical, PutCreditVertical,
}

// Ordinal is the variant's position in AllStrategyTypes, -1 if unknown.
func (s StrategyType) Ordinal() int {
	for i, t := range AllStrategyTypes {
		if t == s {
			return i
		}
	}
	return -1
}

// IsVertical reports whether the structure has two legs.
func (s StrategyType) IsVertical() bool {
	switch s {
	case CallDebitVertical, CallCreditVertical, PutDebitVertical, PutCreditVertical:
		return true
	}
	return false
}

// Bullish reports whether the structure profits when the underlying finishes high.
func (s StrategyType) Bullish() bool {
	switch s {
	case CallLong, CallDebitVertical, PutCreditVertical:
		return true
	}
	return false
}

// OptionType of the legs of this structure.
func (s StrategyType) OptionType() OptionType {
	switch s {
	case CallLong, CallDebitVertical, CallCreditVertical:
		return Call
	}
	return Put
}

// Side is the direction of a leg.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Sign is +1 for BUY (premium paid) and -1 for SELL (premium received).
func (s Side) Sign() int {
	if s == Sell {
		return -1
	}
	return 1
}

// OptionLeg is one contract of a structure.
type OptionLeg struct {
	Contract OptionContract `json:"-"`
	Side     Side           `json:"side"`
	Quantity int            `json:"quantity"`
}

// Evaluation holds the metrics of a candidate under one execution-price assumption.
type Evaluation struct {
	Cost                float64 `json:"cost"`
	MaxProfit           float64 `json:"maxProfit"`
	AnnualizedYield     float64 `json:"annualizedYield"`
	ProbabilityOfProfit float64 `json:"probabilityOfProfit"`
	ExpectedReturn      float64 `json:"expectedReturn"`
	Breakeven           float64 `json:"breakeven"`
	EdgeVsMarket        float64 `json:"edgeVsMarket"`
}

// Finite returns the name of the first non-finite field, or "" when all are finite.
func (e Evaluation) Finite() string {
	fields := []struct {
		name string
		v    float64
	}{
		{"cost", e.Cost},
		{"maxProfit", e.MaxProfit},
		{"annualizedYield", e.AnnualizedYield},
		{"probabilityOfProfit", e.ProbabilityOfProfit},
		{"expectedReturn", e.ExpectedReturn},
		{"breakeven", e.Breakeven},
		{"edgeVsMarket", e.EdgeVsMarket},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return f.name
		}
	}
	return ""
}

// SpreadCandidate is one structure proposed for an expiration.
// Produced inside the pipeline and handed to the caller; the scanner does not retain it.
type SpreadCandidate struct {
	Strategy         StrategyType `json:"strategy"`
	Expiration       time.Time    `json:"expiration"`
	Legs             []OptionLeg  `json:"legs"`
	Midpoint         Evaluation   `json:"midpoint"`
	FarTouch         Evaluation   `json:"farTouch"`
	LiquidityScore   float64      `json:"liquidityScore"`
	DaysToExpiration int          `json:"daysToExpiration"`
}

// ShortLeg returns the SELL leg of a vertical.
func (c SpreadCandidate) ShortLeg() (OptionLeg, bool) {
	for _, l := range c.Legs {
		if l.Side == Sell {
			return l, true
		}
	}
	return OptionLeg{}, false
}

// LongLeg returns the BUY leg.
func (c SpreadCandidate) LongLeg() (OptionLeg, bool) {
	for _, l := range c.Legs {
		if l.Side == Buy {
			return l, true
		}
	}
	return OptionLeg{}, false
}

// ShortStrike is the strike of the sold leg, 0 for single-leg structures.
func (c SpreadCandidate) ShortStrike() float64 {
	if l, ok := c.ShortLeg(); ok {
		return l.Contract.Strike
	}
	return 0
}

// LongStrike is the strike of the bought leg.
func (c SpreadCandidate) LongStrike() float64 {
	if l, ok := c.LongLeg(); ok {
		return l.Contract.Strike
	}
	return 0
}

// MarshalJSON adds the strike list and renders the expiration as a date.
func (c SpreadCandidate) MarshalJSON() ([]byte, error) {
	type alias SpreadCandidate
	strikes := make([]float64, len(c.Legs))
	for i, l := range c.Legs {
		strikes[i] = l.Contract.Strike
	}
	return json.Marshal(struct {
		alias
		Expiration string    `json:"expiration"`
		Strikes    []float64 `json:"strikes"`
	}{alias(c), c.Expiration.Format("2006-01-02"), strikes})
}

// LowStrike and HighStrike order the legs by strike regardless of side.
func (c SpreadCandidate) LowStrike() float64 {
	lo := math.Inf(1)
	for _, l := range c.Legs {
		lo = math.Min(lo, l.Contract.Strike)
	}
	return lo
}

func (c SpreadCandidate) HighStrike() float64 {
	hi := math.Inf(-1)
	for _, l := range c.Legs {
		hi = math.Max(hi, l.Contract.Strike)
	}
	return hi
}

// StrikeWidth is |K_hi − K_lo| for verticals, 0 for singles.
func (c SpreadCandidate) StrikeWidth() float64 {
	if len(c.Legs) < 2 {
		return 0
	}
	return c.HighStrike() - c.LowStrike()
}

// Describe renders a compact label such as "CALL_DEBIT_VERTICAL 2025-03-21 245.00/250.00".
func (c SpreadCandidate) Describe() string {
	exp := c.Expiration.Format("2006-01-02")
	if len(c.Legs) == 1 {
		return fmt.Sprintf("%s %s %.2f", c.Strategy, exp, c.Legs[0].Contract.Strike)
	}
	return fmt.Sprintf("%s %s %.2f/%.2f", c.Strategy, exp, c.LongStrike(), c.ShortStrike())
}

// MarshalJSON of a leg exposes the strike and type alongside the side.
func (l OptionLeg) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Strike   float64    `json:"strike"`
		Type     OptionType `json:"type"`
		Side     Side       `json:"side"`
		Quantity int        `json:"quantity"`
		ConID    int        `json:"conid,omitempty"`
	}{l.Contract.Strike, l.Contract.Type, l.Side, l.Quantity, l.Contract.ConID})
}
