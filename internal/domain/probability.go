package domain

import (
	"math"
	"sort"
)

// FallbackVolatility is used when an expiration carries no usable implied vol.
const FallbackVolatility = 0.30

// NormCDF is the standard normal cumulative distribution.
func NormCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// ProbAbove is the lognormal probability that a price centered on center finishes at or
// above threshold after years with annualized volatility sigma (zero drift):
//
//	d2 = (ln(center/threshold) − σ²T/2) / (σ√T)
//	P  = N(d2)
//
// With no time or no volatility the outcome is deterministic.
func ProbAbove(center, threshold, sigma, years float64) float64 {
	if center <= 0 || threshold <= 0 {
		if center >= threshold {
			return 1
		}
		return 0
	}
	vol := sigma * math.Sqrt(math.Max(years, 0))
	if vol <= 0 || math.IsNaN(vol) {
		if center >= threshold {
			return 1
		}
		return 0
	}
	d2 := (math.Log(center/threshold) - 0.5*vol*vol) / vol
	return NormCDF(d2)
}

// ProbFinish is ProbAbove for bullish structures and its complement for bearish ones.
func ProbFinish(bullish bool, center, threshold, sigma, years float64) float64 {
	p := ProbAbove(center, threshold, sigma, years)
	if bullish {
		return p
	}
	return 1 - p
}

// DealOutcomeProbability blends the deal-close and deal-break scenarios:
//
//	P = c · P(threshold cleared | price centered on dealPrice)
//	  + (1 − c) · P(threshold cleared | price centered on breakPrice)
func DealOutcomeProbability(bullish bool, confidence, dealPrice, breakPrice, threshold, sigma, years float64) float64 {
	c := math.Min(math.Max(confidence, 0), 1)
	pClose := ProbFinish(bullish, dealPrice, threshold, sigma, years)
	pBreak := ProbFinish(bullish, breakPrice, threshold, sigma, years)
	return c*pClose + (1-c)*pBreak
}

// MedianIV is the median of the positive, finite implied vols among contracts,
// or FallbackVolatility when there are none.
func MedianIV(contracts []OptionContract) float64 {
	var vols []float64
	for _, c := range contracts {
		if c.ImpliedVol > 0 && !math.IsInf(c.ImpliedVol, 0) && !math.IsNaN(c.ImpliedVol) {
			vols = append(vols, c.ImpliedVol)
		}
	}
	if len(vols) == 0 {
		return FallbackVolatility
	}
	sort.Float64s(vols)
	n := len(vols)
	if n%2 == 1 {
		return vols[n/2]
	}
	return (vols[n/2-1] + vols[n/2]) / 2
}

// MarketProbability is the market's own estimate that the contract's strike is cleared
// in the given direction, read from delta when quoted: call delta ≈ P(S ≥ K),
// put ≈ 1 − |delta|. Without delta it falls back to ProbFinish from spot and the
// contract's implied vol.
func MarketProbability(c OptionContract, bullish bool, spot, threshold, years float64) float64 {
	if threshold == c.Strike && c.Delta != 0 && !math.IsNaN(c.Delta) {
		pAbove := math.Abs(c.Delta)
		if c.Type == Put {
			pAbove = 1 - math.Abs(c.Delta)
		}
		if bullish {
			return pAbove
		}
		return 1 - pAbove
	}
	sigma := c.ImpliedVol
	if sigma <= 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		sigma = FallbackVolatility
	}
	return ProbFinish(bullish, spot, threshold, sigma, years)
}
