package domain

import "math"

const (
	// MaxScoredSpreadPct is the bid-ask width (fraction of mid) that scores zero.
	MaxScoredSpreadPct = 0.25
	// FullOpenInterest and FullVolume score 100 on their log scales.
	FullOpenInterest = 1000
	FullVolume       = 500

	spreadWeight   = 0.50
	interestWeight = 0.25
	volumeWeight   = 0.25
)

// SpreadScore maps a bid-ask spread fraction to 0–100: 0% → 100, ≥ 25% → 0, linear between.
func SpreadScore(spreadPct float64) float64 {
	if math.IsNaN(spreadPct) || spreadPct >= MaxScoredSpreadPct {
		return 0
	}
	if spreadPct <= 0 {
		return 100
	}
	return 100 * (1 - spreadPct/MaxScoredSpreadPct)
}

// LogScore maps a count onto 0–100 with log10(1+n)/log10(1+full), capped at 100.
func LogScore(n, full int64) float64 {
	if n <= 0 || full <= 0 {
		return 0
	}
	s := 100 * math.Log10(1+float64(n)) / math.Log10(1+float64(full))
	return math.Min(s, 100)
}

// LiquidityScore combines the worst-leg measures of a structure:
//
//	score = 0.5·spread + 0.25·openInterest + 0.25·volume
//
// rounded to one decimal and clamped to [0, 100].
func LiquidityScore(contracts []OptionContract) float64 {
	if len(contracts) == 0 {
		return 0
	}
	worstSpread := 0.0
	minOI := int64(math.MaxInt64)
	minVol := int64(math.MaxInt64)
	for _, c := range contracts {
		worstSpread = math.Max(worstSpread, c.SpreadPct())
		if c.OpenInterest < minOI {
			minOI = c.OpenInterest
		}
		if c.Volume < minVol {
			minVol = c.Volume
		}
	}
	score := spreadWeight*SpreadScore(worstSpread) +
		interestWeight*LogScore(minOI, FullOpenInterest) +
		volumeWeight*LogScore(minVol, FullVolume)
	score = math.Round(score*10) / 10
	return math.Min(math.Max(score, 0), 100)
}
