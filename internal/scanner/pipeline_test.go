package scanner_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFull(t *testing.T, p domain.ScanParameters) scanner.PipelineResult {
	t.Helper()
	res, err := scanner.NewPipeline(p).Run(fullChain(), testDeal(), testNow)
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)
	return res
}

func TestPipeline_StrikeWidthInvariant(t *testing.T) {
	res := runFull(t, params(func(p *domain.ScanParameters) { p.TopStrategiesPerExpiration = 20 }))

	verticals := 0
	for _, c := range res.Candidates {
		if !c.Strategy.IsVertical() {
			continue
		}
		verticals++
		w := c.StrikeWidth()
		assert.InDelta(t, w, c.Midpoint.Cost+c.Midpoint.MaxProfit, 1e-9, c.Describe())
		assert.InDelta(t, w, c.FarTouch.Cost+c.FarTouch.MaxProfit, 1e-9, c.Describe())
	}
	assert.Positive(t, verticals)
}

func TestPipeline_FarTouchDominance(t *testing.T) {
	res := runFull(t, params(func(p *domain.ScanParameters) { p.TopStrategiesPerExpiration = 20 }))

	for _, c := range res.Candidates {
		if isCredit(c.Strategy) {
			// Credit is negative cost: far touch receives no more than midpoint.
			assert.LessOrEqual(t, -c.FarTouch.Cost, -c.Midpoint.Cost+1e-12, c.Describe())
			continue
		}
		assert.GreaterOrEqual(t, c.FarTouch.Cost, c.Midpoint.Cost-1e-12, c.Describe())
	}
}

func TestPipeline_AllFieldsFinite(t *testing.T) {
	res := runFull(t, params(func(p *domain.ScanParameters) { p.TopStrategiesPerExpiration = 20 }))

	for _, c := range res.Candidates {
		for _, e := range []domain.Evaluation{c.Midpoint, c.FarTouch} {
			assert.Empty(t, e.Finite(), c.Describe())
			assert.GreaterOrEqual(t, e.ProbabilityOfProfit, 0.0)
			assert.LessOrEqual(t, e.ProbabilityOfProfit, 1.0)
		}
		assert.False(t, math.IsNaN(c.LiquidityScore))
		assert.GreaterOrEqual(t, c.LiquidityScore, 0.0)
		assert.LessOrEqual(t, c.LiquidityScore, 100.0)
		assert.Positive(t, c.DaysToExpiration)
		if c.Midpoint.Cost <= 0 {
			assert.Zero(t, c.Midpoint.AnnualizedYield, c.Describe())
		}
	}
	assert.Zero(t, res.Rejected)
}

func TestPipeline_CapPerExpiration(t *testing.T) {
	res := runFull(t, params(func(p *domain.ScanParameters) { p.TopStrategiesPerExpiration = 2 }))

	counts := make(map[string]int)
	for _, c := range res.Candidates {
		counts[c.Expiration.Format("2006-01-02")]++
	}
	assert.Len(t, counts, len(testExps))
	for exp, n := range counts {
		assert.LessOrEqual(t, n, 2, exp)
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	p := params(nil)
	a := runFull(t, p)
	b := runFull(t, p)
	assert.Equal(t, a, b)
}

func TestPipeline_OrderedByExpirationThenYield(t *testing.T) {
	res := runFull(t, params(func(p *domain.ScanParameters) { p.TopStrategiesPerExpiration = 20 }))

	for i := 1; i < len(res.Candidates); i++ {
		prev, cur := res.Candidates[i-1], res.Candidates[i]
		require.False(t, cur.Expiration.Before(prev.Expiration))
		if cur.Expiration.Equal(prev.Expiration) {
			assert.GreaterOrEqual(t, prev.Midpoint.AnnualizedYield, cur.Midpoint.AnnualizedYield)
		}
	}
}

func TestPipeline_VerticalPricingScenario(t *testing.T) {
	exp := testExps[1]
	snap := domain.ChainSnapshot{
		Ticker:    "ACME",
		SpotPrice: 240,
		Contracts: []domain.OptionContract{
			opt(domain.Call, exp, 245, 4.95, 5.05),
			opt(domain.Call, exp, 250, 2.45, 2.55),
		},
	}
	res, err := scanner.NewPipeline(params(nil)).Run(snap, testDeal(), testNow)
	require.NoError(t, err)

	var found bool
	for _, c := range res.Candidates {
		if c.Strategy != domain.CallDebitVertical {
			continue
		}
		found = true
		assert.Equal(t, 245.0, c.LongStrike())
		assert.Equal(t, 250.0, c.ShortStrike())
		assert.InDelta(t, 2.50, c.Midpoint.Cost, 1e-9)
		assert.InDelta(t, 2.50, c.Midpoint.MaxProfit, 1e-9)
		assert.InDelta(t, 2.60, c.FarTouch.Cost, 1e-9)
		assert.InDelta(t, 2.40, c.FarTouch.MaxProfit, 1e-9)
	}
	assert.True(t, found)
}

func TestPipeline_EmptyRange(t *testing.T) {
	exp := testExps[0]
	snap := domain.ChainSnapshot{
		Ticker:    "ACME",
		SpotPrice: 242,
		Contracts: []domain.OptionContract{
			opt(domain.Call, exp, 150, 90, 91),
			opt(domain.Call, exp, 300, 0.05, 0.10),
		},
	}
	_, err := scanner.NewPipeline(params(nil)).Run(snap, testDeal(), testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoContractsInRange))

	var se *domain.ScanError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Input, "200.00")
	assert.Contains(t, se.Input, "266.20")
}

func TestPipeline_NonFiniteQuotesRejectedPerCandidate(t *testing.T) {
	p := params(func(p *domain.ScanParameters) { p.TopStrategiesPerExpiration = 20 })
	clean, err := scanner.NewPipeline(p).Run(fullChain(), testDeal(), testNow)
	require.NoError(t, err)

	snap := fullChain()
	bad := snap.Contracts[:0:0]
	for _, c := range snap.Contracts {
		if c.Type == domain.Call && c.Strike == 250 && c.Expiration.Equal(testExps[1]) {
			c.Ask = math.Inf(1)
		}
		bad = append(bad, c)
	}
	bad = append(bad, opt(domain.Put, testExps[2], math.NaN(), 1.0, 1.2))
	snap.Contracts = bad

	var res scanner.PipelineResult
	require.NotPanics(t, func() {
		res, err = scanner.NewPipeline(p).Run(snap, testDeal(), testNow)
	})
	require.NoError(t, err)
	assert.Positive(t, res.Rejected)

	describe := func(cs []domain.SpreadCandidate, exp time.Time) []string {
		var out []string
		for _, c := range cs {
			if c.Expiration.Equal(exp) {
				out = append(out, c.Describe())
			}
		}
		return out
	}
	// Expirations without the bad quote rank exactly as in a clean chain.
	assert.Equal(t, describe(clean.Candidates, testExps[0]), describe(res.Candidates, testExps[0]))
	assert.Equal(t, describe(clean.Candidates, testExps[2]), describe(res.Candidates, testExps[2]))

	for _, c := range res.Candidates {
		assert.Empty(t, c.Midpoint.Finite(), c.Describe())
		assert.Empty(t, c.FarTouch.Finite(), c.Describe())
		for _, l := range c.Legs {
			assert.Empty(t, l.Contract.Finite(), c.Describe())
		}
	}
	assert.NotEmpty(t, describe(res.Candidates, testExps[1]))
}
