package scanner

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

// PipelineResult is the ranked output of one pipeline run.
type PipelineResult struct {
	Candidates []domain.SpreadCandidate
	// Rejected counts candidates dropped with a computation error.
	Rejected int
}

// Pipeline runs filter → generate → evaluate → outcome → liquidity → rank over a
// snapshot. It holds no state between runs and has no side effects beyond logging.
type Pipeline struct {
	params domain.ScanParameters
}

// NewPipeline creates a Pipeline with validated parameters.
func NewPipeline(p domain.ScanParameters) *Pipeline {
	return &Pipeline{params: p}
}

// Run processes a snapshot for a deal as of now. Only the filter can fail the run;
// later failures are scoped to the candidate that raised them.
func (p *Pipeline) Run(snap domain.ChainSnapshot, deal domain.Deal, now time.Time) (PipelineResult, error) {
	filtered, err := NewFilter(p.params).Apply(snap, deal, now)
	if err != nil {
		return PipelineResult{}, fmt.Errorf("scanner.Pipeline.Run: %w", err)
	}

	raw := NewGenerator(p.params).Generate(filtered, deal)
	evaluator := NewEvaluator(deal)
	model := NewOutcomeModel(filtered, deal, p.params, now)

	var (
		kept     = make([]domain.SpreadCandidate, 0, len(raw))
		rejected int
	)
	for _, cand := range raw {
		c, err := evaluate(cand, evaluator, model)
		if err != nil {
			slog.Debug("candidate rejected",
				"ticker", deal.Ticker,
				"candidate", c.Describe(),
				"err", err,
			)
			rejected++
			continue
		}
		kept = append(kept, c)
	}

	ranked := Rank(kept, p.params.TopStrategiesPerExpiration)
	slog.Debug("pipeline complete",
		"ticker", deal.Ticker,
		"contracts", len(filtered.Contracts),
		"generated", len(raw),
		"rejected", rejected,
		"ranked", len(ranked),
	)
	return PipelineResult{Candidates: ranked, Rejected: rejected}, nil
}

// evaluate runs the per-candidate stages. A non-finite leg quote or a panic in
// any stage becomes a ComputationError for that candidate alone.
func evaluate(c domain.SpreadCandidate, evaluator *Evaluator, model *OutcomeModel) (out domain.SpreadCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = c
			err = &domain.ScanError{
				Kind:  domain.KindComputation,
				Op:    "evaluate",
				Input: c.Describe(),
				Err:   fmt.Errorf("panic: %v", r),
			}
		}
	}()

	for i, l := range c.Legs {
		if f := l.Contract.Finite(); f != "" {
			return c, domain.ComputationError(c.Describe(), fmt.Sprintf("legs[%d].%s", i, f))
		}
	}
	out = ScoreLiquidity(model.Apply(evaluator.Evaluate(c)))
	return out, checkFinite(out)
}

// checkFinite returns a ComputationError naming the first non-finite field.
func checkFinite(c domain.SpreadCandidate) error {
	if f := c.Midpoint.Finite(); f != "" {
		return domain.ComputationError(c.Describe(), "midpoint."+f)
	}
	if f := c.FarTouch.Finite(); f != "" {
		return domain.ComputationError(c.Describe(), "farTouch."+f)
	}
	if math.IsNaN(c.LiquidityScore) || math.IsInf(c.LiquidityScore, 0) {
		return domain.ComputationError(c.Describe(), "liquidityScore")
	}
	return nil
}
