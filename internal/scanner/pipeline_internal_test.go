package scanner

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_PanicBecomesComputationError(t *testing.T) {
	now := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)
	exp := time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)
	long := domain.OptionContract{Symbol: "ACME", Strike: 245, Expiration: exp, Type: domain.Call, Bid: 4.9, Ask: 5.1}
	c := domain.SpreadCandidate{
		Strategy:   domain.CallLong,
		Expiration: exp,
		Legs:       []domain.OptionLeg{{Contract: long, Side: domain.Buy, Quantity: 1}},
	}
	// A NaN deal price cannot be converted to a decimal.
	deal := domain.Deal{Ticker: "ACME", DealPrice: math.NaN(), ExpectedCloseDate: exp}
	snap := domain.ChainSnapshot{Ticker: "ACME", SpotPrice: 242, Contracts: []domain.OptionContract{long}}
	model := NewOutcomeModel(snap, deal, domain.DefaultScanParameters(), now)

	var err error
	assert.NotPanics(t, func() { _, err = evaluate(c, NewEvaluator(deal), model) })
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrComputation))
	assert.Contains(t, err.Error(), "panic")
}

func TestEvaluate_NonFiniteLegQuote(t *testing.T) {
	now := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)
	exp := time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)
	lo := domain.OptionContract{Symbol: "ACME", Strike: 245, Expiration: exp, Type: domain.Call, Bid: 4.9, Ask: 5.1}
	hi := domain.OptionContract{Symbol: "ACME", Strike: 250, Expiration: exp, Type: domain.Call, Bid: 2.4, Ask: math.Inf(1)}
	c := domain.SpreadCandidate{
		Strategy:   domain.CallDebitVertical,
		Expiration: exp,
		Legs: []domain.OptionLeg{
			{Contract: lo, Side: domain.Buy, Quantity: 1},
			{Contract: hi, Side: domain.Sell, Quantity: 1},
		},
	}
	deal := domain.Deal{Ticker: "ACME", DealPrice: 250, ExpectedCloseDate: exp}
	snap := domain.ChainSnapshot{Ticker: "ACME", SpotPrice: 242, Contracts: []domain.OptionContract{lo, hi}}
	model := NewOutcomeModel(snap, deal, domain.DefaultScanParameters(), now)

	_, err := evaluate(c, NewEvaluator(deal), model)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrComputation))
	assert.Contains(t, err.Error(), "legs[1].ask")
}
