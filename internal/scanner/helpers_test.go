package scanner_test

import (
	"math"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

var (
	testNow   = time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)
	testClose = time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)
	testExps  = []time.Time{
		time.Date(2025, 2, 21, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 17, 0, 0, 0, 0, time.UTC),
	}
)

func testDeal() domain.Deal {
	return domain.Deal{
		Ticker:            "ACME",
		DealPrice:         250,
		ExpectedCloseDate: testClose,
		Confidence:        ptr(0.8),
	}
}

func ptr[T any](v T) *T { return &v }

func opt(typ domain.OptionType, exp time.Time, strike, bid, ask float64) domain.OptionContract {
	delta := 0.5
	if typ == domain.Put {
		delta = -0.5
	}
	return domain.OptionContract{
		Symbol:       "ACME",
		Strike:       strike,
		Expiration:   exp,
		Type:         typ,
		Bid:          bid,
		Ask:          ask,
		Last:         (bid + ask) / 2,
		OpenInterest: 800,
		Volume:       150,
		ImpliedVol:   0.28,
		Delta:        delta,
	}
}

// fullChain quotes calls and puts from 195 to 270 in steps of 5 on three expirations
// around a 242 spot.
func fullChain() domain.ChainSnapshot {
	const spot = 242.0
	var cs []domain.OptionContract
	for i, exp := range testExps {
		tv := 1.5 + float64(i)
		for k := 195.0; k <= 270; k += 5 {
			callMid := math.Max(spot-k, 0) + tv
			putMid := math.Max(k-spot, 0) + tv
			cs = append(cs,
				opt(domain.Call, exp, k, callMid-0.05, callMid+0.05),
				opt(domain.Put, exp, k, putMid-0.10, putMid+0.10),
			)
		}
	}
	return domain.ChainSnapshot{Ticker: "ACME", SpotPrice: spot, FetchedAt: testNow, Contracts: cs}
}

func params(mut func(*domain.ScanParameters)) domain.ScanParameters {
	p := domain.DefaultScanParameters()
	if mut != nil {
		mut(&p)
	}
	return p
}

func isCredit(st domain.StrategyType) bool {
	return st == domain.CallCreditVertical || st == domain.PutCreditVertical
}
