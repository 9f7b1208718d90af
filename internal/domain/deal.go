package domain

import (
	"math"
	"strings"
	"time"
)

// Deal describes a pending acquisition. Supplied by the caller, immutable during a scan.
type Deal struct {
	Ticker            string
	DealPrice         float64   // cash or implied acquisition value per share
	ExpectedCloseDate time.Time // date only
	Confidence        *float64  // probability the deal closes as announced (0–1); nil if not given
	ReferencePrice    float64   // pre-deal (unaffected) price; 0 if unknown
}

// Validate rejects deals the scanner cannot price.
func (d Deal) Validate() error {
	switch {
	case strings.TrimSpace(d.Ticker) == "":
		return InvalidParameterError("ticker", d.Ticker, "required")
	case !(d.DealPrice > 0) || math.IsInf(d.DealPrice, 0):
		return InvalidParameterError("dealPrice", d.DealPrice, "must be a positive finite number")
	case d.ExpectedCloseDate.IsZero():
		return InvalidParameterError("expectedCloseDate", "", "required")
	case d.Confidence != nil && !(*d.Confidence >= 0 && *d.Confidence <= 1):
		return InvalidParameterError("dealConfidence", *d.Confidence, "must be between 0 and 1")
	case d.ReferencePrice < 0 || math.IsNaN(d.ReferencePrice) || math.IsInf(d.ReferencePrice, 0):
		return InvalidParameterError("referencePrice", d.ReferencePrice, "must be a non-negative finite number")
	}
	return nil
}

// BreakPrice estimates where the target trades if the deal breaks.
//
// With a known reference price that is used directly. Otherwise the break price is
// backed out of the current spot: spot = c·deal + (1−c)·break. The result is clamped to
// (0, spot] so a mispriced spot can never produce a break above the current price.
func (d Deal) BreakPrice(spot, confidence float64) float64 {
	if d.ReferencePrice > 0 {
		return d.ReferencePrice
	}
	if spot <= 0 {
		spot = d.DealPrice
	}
	if confidence >= 1 {
		return spot
	}
	implied := (spot - confidence*d.DealPrice) / (1 - confidence)
	if implied > spot {
		return spot
	}
	if implied <= 0 {
		return spot * minBreakFraction
	}
	return implied
}

// minBreakFraction floors the implied break price when the spread is too wide to back out.
const minBreakFraction = 0.05
