package domain

import (
	"encoding/json"
	"time"
)

// ScanResult is the ranked output of one scan.
type ScanResult struct {
	Ref        string            `json:"ref"`
	Ticker     string            `json:"ticker"`
	ScannedAt  time.Time         `json:"scannedAt"`
	SpotPrice  float64           `json:"spotPrice"`
	DealPrice  float64           `json:"dealPrice"`
	Candidates []SpreadCandidate `json:"candidates"`
	Rejected   int               `json:"rejected"`
}

// Best returns the top-ranked candidate, if any.
func (r ScanResult) Best() (SpreadCandidate, bool) {
	if len(r.Candidates) == 0 {
		return SpreadCandidate{}, false
	}
	return r.Candidates[0], true
}

// ScanRecord is a persisted scan summary.
type ScanRecord struct {
	Ref            string
	Ticker         string
	ScannedAt      time.Time
	SpotPrice      float64
	DealPrice      float64
	CandidateCount int
	Rejected       int
	BestLabel      string
	BestYield      float64
}

// NewScanRecord summarizes a result for history.
func NewScanRecord(r ScanResult) ScanRecord {
	rec := ScanRecord{
		Ref:            r.Ref,
		Ticker:         r.Ticker,
		ScannedAt:      r.ScannedAt,
		SpotPrice:      r.SpotPrice,
		DealPrice:      r.DealPrice,
		CandidateCount: len(r.Candidates),
		Rejected:       r.Rejected,
	}
	if best, ok := r.Best(); ok {
		rec.BestLabel = best.Describe()
		rec.BestYield = best.Midpoint.AnnualizedYield
	}
	return rec
}

// WatchedCandidate is a curated candidate kept by the user. The payload is the
// candidate as the scanner emitted it; the store does not interpret it.
type WatchedCandidate struct {
	ID        string
	Ticker    string
	Label     string
	Payload   json.RawMessage
	CreatedAt time.Time
}
