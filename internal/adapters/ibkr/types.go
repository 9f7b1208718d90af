package ibkr

// Raw Client Portal DTOs. Conversion to domain types lives in mapping.go.

// searchResult is one entry of GET /iserver/secdef/search.
type searchResult struct {
	ConID       string    `json:"conid"` // string on this endpoint only
	Symbol      string    `json:"symbol"`
	Description string    `json:"description"`
	Sections    []section `json:"sections"`
}

type section struct {
	SecType string `json:"secType"`
	Months  string `json:"months"` // "JAN25;FEB25;MAR25"
}

// strikesResponse is GET /iserver/secdef/strikes.
type strikesResponse struct {
	Call []float64 `json:"call"`
	Put  []float64 `json:"put"`
}

// contractInfo is one entry of GET /iserver/secdef/info.
type contractInfo struct {
	ConID           int     `json:"conid"`
	Symbol          string  `json:"symbol"`
	Strike          float64 `json:"strike"`
	Right           string  `json:"right"`
	MaturityDate    string  `json:"maturityDate"` // "20250321"
	Multiplier      string  `json:"multiplier"`
	TradingClass    string  `json:"tradingClass"`
	UnderlyingConID int     `json:"underlyingConid"`
}

// snapshotRow is one entry of GET /iserver/marketdata/snapshot. Field values
// sit at the top level keyed by field code.
type snapshotRow map[string]any

// Snapshot field codes.
const (
	fieldLast      = "31"
	fieldBid       = "84"
	fieldAsk       = "86"
	fieldVolume    = "87_raw"
	fieldVolumeAlt = "7762"
	fieldOpenInt   = "7638"
	fieldIV        = "7283"
	fieldDelta     = "7308"
)
