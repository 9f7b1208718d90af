package ibkr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

const maturityLayout = "20060102"

var monthAbbr = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// parseMonth converts a secdef month code ("MAR25") to the first day of that month.
func parseMonth(code string) (time.Time, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 5 {
		return time.Time{}, fmt.Errorf("month code %q: unexpected length", code)
	}
	m, ok := monthAbbr[code[:3]]
	if !ok {
		return time.Time{}, fmt.Errorf("month code %q: unknown month", code)
	}
	yy, err := strconv.Atoi(code[3:])
	if err != nil {
		return time.Time{}, fmt.Errorf("month code %q: %w", code, err)
	}
	return time.Date(2000+yy, m, 1, 0, 0, 0, 0, time.UTC), nil
}

// monthInWindow reports whether any day of the month starting at first falls
// inside [from, to].
func monthInWindow(first, from, to time.Time) bool {
	last := first.AddDate(0, 1, -1)
	return !last.Before(domain.DateOnly(from)) && !first.After(domain.DateOnly(to))
}

// thirdFriday returns the standard monthly expiration of the month starting at first.
func thirdFriday(first time.Time) time.Time {
	offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+14)
}

func parseMaturity(s string) (time.Time, error) {
	t, err := time.ParseInLocation(maturityLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("maturity %q: %w", s, err)
	}
	return t, nil
}

// parseFieldValue extracts a float from the formats the snapshot endpoint
// mixes: plain numbers, strings with a status prefix ("C12.50") or a
// magnitude suffix ("1.2K"), percentages and {"v": ...} wrappers.
func parseFieldValue(field any) float64 {
	switch val := field.(type) {
	case nil:
		return 0
	case float64:
		return val
	case string:
		return parseFieldString(val)
	case map[string]any:
		if v, ok := val["v"]; ok {
			return parseFieldValue(v)
		}
	}
	return 0
}

func parseFieldString(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimLeft(s, "CH") // closing / halted markers
	if s == "" {
		return 0
	}

	scale := 1.0
	switch s[len(s)-1] {
	case '%':
		scale = 0.01
	case 'K':
		scale = 1e3
	case 'M':
		scale = 1e6
	}
	if scale != 1 {
		s = s[:len(s)-1]
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f * scale
}

// spotFromRow prefers the last trade and falls back to the quote midpoint.
func spotFromRow(row snapshotRow) float64 {
	if last := parseFieldValue(row[fieldLast]); last > 0 {
		return last
	}
	bid, ask := parseFieldValue(row[fieldBid]), parseFieldValue(row[fieldAsk])
	if bid > 0 && ask >= bid {
		return (bid + ask) / 2
	}
	return 0
}

// rowConID reads the conid a snapshot row belongs to.
func rowConID(row snapshotRow) int {
	return int(parseFieldValue(row["conid"]))
}

// mapContract merges a listing with its market data row.
func mapContract(ticker string, l listing, row snapshotRow) (domain.OptionContract, error) {
	typ, ok := domain.ParseOptionType(l.info.Right)
	if !ok {
		return domain.OptionContract{}, fmt.Errorf("conid %d: unknown right %q", l.info.ConID, l.info.Right)
	}

	volume := parseFieldValue(row[fieldVolume])
	if volume == 0 {
		volume = parseFieldValue(row[fieldVolumeAlt])
	}

	return domain.OptionContract{
		ConID:        l.info.ConID,
		Symbol:       ticker,
		Strike:       l.info.Strike,
		Expiration:   l.expiration,
		Type:         typ,
		Bid:          parseFieldValue(row[fieldBid]),
		Ask:          parseFieldValue(row[fieldAsk]),
		Last:         parseFieldValue(row[fieldLast]),
		OpenInterest: int64(parseFieldValue(row[fieldOpenInt])),
		Volume:       int64(volume),
		ImpliedVol:   parseFieldValue(row[fieldIV]),
		Delta:        parseFieldValue(row[fieldDelta]),
	}, nil
}
