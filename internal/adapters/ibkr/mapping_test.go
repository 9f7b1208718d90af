package ibkr

import (
	"testing"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldValue(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{12.5, 12.5},
		{"12.50", 12.5},
		{"C12.50", 12.5},
		{"H3.10", 3.1},
		{"1,234", 1234},
		{"1.5K", 1500},
		{"2M", 2e6},
		{"32.5%", 0.325},
		{map[string]any{"v": "7.25"}, 7.25},
		{"n/a", 0},
		{"NaN", 0},
		{true, 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, parseFieldValue(tc.in), 1e-9, "%v", tc.in)
	}
}

func TestParseMonth(t *testing.T) {
	m, err := parseMonth("mar25")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), m)

	for _, bad := range []string{"", "MARCH", "XYZ25", "MARAB"} {
		_, err := parseMonth(bad)
		assert.Error(t, err, bad)
	}
}

func TestThirdFriday(t *testing.T) {
	assert.Equal(t, time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), thirdFriday(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	// Month starting on a Friday.
	assert.Equal(t, time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC), thirdFriday(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMonthInWindow(t *testing.T) {
	mar := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	from := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	to := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, monthInWindow(mar, from, to))
	assert.False(t, monthInWindow(mar, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), to))
	assert.False(t, monthInWindow(mar, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)))
}

func TestSpotFromRow(t *testing.T) {
	assert.Equal(t, 242.0, spotFromRow(snapshotRow{"31": "242"}))
	assert.InDelta(t, 241.5, spotFromRow(snapshotRow{"84": "241", "86": "242"}), 1e-9)
	assert.Equal(t, 0.0, spotFromRow(snapshotRow{"84": "243", "86": "242"}))
	assert.Equal(t, 0.0, spotFromRow(nil))
}

func TestMapContract(t *testing.T) {
	exp := time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)
	l := listing{info: contractInfo{ConID: 42, Strike: 245, Right: "P"}, expiration: exp}

	oc, err := mapContract("ACME", l, snapshotRow{"84": "1.00", "86": "1.10", "7762": "350"})
	require.NoError(t, err)
	assert.Equal(t, domain.Put, oc.Type)
	assert.Equal(t, exp, oc.Expiration)
	assert.Equal(t, int64(350), oc.Volume)
	assert.True(t, oc.HasTwoSidedQuote())

	l.info.Right = "X"
	_, err = mapContract("ACME", l, snapshotRow{})
	assert.Error(t, err)
}
