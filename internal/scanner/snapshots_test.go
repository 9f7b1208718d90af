package scanner

import (
	"testing"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotStore_ExpiresAndSweeps(t *testing.T) {
	now := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)
	s := newSnapshotStore(time.Minute, func() time.Time { return now })

	s.put("a", domain.ChainSnapshot{Ticker: "ACME"})
	s.put("b", domain.ChainSnapshot{Ticker: "ACME"})
	assert.Equal(t, 2, s.size())

	got, ok := s.get("a")
	assert.True(t, ok)
	assert.Equal(t, "ACME", got.Ticker)

	now = now.Add(2 * time.Minute)
	_, ok = s.get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, s.size())

	// put sweeps "b" which expired with "a".
	s.put("c", domain.ChainSnapshot{Ticker: "ACME"})
	assert.Equal(t, 1, s.size())
}
