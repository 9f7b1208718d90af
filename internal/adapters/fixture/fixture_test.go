package fixture_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/adapters/fixture"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chains.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFetchChain_SampleFile(t *testing.T) {
	p := fixture.New("../../../testdata/fixtures/option_chains.json").WithClock(clock)

	snap, err := p.FetchChain(context.Background(), ports.ChainRequest{Ticker: "acme"})
	require.NoError(t, err)

	assert.Equal(t, "ACME", snap.Ticker)
	assert.InDelta(t, 242.0, snap.SpotPrice, 1e-9)
	assert.Equal(t, testNow, snap.FetchedAt)
	assert.Len(t, snap.Contracts, 90)

	exps := snap.Expirations()
	require.Len(t, exps, 3)
	assert.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), exps[0])

	for _, c := range snap.Contracts {
		assert.True(t, c.HasTwoSidedQuote(), "conid %d", c.ConID)
	}
}

func TestFetchChain_AbsoluteExpiration(t *testing.T) {
	path := writeFile(t, `{"chains":[{"ticker":"BETA","spotPrice":48.5,"contracts":[
		{"conid":1,"strike":50,"expiration":"2025-03-21","type":"C","bid":0.9,"ask":1.0}
	]}]}`)

	snap, err := fixture.New(path).WithClock(clock).FetchChain(context.Background(), ports.ChainRequest{Ticker: "BETA"})
	require.NoError(t, err)
	require.Len(t, snap.Contracts, 1)

	c := snap.Contracts[0]
	assert.Equal(t, domain.Call, c.Type)
	assert.Equal(t, "BETA", c.Symbol)
	assert.Equal(t, time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), c.Expiration)
}

func TestFetchChain_Errors(t *testing.T) {
	ctx := context.Background()
	req := ports.ChainRequest{Ticker: "ACME"}

	_, err := fixture.New(filepath.Join(t.TempDir(), "missing.json")).FetchChain(ctx, req)
	assert.Error(t, err)

	_, err = fixture.New(writeFile(t, `{not json`)).FetchChain(ctx, req)
	assert.Error(t, err)

	_, err = fixture.New(writeFile(t, `{"chains":[]}`)).FetchChain(ctx, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chain for ACME")

	_, err = fixture.New(writeFile(t, `{"chains":[{"ticker":"ACME","contracts":[{"type":"X"}]}]}`)).FetchChain(ctx, req)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = fixture.New(writeFile(t, `{"chains":[]}`)).FetchChain(cancelled, req)
	assert.ErrorIs(t, err, context.Canceled)
}
