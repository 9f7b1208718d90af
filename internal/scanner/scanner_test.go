package scanner_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/marketdata"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/metrics"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/ports"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockProvider struct {
	mu    sync.Mutex
	snap  domain.ChainSnapshot
	err   error
	calls int
	last  ports.ChainRequest
}

func (m *mockProvider) FetchChain(_ context.Context, req ports.ChainRequest) (domain.ChainSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = req
	return m.snap, m.err
}

type mockNotifier struct {
	notified []domain.ScanResult
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, r domain.ScanResult) error {
	m.notified = append(m.notified, r)
	return m.err
}

type mockStore struct {
	saved   []domain.ScanRecord
	watched []domain.WatchedCandidate
	err     error
}

func (m *mockStore) SaveScan(_ context.Context, rec domain.ScanRecord) error {
	m.saved = append(m.saved, rec)
	return m.err
}

func (m *mockStore) GetHistory(_ context.Context, _ string, _, _ time.Time) ([]domain.ScanRecord, error) {
	return m.saved, nil
}

func (m *mockStore) WatchCandidate(_ context.Context, w domain.WatchedCandidate) error {
	m.watched = append(m.watched, w)
	return m.err
}

func (m *mockStore) ListWatched(_ context.Context, _ string) ([]domain.WatchedCandidate, error) {
	return m.watched, nil
}

func (m *mockStore) Unwatch(_ context.Context, _ string) error { return nil }

func (m *mockStore) Close() error { return nil }

// --- helpers ---

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newService(p ports.ChainProvider, n ports.Notifier, s ports.CandidateStore, clk *clock) *scanner.Service {
	cfg := scanner.DefaultConfig()
	cfg.SnapshotTTL = 10 * time.Minute
	return scanner.New(cfg, marketdata.New(p, nil), s, n,
		scanner.WithClock(clk.now),
		scanner.WithMetrics(metrics.New()),
	)
}

func request(mut func(*domain.ScanParameters)) scanner.ScanRequest {
	return scanner.ScanRequest{Deal: testDeal(), Params: params(mut)}
}

// --- tests ---

func TestService_Scan_Success(t *testing.T) {
	prov := &mockProvider{snap: fullChain()}
	svc := newService(prov, nil, nil, &clock{testNow})

	res, err := svc.Scan(context.Background(), request(nil))
	require.NoError(t, err)

	assert.Equal(t, 1, prov.calls)
	assert.Equal(t, "ACME", prov.last.Ticker)
	assert.InDelta(t, 200, prov.last.StrikeMin, 1e-9)
	assert.InDelta(t, 275, prov.last.StrikeMax, 1e-9)

	assert.Equal(t, "ACME", res.Ticker)
	assert.NotEmpty(t, res.Ref)
	assert.Equal(t, 242.0, res.SpotPrice)
	assert.NotEmpty(t, res.Candidates)
	assert.LessOrEqual(t, len(res.Candidates), 5*len(testExps))
	assert.Equal(t, scanner.DefaultConfig().Params, svc.DefaultParams())
}

func TestService_InvalidParameterRejectedBeforeFetch(t *testing.T) {
	prov := &mockProvider{snap: fullChain()}
	svc := newService(prov, nil, nil, &clock{testNow})

	_, err := svc.Scan(context.Background(), request(func(p *domain.ScanParameters) {
		p.ShortStrikeLowerPct = 75
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidParameter))
	assert.Zero(t, prov.calls)

	var se *domain.ScanError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Input, "shortStrikeLowerPct=75")
}

func TestService_InvalidDealRejectedBeforeFetch(t *testing.T) {
	prov := &mockProvider{snap: fullChain()}
	svc := newService(prov, nil, nil, &clock{testNow})

	req := request(nil)
	req.Deal.DealPrice = 0
	_, err := svc.FetchChain(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	assert.Zero(t, prov.calls)
}

func TestService_FetchFailureIsConnectionError(t *testing.T) {
	prov := &mockProvider{err: errors.New("gateway not authenticated")}
	svc := newService(prov, nil, nil, &clock{testNow})

	_, err := svc.Scan(context.Background(), request(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Contains(t, err.Error(), "gateway not authenticated")
}

func TestService_TwoStepFlow(t *testing.T) {
	prov := &mockProvider{snap: fullChain()}
	clk := &clock{testNow}
	svc := newService(prov, nil, nil, clk)
	ctx := context.Background()

	ref, err := svc.FetchChain(ctx, request(nil))
	require.NoError(t, err)

	// Same snapshot, different parameters, no second fetch.
	wide, err := svc.GenerateStrategies(ctx, ref, testDeal(), params(func(p *domain.ScanParameters) { p.TopStrategiesPerExpiration = 10 }))
	require.NoError(t, err)
	narrow, err := svc.GenerateStrategies(ctx, ref, testDeal(), params(func(p *domain.ScanParameters) { p.TopStrategiesPerExpiration = 1 }))
	require.NoError(t, err)
	assert.Equal(t, 1, prov.calls)
	assert.Greater(t, len(wide.Candidates), len(narrow.Candidates))
	assert.Len(t, narrow.Candidates, len(testExps))
	assert.Equal(t, ref, narrow.Ref)

	// Expired reference.
	clk.t = clk.t.Add(11 * time.Minute)
	_, err = svc.GenerateStrategies(ctx, ref, testDeal(), params(nil))
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = svc.GenerateStrategies(ctx, "no-such-ref", testDeal(), params(nil))
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestService_EmptyRange(t *testing.T) {
	snap := fullChain()
	for i := range snap.Contracts {
		snap.Contracts[i].Strike += 500
	}
	svc := newService(&mockProvider{snap: snap}, nil, nil, &clock{testNow})

	_, err := svc.Scan(context.Background(), request(nil))
	assert.ErrorIs(t, err, domain.ErrNoContractsInRange)
}

func TestService_ScanAndReport(t *testing.T) {
	prov := &mockProvider{snap: fullChain()}
	notifier := &mockNotifier{err: errors.New("terminal gone")}
	store := &mockStore{}
	svc := newService(prov, notifier, store, &clock{testNow})

	res, err := svc.ScanAndReport(context.Background(), request(nil))
	require.NoError(t, err, "notifier failures must not fail the scan")

	require.Len(t, notifier.notified, 1)
	require.Len(t, store.saved, 1)
	assert.Equal(t, res.Ref, store.saved[0].Ref)
	assert.Equal(t, len(res.Candidates), store.saved[0].CandidateCount)
	assert.NotEmpty(t, store.saved[0].BestLabel)
}

func TestService_ScanAndReport_FetchFailureSkipsReport(t *testing.T) {
	notifier := &mockNotifier{}
	store := &mockStore{}
	svc := newService(&mockProvider{err: errors.New("down")}, notifier, store, &clock{testNow})

	_, err := svc.ScanAndReport(context.Background(), request(nil))
	require.Error(t, err)
	assert.Empty(t, notifier.notified)
	assert.Empty(t, store.saved)
}

func TestService_Watch(t *testing.T) {
	store := &mockStore{}
	svc := newService(&mockProvider{snap: fullChain()}, nil, store, &clock{testNow})

	res, err := svc.Scan(context.Background(), request(nil))
	require.NoError(t, err)
	best, ok := res.Best()
	require.True(t, ok)

	id, err := svc.Watch(context.Background(), "ACME", best)
	require.NoError(t, err)
	require.Len(t, store.watched, 1)
	assert.Equal(t, id, store.watched[0].ID)
	assert.Equal(t, best.Describe(), store.watched[0].Label)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(store.watched[0].Payload, &payload))
	assert.Equal(t, string(best.Strategy), payload["strategy"])
	assert.Contains(t, payload, "midpoint")
	assert.Contains(t, payload, "farTouch")
	assert.Contains(t, payload, "liquidityScore")
	assert.Contains(t, payload, "strikes")
}

func TestService_WatchWithoutStore(t *testing.T) {
	svc := newService(&mockProvider{}, nil, nil, &clock{testNow})
	_, err := svc.Watch(context.Background(), "ACME", domain.SpreadCandidate{})
	assert.Error(t, err)
}
