package ibkr

// chain.go builds a ChainSnapshot from the Client Portal secdef and
// marketdata endpoints: search, spot, strikes per month, contract info per
// strike, then batched option quotes.
//
// Contract info lookups run in goroutines; the shared rate limiter paces them.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/ports"
)

const (
	searchPath   = "/iserver/secdef/search"
	strikesPath  = "/iserver/secdef/strikes"
	infoPath     = "/iserver/secdef/info"
	snapshotPath = "/iserver/marketdata/snapshot"

	snapshotBatchSize = 50 // max conids per snapshot request
)

var (
	spotFields   = strings.Join([]string{fieldLast, fieldBid, fieldAsk}, ",")
	optionFields = strings.Join([]string{
		fieldLast, fieldBid, fieldAsk, fieldVolume, fieldVolumeAlt, fieldOpenInt, fieldIV, fieldDelta,
	}, ",")
)

// listing is a contract definition that passed the strike and expiry window.
type listing struct {
	info       contractInfo
	expiration time.Time
}

// FetchChain implements ports.ChainProvider.
func (c *Client) FetchChain(ctx context.Context, req ports.ChainRequest) (domain.ChainSnapshot, error) {
	start := time.Now()
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))

	conID, months, err := c.searchUnderlying(ctx, ticker)
	if err != nil {
		return domain.ChainSnapshot{}, fmt.Errorf("ibkr.FetchChain: search: %w", err)
	}

	spot, err := c.spotPrice(ctx, conID)
	if err != nil {
		return domain.ChainSnapshot{}, fmt.Errorf("ibkr.FetchChain: spot: %w", err)
	}

	var listings []listing
	for _, code := range months {
		first, err := parseMonth(code)
		if err != nil {
			slog.Debug("skipping option month", "ticker", ticker, "month", code, "err", err)
			continue
		}
		if !monthInWindow(first, req.ExpiryFrom, req.ExpiryTo) {
			continue
		}
		ls, err := c.monthListings(ctx, conID, code, first, req)
		if err != nil {
			return domain.ChainSnapshot{}, fmt.Errorf("ibkr.FetchChain: month %s: %w", code, err)
		}
		listings = append(listings, ls...)
	}

	snap := domain.ChainSnapshot{
		Ticker:    ticker,
		SpotPrice: spot,
		FetchedAt: time.Now().UTC(),
	}
	if len(listings) == 0 {
		slog.Info("no option listings in window", "ticker", ticker, "months", len(months))
		return snap, nil
	}

	conIDs := make([]int, len(listings))
	for i, l := range listings {
		conIDs[i] = l.info.ConID
	}
	rows, err := c.snapshot(ctx, conIDs, optionFields)
	if err != nil {
		return domain.ChainSnapshot{}, fmt.Errorf("ibkr.FetchChain: quotes: %w", err)
	}

	// A partial chain would skew the short band and the median IV, so a listing
	// without a usable quote row fails the fetch.
	snap.Contracts = make([]domain.OptionContract, 0, len(listings))
	for _, l := range listings {
		row, ok := rows[l.info.ConID]
		if !ok {
			return domain.ChainSnapshot{}, fmt.Errorf("ibkr.FetchChain: no quote for conid %d", l.info.ConID)
		}
		oc, err := mapContract(ticker, l, row)
		if err != nil {
			return domain.ChainSnapshot{}, fmt.Errorf("ibkr.FetchChain: %w", err)
		}
		snap.Contracts = append(snap.Contracts, oc)
	}

	slog.Info("option chain fetched",
		"ticker", ticker,
		"spot", spot,
		"contracts", len(snap.Contracts),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return snap, nil
}

// searchUnderlying resolves the ticker to its conid and option month codes.
func (c *Client) searchUnderlying(ctx context.Context, ticker string) (int, []string, error) {
	var results []searchResult
	if err := c.get(ctx, searchPath, url.Values{"symbol": {ticker}}, &results); err != nil {
		return 0, nil, err
	}

	for _, r := range results {
		if !strings.EqualFold(r.Symbol, ticker) {
			continue
		}
		for _, s := range r.Sections {
			if s.SecType != "OPT" || s.Months == "" {
				continue
			}
			conID, err := strconv.Atoi(r.ConID)
			if err != nil {
				slog.Debug("bad conid in search result", "ticker", ticker, "conid", r.ConID)
				break
			}
			return conID, splitMonths(s.Months), nil
		}
	}
	return 0, nil, fmt.Errorf("no listed options for %s", ticker)
}

func splitMonths(s string) []string {
	parts := strings.Split(s, ";")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Client) spotPrice(ctx context.Context, conID int) (float64, error) {
	rows, err := c.snapshot(ctx, []int{conID}, spotFields)
	if err != nil {
		return 0, err
	}
	spot := spotFromRow(rows[conID])
	if spot <= 0 {
		return 0, fmt.Errorf("no price for underlying conid %d", conID)
	}
	return spot, nil
}

// monthListings lists the contracts of one month whose strike lies in the
// requested band and whose maturity lies in the expiry window.
func (c *Client) monthListings(ctx context.Context, conID int, code string, first time.Time, req ports.ChainRequest) ([]listing, error) {
	var strikes strikesResponse
	q := url.Values{
		"conid":   {strconv.Itoa(conID)},
		"sectype": {"OPT"},
		"month":   {code},
	}
	if err := c.get(ctx, strikesPath, q, &strikes); err != nil {
		return nil, fmt.Errorf("strikes: %w", err)
	}

	type lookup struct {
		right  string
		strike float64
	}
	var lookups []lookup
	for _, k := range strikes.Call {
		if k >= req.StrikeMin && k <= req.StrikeMax {
			lookups = append(lookups, lookup{"C", k})
		}
	}
	for _, k := range strikes.Put {
		if k >= req.StrikeMin && k <= req.StrikeMax {
			lookups = append(lookups, lookup{"P", k})
		}
	}

	type infoResult struct {
		infos []contractInfo
		err   error
		lk    lookup
	}
	resultCh := make(chan infoResult, len(lookups))
	var wg sync.WaitGroup
	for _, lk := range lookups {
		wg.Add(1)
		go func() {
			defer wg.Done()
			infos, err := c.contractInfo(ctx, conID, code, lk.strike, lk.right)
			resultCh <- infoResult{infos: infos, err: err, lk: lk}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	from, to := domain.DateOnly(req.ExpiryFrom), domain.DateOnly(req.ExpiryTo)
	var (
		out      []listing
		firstErr error
	)
	for r := range resultCh {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("contract info %s %v: %w", r.lk.right, r.lk.strike, r.err)
			}
			continue
		}
		for _, info := range r.infos {
			exp := thirdFriday(first)
			if info.MaturityDate != "" {
				var err error
				if exp, err = parseMaturity(info.MaturityDate); err != nil {
					slog.Debug("skipping contract", "conid", info.ConID, "err", err)
					continue
				}
			}
			if exp.Before(from) || exp.After(to) {
				continue
			}
			out = append(out, listing{info: info, expiration: exp})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	// Channel order is arbitrary; keep the request order stable.
	sort.Slice(out, func(i, j int) bool { return out[i].info.ConID < out[j].info.ConID })
	return out, nil
}

func (c *Client) contractInfo(ctx context.Context, conID int, code string, strike float64, right string) ([]contractInfo, error) {
	q := url.Values{
		"conid":   {strconv.Itoa(conID)},
		"sectype": {"OPT"},
		"month":   {code},
		"strike":  {strconv.FormatFloat(strike, 'f', -1, 64)},
		"right":   {right},
	}
	var infos []contractInfo
	if err := c.get(ctx, infoPath, q, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// snapshot fetches market data rows keyed by conid. The gateway answers the
// first request for a conid with an empty row, so each batch is requested
// once as a preflight and again after PreflightDelay.
func (c *Client) snapshot(ctx context.Context, conIDs []int, fields string) (map[int]snapshotRow, error) {
	rows := make(map[int]snapshotRow, len(conIDs))
	for i := 0; i < len(conIDs); i += snapshotBatchSize {
		end := min(i+snapshotBatchSize, len(conIDs))
		ids := make([]string, 0, end-i)
		for _, id := range conIDs[i:end] {
			ids = append(ids, strconv.Itoa(id))
		}
		q := url.Values{"conids": {strings.Join(ids, ",")}, "fields": {fields}}

		if err := c.get(ctx, snapshotPath, q, nil); err != nil {
			return nil, fmt.Errorf("preflight: %w", err)
		}
		c.pause(ctx, c.cfg.PreflightDelay)

		var batch []snapshotRow
		if err := c.get(ctx, snapshotPath, q, &batch); err != nil {
			return nil, err
		}
		for _, row := range batch {
			if id := rowConID(row); id != 0 {
				rows[id] = row
			}
		}
	}
	return rows, nil
}
