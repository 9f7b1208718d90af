package storage

// sqlite.go keeps scan history and watched candidates.
//
//   - `scans`: one light row per completed scan (counts and best candidate).
//   - `watched_candidates`: candidates the user chose to follow, stored as the JSON
//     the scanner emitted. The store never interprets the payload.
//   - Scans older than the retention window are pruned on open. Watched candidates
//     are kept until removed.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
    ref             TEXT PRIMARY KEY,
    ticker          TEXT    NOT NULL,
    scanned_at      INTEGER NOT NULL,
    spot_price      REAL    NOT NULL DEFAULT 0,
    deal_price      REAL    NOT NULL DEFAULT 0,
    candidate_count INTEGER NOT NULL DEFAULT 0,
    rejected        INTEGER NOT NULL DEFAULT 0,
    best_label      TEXT    NOT NULL DEFAULT '',
    best_yield      REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS watched_candidates (
    id         TEXT PRIMARY KEY,
    ticker     TEXT    NOT NULL,
    label      TEXT    NOT NULL DEFAULT '',
    payload    TEXT    NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_ticker_at ON scans(ticker, scanned_at DESC);
CREATE INDEX IF NOT EXISTS idx_watched_ticker  ON watched_candidates(ticker);
`

const retentionScans = 90 * 24 * time.Hour

// ErrNotFound is returned when a watched candidate does not exist.
var ErrNotFound = errors.New("storage: not found")

// SQLiteStorage implements ports.CandidateStore on SQLite (pure Go, no CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at path, applies the schema and
// prunes old scans.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if n, err := s.pruneOld(context.Background()); err != nil {
		slog.Warn("storage prune failed", "err", err)
	} else if n > 0 {
		slog.Debug("old scans pruned", "rows", n)
	}
	return s, nil
}

// SaveScan records a scan summary. Saving the same ref twice overwrites it.
func (s *SQLiteStorage) SaveScan(ctx context.Context, rec domain.ScanRecord) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO scans
			(ref, ticker, scanned_at, spot_price, deal_price, candidate_count, rejected, best_label, best_yield)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			scanned_at      = excluded.scanned_at,
			spot_price      = excluded.spot_price,
			deal_price      = excluded.deal_price,
			candidate_count = excluded.candidate_count,
			rejected        = excluded.rejected,
			best_label      = excluded.best_label,
			best_yield      = excluded.best_yield
	`,
		rec.Ref, rec.Ticker, toMillis(rec.ScannedAt),
		rec.SpotPrice, rec.DealPrice,
		rec.CandidateCount, rec.Rejected,
		rec.BestLabel, rec.BestYield,
	); err != nil {
		return fmt.Errorf("storage.SaveScan: insert %s: %w", rec.Ref, err)
	}
	return nil
}

// GetHistory returns scans in [from, to], newest first. An empty ticker matches all.
func (s *SQLiteStorage) GetHistory(ctx context.Context, ticker string, from, to time.Time) ([]domain.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, ticker, scanned_at, spot_price, deal_price,
		       candidate_count, rejected, best_label, best_yield
		FROM scans
		WHERE scanned_at BETWEEN ? AND ?
		  AND (? = '' OR ticker = ?)
		ORDER BY scanned_at DESC, ref
	`, toMillis(from), toMillis(to), ticker, ticker)
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.ScanRecord
	for rows.Next() {
		var rec domain.ScanRecord
		var at int64
		if err := rows.Scan(
			&rec.Ref, &rec.Ticker, &at, &rec.SpotPrice, &rec.DealPrice,
			&rec.CandidateCount, &rec.Rejected, &rec.BestLabel, &rec.BestYield,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}
		rec.ScannedAt = fromMillis(at)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// WatchCandidate stores a watched candidate, replacing one with the same ID.
func (s *SQLiteStorage) WatchCandidate(ctx context.Context, w domain.WatchedCandidate) error {
	if w.ID == "" {
		return fmt.Errorf("storage.WatchCandidate: empty id")
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO watched_candidates (id, ticker, label, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label   = excluded.label,
			payload = excluded.payload
	`, w.ID, w.Ticker, w.Label, string(w.Payload), toMillis(w.CreatedAt)); err != nil {
		return fmt.Errorf("storage.WatchCandidate: insert %s: %w", w.ID, err)
	}
	return nil
}

// ListWatched returns watched candidates, oldest first. An empty ticker matches all.
func (s *SQLiteStorage) ListWatched(ctx context.Context, ticker string) ([]domain.WatchedCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticker, label, payload, created_at
		FROM watched_candidates
		WHERE (? = '' OR ticker = ?)
		ORDER BY created_at, id
	`, ticker, ticker)
	if err != nil {
		return nil, fmt.Errorf("storage.ListWatched: query: %w", err)
	}
	defer rows.Close()

	var out []domain.WatchedCandidate
	for rows.Next() {
		var w domain.WatchedCandidate
		var payload string
		var at int64
		if err := rows.Scan(&w.ID, &w.Ticker, &w.Label, &payload, &at); err != nil {
			return nil, fmt.Errorf("storage.ListWatched: scan row: %w", err)
		}
		w.Payload = []byte(payload)
		w.CreatedAt = fromMillis(at)
		out = append(out, w)
	}
	return out, rows.Err()
}

// Unwatch removes a watched candidate. Returns ErrNotFound if it does not exist.
func (s *SQLiteStorage) Unwatch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watched_candidates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage.Unwatch: delete %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("storage.Unwatch: %s: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- internal helpers ---

// pruneOld drops scans past the retention window and returns how many went.
func (s *SQLiteStorage) pruneOld(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-retentionScans)
	res, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE scanned_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("storage.pruneOld: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage.pruneOld: rows affected: %w", err)
	}
	return n, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
