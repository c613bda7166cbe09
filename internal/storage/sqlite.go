package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"cryptoindex/internal/finance"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Close() error
}

// SeriesKey identifies one raw fetch.
type SeriesKey struct {
	Provider string
	Quote    string
	Asset    string
	Days     int
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%dd", k.Provider, k.Quote, k.Asset, k.Days)
}

// Store caches raw provider price series. It never holds computed index data.
type Store struct {
	db  DB
	now func() time.Time
}

func OpenSQLite(dsn string) (*sql.DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(ctx context.Context, db DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS price_series(
		provider TEXT NOT NULL,
		quote TEXT NOT NULL,
		asset TEXT NOT NULL,
		days INTEGER NOT NULL,
		fetched_at INTEGER NOT NULL,
		points TEXT NOT NULL,
		PRIMARY KEY (provider, quote, asset, days)
	)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db, now: time.Now} }

// point is the stored form: unix milliseconds and price.
type point [2]float64

// SaveSeries replaces the cached points for key.
func (s *Store) SaveSeries(ctx context.Context, key SeriesKey, points []finance.Point) error {
	enc := make([]point, len(points))
	for i, p := range points {
		enc[i] = point{float64(p.Time.UnixMilli()), p.Price}
	}
	payload, err := json.Marshal(enc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO price_series(provider,quote,asset,days,fetched_at,points)
		VALUES(?,?,?,?,?,?)`,
		key.Provider, key.Quote, key.Asset, key.Days, s.now().Unix(), string(payload))
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// LoadSeries returns the cached points for key when they are younger than maxAge.
func (s *Store) LoadSeries(ctx context.Context, key SeriesKey, maxAge time.Duration) ([]finance.Point, bool, error) {
	var (
		fetchedAt int64
		payload   string
	)
	err := s.db.QueryRowContext(ctx, `SELECT fetched_at, points FROM price_series
		WHERE provider=? AND quote=? AND asset=? AND days=?`,
		key.Provider, key.Quote, key.Asset, key.Days).Scan(&fetchedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	if s.now().Sub(time.Unix(fetchedAt, 0)) >= maxAge {
		return nil, false, nil
	}
	var enc []point
	if err := json.Unmarshal([]byte(payload), &enc); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	out := make([]finance.Point, len(enc))
	for i, p := range enc {
		out[i] = finance.Point{Time: time.UnixMilli(int64(p[0])).UTC(), Price: p[1]}
	}
	return out, true, nil
}

// Purge deletes entries fetched more than maxAge ago and reports how many went.
func (s *Store) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM price_series WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return res.RowsAffected()
}
