package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cryptoindex/internal/finance"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite("file:" + filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := InitSchema(context.Background(), db); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return NewStore(db)
}

func TestStore_RoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	key := SeriesKey{Provider: "coingecko", Quote: "usd", Asset: "Bitcoin", Days: 30}
	pts := []finance.Point{
		{Time: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Price: 70123.45},
		{Time: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), Price: 69001.5},
	}
	if err := s.SaveSeries(ctx, key, pts); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	got, ok, err := s.LoadSeries(ctx, key, time.Hour)
	if err != nil || !ok {
		t.Fatalf("LoadSeries = %v, %v", ok, err)
	}
	if len(got) != 2 || !got[0].Time.Equal(pts[0].Time) || got[1].Price != pts[1].Price {
		t.Fatalf("LoadSeries = %+v, want %+v", got, pts)
	}

	other := key
	other.Days = 90
	if _, ok, _ := s.LoadSeries(ctx, other, time.Hour); ok {
		t.Error("different lookback must miss")
	}

	now = now.Add(2 * time.Hour)
	if _, ok, _ := s.LoadSeries(ctx, key, time.Hour); ok {
		t.Error("expired entry must miss")
	}

	n, err := s.Purge(ctx, time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("Purge = %d, %v; want 1", n, err)
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	key := SeriesKey{Provider: "static", Quote: "usd", Asset: "Ethereum", Days: 7}
	t0 := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	if err := s.SaveSeries(ctx, key, []finance.Point{{Time: t0, Price: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSeries(ctx, key, []finance.Point{{Time: t0, Price: 2}, {Time: t0.AddDate(0, 0, 1), Price: 3}}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.LoadSeries(ctx, key, time.Hour)
	if err != nil || !ok || len(got) != 2 || got[0].Price != 2 {
		t.Fatalf("LoadSeries = %+v, %v, %v", got, ok, err)
	}
}
