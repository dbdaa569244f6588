package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"screener/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "screener.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteReplaceAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	in := []domain.StockRecord{
		testRecord("MSFT", 75),
		testRecord("AAPL", 80),
	}
	in[0].NetDebtToEBITDA = domain.Some(math.Inf(1))

	if err := s.ReplaceAll(ctx, in); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Symbol != "AAPL" || got[1].Symbol != "MSFT" {
		t.Errorf("order = [%s, %s], want [AAPL, MSFT]", got[0].Symbol, got[1].Symbol)
	}
	if !math.IsInf(got[1].NetDebtToEBITDA.Value, 1) {
		t.Errorf("MSFT netDebtToEBITDA = %+v, want +Inf", got[1].NetDebtToEBITDA)
	}
}

func TestSQLiteReplaceAllReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	if err := s.ReplaceAll(ctx, []domain.StockRecord{testRecord("OLD", 1)}); err != nil {
		t.Fatalf("first ReplaceAll: %v", err)
	}
	if err := s.ReplaceAll(ctx, []domain.StockRecord{testRecord("NEW", 2)}); err != nil {
		t.Fatalf("second ReplaceAll: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "NEW" {
		t.Errorf("records = %v, want only NEW", got)
	}
}

func TestSQLitePageAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	in := []domain.StockRecord{
		testRecord("AAA", 1), testRecord("BBB", 2), testRecord("CCC", 3),
	}
	if err := s.ReplaceAll(ctx, in); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v; want 3, nil", n, err)
	}

	page, err := s.Page(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 1 || page[0].Symbol != "BBB" {
		t.Errorf("Page(1,1) = %v, want [BBB]", page)
	}

	page, err = s.Page(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Page with zero limit: %v", err)
	}
	if len(page) != 3 {
		t.Errorf("Page(0,0) returned %d records, want all 3", len(page))
	}
}

func TestSQLitePing(t *testing.T) {
	s := newTestSQLiteStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
