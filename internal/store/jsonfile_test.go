package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"screener/internal/domain"
)

func testRecord(symbol string, score float64) domain.StockRecord {
	return domain.StockRecord{
		Symbol:      symbol,
		Name:        symbol + " Inc",
		Exchange:    "NYSE",
		Price:       domain.Some(10),
		Score:       score,
		LastUpdated: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

func TestJSONStoreMissingFileIsEmpty(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "stocks.json"))

	records, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from missing file, want 0", len(records))
	}

	n, err := s.Count(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Count = %d, %v; want 0, nil", n, err)
	}
}

func TestJSONStoreReplaceAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewJSONStore(filepath.Join(t.TempDir(), "stocks.json"))

	in := []domain.StockRecord{
		testRecord("MSFT", 75),
		testRecord("AAPL", 80),
	}
	// An infinite ratio must survive the file round trip.
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
	// Stored sorted by symbol.
	if got[0].Symbol != "AAPL" || got[1].Symbol != "MSFT" {
		t.Errorf("order = [%s, %s], want [AAPL, MSFT]", got[0].Symbol, got[1].Symbol)
	}
	if !math.IsInf(got[1].NetDebtToEBITDA.Value, 1) {
		t.Errorf("MSFT netDebtToEBITDA = %+v, want +Inf", got[1].NetDebtToEBITDA)
	}
}

func TestJSONStorePage(t *testing.T) {
	ctx := context.Background()
	s := NewJSONStore(filepath.Join(t.TempDir(), "stocks.json"))

	in := []domain.StockRecord{
		testRecord("AAA", 1), testRecord("BBB", 2), testRecord("CCC", 3),
	}
	if err := s.ReplaceAll(ctx, in); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	page, err := s.Page(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 1 || page[0].Symbol != "BBB" {
		t.Errorf("Page(1,1) = %v, want [BBB]", page)
	}

	// Offset past the end is an empty page, not an error.
	page, err = s.Page(ctx, 10, 5)
	if err != nil {
		t.Fatalf("Page past end: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("Page(10,5) = %v, want empty", page)
	}

	// Non-positive limit returns the rest.
	page, err = s.Page(ctx, 1, 0)
	if err != nil {
		t.Fatalf("Page with zero limit: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("Page(1,0) returned %d records, want 2", len(page))
	}
}

func TestJSONStoreReloadsOnExternalWrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stocks.json")

	writer := NewJSONStore(path)
	if err := writer.ReplaceAll(ctx, []domain.StockRecord{testRecord("AAA", 1)}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	reader := NewJSONStore(path)
	if n, _ := reader.Count(ctx); n != 1 {
		t.Fatalf("reader sees %d records, want 1", n)
	}

	// Another process replaces the file; make the mtime observably newer.
	if err := writer.ReplaceAll(ctx, []domain.StockRecord{
		testRecord("AAA", 1), testRecord("BBB", 2),
	}); err != nil {
		t.Fatalf("second ReplaceAll: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if n, _ := reader.Count(ctx); n != 2 {
		t.Errorf("reader sees %d records after external write, want 2", n)
	}
}

func TestJSONStorePing(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "stocks.json"))
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping on existing dir: %v", err)
	}

	gone := NewJSONStore("/nonexistent/dir/stocks.json")
	if err := gone.Ping(context.Background()); err == nil {
		t.Error("Ping on missing dir should fail")
	}
}
