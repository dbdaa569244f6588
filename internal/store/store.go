// Package store persists the screened record set, the import status, and
// dated snapshots. The record set is replaced wholesale per batch: there is
// no row-level update, and concurrent readers may see a consistent-but-stale
// set, never a half-written one.
package store

import (
	"context"

	"screener/internal/domain"
)

// RecordStore persists and serves the full screened record set.
type RecordStore interface {
	// Load returns the entire record set, sorted by symbol.
	Load(ctx context.Context) ([]domain.StockRecord, error)

	// Page returns up to limit records starting at offset, symbol order.
	Page(ctx context.Context, offset, limit int) ([]domain.StockRecord, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	// ReplaceAll atomically replaces the record set.
	ReplaceAll(ctx context.Context, records []domain.StockRecord) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
