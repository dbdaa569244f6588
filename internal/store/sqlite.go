package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"screener/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RecordStore = (*SQLiteStore)(nil)

// SQLiteStore implements RecordStore backed by a SQLite database. Each
// record is stored as its JSON document keyed by symbol, so the Metric
// null/Infinity encoding is shared with the JSON file backend.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS stocks (
	symbol       TEXT PRIMARY KEY,
	data         TEXT NOT NULL,
	score        REAL NOT NULL,
	sector       TEXT,
	last_updated INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stocks_score ON stocks(score);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load implements RecordStore.
func (s *SQLiteStore) Load(ctx context.Context) ([]domain.StockRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM stocks ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("querying stocks: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Page implements RecordStore.
func (s *SQLiteStore) Page(ctx context.Context, offset, limit int) ([]domain.StockRecord, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM stocks ORDER BY symbol LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying stocks page: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Count implements RecordStore.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stocks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting stocks: %w", err)
	}
	return n, nil
}

// ReplaceAll implements RecordStore: delete and re-insert inside one
// transaction, so readers see either the old set or the new one.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, records []domain.StockRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stocks`); err != nil {
		return fmt.Errorf("clearing stocks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stocks (symbol, data, score, sector, last_updated) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", r.Symbol, err)
		}
		if _, err := stmt.ExecContext(ctx, r.Symbol, string(data), r.Score, r.Sector, r.LastUpdated.UnixMilli()); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.Symbol, err)
		}
	}

	return tx.Commit()
}

// Ping implements RecordStore.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanRecords(rows *sql.Rows) ([]domain.StockRecord, error) {
	records := []domain.StockRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var rec domain.StockRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
