package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"screener/internal/domain"
)

// Compile-time interface check.
var _ RecordStore = (*JSONStore)(nil)

// JSONStore keeps the whole record set in a single JSON array file. Reads
// serve from an in-memory copy that reloads when the file's mtime changes,
// so an importer process and a server process can share the file.
type JSONStore struct {
	path string

	mu       sync.Mutex
	records  []domain.StockRecord
	loadedAt time.Time // mtime of the file the cache was read from
}

// NewJSONStore creates a store backed by the given file path. A missing
// file is an empty record set.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load implements RecordStore.
func (s *JSONStore) Load(_ context.Context) ([]domain.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	out := make([]domain.StockRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Page implements RecordStore.
func (s *JSONStore) Page(_ context.Context, offset, limit int) ([]domain.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.records) {
		return []domain.StockRecord{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(s.records) {
		end = len(s.records)
	}
	out := make([]domain.StockRecord, end-offset)
	copy(out, s.records[offset:end])
	return out, nil
}

// Count implements RecordStore.
func (s *JSONStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return 0, err
	}
	return len(s.records), nil
}

// ReplaceAll implements RecordStore. The write goes to a temp file in the
// same directory, then renames over the target, so a crash mid-write leaves
// the previous set intact.
func (s *JSONStore) ReplaceAll(_ context.Context, records []domain.StockRecord) error {
	sorted := make([]domain.StockRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	data, err := json.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("encoding record set: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("writing record set: %w", err)
	}

	s.records = sorted
	if fi, err := os.Stat(s.path); err == nil {
		s.loadedAt = fi.ModTime()
	}
	return nil
}

// Ping implements RecordStore: the store is reachable when its directory is.
func (s *JSONStore) Ping(_ context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// ensureFresh reloads the file when it changed under us. Callers hold s.mu.
func (s *JSONStore) ensureFresh() error {
	fi, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		s.records = nil
		s.loadedAt = time.Time{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat record set: %w", err)
	}
	if fi.ModTime().Equal(s.loadedAt) && s.records != nil {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading record set: %w", err)
	}
	var records []domain.StockRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decoding record set: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Symbol < records[j].Symbol })

	s.records = records
	s.loadedAt = fi.ModTime()
	return nil
}

// writeFileAtomic writes data to path via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
