package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"screener/internal/domain"
)

// StatusStore persists the single ImportStatus and BatchProgress records as
// small JSON files, overwritten in place (atomically) and polled by the
// dashboard's status endpoint.
type StatusStore struct {
	mu  sync.Mutex
	dir string
}

const (
	statusFile   = "import-status.json"
	progressFile = "import-progress.json"
)

// NewStatusStore creates a status store rooted at dir.
func NewStatusStore(dir string) (*StatusStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating status dir: %w", err)
	}
	return &StatusStore{dir: dir}, nil
}

// ReadStatus returns the persisted status, or an idle zero status when none
// has been written yet.
func (s *StatusStore) ReadStatus() (domain.ImportStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := domain.ImportStatus{State: domain.StateIdle}
	if err := s.readJSON(statusFile, &status); err != nil {
		return domain.ImportStatus{State: domain.StateIdle}, err
	}
	return status, nil
}

// WriteStatus overwrites the status record.
func (s *StatusStore) WriteStatus(status domain.ImportStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(statusFile, status)
}

// ReadProgress returns the persisted batch progress, zero-valued when none
// has been written yet.
func (s *StatusStore) ReadProgress() (domain.BatchProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var progress domain.BatchProgress
	if err := s.readJSON(progressFile, &progress); err != nil {
		return domain.BatchProgress{}, err
	}
	return progress, nil
}

// WriteProgress overwrites the batch progress record.
func (s *StatusStore) WriteProgress(progress domain.BatchProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(progressFile, progress)
}

func (s *StatusStore) readJSON(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func (s *StatusStore) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, name), data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
