package store

import (
	"testing"
	"time"

	"screener/internal/domain"
)

func TestStatusDefaultsWhenMissing(t *testing.T) {
	s, err := NewStatusStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStatusStore: %v", err)
	}

	status, err := s.ReadStatus()
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if status.State != domain.StateIdle {
		t.Errorf("state = %q, want idle", status.State)
	}

	progress, err := s.ReadProgress()
	if err != nil {
		t.Fatalf("ReadProgress: %v", err)
	}
	if progress.TotalSymbols != 0 || progress.ProcessedSymbols != 0 {
		t.Errorf("progress = %+v, want zero", progress)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	s, err := NewStatusStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStatusStore: %v", err)
	}

	reset := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	in := domain.ImportStatus{
		State:          domain.StateRateLimited,
		LastRun:        time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC),
		RateLimitReset: reset,
		Message:        "waiting out upstream rate limit",
	}
	if err := s.WriteStatus(in); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}

	got, err := s.ReadStatus()
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if got.State != domain.StateRateLimited {
		t.Errorf("state = %q, want rate_limited", got.State)
	}
	if !got.RateLimitReset.Equal(reset) {
		t.Errorf("rateLimitReset = %v, want %v", got.RateLimitReset, reset)
	}
}

func TestProgressOverwrite(t *testing.T) {
	s, err := NewStatusStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStatusStore: %v", err)
	}

	if err := s.WriteProgress(domain.BatchProgress{TotalSymbols: 100, ProcessedSymbols: 10}); err != nil {
		t.Fatalf("WriteProgress: %v", err)
	}
	if err := s.WriteProgress(domain.BatchProgress{TotalSymbols: 100, ProcessedSymbols: 20}); err != nil {
		t.Fatalf("WriteProgress: %v", err)
	}

	got, err := s.ReadProgress()
	if err != nil {
		t.Fatalf("ReadProgress: %v", err)
	}
	if got.ProcessedSymbols != 20 {
		t.Errorf("processed = %d, want latest write 20", got.ProcessedSymbols)
	}
}
