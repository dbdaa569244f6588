package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := c.Get("AAPL"); got != nil {
		t.Fatalf("Get(missing) = %q, want nil", got)
	}

	payload := []byte(`{"price": 150.5}`)
	if err := c.Set("AAPL", payload); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := c.Get("AAPL"); string(got) != string(payload) {
		t.Errorf("Get = %q, want %q", got, payload)
	}

	// Overwrite wins.
	if err := c.Set("AAPL", []byte(`{"price": 151}`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got := c.Get("AAPL"); string(got) != `{"price": 151}` {
		t.Errorf("Get after overwrite = %q", got)
	}
}

func TestExpiry(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	base := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	if err := c.Set("AAPL", []byte(`1`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	c.now = func() time.Time { return base.Add(59 * time.Minute) }
	if c.Get("AAPL") == nil {
		t.Error("entry expired before its TTL")
	}

	c.now = func() time.Time { return base.Add(time.Hour) }
	if c.Get("AAPL") != nil {
		t.Error("entry still served at TTL boundary")
	}
}

func TestGetDoesNotDelete(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	base := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	if err := c.Set("AAPL", []byte(`1`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	if c.Get("AAPL") != nil {
		t.Fatal("expired entry should not be served")
	}
	if _, err := os.Stat(filepath.Join(dir, "AAPL.json")); err != nil {
		t.Errorf("Get removed the expired file: %v", err)
	}
}

func TestClearExpired(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	base := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Set("OLD", []byte(`1`))

	c.now = func() time.Time { return base.Add(30 * time.Minute) }
	c.Set("FRESH", []byte(`2`))

	// A corrupt file counts as expired.
	if err := os.WriteFile(filepath.Join(dir, "JUNK.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("writing junk: %v", err)
	}

	c.now = func() time.Time { return base.Add(90 * time.Minute) }
	removed, err := c.ClearExpired()
	if err != nil {
		t.Fatalf("ClearExpired: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed %d entries, want 2", removed)
	}
	if c.Get("FRESH") == nil {
		t.Error("fresh entry was removed")
	}
}

func TestClearAll(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Set("A", []byte(`1`))
	c.Set("B", []byte(`2`))

	if err := c.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if c.Get("A") != nil || c.Get("B") != nil {
		t.Error("entries survived ClearAll")
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"AAPL", "AAPL"},
		{"BRK.B", "BRK.B"},
		{"rds/a", "rds_a"},
		{"a b:c", "a_b_c"},
	}
	for _, tt := range tests {
		if got := sanitizeKey(tt.key); got != tt.want {
			t.Errorf("sanitizeKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
