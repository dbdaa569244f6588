package provider

import (
	"testing"
	"time"
)

func newTestTracker(now *time.Time) *endpointTracker {
	t := newEndpointTracker(defaultRateClasses, fallbackRateClass)
	t.now = func() time.Time { return *now }
	return t
}

func TestClassify(t *testing.T) {
	tracker := newEndpointTracker(defaultRateClasses, fallbackRateClass)

	tests := []struct {
		endpoint string
		want     string
	}{
		{"/api/v4/profile-bulk", "profile-bulk"},
		{"/api/v3/bulk-ratios", "bulk"},
		{"/api/v3/profile/AAPL", "default"},
		{"/api/fundamentals/AAPL.US", "default"},
	}
	for _, tt := range tests {
		if got := tracker.classify(tt.endpoint).Name; got != tt.want {
			t.Errorf("classify(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestReserveWindowCeiling(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	tracker := newTestTracker(&now)
	// Class budget of 2/min with no spacing requirement.
	tracker.classes = []RateClass{{Name: "pair", PerMinute: 2}}

	if d := tracker.Reserve("/pair/a"); d != 0 {
		t.Fatalf("first reserve delayed %v, want 0", d)
	}
	now = now.Add(time.Second)
	if d := tracker.Reserve("/pair/a"); d != 0 {
		t.Fatalf("second reserve delayed %v, want 0", d)
	}

	// Third call inside the window must wait for the first slot to expire.
	now = now.Add(time.Second)
	d := tracker.Reserve("/pair/a")
	want := 58 * time.Second // first issued at T, window frees at T+60, now is T+2
	if d != want {
		t.Errorf("third reserve delayed %v, want %v", d, want)
	}
}

func TestReserveMinSpacing(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	tracker := newTestTracker(&now)
	tracker.classes = []RateClass{{Name: "spaced", PerMinute: 100, MinSpacing: 4 * time.Second}}

	if d := tracker.Reserve("/spaced/x"); d != 0 {
		t.Fatalf("first reserve delayed %v, want 0", d)
	}
	now = now.Add(time.Second)
	if d := tracker.Reserve("/spaced/x"); d != 3*time.Second {
		t.Errorf("second reserve delayed %v, want 3s spacing remainder", d)
	}
}

func TestReserveWindowSlides(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	tracker := newTestTracker(&now)
	tracker.classes = []RateClass{{Name: "pair", PerMinute: 2}}

	tracker.Reserve("/pair/a")
	tracker.Reserve("/pair/a")

	// Once the window has slid past the old stamps, requests flow freely.
	now = now.Add(2 * time.Minute)
	if d := tracker.Reserve("/pair/a"); d != 0 {
		t.Errorf("reserve after window slid delayed %v, want 0", d)
	}
}

func TestEndpointsThrottleIndependently(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	tracker := newTestTracker(&now)
	tracker.classes = []RateClass{{Name: "bulk", PerMinute: 1}}

	if d := tracker.Reserve("/bulk/a"); d != 0 {
		t.Fatalf("first endpoint delayed %v, want 0", d)
	}
	// A different endpoint in the same class has its own budget.
	if d := tracker.Reserve("/bulk/b"); d != 0 {
		t.Errorf("second endpoint delayed %v, want 0", d)
	}
	if d := tracker.Reserve("/bulk/a"); d == 0 {
		t.Error("repeat on exhausted endpoint should be delayed")
	}
}
