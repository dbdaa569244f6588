package provider

import (
	"strings"
	"sync"
	"time"
)

// RateClass is a named request budget applied to a family of endpoints.
// Endpoints are assigned to the first class whose name appears as a
// substring of the path; unmatched endpoints get the fallback class.
type RateClass struct {
	Name       string
	PerMinute  int           // requests allowed per rolling 60s window
	MinSpacing time.Duration // minimum gap between consecutive requests
}

// Default classes for the upstream financial-data APIs. Bulk endpoints
// return thousands of rows per call and get the tightest budgets. Order
// matters: the more specific class is listed first.
var defaultRateClasses = []RateClass{
	{Name: "profile-bulk", PerMinute: 8, MinSpacing: 7 * time.Second},
	{Name: "bulk", PerMinute: 15, MinSpacing: 4 * time.Second},
}

var fallbackRateClass = RateClass{Name: "default", PerMinute: 60, MinSpacing: 500 * time.Millisecond}

const windowLength = time.Minute

// endpointState tracks one endpoint's request timestamps inside the current
// rolling window plus its last-request time.
type endpointState struct {
	stamps []time.Time
	last   time.Time
}

// endpointTracker enforces per-endpoint window ceilings and minimum spacing.
// Reserve computes the wait and books the slot in one step, so the caller
// holds no lock while sleeping.
type endpointTracker struct {
	mu       sync.Mutex
	classes  []RateClass
	fallback RateClass
	states   map[string]*endpointState
	now      func() time.Time
}

func newEndpointTracker(classes []RateClass, fallback RateClass) *endpointTracker {
	return &endpointTracker{
		classes:  classes,
		fallback: fallback,
		states:   make(map[string]*endpointState),
		now:      time.Now,
	}
}

// classify returns the rate class for an endpoint path.
func (t *endpointTracker) classify(endpoint string) RateClass {
	for _, c := range t.classes {
		if strings.Contains(endpoint, c.Name) {
			return c
		}
	}
	return t.fallback
}

// Reserve returns how long the caller must wait before issuing a request to
// endpoint, and records the request as issued at that future instant. The
// delay is the larger of the window-ceiling wait and the spacing wait.
func (t *endpointTracker) Reserve(endpoint string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	class := t.classify(endpoint)
	now := t.now()

	st := t.states[endpoint]
	if st == nil {
		st = &endpointState{}
		t.states[endpoint] = st
	}

	// Drop stamps that have left the rolling window.
	cutoff := now.Add(-windowLength)
	kept := st.stamps[:0]
	for _, s := range st.stamps {
		if s.After(cutoff) {
			kept = append(kept, s)
		}
	}
	st.stamps = kept

	var delay time.Duration

	// Window ceiling: wait until the oldest in-window request expires.
	if class.PerMinute > 0 && len(st.stamps) >= class.PerMinute {
		oldest := st.stamps[len(st.stamps)-class.PerMinute]
		if d := oldest.Add(windowLength).Sub(now); d > delay {
			delay = d
		}
	}

	// Minimum spacing since the previous request.
	if class.MinSpacing > 0 && !st.last.IsZero() {
		if d := st.last.Add(class.MinSpacing).Sub(now); d > delay {
			delay = d
		}
	}

	issued := now.Add(delay)
	st.stamps = append(st.stamps, issued)
	st.last = issued
	return delay
}
