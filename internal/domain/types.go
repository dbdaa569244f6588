// Package domain defines the core screener types: stock records with their
// derived valuation metrics, and the status/progress records persisted by the
// import process.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ---------------------------------------------------------------------------
// Metric — nullable float64
// ---------------------------------------------------------------------------

// Metric is a float64 that distinguishes "absent" from zero. A ratio whose
// inputs are missing is absent, never zero: zero is a valid ratio value and
// must not mean "unknown".
type Metric struct {
	Value float64
	Valid bool
}

// Some returns a valid Metric holding v.
func Some(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// Sub returns a-b, or an absent Metric if either operand is absent.
func Sub(a, b Metric) Metric {
	if !a.Valid || !b.Valid {
		return Metric{}
	}
	return Some(a.Value - b.Value)
}

// MarshalJSON encodes an absent Metric as null. Infinities cannot be
// represented as JSON numbers, so they are encoded as the strings
// "Infinity" and "-Infinity".
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	if math.IsInf(m.Value, 1) {
		return []byte(`"Infinity"`), nil
	}
	if math.IsInf(m.Value, -1) {
		return []byte(`"-Infinity"`), nil
	}
	if math.IsNaN(m.Value) {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts null, a number, or the infinity strings produced by
// MarshalJSON.
func (m *Metric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Metric{}
		return nil
	}
	switch string(data) {
	case `"Infinity"`:
		*m = Some(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*m = Some(math.Inf(-1))
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parsing metric %s: %w", data, err)
	}
	*m = Some(v)
	return nil
}

// ---------------------------------------------------------------------------
// StockRecord
// ---------------------------------------------------------------------------

// StockRecord is one screened equity. Symbol is the identity; two records
// with the same symbol are the same stock.
type StockRecord struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`

	Price           Metric `json:"price"`
	MarketCap       Metric `json:"marketCap"`
	AvgDollarVolume Metric `json:"avgDollarVolume"`

	NetDebtToEBITDA  Metric `json:"netDebtToEBITDA"`
	EVToEBIT         Metric `json:"evToEBIT"`
	ROTCE            Metric `json:"rotce"`
	FCFToNetIncome   Metric `json:"fcfToNetIncome"`
	ShareCountGrowth Metric `json:"shareCountGrowth"`
	PERatio          Metric `json:"peRatio"`
	DividendYield    Metric `json:"dividendYield"`

	Score       float64   `json:"score"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ---------------------------------------------------------------------------
// Import status and progress
// ---------------------------------------------------------------------------

// RunState is the lifecycle state of an import run.
type RunState string

const (
	StateIdle        RunState = "idle"
	StateRunning     RunState = "running"
	StateError       RunState = "error"
	StateRateLimited RunState = "rate_limited"
	StateCompleted   RunState = "completed"
)

// ImportStatus is the single operator-visible status record, overwritten in
// place by the importer.
type ImportStatus struct {
	State          RunState  `json:"state"`
	LastRun        time.Time `json:"lastRun,omitzero"`
	LastError      string    `json:"lastError,omitempty"`
	RateLimitReset time.Time `json:"rateLimitReset,omitzero"`
	Message        string    `json:"message,omitempty"`
}

// maxRecentErrors bounds the per-run error ring in BatchProgress.
const maxRecentErrors = 50

// SymbolError records a single per-symbol fetch failure.
type SymbolError struct {
	Symbol string    `json:"symbol"`
	Error  string    `json:"error"`
	Time   time.Time `json:"time"`
}

// BatchProgress is the per-run progress record persisted after every batch.
// Invariant after each batch: Processed == Successful + Failed.
type BatchProgress struct {
	TotalSymbols      int           `json:"totalSymbols"`
	ProcessedSymbols  int           `json:"processedSymbols"`
	SuccessfulSymbols int           `json:"successfulSymbols"`
	FailedSymbols     int           `json:"failedSymbols"`
	CurrentBatch      int           `json:"currentBatch"`
	TotalBatches      int           `json:"totalBatches"`
	RecentErrors      []SymbolError `json:"recentErrors,omitempty"`
}

// AddError appends a symbol failure, keeping only the most recent
// maxRecentErrors entries.
func (p *BatchProgress) AddError(symbol string, err error, at time.Time) {
	p.RecentErrors = append(p.RecentErrors, SymbolError{
		Symbol: symbol,
		Error:  err.Error(),
		Time:   at,
	})
	if n := len(p.RecentErrors); n > maxRecentErrors {
		p.RecentErrors = p.RecentErrors[n-maxRecentErrors:]
	}
}
