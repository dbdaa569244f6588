package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestMetricMarshalNull(t *testing.T) {
	data, err := json.Marshal(Metric{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "null" {
		t.Errorf("absent metric marshalled to %s, want null", data)
	}

	var m Metric
	if err := json.Unmarshal([]byte("null"), &m); err != nil {
		t.Fatal(err)
	}
	if m.Valid {
		t.Error("null should unmarshal to an absent metric")
	}
}

func TestMetricMarshalInfinity(t *testing.T) {
	data, err := json.Marshal(Some(math.Inf(1)))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"Infinity"` {
		t.Errorf("+Inf marshalled to %s, want \"Infinity\"", data)
	}

	var m Metric
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if !m.Valid || !math.IsInf(m.Value, 1) {
		t.Errorf("round-tripped +Inf became %+v", m)
	}
}

func TestMetricRoundTrip(t *testing.T) {
	for _, v := range []float64{0, -1.5, 42, 1e12} {
		data, err := json.Marshal(Some(v))
		if err != nil {
			t.Fatal(err)
		}
		var m Metric
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatal(err)
		}
		if !m.Valid || m.Value != v {
			t.Errorf("round trip of %v gave %+v", v, m)
		}
	}
}

func TestMetricZeroIsNotAbsent(t *testing.T) {
	data, err := json.Marshal(Some(0))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "0" {
		t.Errorf("zero metric marshalled to %s, want 0", data)
	}
}

func TestStockRecordRoundTrip(t *testing.T) {
	rec := StockRecord{
		Symbol:          "AAPL",
		Name:            "Apple Inc",
		Exchange:        "NASDAQ",
		Sector:          "Technology",
		Price:           Some(190.5),
		MarketCap:       Some(3e12),
		NetDebtToEBITDA: Some(math.Inf(1)),
		Score:           72,
		LastUpdated:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}

	var got StockRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Symbol != "AAPL" || !math.IsInf(got.NetDebtToEBITDA.Value, 1) {
		t.Errorf("round trip mangled record: %+v", got)
	}
	if got.EVToEBIT.Valid {
		t.Error("missing ratio should stay absent after round trip")
	}
}

func TestBatchProgressErrorRing(t *testing.T) {
	var p BatchProgress
	now := time.Now()
	for i := 0; i < 120; i++ {
		p.AddError(fmt.Sprintf("SYM%d", i), errors.New("boom"), now)
	}
	if len(p.RecentErrors) != 50 {
		t.Fatalf("error ring holds %d entries, want 50", len(p.RecentErrors))
	}
	if p.RecentErrors[len(p.RecentErrors)-1].Symbol != "SYM119" {
		t.Errorf("ring should keep the most recent errors, last = %s",
			p.RecentErrors[len(p.RecentErrors)-1].Symbol)
	}
}
