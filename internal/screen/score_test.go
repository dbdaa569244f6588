package screen

import (
	"math"
	"testing"

	"screener/internal/domain"
)

func TestScoreDeterministic(t *testing.T) {
	rec := domain.StockRecord{
		Symbol:          "AAPL",
		MarketCap:       domain.Some(3e12),
		NetDebtToEBITDA: domain.Some(0.5),
		EVToEBIT:        domain.Some(22),
		ROTCE:           domain.Some(1.2),
		FCFToNetIncome:  domain.Some(1.1),
		ShareCountGrowth: domain.Some(-0.03),
		DividendYield:   domain.Some(0.005),
	}

	first := Score(&rec)
	for i := 0; i < 10; i++ {
		if got := Score(&rec); got != first {
			t.Fatalf("Score is not deterministic: %f then %f", first, got)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	// All missing: every bucketed component bottoms out, quality adds nothing.
	empty := domain.StockRecord{Symbol: "ZZZZ"}
	if got := Score(&empty); got != 20 {
		t.Errorf("Score(all absent) = %f, want 20 (4 floors of 5)", got)
	}

	// Everything in the best bucket.
	best := domain.StockRecord{
		Symbol:           "BEST",
		MarketCap:        domain.Some(500e9),
		NetDebtToEBITDA:  domain.Some(-1),
		EVToEBIT:         domain.Some(5),
		ROTCE:            domain.Some(0.5),
		FCFToNetIncome:   domain.Some(1.2),
		ShareCountGrowth: domain.Some(-0.05),
		DividendYield:    domain.Some(0.05),
	}
	if got := Score(&best); got != 100 {
		t.Errorf("Score(best case) = %f, want 100", got)
	}

	// Everything in the worst bucket still floors above zero.
	worst := domain.StockRecord{
		Symbol:           "WRST",
		MarketCap:        domain.Some(50e6),
		NetDebtToEBITDA:  domain.Some(8),
		EVToEBIT:         domain.Some(40),
		ROTCE:            domain.Some(0.01),
		FCFToNetIncome:   domain.Some(0.1),
		ShareCountGrowth: domain.Some(0.1),
	}
	if got := Score(&worst); got != 20 {
		t.Errorf("Score(worst case) = %f, want 20", got)
	}
}

func TestScoreInfiniteLeverage(t *testing.T) {
	// Debt with zero EBITDA produces +Inf leverage; it must land in the
	// worst leverage bucket, not break the score.
	rec := domain.StockRecord{
		Symbol:          "DEBT",
		MarketCap:       domain.Some(5e9),
		NetDebtToEBITDA: domain.Some(math.Inf(1)),
		EVToEBIT:        domain.Some(10),
		ROTCE:           domain.Some(0.15),
	}
	got := Score(&rec)
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("Score with infinite leverage = %f, want finite", got)
	}
	// 12 (cap) + 5 (leverage floor) + 16 (valuation) + 12 (profitability).
	if got != 45 {
		t.Errorf("Score = %f, want 45", got)
	}
}

func TestLeverageScoreBuckets(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{-0.5, 20},
		{0, 20},
		{0.5, 17},
		{1.5, 14},
		{2.5, 10},
		{3.5, 7},
		{6, 5},
	}
	for _, tt := range tests {
		if got := leverageScore(domain.Some(tt.ratio)); got != tt.want {
			t.Errorf("leverageScore(%f) = %f, want %f", tt.ratio, got, tt.want)
		}
	}
	if got := leverageScore(domain.Metric{}); got != 5 {
		t.Errorf("leverageScore(absent) = %f, want 5", got)
	}
}

func TestQualityScoreComponents(t *testing.T) {
	// Strong cash conversion, buybacks, and a solid dividend max out at 20.
	rec := domain.StockRecord{
		FCFToNetIncome:   domain.Some(1.0),
		ShareCountGrowth: domain.Some(-0.02),
		DividendYield:    domain.Some(0.04),
	}
	if got := qualityScore(&rec); got != 20 {
		t.Errorf("qualityScore = %f, want 20", got)
	}

	// Flat share count is still credited, dilution is not.
	flat := domain.StockRecord{ShareCountGrowth: domain.Some(0)}
	if got := qualityScore(&flat); got != 4 {
		t.Errorf("qualityScore(flat shares) = %f, want 4", got)
	}
	diluting := domain.StockRecord{ShareCountGrowth: domain.Some(0.05)}
	if got := qualityScore(&diluting); got != 0 {
		t.Errorf("qualityScore(diluting) = %f, want 0", got)
	}
}
