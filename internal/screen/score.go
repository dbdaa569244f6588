package screen

import "screener/internal/domain"

// Score is the composite screening score in [0,100]: four bucketed
// sub-scores (size, leverage, valuation, profitability), each in [5,20],
// plus a quality component in [0,20]. All components are deterministic
// functions of the record; re-scoring an unchanged record yields the same
// value.
func Score(rec *domain.StockRecord) float64 {
	s := marketCapScore(rec.MarketCap) +
		leverageScore(rec.NetDebtToEBITDA) +
		valuationScore(rec.EVToEBIT) +
		profitabilityScore(rec.ROTCE) +
		qualityScore(rec)
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// marketCapScore rewards size: mega caps score highest, micro caps the floor.
func marketCapScore(cap domain.Metric) float64 {
	if !cap.Valid {
		return 5
	}
	switch {
	case cap.Value >= 200e9:
		return 20
	case cap.Value >= 10e9:
		return 16
	case cap.Value >= 2e9:
		return 12
	case cap.Value >= 300e6:
		return 8
	default:
		return 5
	}
}

// leverageScore rewards low net debt relative to EBITDA. +Inf (debt with
// zero EBITDA) lands in the final bucket.
func leverageScore(ratio domain.Metric) float64 {
	if !ratio.Valid {
		return 5
	}
	switch {
	case ratio.Value <= 0:
		return 20
	case ratio.Value <= 1:
		return 17
	case ratio.Value <= 2:
		return 14
	case ratio.Value <= 3:
		return 10
	case ratio.Value <= 4:
		return 7
	default:
		return 5
	}
}

// valuationScore rewards a low EV/EBIT multiple.
func valuationScore(evToEBIT domain.Metric) float64 {
	if !evToEBIT.Valid {
		return 5
	}
	switch {
	case evToEBIT.Value < 8:
		return 20
	case evToEBIT.Value < 12:
		return 16
	case evToEBIT.Value < 16:
		return 12
	case evToEBIT.Value < 25:
		return 8
	default:
		return 5
	}
}

// profitabilityScore rewards high return on tangible common equity.
func profitabilityScore(rotce domain.Metric) float64 {
	if !rotce.Valid {
		return 5
	}
	switch {
	case rotce.Value >= 0.40:
		return 20
	case rotce.Value >= 0.20:
		return 16
	case rotce.Value >= 0.12:
		return 12
	case rotce.Value >= 0.08:
		return 8
	default:
		return 5
	}
}

// qualityScore is the deterministic replacement for the legacy random
// component: cash conversion (up to 10), buybacks (up to 6), and dividends
// (up to 4), together spanning the same [0,20] range.
func qualityScore(rec *domain.StockRecord) float64 {
	s := 0.0

	if fcf := rec.FCFToNetIncome; fcf.Valid {
		switch {
		case fcf.Value >= 1.0:
			s += 10
		case fcf.Value >= 0.8:
			s += 8
		case fcf.Value >= 0.5:
			s += 5
		}
	}

	if g := rec.ShareCountGrowth; g.Valid {
		switch {
		case g.Value <= -0.02:
			s += 6
		case g.Value <= 0:
			s += 4
		}
	}

	if y := rec.DividendYield; y.Valid {
		switch {
		case y.Value >= 0.04:
			s += 4
		case y.Value > 0:
			s += 2
		}
	}

	return s
}
