// Package screen computes valuation ratios and the composite screening score.
// Everything here is a pure function over domain values; no I/O.
package screen

import (
	"math"

	"screener/internal/domain"
)

// NetDebtToEBITDA returns net debt divided by EBITDA.
//
// Absent inputs propagate: the result is absent iff either input is absent.
// EBITDA of exactly zero is a meaningful domain value, not a division error:
// a zero-EBITDA company carrying debt is maximally levered (+Inf), and zero
// net debt is zero leverage regardless of EBITDA.
func NetDebtToEBITDA(netDebt, ebitda domain.Metric) domain.Metric {
	if !netDebt.Valid || !ebitda.Valid {
		return domain.Metric{}
	}
	if ebitda.Value == 0 {
		if netDebt.Value > 0 {
			return domain.Some(math.Inf(1))
		}
		return domain.Some(0)
	}
	return domain.Some(netDebt.Value / ebitda.Value)
}

// EVToEBIT returns enterprise value divided by EBIT, absent when either
// input is absent or EBIT is zero or negative (the multiple is meaningless
// for companies without positive operating earnings).
func EVToEBIT(ev, ebit domain.Metric) domain.Metric {
	if !ev.Valid || !ebit.Valid || ebit.Value <= 0 {
		return domain.Metric{}
	}
	return domain.Some(ev.Value / ebit.Value)
}

// ROTCE returns net income divided by tangible common equity, absent when
// either input is absent or tangible equity is not positive.
func ROTCE(netIncome, tangibleEquity domain.Metric) domain.Metric {
	if !netIncome.Valid || !tangibleEquity.Valid || tangibleEquity.Value <= 0 {
		return domain.Metric{}
	}
	return domain.Some(netIncome.Value / tangibleEquity.Value)
}

// FCFToNetIncome returns free cash flow divided by net income, absent when
// either input is absent or net income is zero.
func FCFToNetIncome(fcf, netIncome domain.Metric) domain.Metric {
	if !fcf.Valid || !netIncome.Valid || netIncome.Value == 0 {
		return domain.Metric{}
	}
	return domain.Some(fcf.Value / netIncome.Value)
}

// ShareCountGrowth returns the fractional change in shares outstanding from
// the prior period. Negative values mean buybacks.
func ShareCountGrowth(current, prior domain.Metric) domain.Metric {
	if !current.Valid || !prior.Valid || prior.Value <= 0 {
		return domain.Metric{}
	}
	return domain.Some((current.Value - prior.Value) / prior.Value)
}
