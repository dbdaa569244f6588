package provider

import (
	"context"
	"errors"
	"fmt"

	"screener/internal/domain"
)

// Profile is the static company description shared by all providers.
type Profile struct {
	Name     string
	Exchange string
	Sector   string
	Industry string
}

// Quote carries price and liquidity figures.
type Quote struct {
	Price           domain.Metric
	MarketCap       domain.Metric
	AvgDollarVolume domain.Metric
}

// Ratios carries ratios the upstream reports directly.
type Ratios struct {
	PERatio       domain.Metric
	DividendYield domain.Metric
}

// Financials carries the statement line items the derived ratios need.
// Absent values stay absent; they are never defaulted to zero.
type Financials struct {
	TotalDebt              domain.Metric
	Cash                   domain.Metric
	EBITDA                 domain.Metric
	EBIT                   domain.Metric
	EnterpriseValue        domain.Metric
	NetIncome              domain.Metric
	FreeCashFlow           domain.Metric
	TangibleEquity         domain.Metric
	SharesOutstanding      domain.Metric
	SharesOutstandingPrior domain.Metric
}

// Bundle is the normalized union of the profile/quote/ratio/financial
// responses for one symbol, ready for record building.
type Bundle struct {
	Profile    Profile
	Quote      Quote
	Ratios     Ratios
	Financials Financials
}

// Fetcher fetches the normalized data bundle for a single symbol. The
// importer and tests depend on this interface, not on a concrete provider.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (*Bundle, error)
}

// Chain tries each fetcher in order and returns the first success. All
// failures are joined into the returned error.
type Chain []Fetcher

// Name identifies the chain in logs.
func (c Chain) Name() string { return "chain" }

// Fetch implements Fetcher.
func (c Chain) Fetch(ctx context.Context, symbol string) (*Bundle, error) {
	var errs []error
	for _, f := range c {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b, err := f.Fetch(ctx, symbol)
		if err == nil {
			return b, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", f.Name(), err))
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	return nil, errors.Join(errs...)
}

// metric converts an optional JSON number into a Metric.
func metric(p *float64) domain.Metric {
	if p == nil {
		return domain.Metric{}
	}
	return domain.Some(*p)
}

func metricValue(v float64) domain.Metric { return domain.Some(v) }

// dollarVolume multiplies price by average share volume, absent when either
// input is missing.
func dollarVolume(price, volume *float64) domain.Metric {
	if price == nil || volume == nil {
		return domain.Metric{}
	}
	return domain.Some(*price * *volume)
}
