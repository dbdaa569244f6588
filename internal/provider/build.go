package provider

import (
	"strings"
	"time"

	"screener/internal/domain"
	"screener/internal/screen"
)

// BuildRecord merges a normalized bundle into one flat StockRecord and
// computes the derived ratios and the composite score. Ratios with missing
// inputs stay absent.
func BuildRecord(symbol string, b *Bundle, now time.Time) domain.StockRecord {
	rec := domain.StockRecord{
		Symbol:   strings.ToUpper(symbol),
		Name:     b.Profile.Name,
		Exchange: b.Profile.Exchange,
		Sector:   b.Profile.Sector,
		Industry: b.Profile.Industry,

		Price:           b.Quote.Price,
		MarketCap:       b.Quote.MarketCap,
		AvgDollarVolume: b.Quote.AvgDollarVolume,

		PERatio:       b.Ratios.PERatio,
		DividendYield: b.Ratios.DividendYield,

		LastUpdated: now,
	}

	fin := b.Financials
	netDebt := domain.Sub(fin.TotalDebt, fin.Cash)
	rec.NetDebtToEBITDA = screen.NetDebtToEBITDA(netDebt, fin.EBITDA)
	rec.EVToEBIT = screen.EVToEBIT(fin.EnterpriseValue, fin.EBIT)
	rec.ROTCE = screen.ROTCE(fin.NetIncome, fin.TangibleEquity)
	rec.FCFToNetIncome = screen.FCFToNetIncome(fin.FreeCashFlow, fin.NetIncome)
	rec.ShareCountGrowth = screen.ShareCountGrowth(fin.SharesOutstanding, fin.SharesOutstandingPrior)

	rec.Score = screen.Score(&rec)
	return rec
}
