package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Compile-time interface checks.
var _ Fetcher = (*EODHD)(nil)
var _ Fetcher = (*FMP)(nil)
var _ Fetcher = (*Polygon)(nil)

// EODHD fetches fundamentals from the EODHD API. A single fundamentals call
// returns profile, highlights, and statement data together.
type EODHD struct {
	client *Client
}

// NewEODHD creates an EODHD fetcher sharing the given controller.
func NewEODHD(baseURL, apiKey string, ctrl *AdaptiveController) *EODHD {
	if baseURL == "" {
		baseURL = "https://eodhd.com"
	}
	return &EODHD{client: NewClient("eodhd", baseURL, apiKey, "api_token", ctrl)}
}

// Name implements Fetcher.
func (p *EODHD) Name() string { return "eodhd" }

// Client exposes the underlying HTTP client for hook wiring.
func (p *EODHD) Client() *Client { return p.client }

// eodhdFundamentals mirrors the slice of the EODHD fundamentals payload the
// screener consumes. Unmapped fields are ignored.
type eodhdFundamentals struct {
	General struct {
		Name     string `json:"Name"`
		Exchange string `json:"Exchange"`
		Sector   string `json:"Sector"`
		Industry string `json:"Industry"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization *float64 `json:"MarketCapitalization"`
		PERatio              *float64 `json:"PERatio"`
		DividendYield        *float64 `json:"DividendYield"`
		EBITDA               *float64 `json:"EBITDA"`
	} `json:"Highlights"`
	Valuation struct {
		EnterpriseValue     *float64 `json:"EnterpriseValue"`
		EnterpriseValueEbit *float64 `json:"EnterpriseValueEbit"`
	} `json:"Valuation"`
	SharesStats struct {
		SharesOutstanding *float64 `json:"SharesOutstanding"`
	} `json:"SharesStats"`
	Financials struct {
		BalanceSheet struct {
			Quarterly map[string]struct {
				ShortLongTermDebtTotal  *float64 `json:"shortLongTermDebtTotal,string"`
				CashAndShortTermInvest  *float64 `json:"cashAndShortTermInvestments,string"`
				NetTangibleAssets       *float64 `json:"netTangibleAssets,string"`
				CommonStockSharesOutst  *float64 `json:"commonStockSharesOutstanding,string"`
			} `json:"quarterly"`
		} `json:"Balance_Sheet"`
		IncomeStatement struct {
			Quarterly map[string]struct {
				Ebit      *float64 `json:"ebit,string"`
				NetIncome *float64 `json:"netIncome,string"`
			} `json:"quarterly"`
		} `json:"Income_Statement"`
		CashFlow struct {
			Quarterly map[string]struct {
				FreeCashFlow *float64 `json:"freeCashFlow,string"`
			} `json:"quarterly"`
		} `json:"Cash_Flow"`
	} `json:"Financials"`
}

// Fetch implements Fetcher.
func (p *EODHD) Fetch(ctx context.Context, symbol string) (*Bundle, error) {
	endpoint := fmt.Sprintf("/api/fundamentals/%s.US", url.PathEscape(strings.ToUpper(symbol)))
	body, err := p.client.Get(ctx, endpoint, url.Values{"fmt": {"json"}})
	if err != nil {
		return nil, err
	}

	var f eodhdFundamentals
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decoding fundamentals for %s: %w", symbol, err)
	}

	b := &Bundle{
		Profile: Profile{
			Name:     f.General.Name,
			Exchange: f.General.Exchange,
			Sector:   f.General.Sector,
			Industry: f.General.Industry,
		},
		Quote: Quote{
			MarketCap: metric(f.Highlights.MarketCapitalization),
		},
		Ratios: Ratios{
			PERatio:       metric(f.Highlights.PERatio),
			DividendYield: metric(f.Highlights.DividendYield),
		},
		Financials: Financials{
			EBITDA:            metric(f.Highlights.EBITDA),
			EnterpriseValue:   metric(f.Valuation.EnterpriseValue),
			SharesOutstanding: metric(f.SharesStats.SharesOutstanding),
		},
	}

	// Latest quarter wins; the quarterly maps are keyed by date.
	if k := latestKey(keysOf(f.Financials.BalanceSheet.Quarterly)); k != "" {
		q := f.Financials.BalanceSheet.Quarterly[k]
		b.Financials.TotalDebt = metric(q.ShortLongTermDebtTotal)
		b.Financials.Cash = metric(q.CashAndShortTermInvest)
		b.Financials.TangibleEquity = metric(q.NetTangibleAssets)
		if prior := priorKey(keysOf(f.Financials.BalanceSheet.Quarterly), k); prior != "" {
			b.Financials.SharesOutstandingPrior = metric(f.Financials.BalanceSheet.Quarterly[prior].CommonStockSharesOutst)
		}
	}
	if k := latestKey(keysOf(f.Financials.IncomeStatement.Quarterly)); k != "" {
		q := f.Financials.IncomeStatement.Quarterly[k]
		b.Financials.EBIT = metric(q.Ebit)
		b.Financials.NetIncome = metric(q.NetIncome)
	}
	if k := latestKey(keysOf(f.Financials.CashFlow.Quarterly)); k != "" {
		b.Financials.FreeCashFlow = metric(f.Financials.CashFlow.Quarterly[k].FreeCashFlow)
	}

	return b, nil
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// latestKey returns the lexicographically greatest key (dates sort
// correctly as YYYY-MM-DD strings), or "" for an empty slice.
func latestKey(keys []string) string {
	latest := ""
	for _, k := range keys {
		if k > latest {
			latest = k
		}
	}
	return latest
}

// priorKey returns the greatest key strictly less than after, or "".
func priorKey(keys []string, after string) string {
	prior := ""
	for _, k := range keys {
		if k < after && k > prior {
			prior = k
		}
	}
	return prior
}
