package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// FMP fetches fundamentals from the Financial Modeling Prep API. FMP wraps
// single-symbol responses in a one-element array; the normalizer unwraps it.
type FMP struct {
	client *Client
}

// NewFMP creates an FMP fetcher sharing the given controller.
func NewFMP(baseURL, apiKey string, ctrl *AdaptiveController) *FMP {
	if baseURL == "" {
		baseURL = "https://financialmodelingprep.com"
	}
	return &FMP{client: NewClient("fmp", baseURL, apiKey, "apikey", ctrl)}
}

// Name implements Fetcher.
func (p *FMP) Name() string { return "fmp" }

// Client exposes the underlying HTTP client for hook wiring.
func (p *FMP) Client() *Client { return p.client }

type fmpProfile struct {
	CompanyName   string   `json:"companyName"`
	Exchange      string   `json:"exchangeShortName"`
	Sector        string   `json:"sector"`
	Industry      string   `json:"industry"`
	Price         *float64 `json:"price"`
	MktCap        *float64 `json:"mktCap"`
	VolAvg        *float64 `json:"volAvg"`
	LastDiv       *float64 `json:"lastDiv"`
}

type fmpKeyMetrics struct {
	PERatioTTM               *float64 `json:"peRatioTTM"`
	DividendYieldTTM         *float64 `json:"dividendYieldTTM"`
	EnterpriseValueTTM       *float64 `json:"enterpriseValueTTM"`
	TangibleAssetValueTTM    *float64 `json:"tangibleAssetValueTTM"`
	NetIncomePerShareTTM     *float64 `json:"netIncomePerShareTTM"`
	FreeCashFlowPerShareTTM  *float64 `json:"freeCashFlowPerShareTTM"`
	SharesOutstandingTTM     *float64 `json:"sharesOutstandingTTM"`
}

type fmpBalance struct {
	TotalDebt               *float64 `json:"totalDebt"`
	CashAndShortTermInvest  *float64 `json:"cashAndShortTermInvestments"`
	CommonStock             *float64 `json:"commonStock"`
}

type fmpIncome struct {
	OperatingIncome          *float64 `json:"operatingIncome"`
	Ebitda                   *float64 `json:"ebitda"`
	NetIncome                *float64 `json:"netIncome"`
	WeightedAverageShsOut    *float64 `json:"weightedAverageShsOut"`
}

// Fetch implements Fetcher.
func (p *FMP) Fetch(ctx context.Context, symbol string) (*Bundle, error) {
	sym := url.PathEscape(strings.ToUpper(symbol))

	var profile fmpProfile
	if err := p.getFirst(ctx, "/api/v3/profile/"+sym, &profile); err != nil {
		return nil, err
	}

	var metrics fmpKeyMetrics
	if err := p.getFirst(ctx, "/api/v3/key-metrics-ttm/"+sym, &metrics); err != nil {
		return nil, err
	}

	// Latest two quarterly statements; index 0 is the most recent.
	var balances []fmpBalance
	if err := p.getList(ctx, "/api/v3/balance-sheet-statement/"+sym, &balances); err != nil {
		return nil, err
	}
	var incomes []fmpIncome
	if err := p.getList(ctx, "/api/v3/income-statement/"+sym, &incomes); err != nil {
		return nil, err
	}

	b := &Bundle{
		Profile: Profile{
			Name:     profile.CompanyName,
			Exchange: profile.Exchange,
			Sector:   profile.Sector,
			Industry: profile.Industry,
		},
		Quote: Quote{
			Price:           metric(profile.Price),
			MarketCap:       metric(profile.MktCap),
			AvgDollarVolume: dollarVolume(profile.Price, profile.VolAvg),
		},
		Ratios: Ratios{
			PERatio:       metric(metrics.PERatioTTM),
			DividendYield: metric(metrics.DividendYieldTTM),
		},
		Financials: Financials{
			EnterpriseValue: metric(metrics.EnterpriseValueTTM),
			TangibleEquity:  metric(metrics.TangibleAssetValueTTM),
		},
	}

	if len(balances) > 0 {
		b.Financials.TotalDebt = metric(balances[0].TotalDebt)
		b.Financials.Cash = metric(balances[0].CashAndShortTermInvest)
	}
	if len(incomes) > 0 {
		b.Financials.EBIT = metric(incomes[0].OperatingIncome)
		b.Financials.EBITDA = metric(incomes[0].Ebitda)
		b.Financials.NetIncome = metric(incomes[0].NetIncome)
		b.Financials.SharesOutstanding = metric(incomes[0].WeightedAverageShsOut)
		if len(incomes) > 1 {
			b.Financials.SharesOutstandingPrior = metric(incomes[1].WeightedAverageShsOut)
		}
	}
	if fcfPS, shs := metrics.FreeCashFlowPerShareTTM, b.Financials.SharesOutstanding; fcfPS != nil && shs.Valid {
		b.Financials.FreeCashFlow = metricValue(*fcfPS * shs.Value)
	}

	return b, nil
}

// getFirst decodes an array-of-one response into out. An empty array means
// the symbol is unknown upstream.
func (p *FMP) getFirst(ctx context.Context, endpoint string, out any) error {
	body, err := p.client.Get(ctx, endpoint, url.Values{"limit": {"1"}})
	if err != nil {
		return err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%s: no data", endpoint)
	}
	if err := json.Unmarshal(raw[0], out); err != nil {
		return fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return nil
}

func (p *FMP) getList(ctx context.Context, endpoint string, out any) error {
	body, err := p.client.Get(ctx, endpoint, url.Values{"period": {"quarter"}, "limit": {"2"}})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return nil
}
