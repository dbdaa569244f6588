package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Polygon fetches reference and price data from the Polygon.io API. Polygon
// nests payloads under a "results" key; the normalizer unwraps it. Polygon
// carries no statement data on the endpoints used here, so a Polygon-only
// bundle leaves the statement-derived ratios absent.
type Polygon struct {
	client *Client
}

// NewPolygon creates a Polygon fetcher sharing the given controller.
func NewPolygon(baseURL, apiKey string, ctrl *AdaptiveController) *Polygon {
	if baseURL == "" {
		baseURL = "https://api.polygon.io"
	}
	return &Polygon{client: NewClient("polygon", baseURL, apiKey, "apiKey", ctrl)}
}

// Name implements Fetcher.
func (p *Polygon) Name() string { return "polygon" }

// Client exposes the underlying HTTP client for hook wiring.
func (p *Polygon) Client() *Client { return p.client }

type polygonTicker struct {
	Results struct {
		Name            string   `json:"name"`
		PrimaryExchange string   `json:"primary_exchange"`
		SICDescription  string   `json:"sic_description"`
		MarketCap       *float64 `json:"market_cap"`
		ShareClassShs   *float64 `json:"share_class_shares_outstanding"`
	} `json:"results"`
}

type polygonPrevClose struct {
	Results []struct {
		Close  *float64 `json:"c"`
		Volume *float64 `json:"v"`
	} `json:"results"`
}

// Fetch implements Fetcher.
func (p *Polygon) Fetch(ctx context.Context, symbol string) (*Bundle, error) {
	sym := url.PathEscape(strings.ToUpper(symbol))

	body, err := p.client.Get(ctx, "/v3/reference/tickers/"+sym, nil)
	if err != nil {
		return nil, err
	}
	var ref polygonTicker
	if err := json.Unmarshal(body, &ref); err != nil {
		return nil, fmt.Errorf("decoding ticker reference for %s: %w", symbol, err)
	}

	body, err = p.client.Get(ctx, fmt.Sprintf("/v2/aggs/ticker/%s/prev", sym), nil)
	if err != nil {
		return nil, err
	}
	var prev polygonPrevClose
	if err := json.Unmarshal(body, &prev); err != nil {
		return nil, fmt.Errorf("decoding previous close for %s: %w", symbol, err)
	}

	b := &Bundle{
		Profile: Profile{
			Name:     ref.Results.Name,
			Exchange: normalizeExchange(ref.Results.PrimaryExchange),
			Industry: ref.Results.SICDescription,
		},
		Quote: Quote{
			MarketCap: metric(ref.Results.MarketCap),
		},
		Financials: Financials{
			SharesOutstanding: metric(ref.Results.ShareClassShs),
		},
	}

	if len(prev.Results) > 0 {
		b.Quote.Price = metric(prev.Results[0].Close)
		b.Quote.AvgDollarVolume = dollarVolume(prev.Results[0].Close, prev.Results[0].Volume)
	}

	return b, nil
}

// normalizeExchange maps Polygon MIC codes to the display names the rest of
// the screener uses.
func normalizeExchange(mic string) string {
	switch mic {
	case "XNYS":
		return "NYSE"
	case "XNAS":
		return "NASDAQ"
	default:
		return mic
	}
}
