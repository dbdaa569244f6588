// Package screener provides a Go SDK for the screener-server API. The types
// here are self-contained so importing the SDK does not pull in the server's
// internal packages.
package screener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Metric is a nullable float64. Absent metrics decode from JSON null, and
// infinite ratios arrive as the strings "Infinity" and "-Infinity".
type Metric struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metric) UnmarshalJSON(data []byte) error {
	s := string(data)
	switch s {
	case "null":
		*m = Metric{}
		return nil
	case `"Infinity"`:
		*m = Metric{Value: math.Inf(1), Valid: true}
		return nil
	case `"-Infinity"`:
		*m = Metric{Value: math.Inf(-1), Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding metric %s: %w", s, err)
	}
	*m = Metric{Value: v, Valid: true}
	return nil
}

// Stock is one screened stock record.
type Stock struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	Exchange         string    `json:"exchange"`
	Sector           string    `json:"sector"`
	Industry         string    `json:"industry"`
	Price            Metric    `json:"price"`
	MarketCap        Metric    `json:"marketCap"`
	AvgDollarVolume  Metric    `json:"avgDollarVolume"`
	NetDebtToEBITDA  Metric    `json:"netDebtToEBITDA"`
	EVToEBIT         Metric    `json:"evToEBIT"`
	ROTCE            Metric    `json:"rotce"`
	FCFToNetIncome   Metric    `json:"fcfToNetIncome"`
	ShareCountGrowth Metric    `json:"shareCountGrowth"`
	PERatio          Metric    `json:"peRatio"`
	DividendYield    Metric    `json:"dividendYield"`
	Score            float64   `json:"score"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// Pagination describes the window of a stock listing response.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// StockPage is one page of the stock listing.
type StockPage struct {
	Stocks     []Stock    `json:"stocks"`
	Pagination Pagination `json:"pagination"`
}

// SectorCount holds one sector's record count.
type SectorCount struct {
	Sector string `json:"sector"`
	Count  int    `json:"count"`
}

// Stats holds aggregate statistics over the record set.
type Stats struct {
	Total       int           `json:"total"`
	AvgScore    float64       `json:"avgScore"`
	MaxScore    float64       `json:"maxScore"`
	MinScore    float64       `json:"minScore"`
	Sectors     []SectorCount `json:"sectors"`
	LastUpdated string        `json:"lastUpdated"`
}

// ImportStatus mirrors the server's importer status record.
type ImportStatus struct {
	State          string    `json:"state"`
	LastRun        time.Time `json:"lastRun,omitzero"`
	LastError      string    `json:"lastError,omitempty"`
	RateLimitReset time.Time `json:"rateLimitReset,omitzero"`
	Message        string    `json:"message,omitempty"`
}

// SymbolError records a single per-symbol fetch failure.
type SymbolError struct {
	Symbol string    `json:"symbol"`
	Error  string    `json:"error"`
	Time   time.Time `json:"time"`
}

// BatchProgress mirrors the importer's per-run counters.
type BatchProgress struct {
	TotalSymbols      int           `json:"totalSymbols"`
	ProcessedSymbols  int           `json:"processedSymbols"`
	SuccessfulSymbols int           `json:"successfulSymbols"`
	FailedSymbols     int           `json:"failedSymbols"`
	CurrentBatch      int           `json:"currentBatch"`
	TotalBatches      int           `json:"totalBatches"`
	RecentErrors      []SymbolError `json:"recentErrors,omitempty"`
}

// Status is the server's health and import status.
type Status struct {
	Database string         `json:"database"`
	Import   ImportStatus   `json:"import"`
	Progress *BatchProgress `json:"progress"`
}

// ListOptions controls the stock listing request. Zero values are omitted.
type ListOptions struct {
	Limit    int
	Offset   int
	Sector   string
	Search   string
	MinScore float64
}

// Client is an HTTP client for the screener-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ListStocks retrieves one page of stocks.
func (c *Client) ListStocks(ctx context.Context, opts ListOptions) (*StockPage, error) {
	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Sector != "" {
		params.Set("sector", opts.Sector)
	}
	if opts.Search != "" {
		params.Set("search", opts.Search)
	}
	if opts.MinScore > 0 {
		params.Set("minScore", strconv.FormatFloat(opts.MinScore, 'f', -1, 64))
	}

	var page StockPage
	if err := c.get(ctx, "/api/stocks", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllStocks walks the listing until the last page and returns every record.
func (c *Client) AllStocks(ctx context.Context) ([]Stock, error) {
	const pageSize = 500
	var all []Stock
	for offset := 0; ; offset += pageSize {
		page, err := c.ListStocks(ctx, ListOptions{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Stocks...)
		if !page.Pagination.HasMore {
			return all, nil
		}
	}
}

// Count retrieves the total number of records.
func (c *Client) Count(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/api/stocks/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Stats retrieves aggregate statistics.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.get(ctx, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Status retrieves database health and importer status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.get(ctx, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
