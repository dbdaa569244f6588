// Package universe builds the NYSE/NASDAQ symbol list the importer walks:
// from a local CSV, from the Alpaca assets API, or both merged.
package universe

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"screener/internal/util"
)

// screenedExchanges are the venues the screener covers.
var screenedExchanges = map[string]bool{"NYSE": true, "NASDAQ": true}

// LoadCSV reads symbols from a CSV file with a header row, taking the
// column named "symbol" (or the first column when none is). Symbols are
// uppercased and deduplicated, preserving file order.
func LoadCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening symbols CSV %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header %s: %w", path, err)
	}

	symbolIdx := 0
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "symbol") {
			symbolIdx = i
			break
		}
	}

	seen := make(map[string]struct{})
	var symbols []string
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		if len(row) <= symbolIdx {
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(row[symbolIdx]))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

// FetchAssets lists active, tradable NYSE and NASDAQ equities from the
// Alpaca assets API. Transient failures are retried with backoff.
func FetchAssets(ctx context.Context, apiKey, apiSecret, baseURL string) ([]string, error) {
	client := alpacaapi.NewClient(alpacaapi.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	var assets []alpacaapi.Asset
	err := util.Retry(ctx, 3, 2*time.Second, func() error {
		var err error
		assets, err = client.GetAssets(alpacaapi.GetAssetsRequest{
			Status:     "active",
			AssetClass: "us_equity",
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	var symbols []string
	for _, a := range assets {
		if !a.Tradable || !screenedExchanges[a.Exchange] {
			continue
		}
		symbols = append(symbols, strings.ToUpper(a.Symbol))
	}
	sort.Strings(symbols)

	slog.Info("loaded asset universe", "total", len(assets), "screened", len(symbols))
	return symbols, nil
}

// Merge combines symbol lists, deduplicating while preserving first-seen
// order across the lists.
func Merge(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, sym := range list {
			sym = strings.ToUpper(strings.TrimSpace(sym))
			if sym == "" {
				continue
			}
			if _, dup := seen[sym]; dup {
				continue
			}
			seen[sym] = struct{}{}
			out = append(out, sym)
		}
	}
	return out
}
