package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"screener/internal/cache"
	"screener/internal/config"
	"screener/internal/domain"
	"screener/internal/importer"
	"screener/internal/provider"
	"screener/internal/store"
	"screener/internal/universe"
	"screener/internal/util"
)

func main() {
	symbolsCSV := flag.String("symbols", "", "CSV file of symbols to import (overrides config)")
	useAssets := flag.Bool("assets", false, "fetch the symbol universe from the Alpaca assets API")
	clearCache := flag.Bool("clear-cache", false, "remove expired cache entries before the run")
	flag.Parse()

	godotenv.Load()

	cfgPath := "config/screener.yaml"
	if p := os.Getenv("SCREENER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	records, closeStore, err := openRecordStore(cfg)
	if err != nil {
		log.Fatalf("failed to open record store: %v", err)
	}
	defer closeStore()

	statusStore, err := store.NewStatusStore(cfg.Storage.DataDir)
	if err != nil {
		log.Fatalf("failed to open status store: %v", err)
	}

	ttl := cache.DefaultTTL
	if cfg.Cache.TTLHours > 0 {
		ttl = time.Duration(cfg.Cache.TTLHours) * time.Hour
	}
	fetchCache, err := cache.New(filepath.Join(cfg.Storage.DataDir, "cache"), ttl)
	if err != nil {
		log.Fatalf("failed to open cache: %v", err)
	}
	if *clearCache {
		n, err := fetchCache.ClearExpired()
		if err != nil {
			slog.Warn("clearing expired cache entries", "error", err)
		} else {
			slog.Info("cleared expired cache entries", "removed", n)
		}
	}

	ctrl := provider.NewAdaptiveController(provider.AdaptiveConfig{
		MinConcurrency:   cfg.Import.MinConcurrency,
		MaxConcurrency:   cfg.Import.MaxConcurrency,
		StartConcurrency: cfg.Import.Concurrency,
	})

	chain := buildChain(cfg, ctrl, statusStore)
	if len(chain) == 0 {
		log.Fatal("no provider API keys configured")
	}

	fetcher := provider.NewCachedFetcher(chain, fetchCache)
	snapshots := store.NewSnapshotWriter(filepath.Join(cfg.Storage.DataDir, "snapshots"))

	im := importer.New(fetcher, records, statusStore, snapshots, ctrl,
		importer.Config{BatchSize: cfg.Import.BatchSize})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	budget := 25 * time.Minute
	if cfg.Import.TimeBudgetMinutes > 0 {
		budget = time.Duration(cfg.Import.TimeBudgetMinutes) * time.Minute
	}
	ctx, cancelBudget := context.WithTimeout(ctx, budget)
	defer cancelBudget()

	symbols, err := loadUniverse(ctx, cfg, *symbolsCSV, *useAssets)
	if err != nil {
		log.Fatalf("failed to load symbol universe: %v", err)
	}

	slog.Info("starting import run",
		"symbols", len(symbols),
		"providers", len(chain),
		"budget", budget,
		"batchSize", cfg.Import.BatchSize,
	)

	summary := im.Run(ctx, symbols)
	slog.Info("import run finished",
		"state", summary.State,
		"processed", summary.Processed,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"halted", summary.Halted,
		"elapsed", summary.Elapsed.Round(time.Second),
	)
}

// openRecordStore picks the configured persistence backend, defaulting to
// the JSON file store.
func openRecordStore(cfg *config.Config) (store.RecordStore, func(), error) {
	if cfg.Storage.Backend == "sqlite" {
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.Storage.DataDir, "screener.db")
		}
		s, err := store.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	s := store.NewJSONStore(filepath.Join(cfg.Storage.DataDir, "stocks.json"))
	return s, func() {}, nil
}

// buildChain assembles the provider fallback chain from the configured API
// keys, wiring each client's rate-limit hook to the status store.
func buildChain(cfg *config.Config, ctrl *provider.AdaptiveController, status *store.StatusStore) provider.Chain {
	onRateLimit := func(reset time.Time) {
		err := status.WriteStatus(domain.ImportStatus{
			State:          domain.StateRateLimited,
			RateLimitReset: reset,
			Message:        "waiting out upstream rate limit",
		})
		if err != nil {
			slog.Warn("writing rate-limited status", "error", err)
		}
	}

	var chain provider.Chain
	if cfg.Providers.EODHD.APIKey != "" {
		p := provider.NewEODHD(cfg.Providers.EODHD.BaseURL, cfg.Providers.EODHD.APIKey, ctrl)
		p.Client().OnRateLimit(onRateLimit)
		chain = append(chain, p)
	}
	if cfg.Providers.FMP.APIKey != "" {
		p := provider.NewFMP(cfg.Providers.FMP.BaseURL, cfg.Providers.FMP.APIKey, ctrl)
		p.Client().OnRateLimit(onRateLimit)
		chain = append(chain, p)
	}
	if cfg.Providers.Polygon.APIKey != "" {
		p := provider.NewPolygon(cfg.Providers.Polygon.BaseURL, cfg.Providers.Polygon.APIKey, ctrl)
		p.Client().OnRateLimit(onRateLimit)
		chain = append(chain, p)
	}
	return chain
}

// loadUniverse builds the symbol list from the CSV, the assets API, or both.
func loadUniverse(ctx context.Context, cfg *config.Config, csvOverride string, useAssets bool) ([]string, error) {
	var lists [][]string

	csvPath := cfg.Import.SymbolsCSV
	if csvOverride != "" {
		csvPath = csvOverride
	}
	if csvPath != "" {
		fromCSV, err := universe.LoadCSV(csvPath)
		if err != nil {
			return nil, err
		}
		lists = append(lists, fromCSV)
	}

	if useAssets {
		fromAssets, err := universe.FetchAssets(ctx, cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		if err != nil {
			return nil, err
		}
		lists = append(lists, fromAssets)
	}

	return universe.Merge(lists...), nil
}
