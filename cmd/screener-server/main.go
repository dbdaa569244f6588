package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"screener/internal/config"
	"screener/internal/httpapi"
	"screener/internal/store"
	"screener/internal/util"
)

func main() {
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

	api := httpapi.NewServer(records, statusStore, slog.Default().With("component", "httpapi"))

	host := cfg.Server.Host
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		slog.Info("screener-server listening", "addr", addr, "backend", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
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
