package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"screener/internal/domain"
	"screener/internal/store"
)

const defaultPageSize = 50

// Server serves the screener dashboard HTTP API.
type Server struct {
	records store.RecordStore
	status  *store.StatusStore
	log     *slog.Logger
}

// NewServer creates the dashboard API server on top of a record store and
// the importer's status files.
func NewServer(records store.RecordStore, status *store.StatusStore, log *slog.Logger) *Server {
	return &Server{
		records: records,
		status:  status,
		log:     log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stocks", s.handleStocks)
	mux.HandleFunc("GET /api/stocks/count", s.handleCount)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/status", s.handleStatus)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// parsePage extracts the pagination window from the query. Both limit/offset
// and page/pageSize styles are accepted; page is 1-based.
func parsePage(r *http.Request) (offset, limit int) {
	q := r.URL.Query()
	limit = defaultPageSize

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	} else if v := q.Get("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	} else if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return offset, limit
}

// hasFilters reports whether the request carries any record filter, which
// forces an in-memory scan instead of a store-level page.
func hasFilters(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("sector") != "" || q.Get("search") != "" || q.Get("minScore") != ""
}

// applyFilters narrows records by sector (exact, case-insensitive), search
// (substring of symbol or name) and minScore.
func applyFilters(r *http.Request, records []domain.StockRecord) []domain.StockRecord {
	q := r.URL.Query()
	sector := strings.ToLower(q.Get("sector"))
	search := strings.ToLower(q.Get("search"))
	minScore := 0.0
	hasMin := false
	if v := q.Get("minScore"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			minScore = f
			hasMin = true
		}
	}

	out := records[:0:0]
	for i := range records {
		rec := &records[i]
		if sector != "" && strings.ToLower(rec.Sector) != sector {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.Symbol), search) &&
			!strings.Contains(strings.ToLower(rec.Name), search) {
			continue
		}
		if hasMin && rec.Score < minScore {
			continue
		}
		out = append(out, *rec)
	}
	return out
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	offset, limit := parsePage(r)

	var (
		page  []domain.StockRecord
		total int
		err   error
	)
	if hasFilters(r) {
		var all []domain.StockRecord
		all, err = s.records.Load(ctx)
		if err == nil {
			all = applyFilters(r, all)
			total = len(all)
			page = window(all, offset, limit)
		}
	} else {
		total, err = s.records.Count(ctx)
		if err == nil {
			page, err = s.records.Page(ctx, offset, limit)
		}
	}
	if err != nil {
		s.log.Error("loading stocks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stocks")
		return
	}
	if page == nil {
		page = []domain.StockRecord{}
	}

	writeJSON(w, StocksResponse{
		Stocks: page,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(page) < total,
		},
	})
}

func window(records []domain.StockRecord, offset, limit int) []domain.StockRecord {
	if offset >= len(records) {
		return nil
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end]
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.records.Count(r.Context())
	if err != nil {
		s.log.Error("counting stocks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count stocks")
		return
	}
	writeJSON(w, CountResponse{Count: n})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.Load(r.Context())
	if err != nil {
		s.log.Error("loading stocks for stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stocks")
		return
	}

	resp := StatsResponse{Total: len(records), Sectors: []SectorCount{}}
	if len(records) == 0 {
		writeJSON(w, resp)
		return
	}

	var sum float64
	var latest time.Time
	sectors := make(map[string]int)
	resp.MinScore = records[0].Score
	resp.MaxScore = records[0].Score
	for i := range records {
		rec := &records[i]
		sum += rec.Score
		if rec.Score > resp.MaxScore {
			resp.MaxScore = rec.Score
		}
		if rec.Score < resp.MinScore {
			resp.MinScore = rec.Score
		}
		if rec.LastUpdated.After(latest) {
			latest = rec.LastUpdated
		}
		sector := rec.Sector
		if sector == "" {
			sector = "Unknown"
		}
		sectors[sector]++
	}
	resp.AvgScore = sum / float64(len(records))
	if !latest.IsZero() {
		resp.LastUpdated = latest.UTC().Format(time.RFC3339)
	}

	for sector, count := range sectors {
		resp.Sectors = append(resp.Sectors, SectorCount{Sector: sector, Count: count})
	}
	sort.Slice(resp.Sectors, func(i, j int) bool {
		if resp.Sectors[i].Count != resp.Sectors[j].Count {
			return resp.Sectors[i].Count > resp.Sectors[j].Count
		}
		return resp.Sectors[i].Sector < resp.Sectors[j].Sector
	})

	writeJSON(w, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Database: "connected"}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.records.Ping(ctx); err != nil {
		resp.Database = "disconnected"
	}

	status, err := s.status.ReadStatus()
	if err != nil {
		s.log.Warn("reading import status", "error", err)
	}
	resp.Import = status

	progress, err := s.status.ReadProgress()
	if err != nil {
		s.log.Warn("reading import progress", "error", err)
	}
	if progress.TotalSymbols > 0 {
		resp.Progress = &progress
	}

	writeJSON(w, resp)
}
