package store

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"screener/internal/domain"
)

// SnapshotRecord is the Parquet schema for one stock in a dated snapshot.
// Absent metrics become NaN: Parquet doubles carry NaN and infinities
// natively, so no string encoding is needed here.
type SnapshotRecord struct {
	Symbol           string  `parquet:"symbol"`
	Name             string  `parquet:"name"`
	Exchange         string  `parquet:"exchange"`
	Sector           string  `parquet:"sector"`
	Price            float64 `parquet:"price"`
	MarketCap        float64 `parquet:"market_cap"`
	AvgDollarVolume  float64 `parquet:"avg_dollar_volume"`
	NetDebtToEBITDA  float64 `parquet:"net_debt_to_ebitda"`
	EVToEBIT         float64 `parquet:"ev_to_ebit"`
	ROTCE            float64 `parquet:"rotce"`
	FCFToNetIncome   float64 `parquet:"fcf_to_net_income"`
	ShareCountGrowth float64 `parquet:"share_count_growth"`
	PERatio          float64 `parquet:"pe_ratio"`
	DividendYield    float64 `parquet:"dividend_yield"`
	Score            float64 `parquet:"score"`
	LastUpdated      int64   `parquet:"last_updated,timestamp(millisecond)"`
}

// SnapshotWriter writes one Parquet snapshot of the record set per date
// under <dir>/<YYYY-MM-DD>.parquet, skipping dates already written.
type SnapshotWriter struct {
	dir string
}

// NewSnapshotWriter creates a writer rooted at dir.
func NewSnapshotWriter(dir string) *SnapshotWriter {
	return &SnapshotWriter{dir: dir}
}

// Write persists the records as the snapshot for date (YYYY-MM-DD). It is
// a no-op when that date's snapshot already exists.
func (w *SnapshotWriter) Write(date string, records []domain.StockRecord) error {
	path := filepath.Join(w.dir, date+".parquet")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	rows := make([]SnapshotRecord, 0, len(records))
	for i := range records {
		r := &records[i]
		rows = append(rows, SnapshotRecord{
			Symbol:           r.Symbol,
			Name:             r.Name,
			Exchange:         r.Exchange,
			Sector:           r.Sector,
			Price:            metricOrNaN(r.Price),
			MarketCap:        metricOrNaN(r.MarketCap),
			AvgDollarVolume:  metricOrNaN(r.AvgDollarVolume),
			NetDebtToEBITDA:  metricOrNaN(r.NetDebtToEBITDA),
			EVToEBIT:         metricOrNaN(r.EVToEBIT),
			ROTCE:            metricOrNaN(r.ROTCE),
			FCFToNetIncome:   metricOrNaN(r.FCFToNetIncome),
			ShareCountGrowth: metricOrNaN(r.ShareCountGrowth),
			PERatio:          metricOrNaN(r.PERatio),
			DividendYield:    metricOrNaN(r.DividendYield),
			Score:            r.Score,
			LastUpdated:      r.LastUpdated.UnixMilli(),
		})
	}

	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("writing snapshot for %s: %w", date, err)
	}
	return nil
}

func metricOrNaN(m domain.Metric) float64 {
	if !m.Valid {
		return math.NaN()
	}
	return m.Value
}
