// Package httpapi provides the HTTP REST API for the screener dashboard,
// serving the stock records, aggregate stats, and import status as JSON.
package httpapi

import (
	"screener/internal/domain"
)

// Pagination describes the window of a paginated response.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// StocksResponse is the response for the stock listing endpoint.
type StocksResponse struct {
	Stocks     []domain.StockRecord `json:"stocks"`
	Pagination Pagination           `json:"pagination"`
}

// CountResponse is the response for the count endpoint.
type CountResponse struct {
	Count int `json:"count"`
}

// SectorCount holds one sector's record count.
type SectorCount struct {
	Sector string `json:"sector"`
	Count  int    `json:"count"`
}

// StatsResponse is the response for the aggregate stats endpoint.
type StatsResponse struct {
	Total       int           `json:"total"`
	AvgScore    float64       `json:"avgScore"`
	MaxScore    float64       `json:"maxScore"`
	MinScore    float64       `json:"minScore"`
	Sectors     []SectorCount `json:"sectors"`
	LastUpdated string        `json:"lastUpdated,omitempty"`
}

// StatusResponse combines database health with the importer's persisted
// status and progress.
type StatusResponse struct {
	Database string                `json:"database"`
	Import   domain.ImportStatus   `json:"import"`
	Progress *domain.BatchProgress `json:"progress,omitempty"`
}
