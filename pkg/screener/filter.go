package screener

import "strings"

// Filter returns the stocks for which keep returns true.
func Filter(stocks []Stock, keep func(*Stock) bool) []Stock {
	var out []Stock
	for i := range stocks {
		if keep(&stocks[i]) {
			out = append(out, stocks[i])
		}
	}
	return out
}

// BySector matches stocks in the given sector, case-insensitively.
func BySector(sector string) func(*Stock) bool {
	sector = strings.ToLower(sector)
	return func(s *Stock) bool {
		return strings.ToLower(s.Sector) == sector
	}
}

// BySearch matches stocks whose symbol or name contains the query,
// case-insensitively.
func BySearch(query string) func(*Stock) bool {
	query = strings.ToLower(query)
	return func(s *Stock) bool {
		return strings.Contains(strings.ToLower(s.Symbol), query) ||
			strings.Contains(strings.ToLower(s.Name), query)
	}
}

// ByMinScore matches stocks scoring at least min.
func ByMinScore(min float64) func(*Stock) bool {
	return func(s *Stock) bool {
		return s.Score >= min
	}
}
