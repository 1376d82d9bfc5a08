package models

import "strings"

// DatasetKind identifies one of the data products collected per exchange.
// The string value doubles as the output file suffix and the API path segment.
type DatasetKind string

const (
	DatasetIndex     DatasetKind = "index"
	DatasetGainers   DatasetKind = "gainers"
	DatasetLosers    DatasetKind = "losers"
	DatasetCompanies DatasetKind = "companies"
)

// DatasetKinds returns all dataset kinds in fetch order.
func DatasetKinds() []DatasetKind {
	return []DatasetKind{DatasetIndex, DatasetGainers, DatasetLosers, DatasetCompanies}
}

// IsValid checks if the DatasetKind is a known, valid kind.
func (k DatasetKind) IsValid() bool {
	switch k {
	case DatasetIndex, DatasetGainers, DatasetLosers, DatasetCompanies:
		return true
	}
	return false
}

// ParseDatasetKind parses a dataset kind from its string form, case-insensitively.
func ParseDatasetKind(s string) (DatasetKind, bool) {
	k := DatasetKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.IsValid()
}

// RawTable is one tabular result from the upstream source: an ordered
// sequence of rows, each an ordered sequence of cells. Rows may be ragged
// and cells may hold any scalar representation; nothing here is trusted.
type RawTable struct {
	Columns []string
	Rows    [][]interface{}
}

// Empty reports whether the table carries no rows.
func (t *RawTable) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// ColumnIndex returns the position of a named column, case-insensitively,
// or -1 when the table has no such column.
func (t *RawTable) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, col := range t.Columns {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}

// IndexPoint is one index history row, keyed by the source column names.
type IndexPoint map[string]interface{}

// MoverRecord is one top-gainer or bottom-loser row.
type MoverRecord struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
	Change string  `json:"change"`
}

// CompanyRecord is one listed-company row.
type CompanyRecord struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	Volume string  `json:"volume"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
}
