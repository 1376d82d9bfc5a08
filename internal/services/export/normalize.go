package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/models"
)

// ErrNoData indicates the source returned a table with no rows.
// It is not retryable; the exchange page simply has nothing to offer.
var ErrNoData = errors.New("no data returned by source")

// maxIndexPoints caps the index dataset to the trailing window of the
// source table.
const maxIndexPoints = 10

// Normalizer converts raw scraped tables into dataset records.
type Normalizer struct {
	logger arbor.ILogger
}

func NewNormalizer(logger arbor.ILogger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize converts a raw table into the record slice for the given
// dataset kind. It returns the records, the record count, and ErrNoData
// when the table holds no rows. On ErrNoData the returned records are an
// empty slice of the kind's record type so callers can still persist them.
func (n *Normalizer) Normalize(kind models.DatasetKind, table *models.RawTable) (interface{}, int, error) {
	switch kind {
	case models.DatasetIndex:
		return n.normalizeIndex(table)
	case models.DatasetGainers, models.DatasetLosers:
		return n.normalizeMovers(table)
	case models.DatasetCompanies:
		return n.normalizeCompanies(table)
	default:
		return nil, 0, fmt.Errorf("unknown dataset kind: %q", kind)
	}
}

// normalizeIndex keeps the trailing maxIndexPoints rows, keyed by column
// name. Date values are forced to strings; everything else passes through
// unchanged.
func (n *Normalizer) normalizeIndex(table *models.RawTable) (interface{}, int, error) {
	points := []models.IndexPoint{}
	if table.Empty() {
		return points, 0, ErrNoData
	}

	rows := table.Rows
	if len(rows) > maxIndexPoints {
		rows = rows[len(rows)-maxIndexPoints:]
	}

	for _, row := range rows {
		point := models.IndexPoint{}
		for i, cell := range row {
			key := columnKey(table.Columns, i)
			if isDateColumn(key) {
				point[key] = CoerceString(cell)
			} else {
				point[key] = cell
			}
		}
		points = append(points, point)
	}

	return points, len(points), nil
}

// normalizeMovers maps gainer/loser rows positionally: ticker, price,
// change. Rows without a ticker are dropped whole; a mover record is
// never emitted partially filled.
func (n *Normalizer) normalizeMovers(table *models.RawTable) (interface{}, int, error) {
	records := []models.MoverRecord{}
	if table.Empty() {
		return records, 0, ErrNoData
	}

	for _, row := range table.Rows {
		ticker := strings.TrimSpace(CoerceString(cellAt(row, 0)))
		if ticker == "" {
			n.logger.Debug().Msg("Skipping mover row without ticker")
			continue
		}

		records = append(records, models.MoverRecord{
			Ticker: ticker,
			Price:  CoerceFloat(cellAt(row, 1), 0),
			Change: CoerceString(cellAt(row, 2)),
		})
	}

	return records, len(records), nil
}

// normalizeCompanies maps listed-company rows by header name, falling
// back to the conventional column positions for ticker and name when the
// source drops or renames headers.
func (n *Normalizer) normalizeCompanies(table *models.RawTable) (interface{}, int, error) {
	records := []models.CompanyRecord{}
	if table.Empty() {
		return records, 0, ErrNoData
	}

	tickerIdx := table.ColumnIndex("Ticker")
	nameIdx := table.ColumnIndex("Name")
	priceIdx := table.ColumnIndex("Price")
	changeIdx := table.ColumnIndex("Change")
	volumeIdx := table.ColumnIndex("Volume")

	for _, row := range table.Rows {
		ticker := strings.TrimSpace(CoerceString(resolveCell(row, tickerIdx, 0)))
		name := strings.TrimSpace(CoerceString(resolveCell(row, nameIdx, 1)))
		if ticker == "" && name == "" {
			n.logger.Debug().Msg("Skipping company row without ticker or name")
			continue
		}

		volume := strings.TrimSpace(CoerceString(resolveCell(row, volumeIdx, -1)))
		if volume == "" {
			volume = "N/A"
		}

		records = append(records, models.CompanyRecord{
			Ticker: ticker,
			Name:   name,
			Volume: volume,
			Price:  CoerceFloat(resolveCell(row, priceIdx, -1), 0),
			Change: CoerceFloat(resolveCell(row, changeIdx, -1), 0),
		})
	}

	return records, len(records), nil
}

// columnKey names a cell by its header, falling back to the positional
// index when the header row is short or blank.
func columnKey(columns []string, i int) string {
	if i < len(columns) {
		if name := strings.TrimSpace(columns[i]); name != "" {
			return name
		}
	}
	return strconv.Itoa(i)
}

func isDateColumn(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), "date")
}

// cellAt returns the cell at index i, or nil when the row is short.
func cellAt(row []interface{}, i int) interface{} {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// resolveCell prefers the named column index and falls back to a fixed
// position; a negative fallback means the value is simply absent.
func resolveCell(row []interface{}, namedIdx, fallbackIdx int) interface{} {
	idx := namedIdx
	if idx < 0 {
		idx = fallbackIdx
	}
	return cellAt(row, idx)
}
