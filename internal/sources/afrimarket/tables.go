package afrimarket

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/mercatus/internal/models"
)

// ParseTables extracts every HTML table in the document as a RawTable.
// A leading all-header row becomes the column list; every other row with
// cells becomes a data row. Cell text is whitespace-collapsed.
func ParseTables(html string) ([]*models.RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	var tables []*models.RawTable
	doc.Find("table").Each(func(i int, sel *goquery.Selection) {
		tables = append(tables, parseTable(sel))
	})
	return tables, nil
}

// FirstTable returns the first table that has data rows, falling back to
// the first table of any kind, then to an empty table. Exchange pages
// usually carry one data table plus decorative ones.
func FirstTable(html string) (*models.RawTable, error) {
	tables, err := ParseTables(html)
	if err != nil {
		return nil, err
	}

	for _, table := range tables {
		if len(table.Rows) > 0 {
			return table, nil
		}
	}
	if len(tables) > 0 {
		return tables[0], nil
	}
	return &models.RawTable{}, nil
}

func parseTable(table *goquery.Selection) *models.RawTable {
	result := &models.RawTable{}

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() == 0 {
			return
		}

		// The first all-header row becomes the column list. Header
		// cells inside later rows (row-label style) stay data cells.
		if result.Columns == nil && len(result.Rows) == 0 && cells.Length() == row.Find("th").Length() {
			cells.Each(func(j int, cell *goquery.Selection) {
				result.Columns = append(result.Columns, cleanCell(cell.Text()))
			})
			return
		}

		var values []interface{}
		cells.Each(func(j int, cell *goquery.Selection) {
			values = append(values, cleanCell(cell.Text()))
		})
		result.Rows = append(result.Rows, values)
	})

	return result
}

// cleanCell collapses runs of whitespace into single spaces. Zero-width
// spaces survive; they are not unicode whitespace and downstream
// coercion treats them as placeholders.
func cleanCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
