package ingest

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"print-scheduler/core/models"
)

// ErrHeaderNotFound is returned when a sheet has no rows to read a header from
var ErrHeaderNotFound = errors.New("order sheet header not found")

// HeaderMarker identifies the real header row in the print detail sheet
const HeaderMarker = "产品序号"

// Column positions in the print detail sheet
const (
	ColumnOrderID      = 0
	ColumnProductName  = 1
	ColumnPrintMethod  = 5
	ColumnDeliveryDate = 15
)

var numericID = regexp.MustCompile(`^\d+(\.0+)?$`)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"‘", "'", // left single quote
	"’", "'", // right single quote
)

// NormalizeQuotes replaces typographic quotes with their ASCII forms
func NormalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

// SheetResult holds the orders extracted from a sheet
type SheetResult struct {
	Orders  []models.JobRecord
	Skipped int // Data rows that did not describe an order
}

// ParseRows extracts orders from sheet rows.
//
// When a row containing HeaderMarker is found, every later row whose first
// cell is a whole number becomes an order keyed by that number. Sheets without
// the marker are read as plain uploads: the first row is the header, the row
// after it is skipped, and later rows are keyed by position and kept only when
// they name a product.
func ParseRows(rows [][]string) (SheetResult, error) {
	if len(rows) == 0 {
		return SheetResult{}, ErrHeaderNotFound
	}

	for i, row := range rows {
		for _, cell := range row {
			if strings.Contains(cell, HeaderMarker) {
				return parseMarked(rows[i+1:]), nil
			}
		}
	}

	return parseUpload(rows[1:]), nil
}

func parseMarked(rows [][]string) SheetResult {
	result := SheetResult{Orders: []models.JobRecord{}}

	for _, row := range rows {
		id := cellAt(row, ColumnOrderID)
		if id == "" || strings.Contains(id, HeaderMarker) {
			continue
		}
		if !numericID.MatchString(id) {
			result.Skipped++
			continue
		}

		result.Orders = append(result.Orders, models.JobRecord{
			ID:            strings.SplitN(id, ".", 2)[0],
			ProductName:   cellAt(row, ColumnProductName),
			ChangeoverKey: cellAt(row, ColumnPrintMethod),
			DueDate:       cellAt(row, ColumnDeliveryDate),
		})
	}

	return result
}

func parseUpload(rows [][]string) SheetResult {
	result := SheetResult{Orders: []models.JobRecord{}}

	for i, row := range rows {
		if i == 0 {
			continue
		}

		product := cellAt(row, ColumnProductName)
		if product == "" {
			result.Skipped++
			continue
		}

		result.Orders = append(result.Orders, models.JobRecord{
			ID:            strconv.Itoa(i),
			ProductName:   product,
			ChangeoverKey: cellAt(row, ColumnPrintMethod),
			DueDate:       cellAt(row, ColumnDeliveryDate),
		})
	}

	return result
}

// cellAt returns the cleaned cell text, or "" when the row is too short
func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return NormalizeQuotes(strings.TrimSpace(row[idx]))
}
