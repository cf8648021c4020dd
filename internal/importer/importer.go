// Package importer reads panel and stock lists from CSV, Excel and DXF files.
// It detects the delimiter, maps columns by header name (case-insensitive)
// and falls back to positional columns when no header is present.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/cutplan/internal/logger"
	"github.com/piwi3910/cutplan/internal/model"
)

// Result holds the parsed entries and per-row problems. Rows with errors
// are skipped; warnings do not drop the row.
type Result struct {
	Panels   []model.PanelInput `json:"panels"`
	Errors   []string           `json:"errors"`
	Warnings []string           `json:"warnings"`
}

// OK reports whether at least one entry was read and no row failed.
func (r Result) OK() bool {
	return len(r.Panels) > 0 && len(r.Errors) == 0
}

// Column roles.
const (
	ColID       = "id"
	ColLabel    = "label"
	ColWidth    = "width"
	ColHeight   = "height"
	ColCount    = "count"
	ColGrain    = "grain"
	ColMaterial = "material"
)

// positional is the column order assumed for files without a header.
var positional = []string{ColLabel, ColWidth, ColHeight, ColCount, ColGrain, ColMaterial}

// ColumnMapping maps column roles to their indices in a row.
type ColumnMapping map[string]int

// Index returns the column of role or -1.
func (m ColumnMapping) Index(role string) int {
	if i, ok := m[role]; ok {
		return i
	}
	return -1
}

// headerAliases maps column roles to their accepted header names (lowercase).
var headerAliases = map[string][]string{
	ColID:       {"id", "#", "no", "number"},
	ColLabel:    {"label", "name", "part", "part name", "panel", "description", "desc", "piece", "item"},
	ColWidth:    {"width", "w", "length", "len", "x"},
	ColHeight:   {"height", "h", "depth", "d", "y"},
	ColCount:    {"count", "quantity", "qty", "num", "amount", "pcs", "pieces"},
	ColGrain:    {"grain", "grain direction", "direction", "grain dir", "orientation"},
	ColMaterial: {"material", "mat", "stock", "board"},
}

var aliasRole = func() map[string]string {
	m := make(map[string]string)
	for role, aliases := range headerAliases {
		for _, a := range aliases {
			m[a] = role
		}
	}
	return m
}()

// DetectCSVDelimiter returns the delimiter among comma, semicolon, tab and
// pipe that splits the data into the most consistent multi-column rows.
func DetectCSVDelimiter(data []byte) rune {
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range []rune{',', ';', '\t', '|'} {
		records, err := readCSV(bytes.NewReader(data), delim)
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		// consistency first, then column count
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns maps a header row to column roles. When the row is not a
// header the positional mapping is returned with false.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{}
	for i, cell := range row {
		role, ok := aliasRole[strings.ToLower(strings.TrimSpace(cell))]
		if !ok {
			continue
		}
		if _, seen := mapping[role]; !seen {
			mapping[role] = i
		}
	}
	if len(mapping) > 0 {
		return mapping, true
	}

	for i, role := range positional {
		mapping[role] = i
	}
	return mapping, false
}

func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseDimension accepts a positive decimal, with a comma as decimal
// separator too, and returns it in canonical form.
func parseDimension(s string) (string, bool) {
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil || !d.IsPositive() {
		return "", false
	}
	return d.String(), true
}

// parseRow builds an entry from row. It returns the entry, an error message
// and a warning message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, nextID int) (model.PanelInput, string, string) {
	p := model.PanelInput{
		ID:       nextID,
		Label:    getCell(row, mapping.Index(ColLabel)),
		Material: getCell(row, mapping.Index(ColMaterial)),
	}

	if s := getCell(row, mapping.Index(ColID)); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil || id < 0 {
			return p, fmt.Sprintf("%s: Invalid id '%s'", rowLabel, s), ""
		}
		p.ID = id
	}

	for _, dim := range []struct {
		role string
		name string
		dst  *string
	}{
		{ColWidth, "width", &p.Width},
		{ColHeight, "height", &p.Height},
	} {
		s := getCell(row, mapping.Index(dim.role))
		if s == "" {
			return p, fmt.Sprintf("%s: Missing %s value", rowLabel, dim.name), ""
		}
		v, ok := parseDimension(s)
		if !ok {
			return p, fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, dim.name, s), ""
		}
		*dim.dst = v
	}

	p.Count = 1
	if s := getCell(row, mapping.Index(ColCount)); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, fmt.Sprintf("%s: Invalid count '%s'", rowLabel, s), ""
		}
		if n <= 0 {
			return p, fmt.Sprintf("%s: Count must be positive", rowLabel), ""
		}
		p.Count = n
	}

	var warning string
	if s := getCell(row, mapping.Index(ColGrain)); s != "" {
		grain, ok := model.ParseGrain(s)
		if ok {
			p.Grain = grain
		} else {
			warning = fmt.Sprintf("%s: Unknown grain direction '%s', defaulting to none", rowLabel, s)
		}
	}

	return p, "", warning
}

func readCSV(r io.Reader, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// Import picks the reader by extension: .xlsx, .xlsm and .xls are Excel,
// .dxf is a drawing, anything else is CSV.
func Import(path string) Result {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return ImportExcel(path)
	case ".dxf":
		return ImportDXF(path)
	default:
		return ImportCSV(path)
	}
}

// ImportCSV reads a CSV file with an auto-detected delimiter.
func ImportCSV(path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot open file: %v", err)}}
	}
	return ImportCSVBytes(data)
}

// ImportCSVBytes parses CSV content with an auto-detected delimiter.
func ImportCSVBytes(data []byte) Result {
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{Errors: []string{"File is empty"}}
	}

	var warnings []string
	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	records, err := readCSV(bytes.NewReader(data), delimiter)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot read CSV: %v", err)}}
	}
	return importFromRows(records, "Line", warnings)
}

// ImportCSVFromReader reads CSV with a known delimiter.
func ImportCSVFromReader(r io.Reader, delimiter rune) Result {
	records, err := readCSV(r, delimiter)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot read CSV: %v", err)}}
	}
	if len(records) == 0 {
		return Result{Errors: []string{"File is empty"}}
	}
	return importFromRows(records, "Line", nil)
}

// ImportExcel reads the first sheet of a workbook.
func ImportExcel(path string) Result {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()
	return importWorkbook(f)
}

// ImportExcelFromReader reads the first sheet of a workbook stream.
func ImportExcelFromReader(r io.Reader) Result {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot open Excel file: %v", err)}}
	}
	defer f.Close()
	return importWorkbook(f)
}

func importWorkbook(f *excelize.File) Result {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{Errors: []string{"Excel file has no sheets"}}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot read Excel data: %v", err)}}
	}
	if len(rows) == 0 {
		return Result{Errors: []string{"Sheet is empty"}}
	}
	return importFromRows(rows, "Row", nil)
}

// importFromRows is shared by the CSV and Excel paths. Entries without an
// id column are numbered from 1 in file order.
func importFromRows(rows [][]string, rowPrefix string, warnings []string) Result {
	result := Result{Warnings: warnings}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		var missing []string
		for _, role := range []string{ColWidth, ColHeight} {
			if mapping.Index(role) == -1 {
				missing = append(missing, role)
			}
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 3 {
		// an unrecognized header still has a non-numeric width cell
		if _, ok := parseDimension(getCell(rows[0], mapping.Index(ColWidth))); !ok {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	seen := make(map[int]string)
	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		p, errMsg, warning := parseRow(row, mapping, rowLabel, len(result.Panels)+1)
		if errMsg == "" {
			if prev, dup := seen[p.ID]; dup {
				errMsg = fmt.Sprintf("%s: Duplicate id %d, first used on %s", rowLabel, p.ID, prev)
			}
		}
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		seen[p.ID] = rowLabel
		result.Panels = append(result.Panels, p)
	}

	if len(result.Panels) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
	}
	logger.For(logger.ComponentImport).Debugf("imported %d entries, %d errors, %d warnings",
		len(result.Panels), len(result.Errors), len(result.Warnings))
	return result
}
