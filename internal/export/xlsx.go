package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/cutplan/internal/report"
)

// Workbook sheet names.
const (
	SheetSummary = "Summary"
	SheetPanels  = "Cut List"
	SheetCuts    = "Cuts"
	SheetOffcuts = "Offcuts"
	SheetNoFit   = "No Fit"
)

var (
	summaryHeader = []any{"Material", "Sheets", "Placed", "No fit", "Cuts", "Cut length", "Used area", "Wasted area", "Efficiency"}
	panelsHeader  = []any{"Material", "Sheet", "Stock", "Panel", "Label", "X", "Y", "Width", "Height", "Rotated"}
	cutsHeader    = []any{"Material", "Sheet", "Step", "Direction", "Coordinate", "X1", "Y1", "X2", "Y2", "Length"}
	offcutsHeader = []any{"Material", "Sheet", "Offcut", "X", "Y", "Width", "Height"}
	noFitHeader   = []any{"Material", "Panel", "Label", "Width", "Height", "Count"}
)

// XLSX writes the plan as a workbook with a summary, a cut list, the cut
// sequence, offcuts and unplaced panels.
func XLSX(w io.Writer, resp report.Response) error {
	if resp.Summary.Sheets == 0 && len(resp.NoFit) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetPanels, SheetCuts, SheetOffcuts, SheetNoFit} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	tables := map[string][][]any{
		SheetSummary: summaryRows(resp),
		SheetPanels:  panelRows(resp),
		SheetCuts:    cutRows(resp),
		SheetOffcuts: offcutRows(resp),
		SheetNoFit:   noFitRows(resp),
	}
	headers := map[string][]any{
		SheetSummary: summaryHeader,
		SheetPanels:  panelsHeader,
		SheetCuts:    cutsHeader,
		SheetOffcuts: offcutsHeader,
		SheetNoFit:   noFitHeader,
	}
	for name, rows := range tables {
		if err := writeTable(f, name, headers[name], rows, bold); err != nil {
			return fmt.Errorf("failed to write sheet %q: %w", name, err)
		}
	}

	return f.Write(w)
}

// XLSXFile writes the workbook to path.
func XLSXFile(path string, resp report.Response) error {
	return writeFile(path, func(w io.Writer) error { return XLSX(w, resp) })
}

func writeTable(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 14)
}

func summaryRows(resp report.Response) [][]any {
	rows := make([][]any, 0, len(resp.Materials)+1)
	for _, plan := range resp.Materials {
		rows = append(rows, summaryRow(plan.Material, plan.Summary))
	}
	return append(rows, summaryRow("Total", resp.Summary))
}

func summaryRow(name string, s report.Summary) []any {
	return []any{name, s.Sheets, s.PlacedPanels, s.NoFitPanels, s.Cuts, s.CutLength, s.UsedArea, s.WastedArea, s.Efficiency}
}

func panelRows(resp report.Response) [][]any {
	var rows [][]any
	for _, plan := range resp.Materials {
		for _, sheet := range plan.Sheets {
			for _, p := range sheet.Panels {
				rows = append(rows, []any{plan.Material, sheet.Index, sheet.StockID, p.ID, p.Label, p.X, p.Y, p.Width, p.Height, p.Rotated})
			}
		}
	}
	return rows
}

func cutRows(resp report.Response) [][]any {
	var rows [][]any
	for _, plan := range resp.Materials {
		for _, sheet := range plan.Sheets {
			for i, c := range sheet.Cuts {
				dir := "vertical"
				if c.Horizontal {
					dir = "horizontal"
				}
				rows = append(rows, []any{plan.Material, sheet.Index, i + 1, dir, c.Coordinate, c.X1, c.Y1, c.X2, c.Y2, c.Length})
			}
		}
	}
	return rows
}

func offcutRows(resp report.Response) [][]any {
	var rows [][]any
	for _, plan := range resp.Materials {
		for _, sheet := range plan.Sheets {
			for _, o := range sheet.Offcuts {
				rows = append(rows, []any{plan.Material, sheet.Index, o.ID, o.X, o.Y, o.Width, o.Height})
			}
		}
	}
	return rows
}

func noFitRows(resp report.Response) [][]any {
	rows := make([][]any, 0, len(resp.NoFit))
	for _, p := range resp.NoFit {
		rows = append(rows, []any{p.Material, p.ID, p.Label, p.Width, p.Height, p.Count})
	}
	return rows
}
