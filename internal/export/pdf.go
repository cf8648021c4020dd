// Package export renders cutting plans to PDF, QR label sheets, XLSX
// workbooks and DXF drawings.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/cutplan/internal/report"
)

// ErrNothingToExport is returned when a plan has no cut sheets.
var ErrNothingToExport = errors.New("no sheets to export")

// panelColor represents an RGB color for a placed panel.
type panelColor struct {
	R, G, B int
}

var panelColors = []panelColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	statsHeight  = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// PDF writes the cutting plan: one page per sheet followed by a summary
// page.
func PDF(w io.Writer, resp report.Response) error {
	if resp.Summary.Sheets == 0 {
		return ErrNothingToExport
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, plan := range resp.Materials {
		for _, sheet := range plan.Sheets {
			pdf.AddPage()
			renderSheetPage(pdf, plan.Material, sheet)
		}
	}

	pdf.AddPage()
	renderSummaryPage(pdf, resp)

	return pdf.Output(w)
}

// PDFFile writes the plan to path.
func PDFFile(path string, resp report.Response) error {
	return writeFile(path, func(w io.Writer) error { return PDF(w, resp) })
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func sheetTitle(material string, sheet report.Sheet) string {
	name := sheet.Label
	if name == "" {
		name = fmt.Sprintf("Stock %d", sheet.StockID)
	}
	if material != "" {
		name = material + " / " + name
	}
	return fmt.Sprintf("Sheet %d: %s (%g x %g)", sheet.Index, name, sheet.Width, sheet.Height)
}

// renderSheetPage draws a single sheet on the current PDF page.
func renderSheetPage(pdf *fpdf.Fpdf, material string, sheet report.Sheet) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, sheetTitle(material, sheet), "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Panels: %d | Cuts: %d (%g) | Used area: %g | Total area: %g | Efficiency: %.1f%%",
		len(sheet.Panels), sheet.Summary.Cuts, sheet.Summary.CutLength,
		sheet.Summary.UsedArea, sheet.Summary.TotalArea, sheet.Summary.Efficiency*100)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - statsHeight

	// fit the sheet into the drawing area
	scale := math.Min(drawWidth/sheet.Width, drawHeight/sheet.Height)
	canvasW := sheet.Width * scale
	canvasH := sheet.Height * scale
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// sheet background (wood color)
	pdf.SetFillColor(210, 180, 140)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	drawOffcuts(pdf, sheet.Offcuts, scale, offsetX, offsetY)

	for i, p := range sheet.Panels {
		col := panelColors[i%len(panelColors)]
		pw := p.Width * scale
		ph := p.Height * scale
		px := offsetX + p.X*scale
		py := offsetY + p.Y*scale

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(px, py, pw, ph, "FD")

		// label only if the rectangle is large enough
		if pw > 15 && ph > 8 {
			pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
			pdf.SetTextColor(0, 0, 0)

			label := panelName(p)
			dims := fmt.Sprintf("%gx%g", p.Width, p.Height)
			labelW := pdf.GetStringWidth(label)
			dimsW := pdf.GetStringWidth(dims)

			if labelW < pw-2 {
				pdf.SetXY(px+(pw-labelW)/2, py+ph/2-4)
				pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			}
			if ph > 14 && dimsW < pw-2 {
				pdf.SetXY(px+(pw-dimsW)/2, py+ph/2)
				pdf.CellFormat(dimsW, 4, dims, "", 0, "C", false, 0, "")
			}
		}
	}

	drawCuts(pdf, sheet.Cuts, scale, offsetX, offsetY)
	drawDimensionAnnotations(pdf, sheet, offsetX, offsetY, canvasW, canvasH)
	drawPanelsLegend(pdf, sheet, offsetY+canvasH+5)
}

func panelName(p report.Panel) string {
	if p.Label != "" {
		return p.Label
	}
	return fmt.Sprintf("#%d", p.ID)
}

// drawCuts overlays the saw cuts as thin red lines.
func drawCuts(pdf *fpdf.Fpdf, cuts []report.Cut, scale, offsetX, offsetY float64) {
	pdf.SetDrawColor(200, 0, 0)
	pdf.SetLineWidth(0.2)
	for _, c := range cuts {
		pdf.Line(offsetX+c.X1*scale, offsetY+c.Y1*scale, offsetX+c.X2*scale, offsetY+c.Y2*scale)
	}
}

// drawOffcuts marks reusable remnants with a hatch pattern.
func drawOffcuts(pdf *fpdf.Fpdf, offcuts []report.Offcut, scale, offsetX, offsetY float64) {
	for _, o := range offcuts {
		zx := offsetX + o.X*scale
		zy := offsetY + o.Y*scale
		zw := o.Width * scale
		zh := o.Height * scale

		pdf.SetFillColor(230, 245, 230)
		pdf.SetDrawColor(0, 120, 0)
		pdf.SetLineWidth(0.3)
		pdf.Rect(zx, zy, zw, zh, "FD")
		drawHatchPattern(pdf, zx, zy, zw, zh)

		if zw > 20 && zh > 8 {
			pdf.SetFont("Helvetica", "B", 6)
			pdf.SetTextColor(0, 100, 0)
			labelW := pdf.GetStringWidth("OFFCUT")
			pdf.SetXY(zx+(zw-labelW)/2, zy+zh/2-2)
			pdf.CellFormat(labelW, 4, "OFFCUT", "", 0, "C", false, 0, "")
		}
	}
	pdf.SetTextColor(0, 0, 0)
}

// drawHatchPattern draws diagonal lines inside a rectangle.
func drawHatchPattern(pdf *fpdf.Fpdf, x, y, w, h float64) {
	pdf.SetDrawColor(0, 120, 0)
	pdf.SetLineWidth(0.15)

	spacing := 4.0
	maxDist := w + h

	for d := spacing; d < maxDist; d += spacing {
		x1 := x + math.Max(0, d-h)
		y1 := y + math.Min(h, d)
		x2 := x + math.Min(w, d)
		y2 := y + math.Max(0, d-w)

		pdf.Line(x1, y1, x2, y2)
	}
}

// drawDimensionAnnotations adds width and height labels outside the sheet.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, sheet report.Sheet, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%g", sheet.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%g", sheet.Height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawPanelsLegend renders a compact legend below the sheet.
func drawPanelsLegend(pdf *fpdf.Fpdf, sheet report.Sheet, startY float64) {
	if len(sheet.Panels) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Panels placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, p := range sheet.Panels {
		col := panelColors[i%len(panelColors)]
		label := fmt.Sprintf("%s (%gx%g)", panelName(p), p.Width, p.Height)
		if p.Rotated {
			label += " R"
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the overall statistics, a per-sheet table, the
// unplaced panels and the settings used.
func renderSummaryPage(pdf *fpdf.Fpdf, resp report.Response) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Cutting Plan Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	sum := resp.Summary
	summaryItems := []struct {
		label string
		value string
	}{
		{"Total Sheets Used", fmt.Sprintf("%d", sum.Sheets)},
		{"Overall Efficiency", fmt.Sprintf("%.1f%%", sum.Efficiency*100)},
		{"Panels Placed", fmt.Sprintf("%d", sum.PlacedPanels)},
		{"Unplaced Panels", fmt.Sprintf("%d", sum.NoFitPanels)},
		{"Cuts", fmt.Sprintf("%d (total length %g)", sum.Cuts, sum.CutLength)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Sheet Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{20, 60, 50, 30, 30, 35, 40}
	headers := []string{"Sheet", "Material", "Dimensions", "Panels", "Cuts", "Efficiency", "Used / Total"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	row := 0
	for _, plan := range resp.Materials {
		for _, sheet := range plan.Sheets {
			xPos = marginLeft
			rowData := []string{
				fmt.Sprintf("%d", sheet.Index),
				plan.Material,
				fmt.Sprintf("%g x %g", sheet.Width, sheet.Height),
				fmt.Sprintf("%d", len(sheet.Panels)),
				fmt.Sprintf("%d", sheet.Summary.Cuts),
				fmt.Sprintf("%.1f%%", sheet.Summary.Efficiency*100),
				fmt.Sprintf("%g / %g", sheet.Summary.UsedArea, sheet.Summary.TotalArea),
			}

			if row%2 == 0 {
				pdf.SetFillColor(245, 245, 245)
			} else {
				pdf.SetFillColor(255, 255, 255)
			}
			for j, cell := range rowData {
				pdf.SetXY(xPos, y)
				pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
				xPos += colWidths[j]
			}
			y += 6
			row++
		}
	}

	if len(resp.NoFit) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Panels", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, nf := range resp.NoFit {
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- #%d %s: %g x %g (qty: %d)", nf.ID, nf.Label, nf.Width, nf.Height, nf.Count)
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	y += 8
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Settings", "", 0, "L", false, 0, "")
	y += 9

	settings := resp.Settings
	settingsItems := []struct {
		label string
		value string
	}{
		{"Cut Thickness", fmt.Sprintf("%g", settings.CutThickness)},
		{"Minimum Trim", fmt.Sprintf("%g", settings.MinTrimDimension)},
		{"Optimization Level", settings.OptimizationLevel},
		{"Priority", settings.Priority},
		{"Split Policy", settings.SplitPolicy},
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range settingsItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, item.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 5, item.value, "", 0, "L", false, 0, "")
		y += 5
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by cutplan - task "+resp.TaskID, "", 0, "C", false, 0, "")
}

// labelFontSize returns a font size that fits the rectangle.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
