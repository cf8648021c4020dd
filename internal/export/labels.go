package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/goccy/go-json"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/cutplan/internal/report"
)

// LabelInfo holds the data encoded into each panel label's QR code.
type LabelInfo struct {
	TaskID     string  `json:"task"`
	PanelID    int     `json:"panel"`
	PanelLabel string  `json:"label,omitempty"`
	Material   string  `json:"material,omitempty"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	SheetIndex int     `json:"sheet"`
	SheetLabel string  `json:"sheet_label,omitempty"`
	Rotated    bool    `json:"rotated"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelPageWidth  = 215.9 // US Letter width in mm
	labelPageHeight = 279.4 // US Letter height in mm
	labelMarginTop  = 12.7  // mm
	labelMarginLeft = 4.8   // mm
	labelWidth      = 66.7  // mm per label
	labelHeight     = 25.4  // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// Labels writes a PDF with one QR-coded label per placed panel, laid out
// as Avery 5160 sheets.
func Labels(w io.Writer, resp report.Response) error {
	labels := CollectLabels(resp)
	if len(labels) == 0 {
		return fmt.Errorf("%w: no panels placed", ErrNothingToExport)
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, i, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for panel %d: %w", label.PanelID, err)
		}
	}

	return pdf.Output(w)
}

// LabelsFile writes the label sheet to path.
func LabelsFile(path string, resp report.Response) error {
	return writeFile(path, func(w io.Writer) error { return Labels(w, resp) })
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, n int, x, y float64, info LabelInfo) error {
	// light border as cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d", n)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	name := info.PanelLabel
	if name == "" {
		name = fmt.Sprintf("Panel #%d", info.PanelID)
	}
	if pdf.GetStringWidth(name) > textW {
		for len(name) > 0 && pdf.GetStringWidth(name+"...") > textW {
			name = name[:len(name)-1]
		}
		name += "..."
	}
	pdf.CellFormat(textW, 4.5, name, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	dims := fmt.Sprintf("%g x %g", info.Width, info.Height)
	if info.Material != "" {
		dims += " " + info.Material
	}
	pdf.CellFormat(textW, 3.5, dims, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	sheetInfo := fmt.Sprintf("Sheet %d @ (%g, %g)", info.SheetIndex, info.X, info.Y)
	pdf.CellFormat(textW, 3, sheetInfo, "", 1, "L", false, 0, "")

	if info.Rotated {
		pdf.SetXY(textX, y+labelPadding+12.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, "Rotated 90\xb0", "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)

	return nil
}

// CollectLabels lists one label per placed panel in sheet order.
func CollectLabels(resp report.Response) []LabelInfo {
	var labels []LabelInfo
	for _, plan := range resp.Materials {
		for _, sheet := range plan.Sheets {
			for _, p := range sheet.Panels {
				labels = append(labels, LabelInfo{
					TaskID:     resp.TaskID,
					PanelID:    p.ID,
					PanelLabel: p.Label,
					Material:   plan.Material,
					Width:      p.Width,
					Height:     p.Height,
					SheetIndex: sheet.Index,
					SheetLabel: sheet.Label,
					Rotated:    p.Rotated,
					X:          p.X,
					Y:          p.Y,
				})
			}
		}
	}
	return labels
}
