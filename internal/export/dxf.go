package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/piwi3910/cutplan/internal/report"
)

// DXF layer names.
const (
	LayerSheets  = "SHEETS"
	LayerPanels  = "PANELS"
	LayerCuts    = "CUTS"
	LayerOffcuts = "OFFCUTS"
	LayerText    = "TEXT"
)

// sheetGap separates consecutive sheets along the X axis, in plan units.
const sheetGap = 100.0

// DXFFile writes every sheet of the plan side by side into a DXF drawing.
// The Y axis points up as usual in CAD, so plan coordinates are mirrored.
func DXFFile(path string, resp report.Response) error {
	if resp.Summary.Sheets == 0 {
		return ErrNothingToExport
	}

	d := dxf.NewDrawing()
	layers := []struct {
		name  string
		color color.ColorNumber
	}{
		{LayerSheets, color.White},
		{LayerPanels, color.Green},
		{LayerCuts, color.Red},
		{LayerOffcuts, color.Cyan},
		{LayerText, color.Yellow},
	}
	for _, l := range layers {
		if _, err := d.AddLayer(l.name, l.color, dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("failed to add layer %s: %w", l.name, err)
		}
	}

	offsetX := 0.0
	for _, plan := range resp.Materials {
		for _, sheet := range plan.Sheets {
			if err := drawSheet(d, plan.Material, sheet, offsetX); err != nil {
				return fmt.Errorf("failed to draw sheet %d of %s: %w", sheet.Index, plan.Material, err)
			}
			offsetX += sheet.Width + sheetGap
		}
	}

	return d.SaveAs(path)
}

// DXF writes the drawing to w through a temporary file.
func DXF(w io.Writer, resp report.Response) error {
	dir, err := os.MkdirTemp("", "cutplan-dxf-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "plan.dxf")
	if err := DXFFile(path, resp); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func drawSheet(d *drawing.Drawing, material string, sheet report.Sheet, offsetX float64) error {
	flip := func(y float64) float64 { return sheet.Height - y }

	if err := d.ChangeLayer(LayerSheets); err != nil {
		return err
	}
	if err := rect(d, offsetX, 0, sheet.Width, sheet.Height); err != nil {
		return err
	}

	if err := d.ChangeLayer(LayerPanels); err != nil {
		return err
	}
	for _, p := range sheet.Panels {
		if err := rect(d, offsetX+p.X, flip(p.Y+p.Height), p.Width, p.Height); err != nil {
			return err
		}
	}

	if err := d.ChangeLayer(LayerCuts); err != nil {
		return err
	}
	for _, c := range sheet.Cuts {
		if _, err := d.Line(offsetX+c.X1, flip(c.Y1), 0, offsetX+c.X2, flip(c.Y2), 0); err != nil {
			return err
		}
	}

	if err := d.ChangeLayer(LayerOffcuts); err != nil {
		return err
	}
	for _, o := range sheet.Offcuts {
		if err := rect(d, offsetX+o.X, flip(o.Y+o.Height), o.Width, o.Height); err != nil {
			return err
		}
	}

	if err := d.ChangeLayer(LayerText); err != nil {
		return err
	}
	textHeight := max(sheet.Height/60, 1)
	if _, err := d.Text(sheetTitle(material, sheet), offsetX, sheet.Height+textHeight, 0, textHeight); err != nil {
		return err
	}
	for _, p := range sheet.Panels {
		h := min(textHeight, p.Height/3)
		if _, err := d.Text(panelName(p), offsetX+p.X+h/2, flip(p.Y+p.Height)+h/2, 0, h); err != nil {
			return err
		}
	}
	return nil
}

// rect draws an axis-aligned rectangle with its lower left corner at x, y.
func rect(d *drawing.Drawing, x, y, w, h float64) error {
	corners := [][2]float64{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
	for i, a := range corners {
		b := corners[(i+1)%len(corners)]
		if _, err := d.Line(a[0], a[1], 0, b[0], b[1], 0); err != nil {
			return err
		}
	}
	return nil
}
