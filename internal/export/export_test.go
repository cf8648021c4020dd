package export

import (
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/report"
)

// samplePlan is a two-material plan: oak uses one sheet with two panels
// and a spare offcut, birch one sheet with a rotated panel.
func samplePlan() report.Response {
	oak := report.Sheet{
		Index: 1, StockID: 1, Label: "Oak 2440x1220", Material: "oak",
		Width: 2440, Height: 1220,
		Panels: []report.Panel{
			{ID: 1, Label: "Side Panel", X: 0, Y: 0, Width: 600, Height: 400},
			{ID: 2, Label: "Top", X: 603.2, Y: 0, Width: 500, Height: 300},
		},
		Cuts: []report.Cut{
			{X1: 600, Y1: 0, X2: 600, Y2: 1220, Coordinate: 600, Length: 1220},
			{X1: 0, Y1: 400, X2: 600, Y2: 400, Horizontal: true, Coordinate: 400, Length: 600},
		},
		Offcuts: []report.Offcut{{ID: "oc-1", X: 1103.2, Y: 0, Width: 1336.8, Height: 1220}},
		Summary: report.Summary{Sheets: 1, PlacedPanels: 2, Cuts: 2, CutLength: 1820, UsedArea: 390000, WastedArea: 2586800, TotalArea: 2976800, Efficiency: 0.131},
	}
	birch := report.Sheet{
		Index: 1, StockID: 5, Material: "birch",
		Width: 1200, Height: 600,
		Panels: []report.Panel{
			{ID: 3, X: 0, Y: 0, Width: 300, Height: 800, Rotated: true},
		},
		Summary: report.Summary{Sheets: 1, PlacedPanels: 1, UsedArea: 240000, WastedArea: 480000, TotalArea: 720000, Efficiency: 0.333},
	}
	noFit := report.NoFitPanel{ID: 9, Label: "Too Big", Material: "birch", Width: 3000, Height: 2000, Count: 2}
	return report.Response{
		TaskID:        "task-42",
		Status:        model.StatusFinished,
		ElapsedMillis: 1234,
		Settings: report.Settings{
			CutThickness: 3.2, OptimizationLevel: "normal",
			Priority: "material_efficiency", SplitPolicy: "both",
		},
		Summary: report.Summary{Sheets: 2, PlacedPanels: 3, NoFitPanels: 2, Cuts: 2, CutLength: 1820, UsedArea: 630000, WastedArea: 3066800, TotalArea: 3696800, Efficiency: 0.17},
		Materials: []report.MaterialPlan{
			{Material: "birch", Sheets: []report.Sheet{birch}, NoFit: []report.NoFitPanel{noFit}},
			{Material: "oak", Sheets: []report.Sheet{oak}, UnusedStock: []report.StockSheet{{ID: 1, Label: "Oak 2440x1220", Width: 2440, Height: 1220, Count: 1}}},
		},
		NoFit: []report.NoFitPanel{noFit},
	}
}
