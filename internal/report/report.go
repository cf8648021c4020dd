// Package report converts optimizer solutions back into request units for
// clients and exporters.
package report

import (
	"sort"
	"time"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/scale"
)

// Response is the result of a task as returned to clients.
type Response struct {
	TaskID        string         `json:"task_id"`
	Status        model.Status   `json:"status"`
	ElapsedMillis int64          `json:"elapsed_ms"`
	Settings      Settings       `json:"settings"`
	Summary       Summary        `json:"summary"`
	Materials     []MaterialPlan `json:"materials"`
	NoFit         []NoFitPanel   `json:"no_fit_panels"`
}

// Settings echoes the configuration the task ran with.
type Settings struct {
	CutThickness        float64 `json:"cut_thickness"`
	MinTrimDimension    float64 `json:"min_trim_dimension"`
	ConsiderOrientation bool    `json:"consider_orientation"`
	OptimizationLevel   string  `json:"optimization_level"`
	Priority            string  `json:"priority"`
	SplitPolicy         string  `json:"split_policy"`
	UseSingleStockUnit  bool    `json:"use_single_stock_unit"`
}

// Summary totals are in request units; areas are squared units.
type Summary struct {
	Sheets       int     `json:"sheets"`
	PlacedPanels int     `json:"placed_panels"`
	NoFitPanels  int     `json:"no_fit_panels"`
	Cuts         int     `json:"cuts"`
	CutLength    float64 `json:"cut_length"`
	UsedArea     float64 `json:"used_area"`
	WastedArea   float64 `json:"wasted_area"`
	TotalArea    float64 `json:"total_area"`
	Efficiency   float64 `json:"efficiency"`
}

type MaterialPlan struct {
	Material    string       `json:"material"`
	SolutionID  int64        `json:"solution_id"`
	Summary     Summary      `json:"summary"`
	Sheets      []Sheet      `json:"sheets"`
	NoFit       []NoFitPanel `json:"no_fit_panels"`
	UnusedStock []StockSheet `json:"unused_stock"`
}

// Sheet is one cut stock sheet.
type Sheet struct {
	Index    int      `json:"index"`
	StockID  int      `json:"stock_id"`
	Label    string   `json:"label,omitempty"`
	Material string   `json:"material,omitempty"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Panels   []Panel  `json:"panels"`
	Cuts     []Cut    `json:"cuts"`
	Offcuts  []Offcut `json:"offcuts,omitempty"`
	Summary  Summary  `json:"summary"`
}

type Panel struct {
	ID      int     `json:"id"`
	Label   string  `json:"label,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Rotated bool    `json:"rotated"`
}

type Cut struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Horizontal bool    `json:"horizontal"`
	Coordinate float64 `json:"coordinate"`
	Length     float64 `json:"length"`
}

type Offcut struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NoFitPanel counts the unplaced copies of one requested panel.
type NoFitPanel struct {
	ID       int     `json:"id"`
	Label    string  `json:"label,omitempty"`
	Material string  `json:"material,omitempty"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Count    int     `json:"count"`
}

type StockSheet struct {
	ID     int     `json:"id"`
	Label  string  `json:"label,omitempty"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Count  int     `json:"count"`
}

// Input is everything Build needs from a task.
type Input struct {
	TaskID    string
	Status    model.Status
	Elapsed   time.Duration
	Converter scale.Converter
	Config    model.Configuration
	Results   map[string]*model.Solution
	// Panels are the scaled requested panels, used to recover labels.
	Panels []model.TileDimensions
	// OffcutMinDimension is scaled; zero disables offcut detection.
	OffcutMinDimension int64
}

// Build assembles the response. Materials are sorted by name.
func Build(in Input) Response {
	labels := make(map[int]string, len(in.Panels))
	for _, p := range in.Panels {
		if p.Label != "" {
			labels[p.ID] = p.Label
		}
	}

	materials := make([]string, 0, len(in.Results))
	for m := range in.Results {
		materials = append(materials, m)
	}
	sort.Strings(materials)

	resp := Response{
		TaskID:        in.TaskID,
		Status:        in.Status,
		ElapsedMillis: in.Elapsed.Milliseconds(),
		Settings: Settings{
			CutThickness:        in.Converter.ToDecimal(in.Config.CutThickness),
			MinTrimDimension:    in.Converter.ToDecimal(in.Config.MinTrimDimension),
			ConsiderOrientation: in.Config.ConsiderOrientation,
			OptimizationLevel:   in.Config.OptimizationLevel.String(),
			Priority:            in.Config.Priority.String(),
			SplitPolicy:         in.Config.SplitPolicy.String(),
			UseSingleStockUnit:  in.Config.UseSingleStockUnit,
		},
		Materials: make([]MaterialPlan, 0, len(materials)),
	}
	var total model.SolutionStats
	for _, name := range materials {
		sol := in.Results[name]
		if sol == nil {
			continue
		}
		plan := buildMaterial(in, sol, labels)
		resp.Materials = append(resp.Materials, plan)
		resp.NoFit = append(resp.NoFit, plan.NoFit...)

		st := sol.Stats()
		total.Mosaics += st.Mosaics
		total.PlacedPanels += st.PlacedPanels
		total.NoFitPanels += st.NoFitPanels
		total.Cuts += st.Cuts
		total.CutLength += st.CutLength
		total.UsedArea = model.AddArea(total.UsedArea, st.UsedArea)
		total.UnusedArea = model.AddArea(total.UnusedArea, st.UnusedArea)
		total.TotalArea = model.AddArea(total.TotalArea, st.TotalArea)
	}
	resp.Summary = summarize(in.Converter, total)
	return resp
}

func buildMaterial(in Input, sol *model.Solution, labels map[int]string) MaterialPlan {
	conv := in.Converter
	plan := MaterialPlan{
		Material:   sol.Material,
		SolutionID: sol.ID,
		Summary:    summarize(conv, sol.Stats()),
		Sheets:     make([]Sheet, 0, len(sol.Mosaics)),
	}

	for i, m := range sol.Mosaics {
		sheet := Sheet{
			Index:    i + 1,
			StockID:  m.StockID,
			Label:    m.Stock.Label,
			Material: m.Material,
			Width:    conv.ToDecimal(m.Stock.Width),
			Height:   conv.ToDecimal(m.Stock.Height),
			Panels:   make([]Panel, 0),
			Cuts:     make([]Cut, 0, len(m.Cuts)),
			Summary: summarize(conv, model.SolutionStats{
				Mosaics:      1,
				PlacedPanels: m.FinalTileCount(),
				Cuts:         len(m.Cuts),
				CutLength:    m.CutLength(),
				UsedArea:     m.UsedArea(),
				UnusedArea:   m.UnusedArea(),
				TotalArea:    m.TotalArea(),
			}),
		}
		for _, n := range m.Root.FinalTiles() {
			sheet.Panels = append(sheet.Panels, Panel{
				ID:      n.ExternalID,
				Label:   labels[n.ExternalID],
				X:       conv.ToDecimal(n.X1),
				Y:       conv.ToDecimal(n.Y1),
				Width:   conv.ToDecimal(n.Width()),
				Height:  conv.ToDecimal(n.Height()),
				Rotated: n.Rotated,
			})
		}
		for _, c := range m.Cuts {
			sheet.Cuts = append(sheet.Cuts, Cut{
				X1:         conv.ToDecimal(c.X1),
				Y1:         conv.ToDecimal(c.Y1),
				X2:         conv.ToDecimal(c.X2),
				Y2:         conv.ToDecimal(c.Y2),
				Horizontal: c.Horizontal,
				Coordinate: conv.ToDecimal(c.Coordinate),
				Length:     conv.ToDecimal(c.Length()),
			})
		}
		if in.OffcutMinDimension > 0 {
			for _, o := range model.DetectOffcuts(m, in.OffcutMinDimension) {
				sheet.Offcuts = append(sheet.Offcuts, Offcut{
					ID:     o.ID,
					X:      conv.ToDecimal(o.X),
					Y:      conv.ToDecimal(o.Y),
					Width:  conv.ToDecimal(o.Width),
					Height: conv.ToDecimal(o.Height),
				})
			}
		}
		plan.Sheets = append(plan.Sheets, sheet)
	}

	uniq, counts := countByID(sol.NoFit)
	for _, t := range uniq {
		plan.NoFit = append(plan.NoFit, NoFitPanel{
			ID:       t.ID,
			Label:    labels[t.ID],
			Material: t.Material,
			Width:    conv.ToDecimal(t.Width),
			Height:   conv.ToDecimal(t.Height),
			Count:    counts[t.ID],
		})
	}
	uniq, counts = countByID(sol.UnusedStock)
	for _, t := range uniq {
		plan.UnusedStock = append(plan.UnusedStock, StockSheet{
			ID:     t.ID,
			Label:  t.Label,
			Width:  conv.ToDecimal(t.Width),
			Height: conv.ToDecimal(t.Height),
			Count:  counts[t.ID],
		})
	}
	return plan
}

// countByID returns the first tile seen per id, sorted by id, and how many
// tiles share each id.
func countByID(tiles []model.TileDimensions) ([]model.TileDimensions, map[int]int) {
	counts := make(map[int]int)
	var uniq []model.TileDimensions
	for _, t := range tiles {
		if counts[t.ID] == 0 {
			uniq = append(uniq, t)
		}
		counts[t.ID]++
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].ID < uniq[j].ID })
	return uniq, counts
}

func summarize(conv scale.Converter, st model.SolutionStats) Summary {
	return Summary{
		Sheets:       st.Mosaics,
		PlacedPanels: st.PlacedPanels,
		NoFitPanels:  st.NoFitPanels,
		Cuts:         st.Cuts,
		CutLength:    conv.ToDecimal(st.CutLength),
		UsedArea:     conv.AreaToDecimal(st.UsedArea),
		WastedArea:   conv.AreaToDecimal(st.UnusedArea),
		TotalArea:    conv.AreaToDecimal(st.TotalArea),
		Efficiency:   st.Efficiency(),
	}
}
