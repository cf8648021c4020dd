package engine

import (
	"context"

	"github.com/piwi3910/cutplan/internal/model"
)

// Placer runs the guillotine placement for one panel ordering over one stock
// solution. A Placer is cheap and not safe for concurrent use; each worker
// builds its own.
type Placer struct {
	cfg     model.Configuration
	ids     *model.IDSource
	cut     cutter
	compare Comparator
	beam    int
}

// NewPlacer creates a placer. ids is shared with the owning task so every
// node and solution id stays unique across workers.
func NewPlacer(cfg model.Configuration, ids *model.IDSource) *Placer {
	return &Placer{
		cfg:     cfg,
		ids:     ids,
		cut:     newCutter(cfg),
		compare: NewComparator(cfg.Priority),
		beam:    cfg.Budget().BeamWidth,
	}
}

// Run places panels in the given order. Panels that fit nowhere are recorded
// as no-fit; the run itself only fails on cancellation, which is checked
// between panels.
func (p *Placer) Run(ctx context.Context, material string, panels []model.TileDimensions, stock model.StockSolution) (*model.Solution, error) {
	beam := []*model.Solution{model.NewSolution(p.ids, material, stock)}

	for _, panel := range panels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := make([]*model.Solution, 0, len(beam)*2)
		for _, sol := range beam {
			next = append(next, p.placePanel(sol, panel)...)
		}
		beam = p.prune(next)
	}

	return beam[0].Freeze(), nil
}

// placePanel returns every branch of sol that holds panel. When the panel
// fits nowhere sol itself is returned with the panel recorded as no-fit.
func (p *Placer) placePanel(sol *model.Solution, panel model.TileDimensions) []*model.Solution {
	for i, m := range sol.Mosaics {
		cands := p.cut.candidates(m.Root, panel, m.Stock, p.cfg)
		if len(cands) == 0 {
			continue
		}
		out := make([]*model.Solution, 0, len(cands))
		for _, c := range cands {
			b := sol.Branch(p.ids)
			mc := m.Clone()
			p.cut.place(p.ids, mc, c, panel)
			b.ReplaceMosaic(i, mc)
			out = append(out, b)
		}
		return out
	}

	for i, sheet := range sol.UnusedStock {
		if !p.canHold(sheet, panel) {
			continue
		}
		fresh := model.NewMosaic(p.ids, sheet)
		cands := p.cut.candidates(fresh.Root, panel, sheet, p.cfg)
		if len(cands) == 0 {
			continue
		}
		out := make([]*model.Solution, 0, len(cands))
		for _, c := range cands {
			b := sol.Branch(p.ids)
			b.TakeStock(i)
			mc := fresh.Clone()
			p.cut.place(p.ids, mc, c, panel)
			b.AddMosaic(mc)
			out = append(out, b)
		}
		return out
	}

	sol.AddNoFit(panel)
	return []*model.Solution{sol}
}

func (p *Placer) canHold(sheet, panel model.TileDimensions) bool {
	normal, rotated := p.cfg.AllowedOrientations(panel, sheet)
	return (normal && panel.Fits(sheet.Width, sheet.Height)) ||
		(rotated && panel.Rotate90().Fits(sheet.Width, sheet.Height))
}

// prune ranks the branches and keeps the best beam-width of them.
func (p *Placer) prune(sols []*model.Solution) []*model.Solution {
	p.compare.Sort(sols)
	if len(sols) > p.beam {
		sols = sols[:p.beam]
	}
	return sols
}
