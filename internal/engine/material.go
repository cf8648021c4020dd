package engine

import (
	"sort"

	"github.com/piwi3910/cutplan/internal/model"
)

// MaterialGroup holds the panels of one material and the stock they may be
// cut from.
type MaterialGroup struct {
	Material string
	Panels   []model.TileDimensions
	Stock    []model.TileDimensions
}

// GroupByMaterial splits panels and stock by material. Stock with an empty
// material accepts any panel, so it is added to every group. Panels without
// a material form their own group over all stock. If no materials are
// specified at all, everything goes into one group.
func GroupByMaterial(panels, stock []model.TileDimensions) []MaterialGroup {
	materialSet := make(map[string]bool)
	for _, p := range panels {
		if p.Material != "" {
			materialSet[p.Material] = true
		}
	}

	if len(materialSet) == 0 {
		return []MaterialGroup{{Panels: panels, Stock: stock}}
	}

	materials := make([]string, 0, len(materialSet))
	for m := range materialSet {
		materials = append(materials, m)
	}
	sort.Strings(materials)

	var universalPanels, universalStock []model.TileDimensions
	for _, p := range panels {
		if p.Material == "" {
			universalPanels = append(universalPanels, p)
		}
	}
	for _, s := range stock {
		if s.Material == "" {
			universalStock = append(universalStock, s)
		}
	}

	groups := make([]MaterialGroup, 0, len(materials)+1)
	for _, mat := range materials {
		g := MaterialGroup{Material: mat}
		for _, p := range panels {
			if p.Material == mat {
				g.Panels = append(g.Panels, p)
			}
		}
		for _, s := range stock {
			if s.Material == mat {
				g.Stock = append(g.Stock, s)
			}
		}
		g.Stock = append(g.Stock, universalStock...)
		groups = append(groups, g)
	}

	if len(universalPanels) > 0 {
		groups = append(groups, MaterialGroup{Panels: universalPanels, Stock: stock})
	}

	return groups
}
