package engine

import (
	"sort"

	"github.com/piwi3910/cutplan/internal/model"
)

// splitOrder is the sequence of guillotine cuts used to free a panel-sized
// rectangle from a larger leaf.
type splitOrder int

const (
	widthFirst  splitOrder = iota // vertical cut, then horizontal on the left piece
	heightFirst                   // horizontal cut, then vertical on the bottom piece
)

func splitOrders(p model.SplitPolicy) []splitOrder {
	switch p {
	case model.SplitWidthFirst:
		return []splitOrder{widthFirst}
	case model.SplitHeightFirst:
		return []splitOrder{heightFirst}
	default:
		return []splitOrder{widthFirst, heightFirst}
	}
}

// candidate is one way of placing a panel: a leaf, an orientation and a
// split order.
type candidate struct {
	leafID  int64
	rotated bool
	order   splitOrder
}

// maxCandidateLeaves bounds how many leaves of one sheet are branched on
// per panel. Leaves are ranked best-area-fit first.
const maxCandidateLeaves = 4

// cutter holds the kerf and trim rules for one run.
type cutter struct {
	kerf    int64
	minTrim int64
	orders  []splitOrder
}

func newCutter(cfg model.Configuration) cutter {
	return cutter{
		kerf:    cfg.CutThickness,
		minTrim: cfg.MinTrimDimension,
		orders:  splitOrders(cfg.SplitPolicy),
	}
}

// axisFits reports whether size can be cut from length on one axis: either
// an exact match or an offcut, after the blade, wider than the minimum trim.
func (c cutter) axisFits(length, size int64) bool {
	if size == length {
		return true
	}
	return length-size-c.kerf > c.minTrim
}

func (c cutter) fits(leaf *model.TileNode, w, h int64) bool {
	return w <= leaf.Width() && h <= leaf.Height() &&
		c.axisFits(leaf.Width(), w) && c.axisFits(leaf.Height(), h)
}

// candidates lists the placements of panel on a sheet tree. An exact-fit
// leaf short-circuits the search since nothing beats it.
func (c cutter) candidates(root *model.TileNode, panel, sheet model.TileDimensions, cfg model.Configuration) []candidate {
	normal, rotated := cfg.AllowedOrientations(panel, sheet)

	type fit struct {
		leaf    *model.TileNode
		rotated bool
	}
	var fits []fit
	var exact *fit

	root.Walk(func(n *model.TileNode) bool {
		if !n.IsLeaf() || n.Final {
			return true
		}
		for _, rot := range []bool{false, true} {
			if (rot && !rotated) || (!rot && !normal) {
				continue
			}
			w, h := panel.Width, panel.Height
			if rot {
				w, h = h, w
			}
			if !c.fits(n, w, h) {
				continue
			}
			f := fit{leaf: n, rotated: rot}
			if n.Width() == w && n.Height() == h {
				exact = &f
				return false
			}
			fits = append(fits, f)
		}
		return true
	})

	if exact != nil {
		return []candidate{{leafID: exact.leaf.ID, rotated: exact.rotated, order: c.orders[0]}}
	}

	sort.SliceStable(fits, func(i, j int) bool {
		return fits[i].leaf.Area() < fits[j].leaf.Area()
	})
	var out []candidate
	leaves := make(map[int64]struct{})
	for _, f := range fits {
		if _, seen := leaves[f.leaf.ID]; !seen {
			if len(leaves) == maxCandidateLeaves {
				continue
			}
			leaves[f.leaf.ID] = struct{}{}
		}
		w, h := panel.Width, panel.Height
		if f.rotated {
			w, h = h, w
		}
		// a single axis to cut means both orders produce the same layout
		if f.leaf.Width() == w || f.leaf.Height() == h {
			out = append(out, candidate{leafID: f.leaf.ID, rotated: f.rotated, order: c.orders[0]})
			continue
		}
		for _, o := range c.orders {
			out = append(out, candidate{leafID: f.leaf.ID, rotated: f.rotated, order: o})
		}
	}
	return out
}

// place applies a candidate to m, which must be exclusively owned by the
// caller, and appends the resulting cuts.
func (c cutter) place(ids *model.IDSource, m *model.Mosaic, cand candidate, panel model.TileDimensions) {
	leaf := m.Root.Find(cand.leafID)
	if leaf == nil {
		return
	}
	w, h := panel.Width, panel.Height
	if cand.rotated {
		w, h = h, w
	}

	target := leaf
	needW, needH := leaf.Width() != w, leaf.Height() != h
	switch {
	case needW && needH && cand.order == widthFirst:
		m.Cuts = append(m.Cuts, c.splitVertical(ids, target, w))
		target = target.Child1
		m.Cuts = append(m.Cuts, c.splitHorizontal(ids, target, h))
		target = target.Child1
	case needW && needH:
		m.Cuts = append(m.Cuts, c.splitHorizontal(ids, target, h))
		target = target.Child1
		m.Cuts = append(m.Cuts, c.splitVertical(ids, target, w))
		target = target.Child1
	case needW:
		m.Cuts = append(m.Cuts, c.splitVertical(ids, target, w))
		target = target.Child1
	case needH:
		m.Cuts = append(m.Cuts, c.splitHorizontal(ids, target, h))
		target = target.Child1
	}

	target.Final = true
	target.ExternalID = panel.ID
	target.Rotated = cand.rotated
}

// splitVertical cuts n along a vertical line w from its left edge. Child1
// is the left piece of width w, Child2 the remainder after the kerf.
func (c cutter) splitVertical(ids *model.IDSource, n *model.TileNode, w int64) model.Cut {
	x := n.X1 + w
	n.Child1 = model.NewTileNode(ids, n.X1, n.Y1, x, n.Y2)
	n.Child2 = model.NewTileNode(ids, x+c.kerf, n.Y1, n.X2, n.Y2)
	return model.Cut{
		X1: x, Y1: n.Y1, X2: x, Y2: n.Y2,
		Horizontal:     false,
		Coordinate:     x,
		OriginalWidth:  n.Width(),
		OriginalHeight: n.Height(),
		ParentID:       n.ID,
		Child1ID:       n.Child1.ID,
		Child2ID:       n.Child2.ID,
	}
}

// splitHorizontal cuts n along a horizontal line h from its bottom edge.
func (c cutter) splitHorizontal(ids *model.IDSource, n *model.TileNode, h int64) model.Cut {
	y := n.Y1 + h
	n.Child1 = model.NewTileNode(ids, n.X1, n.Y1, n.X2, y)
	n.Child2 = model.NewTileNode(ids, n.X1, y+c.kerf, n.X2, n.Y2)
	return model.Cut{
		X1: n.X1, Y1: y, X2: n.X2, Y2: y,
		Horizontal:     true,
		Coordinate:     y,
		OriginalWidth:  n.Width(),
		OriginalHeight: n.Height(),
		ParentID:       n.ID,
		Child1ID:       n.Child1.ID,
		Child2ID:       n.Child2.ID,
	}
}
