package model

import (
	"errors"
	"fmt"
	"math"
)

// NoExternalID marks a node that does not hold a placed panel.
const NoExternalID = -1

// TileNode is one rectangle of a sheet's guillotine cut tree. A node is
// either a leaf or has exactly two children; a final node holds a placed
// panel and never has children.
type TileNode struct {
	ID         int64     `json:"id"`
	X1         int64     `json:"x1"`
	Y1         int64     `json:"y1"`
	X2         int64     `json:"x2"`
	Y2         int64     `json:"y2"`
	ExternalID int       `json:"external_id"`
	Final      bool      `json:"final"`
	Rotated    bool      `json:"rotated"`
	Child1     *TileNode `json:"child1,omitempty"`
	Child2     *TileNode `json:"child2,omitempty"`
}

// NewTileNode creates a leaf covering [x1,x2) x [y1,y2).
func NewTileNode(ids *IDSource, x1, y1, x2, y2 int64) *TileNode {
	return &TileNode{
		ID:         ids.Next(),
		X1:         x1,
		Y1:         y1,
		X2:         x2,
		Y2:         y2,
		ExternalID: NoExternalID,
	}
}

// NewRootNode creates the root leaf for a stock sheet.
func NewRootNode(ids *IDSource, stock TileDimensions) *TileNode {
	return NewTileNode(ids, 0, 0, stock.Width, stock.Height)
}

func (n *TileNode) Width() int64  { return n.X2 - n.X1 }
func (n *TileNode) Height() int64 { return n.Y2 - n.Y1 }

func (n *TileNode) Area() int64 {
	return MulArea(n.Width(), n.Height())
}

func (n *TileNode) HasChildren() bool {
	return n.Child1 != nil || n.Child2 != nil
}

func (n *TileNode) IsLeaf() bool {
	return !n.HasChildren()
}

// Dimensions returns the node rectangle as a TileDimensions.
func (n *TileNode) Dimensions() TileDimensions {
	return TileDimensions{ID: n.ExternalID, Width: n.Width(), Height: n.Height(), Rotated: n.Rotated}
}

// Walk visits every node depth-first, children in order, using an explicit
// stack. Returning false from fn stops the walk.
func (n *TileNode) Walk(fn func(*TileNode) bool) {
	if n == nil {
		return
	}
	stack := []*TileNode{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			return
		}
		if cur.Child2 != nil {
			stack = append(stack, cur.Child2)
		}
		if cur.Child1 != nil {
			stack = append(stack, cur.Child1)
		}
	}
}

// Find returns the node with the given id, or nil.
func (n *TileNode) Find(id int64) *TileNode {
	var found *TileNode
	n.Walk(func(cur *TileNode) bool {
		if cur.ID == id {
			found = cur
			return false
		}
		return true
	})
	return found
}

// UsedArea is the total area of final leaves below n.
func (n *TileNode) UsedArea() int64 {
	var used int64
	n.Walk(func(cur *TileNode) bool {
		if cur.Final {
			used = AddArea(used, cur.Area())
		}
		return true
	})
	return used
}

// UnusedArea is the area of open leaves plus the material lost to kerf
// between a node and its children.
func (n *TileNode) UnusedArea() int64 {
	var unused int64
	n.Walk(func(cur *TileNode) bool {
		switch {
		case cur.Final:
		case cur.IsLeaf():
			unused = AddArea(unused, cur.Area())
		default:
			var childArea int64
			if cur.Child1 != nil {
				childArea += cur.Child1.Area()
			}
			if cur.Child2 != nil {
				childArea += cur.Child2.Area()
			}
			unused = AddArea(unused, cur.Area()-childArea)
		}
		return true
	})
	return unused
}

// FinalTiles returns the final leaves in depth-first order.
func (n *TileNode) FinalTiles() []*TileNode {
	var out []*TileNode
	n.Walk(func(cur *TileNode) bool {
		if cur.Final {
			out = append(out, cur)
		}
		return true
	})
	return out
}

func (n *TileNode) FinalTileCount() int {
	count := 0
	n.Walk(func(cur *TileNode) bool {
		if cur.Final {
			count++
		}
		return true
	})
	return count
}

// UnusedLeaves returns the open leaves in depth-first order.
func (n *TileNode) UnusedLeaves() []*TileNode {
	var out []*TileNode
	n.Walk(func(cur *TileNode) bool {
		if !cur.Final && cur.IsLeaf() {
			out = append(out, cur)
		}
		return true
	})
	return out
}

// BiggestUnusedArea returns the area of the largest open leaf.
func (n *TileNode) BiggestUnusedArea() int64 {
	var biggest int64
	for _, leaf := range n.UnusedLeaves() {
		if a := leaf.Area(); a > biggest {
			biggest = a
		}
	}
	return biggest
}

// DistinctFinalDimensions returns the set of placed panel sizes. Rotated
// placements count under their placed orientation.
func (n *TileNode) DistinctFinalDimensions() map[DimensionKey]struct{} {
	set := make(map[DimensionKey]struct{})
	for _, f := range n.FinalTiles() {
		set[DimensionKey{Width: f.Width(), Height: f.Height()}] = struct{}{}
	}
	return set
}

// HVDiscrepancy is |#landscape - #portrait| over final tiles.
func (n *TileNode) HVDiscrepancy() int {
	horizontal, vertical := 0, 0
	for _, f := range n.FinalTiles() {
		if f.Width() > f.Height() {
			horizontal++
		} else if f.Height() > f.Width() {
			vertical++
		}
	}
	if horizontal > vertical {
		return horizontal - vertical
	}
	return vertical - horizontal
}

// CenterOfMassDistance is the distance from the origin to the area-weighted
// centroid of the final tiles. Zero when nothing is placed.
func (n *TileNode) CenterOfMassDistance() float64 {
	var total, cx, cy float64
	for _, f := range n.FinalTiles() {
		a := float64(f.Area())
		total += a
		cx += a * (float64(f.X1) + float64(f.Width())/2)
		cy += a * (float64(f.Y1) + float64(f.Height())/2)
	}
	if total == 0 {
		return 0
	}
	return math.Hypot(cx/total, cy/total)
}

// TreeSummary holds every derived metric of a subtree, gathered in one walk.
type TreeSummary struct {
	UsedArea          int64
	UnusedArea        int64
	FinalTiles        int
	BiggestUnusedArea int64
	Distinct          map[DimensionKey]struct{}
	Horizontal        int
	Vertical          int
	weightedX         float64
	weightedY         float64
}

// HVDiscrepancy is |#landscape - #portrait|.
func (s TreeSummary) HVDiscrepancy() int {
	if s.Horizontal > s.Vertical {
		return s.Horizontal - s.Vertical
	}
	return s.Vertical - s.Horizontal
}

// CenterOfMassDistance matches TileNode.CenterOfMassDistance.
func (s TreeSummary) CenterOfMassDistance() float64 {
	if s.UsedArea == 0 {
		return 0
	}
	total := float64(s.UsedArea)
	return math.Hypot(s.weightedX/total, s.weightedY/total)
}

// Summary walks the subtree once.
func (n *TileNode) Summary() TreeSummary {
	sum := TreeSummary{Distinct: make(map[DimensionKey]struct{})}
	n.Walk(func(cur *TileNode) bool {
		switch {
		case cur.Final:
			a := cur.Area()
			sum.UsedArea = AddArea(sum.UsedArea, a)
			sum.FinalTiles++
			sum.Distinct[DimensionKey{Width: cur.Width(), Height: cur.Height()}] = struct{}{}
			if cur.Width() > cur.Height() {
				sum.Horizontal++
			} else if cur.Height() > cur.Width() {
				sum.Vertical++
			}
			sum.weightedX += float64(a) * (float64(cur.X1) + float64(cur.Width())/2)
			sum.weightedY += float64(a) * (float64(cur.Y1) + float64(cur.Height())/2)
		case cur.IsLeaf():
			a := cur.Area()
			sum.UnusedArea = AddArea(sum.UnusedArea, a)
			if a > sum.BiggestUnusedArea {
				sum.BiggestUnusedArea = a
			}
		default:
			childArea := cur.Child1.Area() + cur.Child2.Area()
			sum.UnusedArea = AddArea(sum.UnusedArea, cur.Area()-childArea)
		}
		return true
	})
	return sum
}

// Clone deep-copies the subtree. Ids are preserved so cuts recorded against
// the original still resolve in the copy.
func (n *TileNode) Clone() *TileNode {
	if n == nil {
		return nil
	}
	type pair struct{ src, dst *TileNode }
	root := n.shallowCopy()
	stack := []pair{{n, root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.src.Child1 != nil {
			p.dst.Child1 = p.src.Child1.shallowCopy()
			stack = append(stack, pair{p.src.Child1, p.dst.Child1})
		}
		if p.src.Child2 != nil {
			p.dst.Child2 = p.src.Child2.shallowCopy()
			stack = append(stack, pair{p.src.Child2, p.dst.Child2})
		}
	}
	return root
}

func (n *TileNode) shallowCopy() *TileNode {
	c := *n
	c.Child1, c.Child2 = nil, nil
	return &c
}

var ErrInvalidTree = errors.New("invalid cut tree")

// Validate checks the structural invariants of the subtree: final XOR two
// children, children inside the parent and not overlapping.
func (n *TileNode) Validate() error {
	var err error
	n.Walk(func(cur *TileNode) bool {
		if cur.Width() <= 0 || cur.Height() <= 0 {
			err = fmt.Errorf("%w: node %d has empty rectangle", ErrInvalidTree, cur.ID)
			return false
		}
		if cur.Final && cur.HasChildren() {
			err = fmt.Errorf("%w: final node %d has children", ErrInvalidTree, cur.ID)
			return false
		}
		if cur.HasChildren() && (cur.Child1 == nil || cur.Child2 == nil) {
			err = fmt.Errorf("%w: node %d has a single child", ErrInvalidTree, cur.ID)
			return false
		}
		if cur.HasChildren() {
			for _, c := range []*TileNode{cur.Child1, cur.Child2} {
				if c.X1 < cur.X1 || c.Y1 < cur.Y1 || c.X2 > cur.X2 || c.Y2 > cur.Y2 {
					err = fmt.Errorf("%w: child %d escapes parent %d", ErrInvalidTree, c.ID, cur.ID)
					return false
				}
			}
			a, b := cur.Child1, cur.Child2
			if a.X1 < b.X2 && b.X1 < a.X2 && a.Y1 < b.Y2 && b.Y1 < a.Y2 {
				err = fmt.Errorf("%w: children of %d overlap", ErrInvalidTree, cur.ID)
				return false
			}
		}
		return true
	})
	return err
}

func (n *TileNode) String() string {
	return fmt.Sprintf("node %d [%d,%d %d,%d] final=%t", n.ID, n.X1, n.Y1, n.X2, n.Y2, n.Final)
}
