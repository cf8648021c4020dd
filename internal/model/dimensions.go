package model

import (
	"fmt"
	"math"
)

// TileDimensions is a rectangle in scaled integer units. It describes both
// required panels and stock sheets.
type TileDimensions struct {
	ID       int    `json:"id"`
	Width    int64  `json:"width"`
	Height   int64  `json:"height"`
	Material string `json:"material,omitempty"`
	Label    string `json:"label,omitempty"`
	Grain    Grain  `json:"grain,omitempty"`
	Rotated  bool   `json:"rotated,omitempty"`
}

func NewTileDimensions(id int, w, h int64, material, label string) TileDimensions {
	return TileDimensions{
		ID:       id,
		Width:    w,
		Height:   h,
		Material: material,
		Label:    label,
	}
}

// Area returns width*height. Overflow is a programming error and panics.
func (t TileDimensions) Area() int64 {
	return MulArea(t.Width, t.Height)
}

// MaxDimension returns the longer side.
func (t TileDimensions) MaxDimension() int64 {
	if t.Width > t.Height {
		return t.Width
	}
	return t.Height
}

// IsSquare reports whether rotating the tile changes nothing.
func (t TileDimensions) IsSquare() bool {
	return t.Width == t.Height
}

// Rotate90 returns the tile with width and height swapped and the rotated
// flag toggled.
func (t TileDimensions) Rotate90() TileDimensions {
	r := t
	r.Width, r.Height = t.Height, t.Width
	r.Rotated = !t.Rotated
	return r
}

// Equal is identity equality: id, width and height.
func (t TileDimensions) Equal(o TileDimensions) bool {
	return t.ID == o.ID && t.Width == o.Width && t.Height == o.Height
}

// SameDimensions treats w x h and h x w as equal.
func (t TileDimensions) SameDimensions(o TileDimensions) bool {
	return (t.Width == o.Width && t.Height == o.Height) ||
		(t.Width == o.Height && t.Height == o.Width)
}

// DimensionKey identifies the oriented size of a tile.
func (t TileDimensions) DimensionKey() DimensionKey {
	return DimensionKey{Width: t.Width, Height: t.Height}
}

// Fits reports whether the tile fits inside a w x h rectangle without
// rotation.
func (t TileDimensions) Fits(w, h int64) bool {
	return t.Width <= w && t.Height <= h
}

// FitsAnyOrientation reports whether the tile fits inside w x h, rotated
// or not.
func (t TileDimensions) FitsAnyOrientation(w, h int64) bool {
	return t.Fits(w, h) || (t.Height <= w && t.Width <= h)
}

func (t TileDimensions) String() string {
	return fmt.Sprintf("id=%d[%dx%d]", t.ID, t.Width, t.Height)
}

// DimensionKey is a comparable (width, height) pair.
type DimensionKey struct {
	Width  int64
	Height int64
}

func (k DimensionKey) String() string {
	return fmt.Sprintf("%dx%d", k.Width, k.Height)
}

// GroupedTileDimensions tags a panel with an ordering group so identical
// panels can be spread over several permutation slots.
type GroupedTileDimensions struct {
	TileDimensions
	Group int `json:"group"`
}

// Equal includes the group number.
func (g GroupedTileDimensions) Equal(o GroupedTileDimensions) bool {
	return g.TileDimensions.Equal(o.TileDimensions) && g.Group == o.Group
}

// GroupKey identifies a distinct (width, height, group) slot.
func (g GroupedTileDimensions) GroupKey() GroupKey {
	return GroupKey{Width: g.Width, Height: g.Height, Group: g.Group}
}

// GroupKey is the hashable identity of a GroupedTileDimensions.
type GroupKey struct {
	Width  int64
	Height int64
	Group  int
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%dx%d#%d", k.Width, k.Height, k.Group)
}

// Area returns width*height of the group's tiles.
func (k GroupKey) Area() int64 {
	return MulArea(k.Width, k.Height)
}

// MulArea multiplies two non-negative lengths, panicking on overflow.
func MulArea(w, h int64) int64 {
	if w < 0 || h < 0 {
		panic(fmt.Sprintf("negative dimension %dx%d", w, h))
	}
	if w != 0 && h > math.MaxInt64/w {
		panic(fmt.Sprintf("area overflow for %dx%d", w, h))
	}
	return w * h
}

// AddArea sums two areas, panicking on overflow.
func AddArea(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		panic(fmt.Sprintf("area overflow adding %d and %d", a, b))
	}
	return a + b
}
