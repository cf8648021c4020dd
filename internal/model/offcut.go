package model

import (
	"sort"

	"github.com/google/uuid"
)

// Offcut is a usable rectangular remnant left on a sheet after cutting.
type Offcut struct {
	ID       string `json:"id"`
	StockID  int    `json:"stock_id"` // source sheet
	Material string `json:"material"`
	X        int64  `json:"x"`
	Y        int64  `json:"y"`
	Width    int64  `json:"width"`
	Height   int64  `json:"height"`
}

func (o Offcut) Area() int64 {
	return MulArea(o.Width, o.Height)
}

// ToStock converts an offcut into a stock sheet for reuse in a later job.
func (o Offcut) ToStock(id int) TileDimensions {
	return NewTileDimensions(id, o.Width, o.Height, o.Material, "Offcut "+o.ID)
}

// DetectOffcuts lists the open leaves of a sheet whose shorter side is at
// least minDimension, largest first. In a guillotine tree every open leaf
// is already a rectangle reachable by edge-to-edge cuts.
func DetectOffcuts(m *Mosaic, minDimension int64) []Offcut {
	var offcuts []Offcut
	for _, leaf := range m.Root.UnusedLeaves() {
		if leaf.Width() < minDimension || leaf.Height() < minDimension {
			continue
		}
		offcuts = append(offcuts, Offcut{
			ID:       uuid.New().String()[:8],
			StockID:  m.StockID,
			Material: m.Material,
			X:        leaf.X1,
			Y:        leaf.Y1,
			Width:    leaf.Width(),
			Height:   leaf.Height(),
		})
	}

	// Sort by area descending (largest offcuts first)
	sort.SliceStable(offcuts, func(i, j int) bool {
		return offcuts[i].Area() > offcuts[j].Area()
	})
	return offcuts
}

// DetectAllOffcuts finds offcuts across every sheet of a solution.
func DetectAllOffcuts(s *Solution, minDimension int64) []Offcut {
	var all []Offcut
	for _, m := range s.Mosaics {
		all = append(all, DetectOffcuts(m, minDimension)...)
	}
	return all
}

// TotalOffcutArea returns the summed area of the offcuts.
func TotalOffcutArea(offcuts []Offcut) int64 {
	var total int64
	for _, o := range offcuts {
		total = AddArea(total, o.Area())
	}
	return total
}
