package model

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Cut is one edge-to-edge saw cut. Horizontal cuts run along the X axis at
// a constant Y; vertical cuts run along Y at a constant X.
type Cut struct {
	X1             int64 `json:"x1"`
	Y1             int64 `json:"y1"`
	X2             int64 `json:"x2"`
	Y2             int64 `json:"y2"`
	Horizontal     bool  `json:"horizontal"`
	Coordinate     int64 `json:"coordinate"`
	OriginalWidth  int64 `json:"original_width"`
	OriginalHeight int64 `json:"original_height"`
	ParentID       int64 `json:"parent_id"`
	Child1ID       int64 `json:"child1_id"`
	Child2ID       int64 `json:"child2_id"`
}

// Length is the length of the cut line.
func (c Cut) Length() int64 {
	if c.Horizontal {
		return c.X2 - c.X1
	}
	return c.Y2 - c.Y1
}

// Mosaic is the cut layout of one stock sheet.
type Mosaic struct {
	Root     *TileNode      `json:"root"`
	Cuts     []Cut          `json:"cuts"`
	Material string         `json:"material"`
	StockID  int            `json:"stock_id"`
	Stock    TileDimensions `json:"stock"`
}

// NewMosaic opens a sheet.
func NewMosaic(ids *IDSource, stock TileDimensions) *Mosaic {
	return &Mosaic{
		Root:     NewRootNode(ids, stock),
		Material: stock.Material,
		StockID:  stock.ID,
		Stock:    stock,
	}
}

// Clone deep-copies the tree and the cut list.
func (m *Mosaic) Clone() *Mosaic {
	c := &Mosaic{
		Root:     m.Root.Clone(),
		Material: m.Material,
		StockID:  m.StockID,
		Stock:    m.Stock,
	}
	if len(m.Cuts) > 0 {
		c.Cuts = make([]Cut, len(m.Cuts))
		copy(c.Cuts, m.Cuts)
	}
	return c
}

func (m *Mosaic) UsedArea() int64          { return m.Root.UsedArea() }
func (m *Mosaic) UnusedArea() int64        { return m.Root.UnusedArea() }
func (m *Mosaic) TotalArea() int64         { return m.Root.Area() }
func (m *Mosaic) FinalTileCount() int      { return m.Root.FinalTileCount() }
func (m *Mosaic) BiggestUnusedArea() int64 { return m.Root.BiggestUnusedArea() }
func (m *Mosaic) HVDiscrepancy() int       { return m.Root.HVDiscrepancy() }

// Summary gathers the tree metrics in one walk.
func (m *Mosaic) Summary() TreeSummary { return m.Root.Summary() }

func (m *Mosaic) CenterOfMassDistance() float64 {
	return m.Root.CenterOfMassDistance()
}

func (m *Mosaic) DistinctDimensions() map[DimensionKey]struct{} {
	return m.Root.DistinctFinalDimensions()
}

// CutLength is the summed length of all cuts on the sheet.
func (m *Mosaic) CutLength() int64 {
	var total int64
	for _, c := range m.Cuts {
		total += c.Length()
	}
	return total
}

// Efficiency is the used share of the sheet area, 0..1.
func (m *Mosaic) Efficiency() float64 {
	total := m.TotalArea()
	if total == 0 {
		return 0
	}
	return float64(m.UsedArea()) / float64(total)
}

// Fingerprint hashes the sorted placed dimensions, so two sheets carrying
// the same set of panels in different positions hash alike.
func (m *Mosaic) Fingerprint() uint64 {
	finals := m.Root.FinalTiles()
	keys := make([]DimensionKey, 0, len(finals))
	for _, f := range finals {
		keys = append(keys, DimensionKey{Width: f.Width(), Height: f.Height()})
	}
	sortDimensionKeys(keys)
	return hashDimensionKeys(m.Stock.DimensionKey(), keys)
}

func sortDimensionKeys(keys []DimensionKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Width != keys[j].Width {
			return keys[i].Width < keys[j].Width
		}
		return keys[i].Height < keys[j].Height
	})
}

func hashDimensionKeys(prefix DimensionKey, keys []DimensionKey) uint64 {
	d := xxhash.New()
	var buf [16]byte
	write := func(k DimensionKey) {
		binary.LittleEndian.PutUint64(buf[:8], uint64(k.Width))
		binary.LittleEndian.PutUint64(buf[8:], uint64(k.Height))
		_, _ = d.Write(buf[:])
	}
	write(prefix)
	for _, k := range keys {
		write(k)
	}
	return d.Sum64()
}
