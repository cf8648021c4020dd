package model

import (
	"sort"
	"time"
)

// Solution is one candidate cutting plan for a single material.
//
// The placement engine mutates a Solution only while building it; once a run
// returns it the value is frozen and shared read-only between goroutines.
type Solution struct {
	ID          int64            `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	Material    string           `json:"material"`
	Mosaics     []*Mosaic        `json:"mosaics"`
	UnusedStock []TileDimensions `json:"unused_stock"`
	NoFit       []TileDimensions `json:"no_fit"`

	frozen *SolutionStats
}

// NewSolution starts an empty plan over the given stock sheets, which are
// opened in order.
func NewSolution(ids *IDSource, material string, stock StockSolution) *Solution {
	return &Solution{
		ID:          ids.Next(),
		CreatedAt:   time.Now(),
		Material:    material,
		UnusedStock: stock.Tiles(),
	}
}

// Branch copies the solution under a new id. Mosaics are shared with the
// parent; a branch must replace a mosaic with a Clone before changing it.
func (s *Solution) Branch(ids *IDSource) *Solution {
	c := &Solution{
		ID:        ids.Next(),
		CreatedAt: time.Now(),
		Material:  s.Material,
		Mosaics:   append([]*Mosaic(nil), s.Mosaics...),
	}
	c.UnusedStock = append([]TileDimensions(nil), s.UnusedStock...)
	c.NoFit = append([]TileDimensions(nil), s.NoFit...)
	return c
}

// AddMosaic appends a sheet and restores the unused-area ordering.
func (s *Solution) AddMosaic(m *Mosaic) {
	s.Mosaics = append(s.Mosaics, m)
	s.SortMosaics()
}

// ReplaceMosaic swaps in a changed copy of the sheet at index i.
func (s *Solution) ReplaceMosaic(i int, m *Mosaic) {
	s.Mosaics[i] = m
	s.SortMosaics()
}

// SortMosaics orders sheets by unused area, fullest first.
func (s *Solution) SortMosaics() {
	sort.SliceStable(s.Mosaics, func(i, j int) bool {
		return s.Mosaics[i].UnusedArea() < s.Mosaics[j].UnusedArea()
	})
}

// TakeStock removes and returns the unused stock sheet at index i.
func (s *Solution) TakeStock(i int) TileDimensions {
	t := s.UnusedStock[i]
	s.UnusedStock = append(s.UnusedStock[:i:i], s.UnusedStock[i+1:]...)
	return t
}

// AddNoFit records a panel that could not be placed.
func (s *Solution) AddNoFit(t TileDimensions) {
	s.NoFit = append(s.NoFit, t)
}

// Freeze caches the derived metrics. Callers must not mutate the solution
// afterwards.
func (s *Solution) Freeze() *Solution {
	stats := s.computeStats()
	s.frozen = &stats
	return s
}

// IsFrozen reports whether Freeze was called.
func (s *Solution) IsFrozen() bool {
	return s.frozen != nil
}

// Stats returns the ranking metrics, cached once frozen.
func (s *Solution) Stats() SolutionStats {
	if s.frozen != nil {
		return *s.frozen
	}
	return s.computeStats()
}

// SolutionStats are the derived metrics used for ranking and reporting.
type SolutionStats struct {
	ID                   int64
	PlacedPanels         int
	NoFitPanels          int
	Mosaics              int
	UsedArea             int64
	UnusedArea           int64
	TotalArea            int64
	Cuts                 int
	CutLength            int64
	BiggestUnusedArea    int64
	DistinctDimensions   int
	HVDiscrepancy        int
	CenterOfMassDistance float64
	UnusedStockPanels    int
	UnusedStockArea      int64
}

func (s *Solution) computeStats() SolutionStats {
	st := SolutionStats{
		ID:                s.ID,
		NoFitPanels:       len(s.NoFit),
		Mosaics:           len(s.Mosaics),
		UnusedStockPanels: len(s.UnusedStock),
	}
	distinct := make(map[DimensionKey]struct{})
	var weighted, weights float64
	for _, m := range s.Mosaics {
		sum := m.Summary()
		st.PlacedPanels += sum.FinalTiles
		st.UsedArea = AddArea(st.UsedArea, sum.UsedArea)
		st.UnusedArea = AddArea(st.UnusedArea, sum.UnusedArea)
		st.TotalArea = AddArea(st.TotalArea, m.TotalArea())
		st.Cuts += len(m.Cuts)
		st.CutLength += m.CutLength()
		st.HVDiscrepancy += sum.HVDiscrepancy()
		if sum.BiggestUnusedArea > st.BiggestUnusedArea {
			st.BiggestUnusedArea = sum.BiggestUnusedArea
		}
		for k := range sum.Distinct {
			distinct[k] = struct{}{}
		}
		weighted += float64(sum.UsedArea) * sum.CenterOfMassDistance()
		weights += float64(sum.UsedArea)
	}
	if weights > 0 {
		st.CenterOfMassDistance = weighted / weights
	}
	st.DistinctDimensions = len(distinct)
	for _, t := range s.UnusedStock {
		st.UnusedStockArea = AddArea(st.UnusedStockArea, t.Area())
	}
	return st
}

// Efficiency is the used share of all opened sheets, 0..1.
func (st SolutionStats) Efficiency() float64 {
	if st.TotalArea == 0 {
		return 0
	}
	return float64(st.UsedArea) / float64(st.TotalArea)
}

// IsPerfect reports the early-exit condition: everything placed on a single
// sheet.
func (st SolutionStats) IsPerfect() bool {
	return st.NoFitPanels == 0 && st.Mosaics == 1
}
