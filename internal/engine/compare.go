package engine

import (
	"cmp"
	"sort"

	"github.com/piwi3910/cutplan/internal/model"
)

// Criterion compares two solutions on one metric. Negative means a ranks
// before b.
type Criterion func(a, b model.SolutionStats) int

func MostPlacedPanels(a, b model.SolutionStats) int {
	return cmp.Compare(b.PlacedPanels, a.PlacedPanels)
}

func LeastWastedArea(a, b model.SolutionStats) int {
	return cmp.Compare(a.UnusedArea, b.UnusedArea)
}

func LeastCuts(a, b model.SolutionStats) int {
	return cmp.Compare(a.Cuts, b.Cuts)
}

func FewestMosaics(a, b model.SolutionStats) int {
	return cmp.Compare(a.Mosaics, b.Mosaics)
}

// BiggestUnusedArea prefers the plan leaving the largest reusable offcut.
func BiggestUnusedArea(a, b model.SolutionStats) int {
	return cmp.Compare(b.BiggestUnusedArea, a.BiggestUnusedArea)
}

func MostDistinctDimensions(a, b model.SolutionStats) int {
	return cmp.Compare(b.DistinctDimensions, a.DistinctDimensions)
}

// ByCenterOfMass prefers panels packed towards the sheet origin.
func ByCenterOfMass(a, b model.SolutionStats) int {
	return cmp.Compare(a.CenterOfMassDistance, b.CenterOfMassDistance)
}

func ByFewestUnusedStock(a, b model.SolutionStats) int {
	return cmp.Compare(a.UnusedStockPanels, b.UnusedStockPanels)
}

func ByMostUnusedStockArea(a, b model.SolutionStats) int {
	return cmp.Compare(b.UnusedStockArea, a.UnusedStockArea)
}

func byID(a, b model.SolutionStats) int {
	return cmp.Compare(a.ID, b.ID)
}

// Criteria returns the default ranking for a priority.
func Criteria(p model.Priority) []Criterion {
	var head []Criterion
	switch p {
	case model.PriorityCuttingEfficiency:
		head = []Criterion{MostPlacedPanels, LeastCuts, LeastWastedArea}
	case model.PriorityMaterialEfficiency:
		head = []Criterion{MostPlacedPanels, LeastWastedArea, LeastCuts}
	default:
		panic("unhandled priority " + p.String())
	}
	return append(head, FewestMosaics, BiggestUnusedArea, MostDistinctDimensions)
}

// Comparator is a strict total order over solutions of one material.
type Comparator struct {
	criteria []Criterion
}

// NewComparator builds the ranking for p. Extra criteria are consulted after
// the default ones and before the final id tie-break.
func NewComparator(p model.Priority, extra ...Criterion) Comparator {
	criteria := Criteria(p)
	criteria = append(criteria, extra...)
	criteria = append(criteria, byID)
	return Comparator{criteria: criteria}
}

// CompareStats short-circuits at the first differing criterion.
func (c Comparator) CompareStats(a, b model.SolutionStats) int {
	for _, crit := range c.criteria {
		if r := crit(a, b); r != 0 {
			return r
		}
	}
	return 0
}

func (c Comparator) Compare(a, b *model.Solution) int {
	return c.CompareStats(a.Stats(), b.Stats())
}

// Better reports whether a ranks strictly before b.
func (c Comparator) Better(a, b *model.Solution) bool {
	return c.Compare(a, b) < 0
}

// Sort orders solutions best first. Metrics are computed once per solution.
func (c Comparator) Sort(solutions []*model.Solution) {
	stats := make(map[*model.Solution]model.SolutionStats, len(solutions))
	for _, s := range solutions {
		stats[s] = s.Stats()
	}
	sort.SliceStable(solutions, func(i, j int) bool {
		return c.CompareStats(stats[solutions[i]], stats[solutions[j]]) < 0
	})
}
