package engine

import (
	"math"
	"sort"

	"github.com/piwi3910/cutplan/internal/model"
)

// MaxPermutedGroups is how many leading groups are permuted. Groups past it
// keep their area order in every ordering.
const MaxPermutedGroups = 7

// Ordering is one panel sequence to feed the placement engine.
type Ordering struct {
	Panels []model.TileDimensions
	Groups []model.GroupKey
	Hash   int64
}

// Lead is the group placed first, used to bucket progress counters.
func (o Ordering) Lead() string {
	if len(o.Groups) == 0 {
		return ""
	}
	return o.Groups[0].String()
}

// Permutations builds distinct panel orderings. Identical panels are grouped
// so large batches are permuted as blocks. At most limit orderings are
// returned; limit <= 0 means all. The first ordering is always the
// largest-area-first one.
func Permutations(panels, stock []model.TileDimensions, limit int) []Ordering {
	if len(panels) == 0 {
		return []Ordering{{Panels: []model.TileDimensions{}}}
	}

	grouped := GroupPanels(panels, stock)
	byGroup := make(map[model.GroupKey][]model.TileDimensions)
	var keys []model.GroupKey
	for _, g := range grouped {
		k := g.GroupKey()
		if _, ok := byGroup[k]; !ok {
			keys = append(keys, k)
		}
		byGroup[k] = append(byGroup[k], g.TileDimensions)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].Area() > keys[j].Area()
	})

	head, tail := keys, []model.GroupKey(nil)
	if len(keys) > MaxPermutedGroups {
		head, tail = keys[:MaxPermutedGroups], keys[MaxPermutedGroups:]
	}

	var out []Ordering
	seen := make(map[int64]struct{})
	for _, perm := range permuteGroups(head) {
		order := append(perm, tail...)
		expanded := make([]model.TileDimensions, 0, len(panels))
		for _, k := range order {
			expanded = append(expanded, byGroup[k]...)
		}
		h := orderingHash(expanded)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, Ordering{Panels: expanded, Groups: order, Hash: h})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// GroupPanels assigns each panel an ordering group. A dimension with many
// copies is split into new groups each time the current group exceeds a
// quarter of its total, unless the problem is one-dimensional.
func GroupPanels(panels, stock []model.TileDimensions) []model.GroupedTileDimensions {
	totals := make(map[model.DimensionKey]int)
	for _, p := range panels {
		totals[p.DimensionKey()]++
	}

	threshold := len(panels) / 100
	if threshold < 1 {
		threshold = 1
	}
	if isOneDimensional(panels, stock) {
		threshold = math.MaxInt
	}

	type counter struct{ group, count int }
	counters := make(map[model.DimensionKey]*counter)
	out := make([]model.GroupedTileDimensions, 0, len(panels))
	for _, p := range panels {
		k := p.DimensionKey()
		c, ok := counters[k]
		if !ok {
			c = &counter{}
			counters[k] = c
		}
		out = append(out, model.GroupedTileDimensions{TileDimensions: p, Group: c.group})
		c.count++
		if total := totals[k]; total > threshold && c.count > total/4 {
			c.group++
			c.count = 0
		}
	}
	return out
}

// isOneDimensional reports whether one side length is shared by every panel
// and every stock sheet, so the problem reduces to cutting strips.
func isOneDimensional(panels, stock []model.TileDimensions) bool {
	if len(panels) == 0 {
		return false
	}
	candidates := []int64{panels[0].Width, panels[0].Height}
	has := func(t model.TileDimensions, d int64) bool {
		return t.Width == d || t.Height == d
	}
	for _, d := range candidates {
		shared := true
		for _, p := range panels {
			if !has(p, d) {
				shared = false
				break
			}
		}
		for _, s := range stock {
			if !shared {
				break
			}
			if !has(s, d) {
				shared = false
			}
		}
		if shared {
			return true
		}
	}
	return false
}

// permuteGroups generates every ordering by recursive insertion. The input
// order comes first.
func permuteGroups(keys []model.GroupKey) [][]model.GroupKey {
	if len(keys) == 0 {
		return [][]model.GroupKey{{}}
	}
	first := keys[0]
	rest := permuteGroups(keys[1:])
	out := make([][]model.GroupKey, 0, len(rest)*len(keys))
	for _, p := range rest {
		for i := 0; i <= len(p); i++ {
			perm := make([]model.GroupKey, 0, len(p)+1)
			perm = append(perm, p[:i]...)
			perm = append(perm, first)
			perm = append(perm, p[i:]...)
			out = append(out, perm)
		}
	}
	return out
}

// orderingHash is an order-sensitive rolling hash over panel dimensions.
// Overflow wraps.
func orderingHash(panels []model.TileDimensions) int64 {
	var h int64
	for _, p := range panels {
		h = h*31 + (p.Width*31 + p.Height)
	}
	return h
}
