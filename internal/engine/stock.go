package engine

import (
	"container/heap"
	"context"
	"sort"

	"github.com/piwi3910/cutplan/internal/model"
)

// StockSelector enumerates stock sheet combinations, smallest total area
// first. Only combinations able to cover the required panel area are
// produced; when the whole inventory cannot, it is produced once on its own.
type StockSelector struct {
	types    []stockType
	required int64
	single   bool

	queue    comboHeap
	fallback bool
	done     bool
	emitted  bool
}

// maxComboScan bounds how many undersized combinations are skipped before
// the selector gives up and offers the whole inventory.
const maxComboScan = 200_000

// stockType is every unit of one distinct stock size.
type stockType struct {
	key   model.DimensionKey
	area  int64
	units []model.TileDimensions
}

// combo is a count vector over stock types. Successors only increment
// indexes >= last, so each multiset is generated exactly once.
type combo struct {
	counts []int
	last   int
	area   int64
}

type comboHeap []combo

func (h comboHeap) Len() int { return len(h) }
func (h comboHeap) Less(i, j int) bool {
	if h[i].area != h[j].area {
		return h[i].area < h[j].area
	}
	return sheetCount(h[i]) < sheetCount(h[j])
}
func (h comboHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *comboHeap) Push(x any)   { *h = append(*h, x.(combo)) }
func (h *comboHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func sheetCount(c combo) int {
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}

// NewStockSelector prepares the enumeration. With single set, every
// combination uses one stock size only.
func NewStockSelector(stock, panels []model.TileDimensions, single bool) *StockSelector {
	byKey := make(map[model.DimensionKey]*stockType)
	var types []*stockType
	for _, s := range stock {
		k := s.DimensionKey()
		t, ok := byKey[k]
		if !ok {
			t = &stockType{key: k, area: s.Area()}
			byKey[k] = t
			types = append(types, t)
		}
		t.units = append(t.units, s)
	}
	sort.SliceStable(types, func(i, j int) bool { return types[i].area < types[j].area })

	sel := &StockSelector{single: single}
	for _, t := range types {
		sel.types = append(sel.types, *t)
	}
	for _, p := range panels {
		sel.required = model.AddArea(sel.required, p.Area())
	}
	sel.Reset()
	return sel
}

// Reset restarts the enumeration from the smallest combination.
func (s *StockSelector) Reset() {
	s.done = false
	s.emitted = false
	s.queue = comboHeap{{counts: make([]int, len(s.types))}}
	s.fallback = s.reachable() < s.required
}

// reachable is the largest area any allowed combination can reach.
func (s *StockSelector) reachable() int64 {
	var total, best int64
	for _, t := range s.types {
		a := model.MulArea(t.area, int64(len(t.units)))
		total = model.AddArea(total, a)
		if a > best {
			best = a
		}
	}
	if s.single {
		return best
	}
	return total
}

// Next returns the next combination, or false when exhausted.
func (s *StockSelector) Next() (model.StockSolution, bool) {
	if s.done || len(s.types) == 0 {
		return model.StockSolution{}, false
	}
	if s.fallback {
		s.done = true
		return s.wholeInventory(), true
	}
	for scanned := 0; s.queue.Len() > 0; scanned++ {
		if scanned > maxComboScan {
			break
		}
		c := heap.Pop(&s.queue).(combo)
		s.pushSuccessors(c)
		if c.area > 0 && c.area >= s.required {
			s.emitted = true
			return s.materialize(c), true
		}
	}
	s.done = true
	if !s.emitted {
		s.emitted = true
		return s.wholeInventory(), true
	}
	return model.StockSolution{}, false
}

func (s *StockSelector) pushSuccessors(c combo) {
	empty := c.area == 0
	for i := c.last; i < len(s.types); i++ {
		if s.single && !empty && i != c.last {
			break
		}
		if c.counts[i] == len(s.types[i].units) {
			continue
		}
		next := combo{
			counts: append([]int(nil), c.counts...),
			last:   i,
			area:   model.AddArea(c.area, s.types[i].area),
		}
		next.counts[i]++
		heap.Push(&s.queue, next)
	}
}

// materialize picks concrete units for a count vector, largest sheets first.
func (s *StockSelector) materialize(c combo) model.StockSolution {
	var tiles []model.TileDimensions
	for i := len(s.types) - 1; i >= 0; i-- {
		tiles = append(tiles, s.types[i].units[:c.counts[i]]...)
	}
	return model.NewStockSolution(tiles...)
}

func (s *StockSelector) wholeInventory() model.StockSolution {
	if s.single {
		best := 0
		for i, t := range s.types {
			if t.area*int64(len(t.units)) > s.types[best].area*int64(len(s.types[best].units)) {
				best = i
			}
		}
		return model.NewStockSolution(s.types[best].units...)
	}
	var tiles []model.TileDimensions
	for i := len(s.types) - 1; i >= 0; i-- {
		tiles = append(tiles, s.types[i].units...)
	}
	return model.NewStockSolution(tiles...)
}

// Stream runs an independent enumeration on its own goroutine and feeds a
// channel holding up to buffer combinations. At most limit combinations are
// sent (limit <= 0 means no limit). The channel is closed when the
// enumeration ends or ctx is done.
func (s *StockSelector) Stream(ctx context.Context, buffer, limit int) <-chan model.StockSolution {
	it := &StockSelector{
		types:    s.types,
		required: s.required,
		single:   s.single,
	}
	it.Reset()

	ch := make(chan model.StockSolution, buffer)
	go func() {
		defer close(ch)
		for sent := 0; limit <= 0 || sent < limit; sent++ {
			sol, ok := it.Next()
			if !ok {
				return
			}
			select {
			case ch <- sol:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
