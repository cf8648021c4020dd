package model

import (
	"fmt"
	"strings"
)

// StockSolution is a multiset of stock sheets tried together.
type StockSolution struct {
	tiles []TileDimensions
	area  int64
}

func NewStockSolution(tiles ...TileDimensions) StockSolution {
	s := StockSolution{tiles: make([]TileDimensions, len(tiles))}
	copy(s.tiles, tiles)
	for _, t := range tiles {
		s.area = AddArea(s.area, t.Area())
	}
	return s
}

// Tiles returns a copy of the sheets in the order they will be opened.
func (s StockSolution) Tiles() []TileDimensions {
	out := make([]TileDimensions, len(s.tiles))
	copy(out, s.tiles)
	return out
}

func (s StockSolution) Len() int      { return len(s.tiles) }
func (s StockSolution) Area() int64   { return s.area }
func (s StockSolution) IsEmpty() bool { return len(s.tiles) == 0 }

// Key is an order-independent hash of the sheet dimensions.
func (s StockSolution) Key() uint64 {
	keys := make([]DimensionKey, len(s.tiles))
	for i, t := range s.tiles {
		keys[i] = t.DimensionKey()
	}
	sortDimensionKeys(keys)
	return hashDimensionKeys(DimensionKey{}, keys)
}

// Equal compares the sheet dimension multisets, ignoring order.
func (s StockSolution) Equal(o StockSolution) bool {
	if len(s.tiles) != len(o.tiles) || s.area != o.area {
		return false
	}
	counts := make(map[DimensionKey]int, len(s.tiles))
	for _, t := range s.tiles {
		counts[t.DimensionKey()]++
	}
	for _, t := range o.tiles {
		k := t.DimensionKey()
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}

func (s StockSolution) String() string {
	parts := make([]string, len(s.tiles))
	for i, t := range s.tiles {
		parts[i] = t.DimensionKey().String()
	}
	return fmt.Sprintf("[%s] area=%d", strings.Join(parts, " "), s.area)
}
