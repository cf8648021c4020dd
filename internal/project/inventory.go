package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/piwi3910/cutplan/internal/model"
)

// Inventory is the stock sheets on hand. Jobs without stock of their own
// are cut from it.
type Inventory struct {
	Stock []model.PanelInput `json:"stock"`
}

// DefaultInventoryPath is inventory.json in DefaultDir.
func DefaultInventoryPath() string {
	return filepath.Join(DefaultDir(), "inventory.json")
}

// SaveInventory writes inv to path.
func SaveInventory(path string, inv Inventory) error {
	if inv.Stock == nil {
		inv.Stock = []model.PanelInput{}
	}
	return writeJSON(path, inv)
}

// LoadInventory reads an inventory. A missing file is an empty inventory.
func LoadInventory(path string) (Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Inventory{Stock: []model.PanelInput{}}, nil
		}
		return Inventory{}, err
	}
	var inv Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return Inventory{}, fmt.Errorf("failed to parse inventory: %w", err)
	}
	if inv.Stock == nil {
		inv.Stock = []model.PanelInput{}
	}
	return inv, nil
}

// Merge appends the entries of other whose ids are not in inv yet and
// returns how many were added.
func (inv *Inventory) Merge(other Inventory) int {
	ids := make(map[int]bool, len(inv.Stock))
	for _, s := range inv.Stock {
		ids[s.ID] = true
	}
	added := 0
	for _, s := range other.Stock {
		if ids[s.ID] {
			continue
		}
		inv.Stock = append(inv.Stock, s)
		ids[s.ID] = true
		added++
	}
	return added
}

// Apply fills req.Stock from the inventory when the request has none.
// It reports whether the inventory was used.
func (inv Inventory) Apply(req *model.Request) bool {
	if len(req.Stock) > 0 || len(inv.Stock) == 0 {
		return false
	}
	req.Stock = append([]model.PanelInput(nil), inv.Stock...)
	return true
}
