package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/model"
)

func TestSaveAndLoadInventory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.json")
	inv := Inventory{Stock: []model.PanelInput{
		{ID: 1, Width: "2440", Height: "1220", Count: 5, Material: "oak", Label: "Oak full sheet"},
	}}

	require.NoError(t, SaveInventory(path, inv))
	got, err := LoadInventory(path)
	require.NoError(t, err)
	assert.Equal(t, inv, got)
}

func TestLoadInventory_Missing(t *testing.T) {
	inv, err := LoadInventory(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.NotNil(t, inv.Stock)
	assert.Empty(t, inv.Stock)
}

func TestLoadInventory_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("[1,2"), 0o644))
	_, err := LoadInventory(path)
	assert.ErrorContains(t, err, "failed to parse inventory")
}

func TestInventory_Merge(t *testing.T) {
	inv := Inventory{Stock: []model.PanelInput{{ID: 1, Width: "100", Height: "100", Count: 1}}}
	added := inv.Merge(Inventory{Stock: []model.PanelInput{
		{ID: 1, Width: "999", Height: "999", Count: 1},
		{ID: 2, Width: "50", Height: "50", Count: 2},
		{ID: 2, Width: "60", Height: "60", Count: 2},
	}})

	assert.Equal(t, 1, added)
	require.Len(t, inv.Stock, 2)
	assert.Equal(t, "100", inv.Stock[0].Width)
	assert.Equal(t, "50", inv.Stock[1].Width)
}

func TestInventory_Apply(t *testing.T) {
	inv := Inventory{Stock: []model.PanelInput{{ID: 1, Width: "100", Height: "100", Count: 1}}}

	req := model.Request{Panels: []model.PanelInput{{ID: 1, Width: "10", Height: "10", Count: 1}}}
	assert.True(t, inv.Apply(&req))
	require.Len(t, req.Stock, 1)

	req.Stock[0].Count = 9
	assert.Equal(t, 1, inv.Stock[0].Count, "applied stock is a copy")

	assert.False(t, inv.Apply(&req), "request stock wins")
	assert.False(t, Inventory{}.Apply(&model.Request{}))
}
