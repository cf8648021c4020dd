package engine

import (
	"testing"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByMaterial_NoMaterials(t *testing.T) {
	panels := []model.TileDimensions{tile(1, 10, 10)}
	stock := []model.TileDimensions{tile(100, 100, 100)}

	groups := GroupByMaterial(panels, stock)

	require.Len(t, groups, 1)
	assert.Equal(t, "", groups[0].Material)
	assert.Len(t, groups[0].Panels, 1)
	assert.Len(t, groups[0].Stock, 1)
}

func TestGroupByMaterial_UniversalStockJoinsEveryGroup(t *testing.T) {
	panels := []model.TileDimensions{
		model.NewTileDimensions(1, 10, 10, "oak", ""),
		model.NewTileDimensions(2, 10, 10, "birch", ""),
	}
	stock := []model.TileDimensions{
		model.NewTileDimensions(100, 100, 100, "oak", ""),
		model.NewTileDimensions(101, 100, 100, "", ""),
	}

	groups := GroupByMaterial(panels, stock)

	require.Len(t, groups, 2)
	assert.Equal(t, "birch", groups[0].Material)
	assert.Len(t, groups[0].Stock, 1)
	assert.Equal(t, 101, groups[0].Stock[0].ID)
	assert.Equal(t, "oak", groups[1].Material)
	assert.Len(t, groups[1].Stock, 2)
}

func TestGroupByMaterial_UniversalPanelsUseAllStock(t *testing.T) {
	panels := []model.TileDimensions{
		model.NewTileDimensions(1, 10, 10, "oak", ""),
		model.NewTileDimensions(2, 10, 10, "", ""),
	}
	stock := []model.TileDimensions{
		model.NewTileDimensions(100, 100, 100, "oak", ""),
		model.NewTileDimensions(101, 100, 100, "mdf", ""),
	}

	groups := GroupByMaterial(panels, stock)

	require.Len(t, groups, 2)
	assert.Equal(t, "", groups[1].Material)
	assert.Len(t, groups[1].Stock, 2)
}
