package engine

import (
	"context"
	"testing"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestConfig() model.Configuration {
	cfg := model.DefaultConfiguration()
	// Simplify for testing: no kerf, no trim
	cfg.CutThickness = 0
	cfg.MinTrimDimension = 0
	cfg.OptimizationLevel = model.OptimizationFast
	return cfg
}

func tile(id int, w, h int64) model.TileDimensions {
	return model.NewTileDimensions(id, w, h, "", "")
}

func runPlacement(t *testing.T, cfg model.Configuration, panels []model.TileDimensions, stock ...model.TileDimensions) *model.Solution {
	t.Helper()
	p := NewPlacer(cfg, model.NewIDSource())
	sol, err := p.Run(context.Background(), "", panels, model.NewStockSolution(stock...))
	require.NoError(t, err)
	require.NotNil(t, sol)
	for _, m := range sol.Mosaics {
		require.NoError(t, m.Root.Validate())
	}
	return sol
}

func TestPlacement_ThreePanelsOneSheet(t *testing.T) {
	panels := []model.TileDimensions{tile(1, 200, 80), tile(2, 60, 40), tile(3, 80, 50)}

	sol := runPlacement(t, defaultTestConfig(), panels, tile(100, 400, 300))
	st := sol.Stats()

	assert.Equal(t, 3, st.PlacedPanels)
	assert.Equal(t, 0, st.NoFitPanels)
	assert.Equal(t, int64(22400), st.UsedArea)
	assert.GreaterOrEqual(t, st.Cuts, 2)
	assert.Equal(t, 1, st.Mosaics)
	assert.Equal(t, st.TotalArea, st.UsedArea+st.UnusedArea)
}

func TestPlacement_PanelLargerThanStock_IsNoFit(t *testing.T) {
	panels := []model.TileDimensions{tile(1, 500, 500), tile(2, 100, 100)}

	sol := runPlacement(t, defaultTestConfig(), panels, tile(100, 400, 300))

	require.Len(t, sol.NoFit, 1)
	assert.Equal(t, 1, sol.NoFit[0].ID)
	for _, m := range sol.Mosaics {
		for _, f := range m.Root.FinalTiles() {
			assert.NotEqual(t, 1, f.ExternalID)
		}
	}
	assert.Equal(t, 1, sol.Stats().PlacedPanels)
}

func TestPlacement_TwoHalves_OneCutNoWaste(t *testing.T) {
	panels := []model.TileDimensions{tile(1, 50, 50), tile(2, 50, 50)}

	sol := runPlacement(t, defaultTestConfig(), panels, tile(100, 100, 50))
	st := sol.Stats()

	assert.Equal(t, 2, st.PlacedPanels)
	assert.Equal(t, 1, st.Cuts)
	assert.Equal(t, int64(0), st.UnusedArea)
}

func TestPlacement_KerfIsCountedAsWaste(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.CutThickness = 2
	panels := []model.TileDimensions{tile(1, 50, 50), tile(2, 50, 50)}

	sol := runPlacement(t, cfg, panels, tile(100, 102, 50))
	st := sol.Stats()

	assert.Equal(t, 2, st.PlacedPanels)
	assert.Equal(t, 1, st.Cuts)
	assert.Equal(t, int64(2*50), st.UnusedArea, "only the blade width is lost")
}

func TestPlacement_MinTrimRejectsSliver(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.MinTrimDimension = 10
	// 95 wide leaves a 5 offcut, below the trim, so it needs a second sheet
	panels := []model.TileDimensions{tile(1, 95, 50)}

	sol := runPlacement(t, cfg, panels, tile(100, 100, 50), tile(101, 95, 50))

	require.Len(t, sol.Mosaics, 1)
	assert.Equal(t, 101, sol.Mosaics[0].StockID)
	assert.Empty(t, sol.NoFit)
}

func TestPlacement_RotatesWhenNeeded(t *testing.T) {
	panels := []model.TileDimensions{tile(1, 50, 100)}

	sol := runPlacement(t, defaultTestConfig(), panels, tile(100, 100, 50))

	require.Empty(t, sol.NoFit)
	finals := sol.Mosaics[0].Root.FinalTiles()
	require.Len(t, finals, 1)
	assert.True(t, finals[0].Rotated)
	assert.Equal(t, int64(100), finals[0].Width())
}

func TestPlacement_GrainBlocksRotation(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.ConsiderOrientation = true
	panel := tile(1, 50, 100)
	panel.Grain = model.GrainVertical
	sheet := tile(100, 100, 50)
	sheet.Grain = model.GrainVertical

	sol := runPlacement(t, cfg, []model.TileDimensions{panel}, sheet)

	assert.Len(t, sol.NoFit, 1)
	assert.Empty(t, sol.Mosaics)
}

func TestPlacement_OpensNextSheet(t *testing.T) {
	panels := []model.TileDimensions{tile(1, 100, 100), tile(2, 100, 100)}

	sol := runPlacement(t, defaultTestConfig(), panels, tile(100, 100, 100), tile(101, 100, 100))

	assert.Len(t, sol.Mosaics, 2)
	assert.Empty(t, sol.UnusedStock)
	assert.Equal(t, 0, sol.Stats().Cuts)
}

func TestPlacement_MosaicsSortedByUnusedArea(t *testing.T) {
	panels := []model.TileDimensions{tile(1, 100, 100), tile(2, 50, 50)}

	sol := runPlacement(t, defaultTestConfig(), panels, tile(100, 100, 100), tile(101, 100, 100))

	require.Len(t, sol.Mosaics, 2)
	assert.LessOrEqual(t, sol.Mosaics[0].UnusedArea(), sol.Mosaics[1].UnusedArea())
}

func TestPlacement_SplitPolicies(t *testing.T) {
	panels := []model.TileDimensions{tile(1, 60, 40)}
	for _, policy := range []model.SplitPolicy{model.SplitBoth, model.SplitWidthFirst, model.SplitHeightFirst} {
		t.Run(policy.String(), func(t *testing.T) {
			cfg := defaultTestConfig()
			cfg.SplitPolicy = policy
			sol := runPlacement(t, cfg, panels, tile(100, 100, 100))

			require.Len(t, sol.Mosaics, 1)
			cuts := sol.Mosaics[0].Cuts
			require.Len(t, cuts, 2)
			switch policy {
			case model.SplitWidthFirst:
				assert.False(t, cuts[0].Horizontal)
			case model.SplitHeightFirst:
				assert.True(t, cuts[0].Horizontal)
			}
		})
	}
}

func TestPlacement_CutsResolveToTreeNodes(t *testing.T) {
	panels := []model.TileDimensions{tile(1, 200, 80), tile(2, 60, 40), tile(3, 80, 50), tile(4, 120, 120)}

	sol := runPlacement(t, defaultTestConfig(), panels, tile(100, 400, 300))

	for _, m := range sol.Mosaics {
		for _, c := range m.Cuts {
			parent := m.Root.Find(c.ParentID)
			require.NotNil(t, parent)
			assert.Equal(t, c.Child1ID, parent.Child1.ID)
			assert.Equal(t, c.Child2ID, parent.Child2.ID)
			assert.Equal(t, c.OriginalWidth, parent.Width())
			assert.Equal(t, c.OriginalHeight, parent.Height())
		}
	}
}

func TestPlacement_EmptyOrdering(t *testing.T) {
	sol := runPlacement(t, defaultTestConfig(), nil, tile(100, 100, 100))

	assert.Empty(t, sol.Mosaics)
	assert.Len(t, sol.UnusedStock, 1)
	assert.True(t, sol.IsFrozen())
}

func TestPlacement_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPlacer(defaultTestConfig(), model.NewIDSource())
	sol, err := p.Run(ctx, "", []model.TileDimensions{tile(1, 10, 10)}, model.NewStockSolution(tile(100, 100, 100)))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, sol)
}

func TestPlacement_BranchesDoNotShareTrees(t *testing.T) {
	ids := model.NewIDSource()
	p := NewPlacer(defaultTestConfig(), ids)
	base := model.NewSolution(ids, "", model.NewStockSolution(tile(100, 100, 100)))

	first := p.placePanel(base, tile(1, 40, 30))
	require.NotEmpty(t, first)
	before := first[0].Mosaics[0].Root.FinalTileCount()

	second := p.placePanel(first[0], tile(2, 40, 30))
	require.NotEmpty(t, second)

	assert.Equal(t, before, first[0].Mosaics[0].Root.FinalTileCount(), "parent tree must stay untouched")
	assert.Equal(t, before+1, second[0].Mosaics[0].Root.FinalTileCount())
}

func TestAxisFits(t *testing.T) {
	c := cutter{kerf: 3, minTrim: 5}

	assert.True(t, c.axisFits(100, 100), "exact")
	assert.True(t, c.axisFits(100, 91), "offcut 6 > trim 5")
	assert.False(t, c.axisFits(100, 92), "offcut 5 is not above trim")
	assert.False(t, c.axisFits(100, 97), "offcut eaten by kerf")
}
