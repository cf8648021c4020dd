package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("cutting_efficiency")
	require.NoError(t, err)
	assert.Equal(t, PriorityCuttingEfficiency, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMaterialEfficiency, p)

	_, err = ParsePriority("fastest")
	assert.Error(t, err)
}

func TestParseOptimizationLevel(t *testing.T) {
	for _, name := range []string{"fast", "standard", "high", "ultra", "custom"} {
		l, err := ParseOptimizationLevel(name)
		require.NoError(t, err)
		assert.Equal(t, name, l.String())
	}
	_, err := ParseOptimizationLevel("ludicrous")
	assert.Error(t, err)
}

func TestConfiguration_Budget(t *testing.T) {
	cfg := DefaultConfiguration()

	cfg.OptimizationLevel = OptimizationFast
	fast := cfg.Budget()
	cfg.OptimizationLevel = OptimizationUltra
	ultra := cfg.Budget()

	assert.Equal(t, SearchBudget{BeamWidth: 4, MaxPermutations: 10, MaxStockSolutions: 5}, fast)
	assert.Equal(t, SearchBudget{BeamWidth: 32, MaxPermutations: 80, MaxStockSolutions: 40}, ultra)
}

func TestConfiguration_CustomFactor(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.OptimizationLevel = OptimizationCustom

	assert.Equal(t, 2.0, cfg.Factor(), "custom without a factor behaves like standard")

	cfg.OptimizationFactor = 0.1
	assert.Equal(t, SearchBudget{BeamWidth: 1, MaxPermutations: 1, MaxStockSolutions: 1}, cfg.Budget())
}

func TestCanPlaceWithGrain(t *testing.T) {
	tests := []struct {
		panel, sheet    Grain
		normal, rotated bool
	}{
		{GrainNone, GrainVertical, true, true},
		{GrainHorizontal, GrainNone, true, true},
		{GrainHorizontal, GrainHorizontal, true, false},
		{GrainVertical, GrainHorizontal, false, true},
	}
	for _, tt := range tests {
		n, r := CanPlaceWithGrain(tt.panel, tt.sheet)
		assert.Equal(t, tt.normal, n, "%s on %s", tt.panel, tt.sheet)
		assert.Equal(t, tt.rotated, r, "%s on %s", tt.panel, tt.sheet)
	}
}

func TestConfiguration_AllowedOrientations(t *testing.T) {
	cfg := DefaultConfiguration()
	panel := NewTileDimensions(1, 30, 20, "", "")
	panel.Grain = GrainHorizontal
	sheet := NewTileDimensions(2, 100, 100, "", "")
	sheet.Grain = GrainHorizontal

	n, r := cfg.AllowedOrientations(panel, sheet)
	assert.True(t, n)
	assert.True(t, r, "grain ignored unless orientation is considered")

	cfg.ConsiderOrientation = true
	n, r = cfg.AllowedOrientations(panel, sheet)
	assert.True(t, n)
	assert.False(t, r)

	square := NewTileDimensions(3, 20, 20, "", "")
	n, r = cfg.AllowedOrientations(square, sheet)
	assert.True(t, n)
	assert.False(t, r, "rotating a square changes nothing")
}

func TestParseSplitPolicy(t *testing.T) {
	p, err := ParseSplitPolicy("height_first")
	require.NoError(t, err)
	assert.Equal(t, SplitHeightFirst, p)

	_, err = ParseSplitPolicy("diagonal")
	assert.Error(t, err)
}
