package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Grain is the grain direction of a panel or stock sheet.
type Grain int

const (
	GrainNone       Grain = iota // No grain constraint, can rotate freely
	GrainHorizontal              // Grain runs along the width
	GrainVertical                // Grain runs along the height
)

func (g Grain) String() string {
	switch g {
	case GrainHorizontal:
		return "Horizontal"
	case GrainVertical:
		return "Vertical"
	default:
		return "None"
	}
}

// ParseGrain accepts the names produced by String plus short forms.
func ParseGrain(s string) (Grain, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h":
		return GrainHorizontal, true
	case "vertical", "v":
		return GrainVertical, true
	case "", "none", "n", "-":
		return GrainNone, true
	default:
		return GrainNone, false
	}
}

func (g Grain) MarshalText() ([]byte, error) { return []byte(strings.ToLower(g.String())), nil }

func (g *Grain) UnmarshalText(b []byte) error {
	parsed, ok := ParseGrain(string(b))
	if !ok {
		return fmt.Errorf("unknown grain %q", string(b))
	}
	*g = parsed
	return nil
}

// CanPlaceWithGrain returns which orientations keep a panel's grain aligned
// with the sheet's grain.
func CanPlaceWithGrain(panel, sheet Grain) (normal, rotated bool) {
	if panel == GrainNone || sheet == GrainNone {
		return true, true
	}
	if panel == sheet {
		return true, false
	}
	return false, true
}

// Priority selects the ranking used to compare solutions.
type Priority int

const (
	PriorityMaterialEfficiency Priority = iota
	PriorityCuttingEfficiency
)

func (p Priority) String() string {
	switch p {
	case PriorityCuttingEfficiency:
		return "cutting_efficiency"
	default:
		return "material_efficiency"
	}
}

// ParsePriority rejects anything but the two known priorities.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "material_efficiency", "material", "least_waste":
		return PriorityMaterialEfficiency, nil
	case "cutting_efficiency", "cutting", "least_cuts":
		return PriorityCuttingEfficiency, nil
	}
	return PriorityMaterialEfficiency, fmt.Errorf("unknown optimization priority %q", s)
}

func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Priority) UnmarshalText(b []byte) error {
	parsed, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// OptimizationLevel is the search-effort preset.
type OptimizationLevel int

const (
	OptimizationStandard OptimizationLevel = iota
	OptimizationFast
	OptimizationHigh
	OptimizationUltra
	OptimizationCustom
)

var optimizationLevelNames = map[OptimizationLevel]string{
	OptimizationFast:     "fast",
	OptimizationStandard: "standard",
	OptimizationHigh:     "high",
	OptimizationUltra:    "ultra",
	OptimizationCustom:   "custom",
}

var optimizationLevelFactors = map[OptimizationLevel]float64{
	OptimizationFast:     1,
	OptimizationStandard: 2,
	OptimizationHigh:     4,
	OptimizationUltra:    8,
}

func (l OptimizationLevel) String() string {
	if name, ok := optimizationLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("OptimizationLevel(%d)", int(l))
}

func ParseOptimizationLevel(s string) (OptimizationLevel, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return OptimizationStandard, nil
	}
	for l, name := range optimizationLevelNames {
		if name == norm {
			return l, nil
		}
	}
	return OptimizationStandard, fmt.Errorf("unknown optimization level %q", s)
}

func (l OptimizationLevel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *OptimizationLevel) UnmarshalText(b []byte) error {
	parsed, err := ParseOptimizationLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// SplitPolicy chooses which guillotine split orders the placement engine
// tries when a panel leaves offcuts on both axes.
type SplitPolicy int

const (
	SplitBoth SplitPolicy = iota
	SplitWidthFirst
	SplitHeightFirst
)

func (p SplitPolicy) String() string {
	switch p {
	case SplitWidthFirst:
		return "width_first"
	case SplitHeightFirst:
		return "height_first"
	default:
		return "both"
	}
}

func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return SplitBoth, nil
	case "width_first", "vertical":
		return SplitWidthFirst, nil
	case "height_first", "horizontal":
		return SplitHeightFirst, nil
	}
	return SplitBoth, fmt.Errorf("unknown split policy %q", s)
}

func (p SplitPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *SplitPolicy) UnmarshalText(b []byte) error {
	parsed, err := ParseSplitPolicy(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PerformanceThresholds bound the orchestrator.
type PerformanceThresholds struct {
	MaxSimultaneousTasks   int           `json:"max_simultaneous_tasks"`
	MaxSimultaneousThreads int           `json:"max_simultaneous_threads"`
	ThreadCheckInterval    time.Duration `json:"thread_check_interval"`
}

// Configuration is the scaled, validated optimization configuration handed
// to the core.
type Configuration struct {
	CutThickness        int64                 `json:"cut_thickness"`
	MinTrimDimension    int64                 `json:"min_trim_dimension"`
	ConsiderOrientation bool                  `json:"consider_orientation"`
	OptimizationLevel   OptimizationLevel     `json:"optimization_level"`
	OptimizationFactor  float64               `json:"optimization_factor,omitempty"`
	Priority            Priority              `json:"priority"`
	UseSingleStockUnit  bool                  `json:"use_single_stock_unit"`
	SplitPolicy         SplitPolicy           `json:"split_policy"`
	Performance         PerformanceThresholds `json:"performance"`
}

func DefaultPerformanceThresholds() PerformanceThresholds {
	return PerformanceThresholds{
		MaxSimultaneousTasks:   2,
		MaxSimultaneousThreads: 4,
		ThreadCheckInterval:    time.Second,
	}
}

func DefaultConfiguration() Configuration {
	return Configuration{
		OptimizationLevel: OptimizationStandard,
		Priority:          PriorityMaterialEfficiency,
		SplitPolicy:       SplitBoth,
		Performance:       DefaultPerformanceThresholds(),
	}
}

// Factor returns the numeric search-effort multiplier.
func (c Configuration) Factor() float64 {
	if c.OptimizationLevel == OptimizationCustom {
		if c.OptimizationFactor > 0 {
			return c.OptimizationFactor
		}
		return optimizationLevelFactors[OptimizationStandard]
	}
	if f, ok := optimizationLevelFactors[c.OptimizationLevel]; ok {
		return f
	}
	return optimizationLevelFactors[OptimizationStandard]
}

// SearchBudget is how much of the search space one material explores.
type SearchBudget struct {
	BeamWidth         int
	MaxPermutations   int
	MaxStockSolutions int
}

// Budget scales the base search budget by the optimization factor.
func (c Configuration) Budget() SearchBudget {
	f := c.Factor()
	scale := func(base float64) int {
		return int(math.Max(1, math.Ceil(base*f)))
	}
	return SearchBudget{
		BeamWidth:         scale(4),
		MaxPermutations:   scale(10),
		MaxStockSolutions: scale(5),
	}
}

// AllowedOrientations returns whether the panel may be placed as-is and
// rotated on the sheet.
func (c Configuration) AllowedOrientations(panel, sheet TileDimensions) (normal, rotated bool) {
	if panel.IsSquare() {
		return true, false
	}
	if !c.ConsiderOrientation {
		return true, true
	}
	return CanPlaceWithGrain(panel.Grain, sheet.Grain)
}
