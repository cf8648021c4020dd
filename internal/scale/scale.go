// Package scale converts the decimal strings of a request into the
// fixed-point integers the optimizer works with, and back.
package scale

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/piwi3910/cutplan/internal/model"
)

// MaxPrecision caps the number of decimal places kept after scaling.
const MaxPrecision = 6

// MaxDigits bounds integer plus decimal digits of any scaled value so it
// always fits an int32.
const MaxDigits = 9

var ErrInvalidInput = errors.New("invalid input")

// Converter maps decimal values to integers by a power-of-ten factor.
type Converter struct {
	Precision int32 `json:"precision"`
	Factor    int64 `json:"factor"`
}

// NewConverter picks the largest number of decimal places among values,
// capped at MaxPrecision and lowered until the longest integer part still
// fits in MaxDigits. Empty strings are ignored.
func NewConverter(values ...string) (Converter, error) {
	var precision, intDigits int32
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return Converter{}, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, v)
		}
		if p := -d.Exponent(); p > precision {
			precision = p
		}
		if n := integerDigits(d); n > intDigits {
			intDigits = n
		}
	}
	precision = min(precision, MaxPrecision, max(MaxDigits-intDigits, 0))
	return Converter{Precision: precision, Factor: pow10(precision)}, nil
}

// integerDigits counts the digits before the decimal point; zero has none.
func integerDigits(d decimal.Decimal) int32 {
	ip := d.Abs().Truncate(0)
	if ip.IsZero() {
		return 0
	}
	return int32(len(ip.String()))
}

func pow10(p int32) int64 {
	f := int64(1)
	for i := int32(0); i < p; i++ {
		f *= 10
	}
	return f
}

// ToFixed converts a decimal string. Digits beyond the precision are
// rounded half away from zero.
func (c Converter) ToFixed(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, s)
	}
	scaled := d.Shift(c.Precision).Round(0)
	// keeps every sheet area inside int64
	if scaled.GreaterThan(decimal.NewFromInt(math.MaxInt32)) || scaled.LessThan(decimal.NewFromInt(math.MinInt32)) {
		return 0, fmt.Errorf("%w: %q is out of range at precision %d", ErrInvalidInput, s, c.Precision)
	}
	return scaled.IntPart(), nil
}

// ToDecimal converts a scaled length back.
func (c Converter) ToDecimal(v int64) float64 {
	return decimal.New(v, -c.Precision).InexactFloat64()
}

// AreaToDecimal converts a scaled area back.
func (c Converter) AreaToDecimal(a int64) float64 {
	return decimal.New(a, -2*c.Precision).InexactFloat64()
}

// ScaledRequest is a request ready for the optimizer.
type ScaledRequest struct {
	Panels        []model.TileDimensions
	Stock         []model.TileDimensions
	Configuration model.Configuration
	Converter     Converter
}

// Request validates and scales every dimension of req. Panels and stock are
// expanded one tile per unit of count; disabled entries are dropped.
func Request(req model.Request, defaults model.Configuration) (ScaledRequest, error) {
	var values []string
	for _, p := range activeInputs(req.Panels) {
		values = append(values, p.Width, p.Height)
	}
	for _, s := range activeInputs(req.Stock) {
		values = append(values, s.Width, s.Height)
	}
	values = append(values, req.Configuration.CutThickness, req.Configuration.MinTrimDimension)

	conv, err := NewConverter(values...)
	if err != nil {
		return ScaledRequest{}, err
	}

	panels, err := conv.expand(req.Panels, "panel")
	if err != nil {
		return ScaledRequest{}, err
	}
	if len(panels) == 0 {
		return ScaledRequest{}, fmt.Errorf("%w: no enabled panels", ErrInvalidInput)
	}
	stock, err := conv.expand(req.Stock, "stock")
	if err != nil {
		return ScaledRequest{}, err
	}
	if len(stock) == 0 {
		return ScaledRequest{}, fmt.Errorf("%w: no enabled stock", ErrInvalidInput)
	}

	cfg, err := conv.configuration(req.Configuration, defaults)
	if err != nil {
		return ScaledRequest{}, err
	}

	return ScaledRequest{
		Panels:        panels,
		Stock:         stock,
		Configuration: cfg,
		Converter:     conv,
	}, nil
}

func activeInputs(in []model.PanelInput) []model.PanelInput {
	out := make([]model.PanelInput, 0, len(in))
	for _, p := range in {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

func (c Converter) expand(inputs []model.PanelInput, kind string) ([]model.TileDimensions, error) {
	var tiles []model.TileDimensions
	for _, p := range activeInputs(inputs) {
		w, err := c.ToFixed(p.Width)
		if err != nil {
			return nil, fmt.Errorf("%s %d width: %w", kind, p.ID, err)
		}
		h, err := c.ToFixed(p.Height)
		if err != nil {
			return nil, fmt.Errorf("%s %d height: %w", kind, p.ID, err)
		}
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("%w: %s %d has non-positive dimensions %sx%s", ErrInvalidInput, kind, p.ID, p.Width, p.Height)
		}
		for i := 0; i < p.Count; i++ {
			t := model.NewTileDimensions(p.ID, w, h, p.Material, p.Label)
			t.Grain = p.Grain
			tiles = append(tiles, t)
		}
	}
	return tiles, nil
}

func (c Converter) configuration(in model.ConfigurationInput, defaults model.Configuration) (model.Configuration, error) {
	cfg := defaults
	var err error

	if cfg.CutThickness, err = c.ToFixed(in.CutThickness); err != nil {
		return cfg, fmt.Errorf("cut thickness: %w", err)
	}
	if cfg.MinTrimDimension, err = c.ToFixed(in.MinTrimDimension); err != nil {
		return cfg, fmt.Errorf("min trim dimension: %w", err)
	}
	if cfg.CutThickness < 0 || cfg.MinTrimDimension < 0 {
		return cfg, fmt.Errorf("%w: cut thickness and min trim must not be negative", ErrInvalidInput)
	}
	cfg.ConsiderOrientation = in.ConsiderOrientation
	cfg.UseSingleStockUnit = in.UseSingleStockUnit

	if in.OptimizationLevel != "" {
		if cfg.OptimizationLevel, err = model.ParseOptimizationLevel(in.OptimizationLevel); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if in.OptimizationFactor > 0 {
		cfg.OptimizationFactor = in.OptimizationFactor
	}
	if in.Priority != "" {
		if cfg.Priority, err = model.ParsePriority(in.Priority); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if in.SplitPolicy != "" {
		if cfg.SplitPolicy, err = model.ParseSplitPolicy(in.SplitPolicy); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	perf := in.Performance
	if perf.MaxSimultaneousTasks > 0 {
		cfg.Performance.MaxSimultaneousTasks = perf.MaxSimultaneousTasks
	}
	if perf.MaxSimultaneousThreads > 0 {
		cfg.Performance.MaxSimultaneousThreads = perf.MaxSimultaneousThreads
	}
	if perf.ThreadCheckIntervalMill > 0 {
		cfg.Performance.ThreadCheckInterval = time.Duration(perf.ThreadCheckIntervalMill) * time.Millisecond
	}
	return cfg, nil
}
