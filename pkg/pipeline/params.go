package pipeline

import (
	"fmt"
	"math"

	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/fillet"
	"github.com/chazu/gouge/pkg/geom"
	"github.com/chazu/gouge/pkg/offset"
	"github.com/chazu/gouge/pkg/spiral"
	"github.com/chazu/gouge/pkg/toolpath"
)

// Params is the machining parameter set for one job. Lengths are mm, feeds
// mm/min.
type Params struct {
	ToolDiameter     float64 `json:"tool_diameter"`
	StepoverFraction float64 `json:"stepover_fraction"`
	Stepdown         float64 `json:"stepdown"`
	Depth            float64 `json:"depth"`
	Margin           float64 `json:"margin"`
	Strategy         string  `json:"strategy"` // "spiral" or "lanes"
	Climb            bool    `json:"climb"`
	MinFilletRadius  float64 `json:"min_fillet_radius"`
	MaxFilletRadius  float64 `json:"max_fillet_radius"`

	// TargetStepover enables adaptive spacing when positive. It is a
	// fraction of the tool diameter, like StepoverFraction.
	TargetStepover float64 `json:"target_stepover"`

	FeedXY         float64 `json:"feed_xy"`
	PlungeFeed     float64 `json:"plunge_feed"`
	SafeZ          float64 `json:"safe_z"`
	Tolerance      float64 `json:"tolerance"`
	MaxPasses      int     `json:"max_passes"`
	ApplyOverloads bool    `json:"apply_overloads"`
}

// DefaultParams returns a parameter set for a 6 mm end mill.
func DefaultParams() Params {
	return Params{
		ToolDiameter:     6,
		StepoverFraction: 0.45,
		Stepdown:         2,
		Depth:            0,
		Margin:           0,
		Strategy:         spiral.ModeSpiral.String(),
		MinFilletRadius:  fillet.DefaultMinRadius,
		MaxFilletRadius:  fillet.DefaultMaxRadius,
		FeedXY:           1000,
		PlungeFeed:       300,
		SafeZ:            toolpath.DefaultSafeZ,
		Tolerance:        geom.DefaultTolerance,
		MaxPasses:        offset.DefaultMaxPasses,
	}
}

// Validate checks the caller contract. Out-of-range stepover fractions are
// not errors; the offset engine clamps them with a warning.
func (p Params) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("pipeline: %w", diag.Contractf(format, args...))
	}
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	switch {
	case !(p.ToolDiameter > 0) || !finite(p.ToolDiameter):
		return bad("tool diameter must be positive, got %g", p.ToolDiameter)
	case !finite(p.StepoverFraction):
		return bad("stepover fraction must be finite, got %g", p.StepoverFraction)
	case !(p.Margin >= 0) || !finite(p.Margin):
		return bad("margin must be non-negative, got %g", p.Margin)
	case !(p.Depth >= 0) || !finite(p.Depth):
		return bad("depth must be non-negative, got %g", p.Depth)
	case p.Depth > 0 && !(p.Stepdown > 0):
		return bad("stepdown must be positive when depth is set, got %g", p.Stepdown)
	case !(p.MinFilletRadius > 0) || !(p.MaxFilletRadius >= p.MinFilletRadius) || !finite(p.MaxFilletRadius):
		return bad("fillet radii must satisfy 0 < min <= max, got %g and %g", p.MinFilletRadius, p.MaxFilletRadius)
	case p.TargetStepover < 0 || !finite(p.TargetStepover):
		return bad("target stepover must be non-negative, got %g", p.TargetStepover)
	case !(p.FeedXY > 0) || !finite(p.FeedXY):
		return bad("feed must be positive, got %g", p.FeedXY)
	case p.PlungeFeed < 0:
		return bad("plunge feed must be non-negative, got %g", p.PlungeFeed)
	case !(p.Tolerance > 0):
		return bad("tolerance must be positive, got %g", p.Tolerance)
	case p.MaxPasses < 0:
		return bad("max passes must be non-negative, got %d", p.MaxPasses)
	case p.SafeZ <= 0:
		return bad("safe Z must be above the stock surface, got %g", p.SafeZ)
	}
	if _, err := spiral.ParseMode(p.Strategy); err != nil {
		return fmt.Errorf("pipeline: %w", diag.Contractf("%v", err))
	}
	return nil
}

// mode returns the parsed strategy. Validate must have succeeded.
func (p Params) mode() spiral.Mode {
	m, _ := spiral.ParseMode(p.Strategy)
	return m
}

func (p Params) maxPasses() int {
	if p.MaxPasses > 0 {
		return p.MaxPasses
	}
	return offset.DefaultMaxPasses
}

func (p Params) plungeFeed() float64 {
	if p.PlungeFeed > 0 {
		return p.PlungeFeed
	}
	return p.FeedXY * toolpath.DefaultPlungeRatio
}
