// Package adaptive modulates ring spacing by local region complexity:
// elongated, narrow or heavily indented regions get denser passes so tool
// engagement stays even, open regions keep the base stepover.
package adaptive

import (
	"fmt"
	"math"

	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/geom"
	"github.com/chazu/gouge/pkg/offset"
)

const (
	// LowComplexity and HighComplexity bound the blend between base and
	// target spacing. A square scores 4.0 and a circle about 3.54.
	LowComplexity  = 4.6
	HighComplexity = 9.0

	// Adjusted spacing stays within [MinFactor, MaxFactor] × target.
	MinFactor = 0.5
	MaxFactor = 2.0
)

// Sample is one local region of a ring plan.
type Sample struct {
	Pass      int     `json:"pass"`
	Perimeter float64 `json:"perimeter"`
	Area      float64 `json:"area"`
}

// Plan is the input to Modulate: one sample per polygon group.
type Plan []Sample

// PlanFromRings groups rings into samples. A group is an outer ring and
// the hole rings that follow it.
func PlanFromRings(rings []offset.Ring) Plan {
	var plan Plan
	for _, r := range rings {
		a, l := geom.Area(r.Points), geom.Perimeter(r.Points)
		if r.Kind == offset.BoundaryHole && len(plan) > 0 {
			last := &plan[len(plan)-1]
			last.Area -= a
			last.Perimeter += l
			continue
		}
		plan = append(plan, Sample{Pass: r.Pass, Perimeter: l, Area: a})
	}
	return plan
}

// Adjusted is a sample with its modulated spacing.
type Adjusted struct {
	Sample
	Complexity float64 `json:"complexity"`
	Spacing    float64 `json:"spacing"`
	Clamped    bool    `json:"clamped"`
}

// Complexity returns perimeter / sqrt(area). Degenerate regions score
// +Inf.
func Complexity(perimeter, area float64) float64 {
	if area <= geom.Epsilon {
		return math.Inf(1)
	}
	return perimeter / math.Sqrt(area)
}

// Spacing blends base down toward target by complexity c and clamps the
// result to [MinFactor, MaxFactor] × target. Complexity only ever
// tightens: a target above base leaves the spacing at base.
func Spacing(c, base, target float64) (spacing float64, clamped bool) {
	drop := math.Max(0, base-target)
	switch {
	case c <= LowComplexity:
		spacing = base
	case c >= HighComplexity:
		spacing = base - drop
	default:
		t := (c - LowComplexity) / (HighComplexity - LowComplexity)
		spacing = base - drop*t
	}
	lo, hi := MinFactor*target, MaxFactor*target
	if spacing < lo || spacing > hi {
		return geom.Clamp(spacing, lo, hi), true
	}
	return spacing, false
}

// Modulate computes the adjusted spacing of every sample in plan. base
// and target are distances in mm.
func Modulate(plan Plan, base, target float64) ([]Adjusted, error) {
	if !(base > 0) || !(target > 0) {
		return nil, fmt.Errorf("adaptive: %w", diag.Contractf("base and target stepover must be positive, got %g and %g", base, target))
	}
	out := make([]Adjusted, len(plan))
	for i, s := range plan {
		c := Complexity(s.Perimeter, s.Area)
		sp, clamped := Spacing(c, base, target)
		out[i] = Adjusted{Sample: s, Complexity: c, Spacing: sp, Clamped: clamped}
	}
	return out, nil
}

// Modulator adapts Modulate to offset.Spacer so the offset engine can ask
// for the spacing of each polygon group as it goes. A Modulator records
// clamping and is meant for one region at a time.
type Modulator struct {
	// Base overrides the nominal spacing handed in by the offset engine
	// when positive.
	Base   float64
	Target float64

	clamped int
	plan    []Adjusted
}

var _ offset.Spacer = (*Modulator)(nil)

// NewModulator returns a Modulator densifying toward target (mm).
func NewModulator(target float64) (*Modulator, error) {
	if !(target > 0) {
		return nil, fmt.Errorf("adaptive: %w", diag.Contractf("target stepover must be positive, got %g", target))
	}
	return &Modulator{Target: target}, nil
}

// Spacing implements offset.Spacer.
func (m *Modulator) Spacing(p offset.Polygon, pass int, nominal float64) float64 {
	base := nominal
	if m.Base > 0 {
		base = m.Base
	}
	s := Sample{Pass: pass, Perimeter: p.Perimeter(), Area: p.Area()}
	c := Complexity(s.Perimeter, s.Area)
	sp, clamped := Spacing(c, base, m.Target)
	if clamped {
		m.clamped++
	}
	m.plan = append(m.plan, Adjusted{Sample: s, Complexity: c, Spacing: sp, Clamped: clamped})
	return sp
}

// Plan returns the decisions made so far, in call order.
func (m *Modulator) Plan() []Adjusted { return m.plan }

// Diagnostics reports clamping as a single AdaptiveClamped warning.
func (m *Modulator) Diagnostics() diag.List {
	if m.clamped == 0 {
		return nil
	}
	return diag.List{diag.Warn(diag.AdaptiveClamped,
		"adaptive spacing clamped to [%.3f, %.3f] mm on %d of %d groups",
		MinFactor*m.Target, MaxFactor*m.Target, m.clamped, len(m.plan))}
}
