// Package offset generates concentric inward offset rings for a pocket
// region: the outer loop shrunk by the tool radius, then repeatedly by the
// stepover, with islands grown by the same distances and subtracted.
package offset

import (
	"fmt"
	"math"

	"github.com/chazu/gouge/pkg/contour"
	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/geom"
	"github.com/chazu/gouge/pkg/kernel"
	"github.com/chazu/gouge/pkg/kernel/sdfx"
)

const (
	// MinRingArea is the smallest ring (mm²) worth cutting.
	MinRingArea = geom.MinLoopArea

	// DefaultMaxPasses bounds ring generation per region.
	DefaultMaxPasses = 1000

	MinStepover = 0.1
	MaxStepover = 0.9

	// Ring spacing bounds as fractions of the tool diameter.
	MinSpacingFraction = 0.3
	MaxSpacingFraction = 0.7
)

// BoundaryKind says whether a ring came from the outer boundary of its
// polygon or from one of its holes.
type BoundaryKind int

const (
	BoundaryOuter BoundaryKind = iota
	BoundaryHole
)

func (k BoundaryKind) String() string {
	switch k {
	case BoundaryOuter:
		return "outer"
	case BoundaryHole:
		return "hole"
	default:
		return fmt.Sprintf("BoundaryKind(%d)", int(k))
	}
}

// Ring is one closed tool-center contour. Points carry no closing
// duplicate; outer rings wind counter-clockwise and hole rings clockwise.
type Ring struct {
	Pass    int          `json:"pass"`
	Points  []geom.Point `json:"points"`
	Kind    BoundaryKind `json:"kind"`
	Spacing float64      `json:"spacing"` // distance from the parent ring (first pass: D/2 + margin)
	Parent  int          `json:"parent"`  // index into Result.Rings of the parent's outer ring, -1 on the first pass
}

// Area returns the absolute enclosed area of the ring.
func (r Ring) Area() float64 { return geom.Area(r.Points) }

// Polygon is a simple outer boundary with zero or more holes.
type Polygon struct {
	Outer []geom.Point   `json:"outer"`
	Holes [][]geom.Point `json:"holes,omitempty"`
}

// Area returns the outer area minus the hole areas.
func (p Polygon) Area() float64 {
	a := geom.Area(p.Outer)
	for _, h := range p.Holes {
		a -= geom.Area(h)
	}
	return a
}

// Perimeter returns the total boundary length, holes included.
func (p Polygon) Perimeter() float64 {
	l := geom.Perimeter(p.Outer)
	for _, h := range p.Holes {
		l += geom.Perimeter(h)
	}
	return l
}

// Contains reports whether pt lies inside the outer boundary and outside
// every hole.
func (p Polygon) Contains(pt geom.Point) bool {
	if !geom.Contains(p.Outer, pt) {
		return false
	}
	for _, h := range p.Holes {
		if geom.Contains(h, pt) {
			return false
		}
	}
	return true
}

// Spacer picks the distance to the next pass for one polygon group.
type Spacer interface {
	Spacing(p Polygon, pass int, nominal float64) float64
}

// ConstantSpacing always returns the nominal spacing.
type ConstantSpacing struct{}

func (ConstantSpacing) Spacing(_ Polygon, _ int, nominal float64) float64 { return nominal }

// Result holds the rings in machining order plus the tool-center domain.
type Result struct {
	Rings []Ring `json:"rings"`
	// Domain is the first-pass region: every point the tool center may
	// visit without cutting past a boundary.
	Domain      []Polygon `json:"domain"`
	Spacing     float64   `json:"spacing"` // nominal spacing after clamping
	Diagnostics diag.List `json:"diagnostics"`
}

type options struct {
	spacer    Spacer
	maxPasses int
	tolerance float64
	arcTol    float64
	kernel    kernel.Kernel
}

// Option configures Inward.
type Option func(*options)

// WithSpacer sets the per-group spacing policy.
func WithSpacer(s Spacer) Option { return func(o *options) { o.spacer = s } }

// WithMaxPasses bounds the number of passes.
func WithMaxPasses(n int) Option { return func(o *options) { o.maxPasses = n } }

// WithTolerance sets the geometric tolerance used for clearance checks
// and for classifying unclassified loops.
func WithTolerance(tol float64) Option { return func(o *options) { o.tolerance = tol } }

// WithArcTolerance sets the chord deviation for round joins.
func WithArcTolerance(tol float64) Option { return func(o *options) { o.arcTol = tol } }

// WithKernel sets the distance kernel used for island clearance.
func WithKernel(k kernel.Kernel) Option { return func(o *options) { o.kernel = k } }

// engine carries the state of one Inward call.
type engine struct {
	opts        options
	diameter    float64
	minSpacing  float64
	maxSpacing  float64
	nominal     float64
	clearance   float64
	k           kernel.Kernel
	islands     kernel.Shape
	hasIslands  bool
	res         *Result
	clampedOnce bool
	limitOnce   bool
}

// Inward offsets the region bounded by the outer loop in loops, with every
// island as a hole, and returns the rings in machining order. Loops with no
// role assigned are classified first.
//
// stepoverFraction is clamped to [MinStepover, MaxStepover] and the
// resulting spacing to [0.3 D, 0.7 D], each with a warning. If the tool
// does not fit anywhere in the region the result has zero rings and the
// error is a *diag.Error with code ToolTooLargeForPocket.
func Inward(loops []contour.Loop, toolDiameter, stepoverFraction, margin float64, opts ...Option) (*Result, error) {
	o := options{
		spacer:    ConstantSpacing{},
		maxPasses: DefaultMaxPasses,
		tolerance: geom.DefaultTolerance,
		arcTol:    DefaultArcTolerance,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.kernel == nil {
		o.kernel = sdfx.New()
	}

	switch {
	case !(toolDiameter > 0) || math.IsInf(toolDiameter, 0):
		return nil, fmt.Errorf("offset: %w", diag.Contractf("tool diameter must be positive, got %g", toolDiameter))
	case !(margin >= 0) || math.IsInf(margin, 0):
		return nil, fmt.Errorf("offset: %w", diag.Contractf("margin must be non-negative, got %g", margin))
	case math.IsNaN(stepoverFraction):
		return nil, fmt.Errorf("offset: %w", diag.Contractf("stepover fraction is NaN"))
	case o.maxPasses <= 0:
		return nil, fmt.Errorf("offset: %w", diag.Contractf("max passes must be positive, got %d", o.maxPasses))
	}

	res := &Result{}
	outer, islands, err := split(loops, o.tolerance)
	if err != nil {
		return res, err
	}

	frac := geom.Clamp(stepoverFraction, MinStepover, MaxStepover)
	if frac != stepoverFraction {
		res.Diagnostics = append(res.Diagnostics, diag.Warn(diag.StepoverClamped,
			"stepover fraction %.3f clamped to %.3f", stepoverFraction, frac))
	}
	e := &engine{
		opts:       o,
		diameter:   toolDiameter,
		minSpacing: MinSpacingFraction * toolDiameter,
		maxSpacing: MaxSpacingFraction * toolDiameter,
		clearance:  toolDiameter/2 + margin - o.tolerance,
		k:          o.kernel,
		res:        res,
	}
	spacing := toolDiameter * frac
	e.nominal = geom.Clamp(spacing, e.minSpacing, e.maxSpacing)
	if e.nominal != spacing {
		res.Diagnostics = append(res.Diagnostics, diag.Warn(diag.SpacingClamped,
			"spacing %.3f mm clamped to %.3f mm (allowed %.3f-%.3f mm for a %.2f mm tool)",
			spacing, e.nominal, e.minSpacing, e.maxSpacing, toolDiameter))
	}
	res.Spacing = e.nominal

	if err := e.buildIslands(islands); err != nil {
		return res, err
	}

	region := Polygon{Outer: outer.Points}
	for _, isl := range islands {
		region.Holes = append(region.Holes, isl.Points)
	}
	first := toolDiameter/2 + margin
	lobes := e.keep(offsetPolygon(region, -first, o.arcTol), 0)
	if len(lobes) == 0 {
		b := outer.Bounds()
		f := diag.Fail(diag.ToolTooLargeForPocket,
			"tool diameter %.2f mm (margin %.2f mm) exceeds pocket width: nothing fits inside the %.2f x %.2f mm boundary; use a smaller tool",
			toolDiameter, margin, b.Width(), b.Height())
		res.Diagnostics = append(res.Diagnostics, f)
		return res, diag.NewError(f)
	}
	res.Domain = lobes

	cursor := outer.Points[0]
	for _, lobe := range nearestFirst(lobes, cursor) {
		cursor = e.grow(lobe, 0, first, -1, cursor)
	}
	if len(res.Rings) == 0 {
		f := diag.Fail(diag.ToolTooLargeForPocket,
			"tool diameter %.2f mm (margin %.2f mm) cannot pass between the islands and the boundary; use a smaller tool",
			toolDiameter, margin)
		res.Diagnostics = append(res.Diagnostics, f)
		return res, diag.NewError(f)
	}
	return res, nil
}

// split picks the outer loop and islands, classifying when needed.
func split(loops []contour.Loop, tol float64) (contour.Loop, []contour.Loop, error) {
	var outer []contour.Loop
	var islands []contour.Loop
	for _, l := range loops {
		switch l.Role {
		case contour.RoleOuter:
			outer = append(outer, l)
		case contour.RoleIsland:
			islands = append(islands, l)
		}
	}
	if len(outer) != 1 {
		cls, err := contour.Classify(loops, tol)
		if err != nil {
			return contour.Loop{}, nil, fmt.Errorf("offset: %w", err)
		}
		o, ok := cls.Outer()
		if !ok {
			f := diag.Fail(diag.DegenerateLoop, "no outer loop to offset")
			return contour.Loop{}, nil, diag.NewError(f)
		}
		return o, cls.Islands(), nil
	}
	for i := range islands {
		islands[i] = islands[i].Normalized()
	}
	return outer[0].Normalized(), islands, nil
}

func (e *engine) buildIslands(islands []contour.Loop) error {
	if len(islands) == 0 {
		return nil
	}
	shapes := make([]kernel.Shape, 0, len(islands))
	for i, isl := range islands {
		s, err := e.k.Polygon(isl.Points)
		if err != nil {
			return fmt.Errorf("offset: island %d: %w", i, err)
		}
		shapes = append(shapes, s)
	}
	e.islands = e.k.Union(shapes...)
	e.hasIslands = true
	return nil
}

// keep drops lobes below MinRingArea with a warning.
func (e *engine) keep(lobes []Polygon, pass int) []Polygon {
	var out []Polygon
	for _, l := range lobes {
		if a := l.Area(); a < MinRingArea {
			if a > geom.Epsilon {
				e.res.Diagnostics = append(e.res.Diagnostics, diag.Warn(diag.LobeDiscarded,
					"pass %d: lobe of %.4f mm² below %.1f mm² discarded", pass, a, MinRingArea))
			}
			continue
		}
		out = append(out, l)
	}
	return out
}

// clear reports whether every ring of p keeps the required distance from
// the islands.
func (e *engine) clear(p Polygon, pass int) bool {
	if !e.hasIslands {
		return true
	}
	step := math.Max(e.opts.tolerance, e.diameter/8)
	for _, ring := range append([][]geom.Point{p.Outer}, p.Holes...) {
		d, at := kernel.Clearance(e.k, e.islands, ring, step)
		if d < e.clearance {
			e.res.Diagnostics = append(e.res.Diagnostics, diag.Warn(diag.IslandClearance,
				"pass %d: ring comes within %.3f mm of an island at %v (needs %.3f mm); branch ends",
				pass, d, at, e.clearance))
			return false
		}
	}
	return true
}

// grow emits the rings of p and then recurses into the polygons one
// spacing further in. It returns the cursor: where the tool ends up.
func (e *engine) grow(p Polygon, pass int, spacing float64, parent int, cursor geom.Point) geom.Point {
	if !e.clear(p, pass) {
		return cursor
	}

	outerIdx := len(e.res.Rings)
	e.res.Rings = append(e.res.Rings, Ring{Pass: pass, Points: p.Outer, Kind: BoundaryOuter, Spacing: spacing, Parent: parent})
	cursor = nearestVertex(p.Outer, cursor)
	for _, h := range nearestRingsFirst(p.Holes, cursor) {
		e.res.Rings = append(e.res.Rings, Ring{Pass: pass, Points: h, Kind: BoundaryHole, Spacing: spacing, Parent: parent})
		cursor = nearestVertex(h, cursor)
	}

	if pass+1 >= e.opts.maxPasses {
		if !e.limitOnce {
			e.limitOnce = true
			e.res.Diagnostics = append(e.res.Diagnostics, diag.Warn(diag.PassLimit,
				"stopped at %d passes; region may not be fully cleared", e.opts.maxPasses))
		}
		return cursor
	}

	s := e.spacing(p, pass)
	children := e.keep(offsetPolygon(p, -s, e.opts.arcTol), pass+1)
	if len(children) == 0 && s > e.minSpacing+geom.Epsilon {
		// Finishing pass at the minimum spacing for the leftover core.
		s = e.minSpacing
		children = e.keep(offsetPolygon(p, -s, e.opts.arcTol), pass+1)
	}
	for _, c := range nearestFirst(children, cursor) {
		cursor = e.grow(c, pass+1, s, outerIdx, cursor)
	}
	return cursor
}

func (e *engine) spacing(p Polygon, pass int) float64 {
	want := e.opts.spacer.Spacing(p, pass, e.nominal)
	got := geom.Clamp(want, e.minSpacing, e.maxSpacing)
	if got != want && !e.clampedOnce {
		e.clampedOnce = true
		e.res.Diagnostics = append(e.res.Diagnostics, diag.Warn(diag.SpacingClamped,
			"pass %d: requested spacing %.3f mm clamped to %.3f mm", pass, want, got))
	}
	return got
}

// nearestVertex returns the vertex of ring closest to p.
func nearestVertex(ring []geom.Point, p geom.Point) geom.Point {
	best, bd := ring[0], math.Inf(1)
	for _, q := range ring {
		if d := q.DistSq(p); d < bd {
			best, bd = q, d
		}
	}
	return best
}

// nearestFirst orders polygons greedily, each next one being the closest
// to where the previous left off.
func nearestFirst(polys []Polygon, from geom.Point) []Polygon {
	rings := make([][]geom.Point, len(polys))
	for i, p := range polys {
		rings[i] = p.Outer
	}
	order := greedyOrder(rings, from)
	out := make([]Polygon, len(order))
	for i, k := range order {
		out[i] = polys[k]
	}
	return out
}

func nearestRingsFirst(rings [][]geom.Point, from geom.Point) [][]geom.Point {
	order := greedyOrder(rings, from)
	out := make([][]geom.Point, len(order))
	for i, k := range order {
		out[i] = rings[k]
	}
	return out
}

func greedyOrder(rings [][]geom.Point, from geom.Point) []int {
	used := make([]bool, len(rings))
	order := make([]int, 0, len(rings))
	for len(order) < len(rings) {
		best, bd := -1, math.Inf(1)
		for i, r := range rings {
			if used[i] {
				continue
			}
			if d := geom.DistToRing(from, r); d < bd {
				best, bd = i, d
			}
		}
		used[best] = true
		order = append(order, best)
		from = nearestVertex(rings[best], from)
	}
	return order
}
