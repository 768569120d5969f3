package contour

import (
	"fmt"

	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/geom"
)

// Result is the output of reconstruction or classification. Loops holds
// the outer loop first, followed by islands in input order.
type Result struct {
	Loops       []Loop    `json:"loops"`
	Diagnostics diag.List `json:"diagnostics"`
	// Open lists the primitive indices of every connected group that did
	// not close into a loop.
	Open [][]int `json:"open,omitempty"`
}

// Outer returns the outer loop, or false when there is none.
func (r *Result) Outer() (Loop, bool) {
	for _, l := range r.Loops {
		if l.Role == RoleOuter {
			return l, true
		}
	}
	return Loop{}, false
}

// Islands returns the island loops in order.
func (r *Result) Islands() []Loop {
	var out []Loop
	for _, l := range r.Loops {
		if l.Role == RoleIsland {
			out = append(out, l)
		}
	}
	return out
}

// Classify validates and orients already-extracted loops. Each loop is
// cleaned up; loops that are open or enclose less than geom.MinLoopArea
// are dropped with a warning. The largest remaining loop becomes the
// outer boundary (counter-clockwise) and every other loop an island
// (clockwise).
//
// Islands must lie strictly inside the outer loop and must not overlap
// each other; violations are returned as a *diag.Error with code
// IslandContainmentViolation alongside the partially populated result.
// When loops were supplied but none survive, a DegenerateLoop error is
// returned.
func Classify(loops []Loop, tol float64) (*Result, error) {
	if tol <= 0 {
		return nil, diag.Contractf("tolerance must be positive, got %g", tol)
	}
	res := &Result{}
	if len(loops) == 0 {
		return res, nil
	}

	type candidate struct {
		index int
		loop  Loop
		area  float64
	}
	var cands []candidate
	for i, l := range loops {
		if len(l.Points) < 3 {
			res.Diagnostics = append(res.Diagnostics,
				diag.Warn(diag.DegenerateLoop, "loop %d dropped: only %d points", i, len(l.Points)).At(i))
			continue
		}
		if !l.Closed && !geom.IsClosed(l.Points, tol) {
			res.Diagnostics = append(res.Diagnostics,
				diag.Warn(diag.OpenPath, "loop %d is not closed: endpoints %v and %v are %.4f mm apart",
					i, l.Points[0], l.Points[len(l.Points)-1], l.Points[0].Dist(l.Points[len(l.Points)-1])).At(i))
			continue
		}
		pts := Cleanup(l.Points, tol)
		area := geom.Area(pts)
		if len(pts) < 3 || area < geom.MinLoopArea {
			res.Diagnostics = append(res.Diagnostics,
				diag.Warn(diag.DegenerateLoop, "loop %d dropped: %d points, area %.4f mm² below %.1f mm²",
					i, len(pts), area, geom.MinLoopArea).At(i))
			continue
		}
		cands = append(cands, candidate{index: i, loop: Loop{Points: pts, Closed: true}, area: area})
	}

	if len(cands) == 0 {
		f := diag.Fail(diag.DegenerateLoop, "no closed loop with area of at least %.1f mm² remains out of %d", geom.MinLoopArea, len(loops))
		res.Diagnostics = append(res.Diagnostics, f)
		return res, diag.NewError(f)
	}

	outerIdx := 0
	for i, c := range cands {
		if c.area > cands[outerIdx].area {
			outerIdx = i
		}
	}
	outer := cands[outerIdx].loop
	outer.Role = RoleOuter
	outer = outer.withWinding(true)
	res.Loops = append(res.Loops, outer)

	var islands []candidate
	for i, c := range cands {
		if i == outerIdx {
			continue
		}
		c.loop.Role = RoleIsland
		c.loop = c.loop.withWinding(false)
		islands = append(islands, c)
		res.Loops = append(res.Loops, c.loop)
	}

	var violations []diag.Diagnostic
	for _, isl := range islands {
		if !geom.RingInside(isl.loop.Points, outer.Points) {
			violations = append(violations, diag.Fail(diag.IslandContainmentViolation,
				"island loop %d is not strictly inside the outer loop %d", isl.index, cands[outerIdx].index).At(isl.index))
		}
	}
	for i := 0; i < len(islands); i++ {
		for j := i + 1; j < len(islands); j++ {
			a, b := islands[i].loop.Points, islands[j].loop.Points
			if geom.RingsIntersect(a, b) || geom.Contains(a, b[0]) || geom.Contains(b, a[0]) {
				violations = append(violations, diag.Fail(diag.IslandContainmentViolation,
					"island loops %d and %d overlap", islands[i].index, islands[j].index).At(islands[j].index))
			}
		}
	}
	if len(violations) > 0 {
		res.Diagnostics = append(res.Diagnostics, violations...)
		return res, diag.NewError(violations...)
	}
	return res, nil
}

// Reconstruct chains raw primitives into closed loops and classifies them.
// Two endpoints join when they are within tol of each other. Degenerate
// primitives are skipped; primitives that cannot be closed into a loop are
// reported as OpenPath warnings, one per connected group.
func Reconstruct(prims []Primitive, tol float64) (*Result, error) {
	if tol <= 0 {
		return nil, diag.Contractf("tolerance must be positive, got %g", tol)
	}
	var (
		kept  []Primitive
		orig  []int // kept index -> input index
		diags diag.List
	)
	for i, p := range prims {
		pts := p.Points()
		ok := len(pts) >= 2
		for _, q := range pts {
			ok = ok && q.IsFinite()
		}
		if !ok || p.Length() < geom.Epsilon {
			diags = append(diags, diag.Warn(diag.DegeneratePrimitive, "primitive %d has no usable extent", i).At(i))
			continue
		}
		kept = append(kept, p)
		orig = append(orig, i)
	}

	g := newGraph(kept, tol)
	c := &chainer{g: g, used: make([]bool, len(kept)), budget: 64*len(kept) + 1024}
	var loops []Loop
	for s := range kept {
		if c.used[s] {
			continue
		}
		// A single primitive that closes on itself, such as a sampled circle.
		if pts := kept[s].Points(); len(pts) >= 3 && geom.IsClosed(pts, tol) {
			c.used[s] = true
			loops = append(loops, Loop{Points: pts, Closed: true})
			continue
		}
		chain, ok := c.findCycle(s)
		if !ok {
			continue
		}
		for _, e := range chain {
			c.used[e.prim()] = true
		}
		loops = append(loops, Loop{Points: g.points(chain), Closed: true})
	}

	var leftover []int
	for i, u := range c.used {
		if !u {
			leftover = append(leftover, i)
		}
	}
	var open [][]int
	for _, group := range g.components(leftover) {
		ids := make([]int, len(group))
		for i, k := range group {
			ids[i] = orig[k]
		}
		open = append(open, ids)
		msg := fmt.Sprintf("%d primitive(s) starting at #%d do not close", len(ids), ids[0])
		if ends := g.freeEnds(group); len(ends) > 0 {
			msg += fmt.Sprintf("; free end at %v", ends[0])
		}
		diags = append(diags, diag.Warn(diag.OpenPath, "%s", msg).At(ids[0]))
	}

	res, err := Classify(loops, tol)
	if res == nil {
		return nil, err
	}
	res.Diagnostics = append(diags, res.Diagnostics...)
	res.Open = open
	return res, err
}
