// Package fillet replaces sharp corners of a stitched path with tangent
// arcs of bounded radius.
package fillet

import (
	"fmt"
	"math"

	"github.com/chazu/gouge/pkg/contour"
	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/geom"
	"github.com/chazu/gouge/pkg/spiral"
)

const (
	DefaultMinRadius = 0.5
	DefaultMaxRadius = 25.0

	// SharpAngle is the included angle below which a corner is filleted.
	SharpAngle = 2 * math.Pi / 3

	// ChordTolerance is the sagitta used to sample inserted arcs.
	ChordTolerance = 0.01
)

// Annotation records one inserted fillet. Start and End index the arc's
// tangent points in the output run; the points between them lie on the arc.
type Annotation struct {
	Run       int           `json:"run"`
	Start     int           `json:"start"`
	End       int           `json:"end"`
	Vertex    int           `json:"vertex"` // corner index in the input run
	Angle     float64       `json:"angle"`  // included angle, radians
	Radius    float64       `json:"radius"`
	Center    geom.Point    `json:"center"`
	Clockwise bool          `json:"clockwise"`
	Window    [3]geom.Point `json:"window"` // previous point, corner, next point
}

func (a Annotation) String() string {
	dir := "ccw"
	if a.Clockwise {
		dir = "cw"
	}
	return fmt.Sprintf("fillet r=%.3f %s at run %d [%d:%d] (%.1f°)",
		a.Radius, dir, a.Run, a.Start, a.End, a.Angle*180/math.Pi)
}

// corner is a planned fillet at one vertex.
type corner struct {
	angle      float64
	radius     float64
	t1, t2     geom.Point
	center     geom.Point
	clockwise  bool
	prev, next geom.Point
}

// Inject fillets every interior corner of path sharper than SharpAngle.
// The radius is the largest r ≤ maxRadius whose tangent points fit on
// both adjacent segments; a segment shared with another sharp corner is
// split evenly between the two. Corners needing r < minRadius stay sharp.
// Closed runs stay closed. The input path is not modified.
func Inject(path spiral.Path, minRadius, maxRadius float64) (spiral.Path, []Annotation, error) {
	if !(minRadius > 0) || !(maxRadius >= minRadius) || math.IsInf(maxRadius, 0) {
		return spiral.Path{}, nil, fmt.Errorf("fillet: %w", diag.Contractf(
			"radius bounds must satisfy 0 < min <= max, got min %g max %g", minRadius, maxRadius))
	}
	out := spiral.Path{Runs: make([]spiral.Run, 0, len(path.Runs))}
	var notes []Annotation
	for ri, run := range path.Runs {
		pts, anns := injectRun(run, minRadius, maxRadius)
		for i := range anns {
			anns[i].Run = ri
		}
		notes = append(notes, anns...)
		out.Runs = append(out.Runs, spiral.Run{Points: pts, Closed: run.Closed})
	}
	return out, notes, nil
}

func injectRun(run spiral.Run, minR, maxR float64) ([]geom.Point, []Annotation) {
	pts := run.Points
	closed := run.Closed && len(pts) > 3 && pts[0].Near(pts[len(pts)-1], geom.Epsilon)
	if closed {
		pts = pts[:len(pts)-1]
	}
	n := len(pts)
	if n < 3 {
		return geom.Clone(run.Points), nil
	}

	// neighbor is only called for interior vertices.
	neighbor := func(i, d int) geom.Point { return pts[(i+d+n)%n] }
	interior := func(i int) bool { return closed || (i > 0 && i < n-1) }

	// Included angles and sharpness of every corner.
	angle := make([]float64, n)
	sharp := make([]bool, n)
	for i := 0; i < n; i++ {
		if !interior(i) {
			continue
		}
		a := neighbor(i, -1)
		b := neighbor(i, 1)
		if a.Dist(pts[i]) < geom.Epsilon || b.Dist(pts[i]) < geom.Epsilon {
			continue
		}
		angle[i] = geom.IncludedAngle(a, pts[i], b)
		sharp[i] = angle[i] < SharpAngle
	}

	corners := make([]*corner, n)
	for i := 0; i < n; i++ {
		if !sharp[i] {
			continue
		}
		a := neighbor(i, -1)
		b := neighbor(i, 1)
		availA := a.Dist(pts[i])
		if sharp[(i-1+n)%n] {
			availA /= 2
		}
		availB := b.Dist(pts[i])
		if sharp[(i+1)%n] {
			availB /= 2
		}
		half := angle[i] / 2
		r := math.Min(maxR, math.Min(availA, availB)*math.Tan(half))
		if r < minR {
			continue
		}
		t := r / math.Tan(half)
		ua, ub := a.Sub(pts[i]).Unit(), b.Sub(pts[i]).Unit()
		bis := ua.Add(ub).Unit()
		corners[i] = &corner{
			angle:     angle[i],
			radius:    r,
			t1:        pts[i].Add(ua.Scale(t)),
			t2:        pts[i].Add(ub.Scale(t)),
			center:    pts[i].Add(bis.Scale(r / math.Sin(half))),
			clockwise: geom.TurnAngle(a, pts[i], b) < 0,
			prev:      a,
			next:      b,
		}
	}

	var out []geom.Point
	push := func(p geom.Point) int {
		if len(out) > 0 && out[len(out)-1].Near(p, geom.Epsilon) {
			return len(out) - 1
		}
		out = append(out, p)
		return len(out) - 1
	}
	var anns []Annotation
	for i := 0; i < n; i++ {
		c := corners[i]
		if c == nil {
			push(pts[i])
			continue
		}
		start := push(c.t1)
		for _, p := range arcPoints(c) {
			push(p)
		}
		end := push(c.t2)
		anns = append(anns, Annotation{
			Start:     start,
			End:       end,
			Vertex:    i,
			Angle:     c.angle,
			Radius:    c.radius,
			Center:    c.center,
			Clockwise: c.clockwise,
			Window:    [3]geom.Point{c.prev, pts[i], c.next},
		})
	}
	if closed {
		if out[len(out)-1].Near(out[0], geom.Epsilon) {
			out[len(out)-1] = out[0]
		} else {
			out = append(out, out[0])
		}
	}
	return out, anns
}

// arcPoints samples the interior of a corner's arc, tangent points
// excluded.
func arcPoints(c *corner) []geom.Point {
	a1 := c.t1.Sub(c.center).Angle()
	sweep := math.Pi - c.angle
	a2 := a1 + sweep
	if c.clockwise {
		a2 = a1 - sweep
	}
	arc := contour.SampleArc(c.center, c.radius, a1, a2, ChordTolerance)
	if len(arc.Pts) <= 2 {
		return nil
	}
	return arc.Pts[1 : len(arc.Pts)-1]
}
