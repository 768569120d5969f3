// Package overload scans a finished tool path for tight-radius zones where
// full engagement cannot be held at nominal feed, and recommends a feed
// reduction for each. It never modifies the path.
package overload

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/geom"
	"github.com/chazu/gouge/pkg/spiral"
)

const (
	// ThresholdFactor scales the tool diameter into the radius below which
	// a vertex is tight.
	ThresholdFactor = 0.5

	// SharpTurn is the turn angle at or above which a vertex counts as a
	// corner of radius zero.
	SharpTurn = math.Pi / 3

	MinMultiplier = 0.2
	MaxMultiplier = 0.8

	// minFitPoints is the smallest zone refined by a circle fit.
	minFitPoints = 3
)

// Zone is an advisory record for a contiguous tight stretch of one run.
// Start and End are inclusive point indices.
type Zone struct {
	Run        int     `json:"run"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Radius     float64 `json:"radius"`
	Multiplier float64 `json:"multiplier"`
	Feed       float64 `json:"feed"`
}

func (z Zone) String() string {
	return fmt.Sprintf("overload r=%.3f x%.2f at run %d [%d:%d]", z.Radius, z.Multiplier, z.Run, z.Start, z.End)
}

// Contains reports whether point index i of run lies in the zone.
func (z Zone) Contains(run, i int) bool {
	return run == z.Run && i >= z.Start && i <= z.End
}

// Analyze returns the overload zones of path for a tool of the given
// diameter. Zone.Feed is nominalFeed scaled by the zone multiplier.
func Analyze(path spiral.Path, toolDiameter, nominalFeed float64) ([]Zone, error) {
	if !(toolDiameter > 0) || !(nominalFeed > 0) {
		return nil, fmt.Errorf("overload: %w", diag.Contractf(
			"tool diameter and feed must be positive, got %g and %g", toolDiameter, nominalFeed))
	}
	threshold := ThresholdFactor * toolDiameter
	var zones []Zone
	for ri, run := range path.Runs {
		radii := Radii(run)
		for i := 0; i < len(radii); {
			if radii[i] >= threshold {
				i++
				continue
			}
			j := i
			minR := radii[i]
			for j+1 < len(radii) && radii[j+1] < threshold {
				j++
				minR = math.Min(minR, radii[j])
			}
			r := minR
			if minR > 0 && j-i+1 >= minFitPoints {
				if fit, ok := FitCircle(run.Points[i : j+1]); ok && fit.Radius < threshold {
					r = fit.Radius
				}
			}
			m := Multiplier(r, threshold)
			zones = append(zones, Zone{
				Run:        ri,
				Start:      i,
				End:        j,
				Radius:     r,
				Multiplier: m,
				Feed:       nominalFeed * m,
			})
			i = j + 1
		}
	}
	return zones, nil
}

// Multiplier maps a radius below threshold to a feed multiplier: 0.8 at
// the threshold, falling linearly to exactly 0.2 at zero radius.
func Multiplier(radius, threshold float64) float64 {
	switch {
	case !(threshold > 0) || radius <= 0:
		return MinMultiplier
	case radius >= threshold:
		return MaxMultiplier
	}
	m := MinMultiplier + (MaxMultiplier-MinMultiplier)*(radius/threshold)
	return geom.Clamp(m, MinMultiplier, MaxMultiplier)
}

// Radii returns the discrete radius of curvature at every point of run.
// Straight vertices and open-run endpoints are +Inf; turns of SharpTurn
// or more are 0. Closed runs wrap at the seam and their closing point
// repeats the radius of the first.
func Radii(run spiral.Run) []float64 {
	pts := run.Points
	out := make([]float64, len(pts))
	for i := range out {
		out[i] = math.Inf(1)
	}
	closed := run.Closed && len(pts) > 3 && pts[0].Near(pts[len(pts)-1], geom.Epsilon)
	n := len(pts)
	if closed {
		n--
	}
	if n < 3 {
		return out
	}
	for i := 0; i < n; i++ {
		if !closed && (i == 0 || i == n-1) {
			continue
		}
		a, p, b := pts[(i-1+n)%n], pts[i], pts[(i+1)%n]
		out[i] = vertexRadius(a, p, b)
	}
	if closed {
		out[n] = out[0]
	}
	return out
}

func vertexRadius(a, p, b geom.Point) float64 {
	c := math.Min(a.Dist(p), b.Dist(p))
	if c < geom.Epsilon {
		return math.Inf(1)
	}
	phi := math.Abs(geom.TurnAngle(a, p, b))
	switch {
	case phi >= SharpTurn:
		return 0
	case phi < 1e-9:
		return math.Inf(1)
	}
	return c / (2 * math.Sin(phi/2))
}

// Circle is a fitted circle.
type Circle struct {
	Center geom.Point
	Radius float64
}

// FitCircle fits a circle to pts by linear least squares on
// x² + y² + Dx + Ey + F = 0, solved with a QR factorization. It reports
// false for fewer than three points or collinear input.
func FitCircle(pts []geom.Point) (Circle, bool) {
	n := len(pts)
	if n < minFitPoints {
		return Circle{}, false
	}
	// Work relative to the centroid to keep the system well conditioned.
	o := geom.Point{}
	for _, p := range pts {
		o = o.Add(p)
	}
	o = o.Scale(1 / float64(n))

	A := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i, p := range pts {
		q := p.Sub(o)
		A.Set(i, 0, q.X)
		A.Set(i, 1, q.Y)
		A.Set(i, 2, 1)
		b.SetVec(i, -(q.X*q.X + q.Y*q.Y))
	}

	var qr mat.QR
	qr.Factorize(A)
	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return Circle{}, false
	}
	d, e, f := x.AtVec(0), x.AtVec(1), x.AtVec(2)
	r2 := (d*d+e*e)/4 - f
	if !(r2 > 0) || math.IsInf(r2, 0) {
		return Circle{}, false
	}
	return Circle{Center: o.Add(geom.Pt(-d/2, -e/2)), Radius: math.Sqrt(r2)}, true
}
