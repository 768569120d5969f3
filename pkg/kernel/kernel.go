// Package kernel defines the abstract 2D region kernel used to verify
// toolpath clearance. Implementations (sdfx) answer signed-distance
// queries against polygonal regions; the abstraction allows swapping
// backends without changing the offset engine.
package kernel

import (
	"math"

	"github.com/chazu/gouge/pkg/geom"
)

// Shape is an opaque handle to a planar region.
// Implementations wrap their internal representation.
type Shape interface {
	// Bounds returns the axis-aligned bounding box.
	Bounds() geom.Rect
}

// Kernel is the abstract 2D region kernel.
type Kernel interface {
	// Primitives
	Polygon(pts []geom.Point) (Shape, error)
	Circle(center geom.Point, radius float64) (Shape, error)

	// Boolean operations
	Union(shapes ...Shape) Shape
	Difference(a, b Shape) Shape

	// Offset grows a shape outward by d (shrinks when d is negative).
	Offset(s Shape, d float64) Shape

	// Distance returns the signed distance from p to the boundary of s:
	// negative inside, positive outside.
	Distance(s Shape, p geom.Point) float64
}

// Clearance walks the closed ring pts, sampling every step along each
// edge, and returns the smallest signed distance to s together with the
// point where it occurs.
func Clearance(k Kernel, s Shape, pts []geom.Point, step float64) (float64, geom.Point) {
	best, at := math.Inf(1), geom.Point{}
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		samples := max(1, int(math.Ceil(a.Dist(b)/step)))
		for j := 0; j < samples; j++ {
			p := a.Lerp(b, float64(j)/float64(samples))
			if d := k.Distance(s, p); d < best {
				best, at = d, p
			}
		}
	}
	return best, at
}

// Uncovered samples the bounds of region on a square grid of the given
// step and returns the estimated area of region lying outside cut,
// together with the estimated area of region itself.
func Uncovered(k Kernel, region, cut Shape, step float64) (missed, area float64) {
	left := k.Difference(region, cut)
	bb := region.Bounds()
	cell := step * step
	for y := bb.Min.Y + step/2; y < bb.Max.Y; y += step {
		for x := bb.Min.X + step/2; x < bb.Max.X; x += step {
			p := geom.Pt(x, y)
			if k.Distance(region, p) >= 0 {
				continue
			}
			area += cell
			if k.Distance(left, p) < 0 {
				missed += cell
			}
		}
	}
	return missed, area
}
