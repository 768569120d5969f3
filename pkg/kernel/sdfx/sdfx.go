// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx signed distance field library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/gouge/pkg/geom"
	"github.com/chazu/gouge/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// sdfxShape wraps an sdf.SDF2 to implement kernel.Shape.
type sdfxShape struct {
	s sdf.SDF2
}

// Bounds returns the axis-aligned bounding box.
func (s *sdfxShape) Bounds() geom.Rect {
	bb := s.s.BoundingBox()
	return geom.Rect{
		Min: geom.Point{X: bb.Min.X, Y: bb.Min.Y},
		Max: geom.Point{X: bb.Max.X, Y: bb.Max.Y},
	}
}

// unionShape is the pointwise minimum of its parts. It keeps the exact
// distance of every part, which a smoothed union would not.
type unionShape struct {
	parts []sdf.SDF2
}

func (u *unionShape) Evaluate(p v2.Vec) float64 {
	d := math.Inf(1)
	for _, s := range u.parts {
		d = math.Min(d, s.Evaluate(p))
	}
	return d
}

func (u *unionShape) BoundingBox() sdf.Box2 {
	bb := u.parts[0].BoundingBox()
	for _, s := range u.parts[1:] {
		b := s.BoundingBox()
		bb.Min = v2.Vec{X: math.Min(bb.Min.X, b.Min.X), Y: math.Min(bb.Min.Y, b.Min.Y)}
		bb.Max = v2.Vec{X: math.Max(bb.Max.X, b.Max.X), Y: math.Max(bb.Max.Y, b.Max.Y)}
	}
	return bb
}

// emptyShape is the empty region: every point is infinitely far outside.
type emptyShape struct{}

func (emptyShape) Evaluate(v2.Vec) float64 { return math.Inf(1) }
func (emptyShape) BoundingBox() sdf.Box2   { return sdf.Box2{} }

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.SDF2 from a kernel.Shape.
func unwrap(s kernel.Shape) sdf.SDF2 {
	return s.(*sdfxShape).s
}

// wrap creates a kernel.Shape from an sdf.SDF2.
func wrap(s sdf.SDF2) kernel.Shape {
	return &sdfxShape{s: s}
}

func vec(p geom.Point) v2.Vec { return v2.Vec{X: p.X, Y: p.Y} }

// Polygon creates a region bounded by the closed ring pts. Winding does
// not matter.
func (k *SdfxKernel) Polygon(pts []geom.Point) (kernel.Shape, error) {
	if len(pts) < 3 {
		return nil, fmt.Errorf("sdfx: polygon needs at least 3 points, got %d", len(pts))
	}
	vs := make([]v2.Vec, len(pts))
	for i, p := range pts {
		vs[i] = vec(p)
	}
	s, err := sdf.Polygon2D(vs)
	if err != nil {
		return nil, fmt.Errorf("sdfx: polygon: %w", err)
	}
	return wrap(s), nil
}

// Circle creates a disc of the given radius centered at center.
func (k *SdfxKernel) Circle(center geom.Point, radius float64) (kernel.Shape, error) {
	s, err := sdf.Circle2D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: circle: %w", err)
	}
	return wrap(sdf.Transform2D(s, sdf.Translate2d(vec(center)))), nil
}

// Union returns the union of shapes. The union of nothing is empty.
func (k *SdfxKernel) Union(shapes ...kernel.Shape) kernel.Shape {
	if len(shapes) == 0 {
		return wrap(emptyShape{})
	}
	parts := make([]sdf.SDF2, len(shapes))
	for i, s := range shapes {
		parts[i] = unwrap(s)
	}
	return wrap(&unionShape{parts: parts})
}

// Difference returns the region a - b.
func (k *SdfxKernel) Difference(a, b kernel.Shape) kernel.Shape {
	return wrap(sdf.Difference2D(unwrap(a), unwrap(b)))
}

// Offset grows s outward by d.
func (k *SdfxKernel) Offset(s kernel.Shape, d float64) kernel.Shape {
	return wrap(sdf.Offset2D(unwrap(s), d))
}

// Distance evaluates the signed distance field of s at p.
func (k *SdfxKernel) Distance(s kernel.Shape, p geom.Point) float64 {
	return unwrap(s).Evaluate(vec(p))
}
