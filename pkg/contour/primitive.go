package contour

import (
	"fmt"
	"math"

	"github.com/chazu/gouge/pkg/geom"
)

// DefaultChordTolerance is the maximum sagitta (mm) allowed when sampling
// curves into points.
const DefaultChordTolerance = 0.01

// Primitive is a raw drawing segment: a Line or a SampledCurve.
type Primitive interface {
	Start() geom.Point
	End() geom.Point
	// Points returns the ordered sample points, endpoints included.
	Points() []geom.Point
	Length() float64
	primitive() // marker method restricting implementations to this package
}

// ---------------------------------------------------------------------------
// Line
// ---------------------------------------------------------------------------

// Line is a straight segment from A to B.
type Line struct {
	A geom.Point `json:"a"`
	B geom.Point `json:"b"`
}

func (l Line) Start() geom.Point    { return l.A }
func (l Line) End() geom.Point      { return l.B }
func (l Line) Points() []geom.Point { return []geom.Point{l.A, l.B} }
func (l Line) Length() float64      { return l.A.Dist(l.B) }
func (Line) primitive()             {}
func (l Line) String() string       { return fmt.Sprintf("line %v-%v", l.A, l.B) }

// ---------------------------------------------------------------------------
// SampledCurve
// ---------------------------------------------------------------------------

// SampledCurve is a curved segment already flattened into points at a
// bounded chord error.
type SampledCurve struct {
	Pts []geom.Point `json:"points"`
}

func (c SampledCurve) Start() geom.Point {
	if len(c.Pts) == 0 {
		return geom.Point{}
	}
	return c.Pts[0]
}

func (c SampledCurve) End() geom.Point {
	if len(c.Pts) == 0 {
		return geom.Point{}
	}
	return c.Pts[len(c.Pts)-1]
}

func (c SampledCurve) Points() []geom.Point { return geom.Clone(c.Pts) }
func (c SampledCurve) Length() float64      { return geom.PolylineLength(c.Pts) }
func (SampledCurve) primitive()             {}

func (c SampledCurve) String() string {
	return fmt.Sprintf("curve %v..%v (%d pts)", c.Start(), c.End(), len(c.Pts))
}

// arcSegments returns the number of chords needed to keep the sagitta of
// an arc of the given radius and sweep below chordTol.
func arcSegments(radius, sweep, chordTol float64) int {
	if chordTol <= 0 {
		chordTol = DefaultChordTolerance
	}
	if radius <= chordTol {
		return max(3, int(math.Ceil(math.Abs(sweep)/(math.Pi/2))))
	}
	step := 2 * math.Acos(1-chordTol/radius)
	n := int(math.Ceil(math.Abs(sweep) / step))
	return max(n, 1)
}

// SampleArc flattens a circular arc. Angles are in radians; the arc runs
// counter-clockwise when end > start and clockwise otherwise.
func SampleArc(center geom.Point, radius, start, end, chordTol float64) SampledCurve {
	sweep := end - start
	n := arcSegments(radius, sweep, chordTol)
	pts := make([]geom.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		a := start + sweep*float64(i)/float64(n)
		pts = append(pts, geom.Point{
			X: center.X + radius*math.Cos(a),
			Y: center.Y + radius*math.Sin(a),
		})
	}
	return SampledCurve{Pts: pts}
}

// SampleCircle flattens a full circle into a closed curve whose first and
// last points coincide exactly.
func SampleCircle(center geom.Point, radius, chordTol float64) SampledCurve {
	c := SampleArc(center, radius, 0, 2*math.Pi, chordTol)
	c.Pts[len(c.Pts)-1] = c.Pts[0]
	return c
}

// Split cuts p into consecutive Line primitives no longer than maxLen.
// Useful for feeding sampled geometry back through reconstruction.
func Split(p Primitive, maxLen float64) []Primitive {
	pts := p.Points()
	var out []Primitive
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		n := max(1, int(math.Ceil(a.Dist(b)/maxLen)))
		prev := a
		for k := 1; k <= n; k++ {
			next := a.Lerp(b, float64(k)/float64(n))
			if k == n {
				next = b
			}
			out = append(out, Line{A: prev, B: next})
			prev = next
		}
	}
	return out
}
