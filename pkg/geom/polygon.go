package geom

import "math"

// Polygon functions treat a []Point as an implicitly closed ring: the edge
// from the last point back to the first is always included. A duplicated
// closing point is tolerated (it contributes a zero-length edge).

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Bounds returns the bounding box of pts. The zero Rect is returned for
// an empty slice.
func Bounds(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

// Width returns the X extent of r.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the Y extent of r.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of r.
func (r Rect) Center() Point { return r.Min.Lerp(r.Max, 0.5) }

// Contains reports whether p lies inside r, boundary included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// ContainsRect reports whether o lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return r.Contains(o.Min) && r.Contains(o.Max)
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.Min.X <= o.Max.X && r.Max.X >= o.Min.X && r.Min.Y <= o.Max.Y && r.Max.Y >= o.Min.Y
}

// Expand returns r grown by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{Min: Point{r.Min.X - d, r.Min.Y - d}, Max: Point{r.Max.X + d, r.Max.Y + d}}
}

// SignedArea returns the shoelace area of the ring; positive when the
// points wind counter-clockwise.
func SignedArea(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

// Area returns the absolute enclosed area of the ring.
func Area(pts []Point) float64 {
	return math.Abs(SignedArea(pts))
}

// IsCCW reports whether the ring winds counter-clockwise.
func IsCCW(pts []Point) bool {
	return SignedArea(pts) > 0
}

// Perimeter returns the length of the closed ring.
func Perimeter(pts []Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	l := PolylineLength(pts)
	return l + pts[len(pts)-1].Dist(pts[0])
}

// PolylineLength returns the length of the open polyline.
func PolylineLength(pts []Point) float64 {
	var l float64
	for i := 1; i < len(pts); i++ {
		l += pts[i-1].Dist(pts[i])
	}
	return l
}

// Reversed returns a reversed copy of pts.
func Reversed(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// Clone returns a copy of pts.
func Clone(pts []Point) []Point {
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

// Contains reports whether p lies strictly inside the ring, using the
// crossing-number rule. Points on the boundary may go either way.
func Contains(ring []Point, p Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// RingsIntersect reports whether any edge of ring a touches any edge of ring b.
func RingsIntersect(a, b []Point) bool {
	if !Bounds(a).Intersects(Bounds(b)) {
		return false
	}
	for i := range a {
		a1, a2 := a[i], a[(i+1)%len(a)]
		for j := range b {
			if SegmentsIntersect(a1, a2, b[j], b[(j+1)%len(b)]) {
				return true
			}
		}
	}
	return false
}

// RingInside reports whether ring inner lies entirely within ring outer:
// every vertex is inside and no edges touch.
func RingInside(inner, outer []Point) bool {
	if len(inner) == 0 || !Bounds(outer).ContainsRect(Bounds(inner)) {
		return false
	}
	for _, p := range inner {
		if !Contains(outer, p) {
			return false
		}
	}
	return !RingsIntersect(inner, outer)
}

// SegmentCrossesRing reports whether segment ab touches any edge of ring.
func SegmentCrossesRing(a, b Point, ring []Point) bool {
	for i := range ring {
		if SegmentsIntersect(a, b, ring[i], ring[(i+1)%len(ring)]) {
			return true
		}
	}
	return false
}

// DistToRing returns the distance from p to the nearest edge of the ring.
func DistToRing(p Point, ring []Point) float64 {
	best := math.Inf(1)
	for i := range ring {
		if d := DistToSegment(p, ring[i], ring[(i+1)%len(ring)]); d < best {
			best = d
		}
	}
	return best
}

// DistToPolyline returns the distance from p to the nearest segment of the
// open polyline. A single point polyline yields the point distance.
func DistToPolyline(p Point, pts []Point) float64 {
	switch len(pts) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Dist(pts[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		if d := DistToSegment(p, pts[i-1], pts[i]); d < best {
			best = d
		}
	}
	return best
}

// Centroid returns the area centroid of the ring, falling back to the
// vertex average for degenerate rings.
func Centroid(pts []Point) Point {
	a := SignedArea(pts)
	if math.Abs(a) < Epsilon {
		var c Point
		for _, p := range pts {
			c = c.Add(p)
		}
		if len(pts) > 0 {
			c = c.Scale(1 / float64(len(pts)))
		}
		return c
	}
	var cx, cy float64
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		f := pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
		cx += (pts[i].X + pts[j].X) * f
		cy += (pts[i].Y + pts[j].Y) * f
	}
	return Point{X: cx / (6 * a), Y: cy / (6 * a)}
}

// IsClosed reports whether the first and last points coincide within tol.
func IsClosed(pts []Point, tol float64) bool {
	return len(pts) > 1 && pts[0].Near(pts[len(pts)-1], tol)
}
