package geom

import "math"

// ClosestOnSegment returns the point on segment ab nearest to p and the
// segment parameter t in [0, 1] at which it lies.
func ClosestOnSegment(p, a, b Point) (Point, float64) {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < Epsilon*Epsilon {
		return a, 0
	}
	t := Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return a.Add(ab.Scale(t)), t
}

// DistToSegment returns the distance from p to segment ab.
func DistToSegment(p, a, b Point) float64 {
	c, _ := ClosestOnSegment(p, a, b)
	return p.Dist(c)
}

// orient returns the sign of the turn a→b→c: +1 left, -1 right, 0 collinear.
func orient(a, b, c Point) int {
	v := b.Sub(a).Cross(c.Sub(a))
	switch {
	case v > Epsilon:
		return 1
	case v < -Epsilon:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether collinear point p lies within the bounding box of ab.
func onSegment(p, a, b Point) bool {
	return p.X <= math.Max(a.X, b.X)+Epsilon && p.X >= math.Min(a.X, b.X)-Epsilon &&
		p.Y <= math.Max(a.Y, b.Y)+Epsilon && p.Y >= math.Min(a.Y, b.Y)-Epsilon
}

// SegmentsIntersect reports whether segments ab and cd share at least one
// point, touching endpoints included.
func SegmentsIntersect(a, b, c, d Point) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(c, a, b) {
		return true
	}
	if o2 == 0 && onSegment(d, a, b) {
		return true
	}
	if o3 == 0 && onSegment(a, c, d) {
		return true
	}
	if o4 == 0 && onSegment(b, c, d) {
		return true
	}
	return false
}

// SegmentsCross reports whether ab and cd intersect at a single interior
// point of both segments. Shared endpoints and collinear overlaps do not count.
func SegmentsCross(a, b, c, d Point) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}

// IncludedAngle returns the angle at b between rays b→a and b→c, in
// radians in [0, π]. A straight run through b yields π.
func IncludedAngle(a, b, c Point) float64 {
	u := a.Sub(b)
	v := c.Sub(b)
	if u.Len() < Epsilon || v.Len() < Epsilon {
		return math.Pi
	}
	return math.Abs(math.Atan2(u.Cross(v), u.Dot(v)))
}

// TurnAngle returns the signed heading change when travelling a→b→c.
// Positive values turn left (counter-clockwise).
func TurnAngle(a, b, c Point) float64 {
	u := b.Sub(a)
	v := c.Sub(b)
	return math.Atan2(u.Cross(v), u.Dot(v))
}
