package geom

import (
	"math"
	"testing"
)

func rect(x, y, w, h float64) []Point {
	return []Point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
}

func TestSignedArea(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want float64
	}{
		{"empty", nil, 0},
		{"two points", []Point{{0, 0}, {1, 1}}, 0},
		{"ccw square", rect(0, 0, 10, 10), 100},
		{"cw square", Reversed(rect(0, 0, 10, 10)), -100},
		{"closing duplicate", append(rect(0, 0, 4, 5), Point{0, 0}), 20},
		{"triangle", []Point{{0, 0}, {4, 0}, {0, 3}}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SignedArea(tt.pts); !Approx(got, tt.want, 1e-9) {
				t.Errorf("SignedArea() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPerimeter(t *testing.T) {
	if got := Perimeter(rect(0, 0, 100, 60)); !Approx(got, 320, 1e-9) {
		t.Errorf("Perimeter() = %v, want 320", got)
	}
	if got := PolylineLength(rect(0, 0, 100, 60)); !Approx(got, 260, 1e-9) {
		t.Errorf("PolylineLength() = %v, want 260", got)
	}
}

func TestContains(t *testing.T) {
	sq := rect(0, 0, 10, 10)
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{5, 5}, true},
		{Point{0.1, 9.9}, true},
		{Point{-1, 5}, false},
		{Point{11, 5}, false},
		{Point{5, 20}, false},
	}
	for _, tt := range tests {
		if got := Contains(sq, tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestSegmentsIntersect(t *testing.T) {
	tests := []struct {
		name       string
		a, b, c, d Point
		want       bool
		wantCross  bool
	}{
		{"crossing", Point{0, 0}, Point{10, 10}, Point{0, 10}, Point{10, 0}, true, true},
		{"parallel", Point{0, 0}, Point{10, 0}, Point{0, 1}, Point{10, 1}, false, false},
		{"touching endpoint", Point{0, 0}, Point{5, 0}, Point{5, 0}, Point{5, 5}, true, false},
		{"collinear overlap", Point{0, 0}, Point{5, 0}, Point{3, 0}, Point{8, 0}, true, false},
		{"disjoint", Point{0, 0}, Point{1, 1}, Point{3, 3}, Point{4, 5}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentsIntersect(tt.a, tt.b, tt.c, tt.d); got != tt.want {
				t.Errorf("SegmentsIntersect() = %v, want %v", got, tt.want)
			}
			if got := SegmentsCross(tt.a, tt.b, tt.c, tt.d); got != tt.wantCross {
				t.Errorf("SegmentsCross() = %v, want %v", got, tt.wantCross)
			}
		})
	}
}

func TestRingInside(t *testing.T) {
	outer := rect(0, 0, 100, 60)
	if !RingInside(rect(30, 15, 40, 30), outer) {
		t.Error("centered island should be inside outer")
	}
	if RingInside(rect(90, 15, 40, 30), outer) {
		t.Error("island crossing the outer edge should not be inside")
	}
	if RingInside(rect(0, 15, 40, 30), outer) {
		t.Error("island sharing the outer edge should not be inside")
	}
}

func TestIncludedAndTurnAngle(t *testing.T) {
	a, b, c := Point{0, 0}, Point{10, 0}, Point{10, 10}
	if got := IncludedAngle(a, b, c); !Approx(got, math.Pi/2, 1e-12) {
		t.Errorf("IncludedAngle() = %v, want π/2", got)
	}
	if got := TurnAngle(a, b, c); !Approx(got, math.Pi/2, 1e-12) {
		t.Errorf("TurnAngle() = %v, want +π/2 (left turn)", got)
	}
	if got := TurnAngle(c, b, a); !Approx(got, -math.Pi/2, 1e-12) {
		t.Errorf("TurnAngle() = %v, want -π/2 (right turn)", got)
	}
	if got := IncludedAngle(a, b, Point{20, 0}); !Approx(got, math.Pi, 1e-12) {
		t.Errorf("IncludedAngle() straight = %v, want π", got)
	}
}

func TestDistances(t *testing.T) {
	sq := rect(0, 0, 10, 10)
	if got := DistToRing(Point{5, 5}, sq); !Approx(got, 5, 1e-12) {
		t.Errorf("DistToRing() = %v, want 5", got)
	}
	if got := DistToSegment(Point{5, 3}, Point{0, 0}, Point{10, 0}); !Approx(got, 3, 1e-12) {
		t.Errorf("DistToSegment() = %v, want 3", got)
	}
	if got := DistToPolyline(Point{-3, 4}, []Point{{0, 0}, {10, 0}}); !Approx(got, 5, 1e-12) {
		t.Errorf("DistToPolyline() = %v, want 5", got)
	}
}

func TestCentroid(t *testing.T) {
	c := Centroid(rect(0, 0, 100, 60))
	if !c.Near(Point{50, 30}, 1e-9) {
		t.Errorf("Centroid() = %v, want (50, 30)", c)
	}
}

func TestBounds(t *testing.T) {
	b := Bounds(rect(-5, 2, 10, 3))
	if b.Min != (Point{-5, 2}) || b.Max != (Point{5, 5}) {
		t.Errorf("Bounds() = %+v", b)
	}
	if b.Width() != 10 || b.Height() != 3 {
		t.Errorf("Width/Height = %v/%v", b.Width(), b.Height())
	}
}
