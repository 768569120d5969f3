package contour

import (
	"math"
	"testing"

	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/geom"
)

func rectLines(x, y, w, h float64) []Primitive {
	return Rect(x, y, w, h).Primitives()
}

func TestReconstructRectangle(t *testing.T) {
	// Shuffled and partly reversed edges of a 100 x 60 rectangle.
	prims := []Primitive{
		Line{A: geom.Pt(100, 60), B: geom.Pt(100, 0)},
		Line{A: geom.Pt(0, 0), B: geom.Pt(100, 0)},
		Line{A: geom.Pt(0, 60), B: geom.Pt(0, 0)},
		Line{A: geom.Pt(0, 60), B: geom.Pt(100, 60)},
	}
	res, err := Reconstruct(prims, 0.1)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(res.Loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(res.Loops))
	}
	outer := res.Loops[0]
	if outer.Role != RoleOuter {
		t.Errorf("Role = %v, want outer", outer.Role)
	}
	if !geom.Approx(outer.SignedArea(), 6000, 1e-9) {
		t.Errorf("SignedArea = %v, want +6000 (counter-clockwise)", outer.SignedArea())
	}
	if len(outer.Points) != 4 {
		t.Errorf("got %d points, want 4", len(outer.Points))
	}
}

func TestReconstructGapWithinTolerance(t *testing.T) {
	prims := []Primitive{
		Line{A: geom.Pt(0, 0), B: geom.Pt(50, 0)},
		Line{A: geom.Pt(50.05, 0.02), B: geom.Pt(50, 40)},
		Line{A: geom.Pt(50, 40), B: geom.Pt(0, 40.04)},
		Line{A: geom.Pt(0, 40), B: geom.Pt(0.03, 0)},
	}
	res, err := Reconstruct(prims, 0.1)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(res.Loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(res.Loops))
	}
	if res.Diagnostics.Has(diag.OpenPath) {
		t.Errorf("unexpected OpenPath: %v", res.Diagnostics)
	}
}

func TestReconstructWithIsland(t *testing.T) {
	prims := rectLines(0, 0, 100, 60)
	prims = append(prims, SampleCircle(geom.Pt(50, 30), 10, DefaultChordTolerance))

	res, err := Reconstruct(prims, 0.1)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(res.Loops) != 2 {
		t.Fatalf("got %d loops, want 2", len(res.Loops))
	}
	islands := res.Islands()
	if len(islands) != 1 {
		t.Fatalf("got %d islands, want 1", len(islands))
	}
	if islands[0].SignedArea() >= 0 {
		t.Errorf("island should wind clockwise, signed area %v", islands[0].SignedArea())
	}
	want := math.Pi * 100
	if got := islands[0].Area(); math.Abs(got-want) > 0.5 {
		t.Errorf("island area = %v, want ~%v", got, want)
	}
	if outer, ok := res.Outer(); !ok || !geom.Approx(outer.Area(), 6000, 1e-9) {
		t.Errorf("outer = %+v, ok=%v", outer, ok)
	}
}

func TestReconstructRoundTrip(t *testing.T) {
	in := []Loop{Rect(0, 0, 120, 80), Rect(20, 20, 30, 30), Rect(70, 20, 30, 40)}
	first, err := Classify(in, 0.1)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	var prims []Primitive
	for _, l := range first.Loops {
		for _, p := range l.Primitives() {
			prims = append(prims, Split(p, 7)...)
		}
	}
	again, err := Reconstruct(prims, 0.1)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(again.Loops) != len(first.Loops) {
		t.Fatalf("got %d loops, want %d", len(again.Loops), len(first.Loops))
	}
	for i, l := range first.Loops {
		got := again.Loops[i]
		if got.Role != l.Role {
			t.Errorf("loop %d role = %v, want %v", i, got.Role, l.Role)
		}
		if !geom.Approx(got.SignedArea(), l.SignedArea(), 1e-6) {
			t.Errorf("loop %d signed area = %v, want %v", i, got.SignedArea(), l.SignedArea())
		}
		if len(got.Points) != len(l.Points) {
			t.Errorf("loop %d has %d points, want %d", i, len(got.Points), len(l.Points))
			continue
		}
		for _, p := range l.Points {
			found := false
			for _, q := range got.Points {
				if p.Near(q, 1e-9) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("loop %d lost vertex %v", i, p)
			}
		}
	}
}

func TestCleanupIdempotent(t *testing.T) {
	messy := []geom.Point{
		{0, 0}, {0.01, 0}, {25, 0}, {50, 0}, {50, 20}, {50, 20.02},
		{50, 40}, {20, 40}, {0, 40}, {0, 20}, {0, 0.05},
	}
	once := Cleanup(messy, 0.1)
	if len(once) != 4 {
		t.Fatalf("Cleanup left %d points, want 4: %v", len(once), once)
	}
	twice := Cleanup(once, 0.1)
	if len(twice) != len(once) {
		t.Fatalf("second Cleanup changed length %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("point %d changed: %v -> %v", i, once[i], twice[i])
		}
	}
}

func TestCleanupDropsSpike(t *testing.T) {
	pts := []geom.Point{{0, 0}, {10, 0}, {10, 10}, {10, 20}, {10, 10}, {0, 10}}
	got := Cleanup(pts, 0.1)
	if len(got) != 4 {
		t.Errorf("Cleanup() = %v, want the spike removed", got)
	}
}

func TestReconstructOpenGap(t *testing.T) {
	prims := []Primitive{
		Line{A: geom.Pt(0, 0), B: geom.Pt(10, 0)},
		Line{A: geom.Pt(10.5, 0), B: geom.Pt(20, 0)},
	}
	res, err := Reconstruct(prims, 0.1)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(res.Loops) != 0 {
		t.Errorf("got %d loops, want 0", len(res.Loops))
	}
	if !res.Diagnostics.Has(diag.OpenPath) {
		t.Errorf("expected OpenPath warning, got %v", res.Diagnostics)
	}
	if len(res.Open) != 2 {
		t.Errorf("Open = %v, want two separate groups", res.Open)
	}
}

func TestReconstructDanglingSpur(t *testing.T) {
	prims := rectLines(0, 0, 100, 60)
	prims = append(prims, Line{A: geom.Pt(0, 0), B: geom.Pt(-10, -10)})
	res, err := Reconstruct(prims, 0.1)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(res.Loops) != 1 {
		t.Fatalf("got %d loops, want 1", len(res.Loops))
	}
	if n := res.Diagnostics.Count(diag.OpenPath); n != 1 {
		t.Errorf("OpenPath count = %d, want 1", n)
	}
	if len(res.Open) != 1 || res.Open[0][0] != 4 {
		t.Errorf("Open = %v, want [[4]]", res.Open)
	}
}

func TestReconstructEmpty(t *testing.T) {
	res, err := Reconstruct(nil, 0.1)
	if err != nil {
		t.Fatalf("Reconstruct(nil): %v", err)
	}
	if len(res.Loops) != 0 || len(res.Diagnostics) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestReconstructDegeneratePrimitive(t *testing.T) {
	prims := rectLines(0, 0, 10, 10)
	prims = append(prims, Line{A: geom.Pt(3, 3), B: geom.Pt(3, 3)})
	res, err := Reconstruct(prims, 0.1)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if !res.Diagnostics.Has(diag.DegeneratePrimitive) {
		t.Errorf("expected DegeneratePrimitive, got %v", res.Diagnostics)
	}
	if len(res.Loops) != 1 {
		t.Errorf("got %d loops, want 1", len(res.Loops))
	}
}

func TestReconstructRejectsBadTolerance(t *testing.T) {
	for _, tol := range []float64{0, -1} {
		if _, err := Reconstruct(rectLines(0, 0, 1, 1), tol); err == nil {
			t.Errorf("tolerance %v: expected error", tol)
		}
	}
}

func TestClassifyIslandViolations(t *testing.T) {
	tests := []struct {
		name  string
		loops []Loop
	}{
		{"island crosses outer", []Loop{Rect(0, 0, 100, 60), Rect(90, 15, 40, 30)}},
		{"island outside outer", []Loop{Rect(0, 0, 100, 60), Rect(200, 0, 10, 10)}},
		{"islands overlap", []Loop{Rect(0, 0, 100, 60), Rect(10, 10, 30, 30), Rect(30, 20, 30, 30)}},
		{"island inside island", []Loop{Rect(0, 0, 100, 60), Rect(10, 10, 40, 40), Rect(20, 20, 5, 5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Classify(tt.loops, 0.1)
			if !diag.Is(err, diag.IslandContainmentViolation) {
				t.Fatalf("err = %v, want IslandContainmentViolation", err)
			}
			if res == nil || len(res.Diagnostics.Errors()) == 0 {
				t.Errorf("expected error findings in result, got %+v", res)
			}
		})
	}
}

func TestClassifyDegenerate(t *testing.T) {
	// 0.5 x 0.5 mm loop: below the minimum area.
	res, err := Classify([]Loop{Rect(0, 0, 0.5, 0.5)}, 0.01)
	if !diag.Is(err, diag.DegenerateLoop) {
		t.Fatalf("err = %v, want DegenerateLoop", err)
	}
	if len(res.Loops) != 0 {
		t.Errorf("got %d loops, want 0", len(res.Loops))
	}

	// A tiny loop alongside a valid one is only a warning.
	res, err = Classify([]Loop{Rect(0, 0, 50, 50), Rect(10, 10, 0.5, 0.5)}, 0.01)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(res.Loops) != 1 || !res.Diagnostics.Has(diag.DegenerateLoop) {
		t.Errorf("loops=%d diags=%v", len(res.Loops), res.Diagnostics)
	}
}

func TestClassifyOpenLoop(t *testing.T) {
	open := Loop{Points: []geom.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 2}}}
	res, err := Classify([]Loop{Rect(-10, -10, 40, 40), open}, 0.1)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !res.Diagnostics.Has(diag.OpenPath) {
		t.Errorf("expected OpenPath, got %v", res.Diagnostics)
	}
	if len(res.Loops) != 1 {
		t.Errorf("got %d loops, want 1", len(res.Loops))
	}
}

func TestSampleArcChordError(t *testing.T) {
	const r, tol = 40.0, 0.01
	c := SampleArc(geom.Pt(0, 0), r, 0, math.Pi/2, tol)
	if !c.Start().Near(geom.Pt(r, 0), 1e-9) || !c.End().Near(geom.Pt(0, r), 1e-9) {
		t.Fatalf("endpoints %v..%v", c.Start(), c.End())
	}
	for i := 1; i < len(c.Pts); i++ {
		mid := c.Pts[i-1].Lerp(c.Pts[i], 0.5)
		if sag := r - mid.Len(); sag > tol+1e-12 {
			t.Errorf("chord %d sagitta %v exceeds %v", i, sag, tol)
		}
	}

	cw := SampleArc(geom.Pt(0, 0), r, math.Pi/2, 0, tol)
	if !cw.Start().Near(geom.Pt(0, r), 1e-9) {
		t.Errorf("clockwise arc starts at %v", cw.Start())
	}
}

func TestNormalizedWindsByRole(t *testing.T) {
	tests := []struct {
		name string
		role Role
		ccw  bool
	}{
		{"outer", RoleOuter, true},
		{"island", RoleIsland, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, start := range []Loop{Rect(0, 0, 10, 10), Rect(0, 0, 10, 10).withWinding(false)} {
				start.Role = tt.role
				got := start.Normalized()
				if ccw := geom.SignedArea(got.Points) > 0; ccw != tt.ccw {
					t.Errorf("counter-clockwise = %v, want %v", ccw, tt.ccw)
				}
				if got.Role != tt.role || !got.Closed {
					t.Errorf("role %v closed %v after Normalized", got.Role, got.Closed)
				}
			}
		})
	}
}
