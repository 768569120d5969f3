package offset

import (
	"errors"
	"math"
	"testing"

	clipper "github.com/ctessum/go.clipper"

	"github.com/chazu/gouge/pkg/contour"
	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/geom"
)

func classified(t *testing.T, loops ...contour.Loop) []contour.Loop {
	t.Helper()
	res, err := contour.Classify(loops, geom.DefaultTolerance)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	return res.Loops
}

func TestInwardRectangle(t *testing.T) {
	// 100 x 60 mm pocket, 6 mm tool, 45% stepover.
	res, err := Inward(classified(t, contour.Rect(0, 0, 100, 60)), 6, 0.45, 0)
	if err != nil {
		t.Fatalf("Inward: %v", err)
	}
	if len(res.Rings) < 5 {
		t.Fatalf("got %d rings, want a full sequence", len(res.Rings))
	}
	if !geom.Approx(res.Spacing, 2.7, 1e-9) {
		t.Errorf("Spacing = %v, want 2.7", res.Spacing)
	}

	first := res.Rings[0]
	if first.Pass != 0 || first.Kind != BoundaryOuter || first.Parent != -1 {
		t.Errorf("first ring = pass %d kind %v parent %d", first.Pass, first.Kind, first.Parent)
	}
	b := geom.Bounds(first.Points)
	if !geom.Approx(b.Min.X, 3, 1e-3) || !geom.Approx(b.Max.Y, 57, 1e-3) {
		t.Errorf("first ring bounds = %+v, want inset by the tool radius", b)
	}

	for i := 1; i < len(res.Rings); i++ {
		prev, cur := res.Rings[i-1], res.Rings[i]
		if cur.Area() >= prev.Area() {
			t.Errorf("ring %d area %.3f not smaller than ring %d area %.3f", i, cur.Area(), i-1, prev.Area())
		}
		if cur.Pass != prev.Pass+1 {
			t.Errorf("ring %d pass = %d, want %d", i, cur.Pass, prev.Pass+1)
		}
		if cur.Spacing < 0.3*6-1e-9 || cur.Spacing > 0.7*6+1e-9 {
			t.Errorf("ring %d spacing %.3f outside [1.8, 4.2]", i, cur.Spacing)
		}
		if !geom.RingInside(cur.Points, prev.Points) {
			t.Errorf("ring %d is not nested inside ring %d", i, i-1)
		}
	}

	// The innermost ring sits close to the centerline y = 30.
	last := geom.Bounds(res.Rings[len(res.Rings)-1].Points)
	if last.Height() > 2*res.Spacing {
		t.Errorf("innermost ring height %.3f, want < %.3f", last.Height(), 2*res.Spacing)
	}
	if len(res.Domain) != 1 {
		t.Errorf("Domain has %d polygons, want 1", len(res.Domain))
	}
}

func TestInwardIsland(t *testing.T) {
	const d = 6.0
	outer, island := contour.Rect(0, 0, 100, 60), contour.Rect(30, 15, 40, 30)
	loops := classified(t, outer, island)
	res, err := Inward(loops, d, 0.45, 0)
	if err != nil {
		t.Fatalf("Inward: %v", err)
	}
	if res.Diagnostics.Has(diag.IslandClearance) {
		t.Errorf("unexpected clearance warning: %v", res.Diagnostics)
	}

	islandPts := loops[1].Points
	for i, r := range res.Rings {
		if geom.RingsIntersect(r.Points, islandPts) {
			t.Fatalf("ring %d crosses the island", i)
		}
		for _, p := range r.Points {
			if geom.Contains(islandPts, p) {
				t.Fatalf("ring %d has a point inside the island: %v", i, p)
			}
			if dist := geom.DistToRing(p, islandPts); dist < d/2-0.05 {
				t.Fatalf("ring %d point %v only %.3f mm from the island", i, p, dist)
			}
		}
	}

	var holes int
	for _, r := range res.Rings {
		if r.Kind == BoundaryHole {
			holes++
		}
	}
	if holes == 0 {
		t.Error("expected hole rings around the island")
	}

	// Every point of the material at least 1 mm from a wall is within the
	// tool radius of some ring.
	for x := 0.5; x < 100; x += 1 {
		for y := 0.5; y < 60; y += 1 {
			p := geom.Pt(x, y)
			if geom.Contains(islandPts, p) {
				continue
			}
			if geom.DistToRing(p, outer.Points) < 1 || geom.DistToRing(p, islandPts) < 1 {
				continue
			}
			best := math.Inf(1)
			for _, r := range res.Rings {
				best = math.Min(best, geom.DistToRing(p, r.Points))
			}
			if best > d/2+1e-6 {
				t.Fatalf("point %v left uncut: nearest ring %.3f mm away", p, best)
			}
		}
	}
}

func TestInwardToolTooLarge(t *testing.T) {
	res, err := Inward(classified(t, contour.Rect(0, 0, 100, 60)), 61, 0.45, 0)
	if !diag.Is(err, diag.ToolTooLargeForPocket) {
		t.Fatalf("err = %v, want ToolTooLargeForPocket", err)
	}
	if res == nil || len(res.Rings) != 0 {
		t.Fatalf("want zero rings, got %+v", res)
	}
	if !res.Diagnostics.Has(diag.ToolTooLargeForPocket) {
		t.Error("diagnostic missing from result")
	}
	t.Logf("message: %v", err)
}

func TestInwardMarginCountsAgainstFit(t *testing.T) {
	// A 50 mm tool fits a 60 mm wide pocket, but not with 6 mm of stock left.
	loops := classified(t, contour.Rect(0, 0, 100, 60))
	if _, err := Inward(loops, 50, 0.45, 0); err != nil {
		t.Fatalf("without margin: %v", err)
	}
	if _, err := Inward(loops, 50, 0.45, 6); !diag.Is(err, diag.ToolTooLargeForPocket) {
		t.Fatalf("with margin: err = %v, want ToolTooLargeForPocket", err)
	}
}

func TestInwardContract(t *testing.T) {
	loops := classified(t, contour.Rect(0, 0, 100, 60))
	tests := []struct {
		name           string
		diameter, step float64
		margin         float64
	}{
		{"zero diameter", 0, 0.45, 0},
		{"negative diameter", -6, 0.45, 0},
		{"negative margin", 6, 0.45, -1},
		{"nan stepover", 6, math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inward(loops, tt.diameter, tt.step, tt.margin)
			if !errors.Is(err, diag.ErrContract) {
				t.Errorf("err = %v, want contract violation", err)
			}
		})
	}
}

func TestInwardClamps(t *testing.T) {
	loops := classified(t, contour.Rect(0, 0, 100, 60))
	tests := []struct {
		name        string
		stepover    float64
		wantSpacing float64
		wantStep    bool
		wantSpace   bool
	}{
		{"in range", 0.5, 3.0, false, false},
		{"tiny stepover", 0.01, 1.8, true, true},
		{"wide stepover", 0.8, 4.2, false, true},
		{"huge stepover", 2, 4.2, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Inward(loops, 6, tt.stepover, 0)
			if err != nil {
				t.Fatalf("Inward: %v", err)
			}
			if !geom.Approx(res.Spacing, tt.wantSpacing, 1e-9) {
				t.Errorf("Spacing = %v, want %v", res.Spacing, tt.wantSpacing)
			}
			if got := res.Diagnostics.Has(diag.StepoverClamped); got != tt.wantStep {
				t.Errorf("StepoverClamped = %v, want %v", got, tt.wantStep)
			}
			if got := res.Diagnostics.Has(diag.SpacingClamped); got != tt.wantSpace {
				t.Errorf("SpacingClamped = %v, want %v", got, tt.wantSpace)
			}
		})
	}
}

type fixedSpacer float64

func (f fixedSpacer) Spacing(Polygon, int, float64) float64 { return float64(f) }

func TestInwardSpacerIsClamped(t *testing.T) {
	res, err := Inward(classified(t, contour.Rect(0, 0, 100, 60)), 6, 0.45, 0, WithSpacer(fixedSpacer(10)))
	if err != nil {
		t.Fatalf("Inward: %v", err)
	}
	if res.Diagnostics.Count(diag.SpacingClamped) != 1 {
		t.Errorf("want one SpacingClamped warning, got %v", res.Diagnostics)
	}
	for i, r := range res.Rings[1:] {
		if r.Spacing > 4.2+1e-9 {
			t.Errorf("ring %d spacing %.3f above 0.7 D", i+1, r.Spacing)
		}
	}
}

func TestInwardMaxPasses(t *testing.T) {
	res, err := Inward(classified(t, contour.Rect(0, 0, 100, 60)), 6, 0.45, 0, WithMaxPasses(3))
	if err != nil {
		t.Fatalf("Inward: %v", err)
	}
	if len(res.Rings) != 3 {
		t.Errorf("got %d rings, want 3", len(res.Rings))
	}
	if !res.Diagnostics.Has(diag.PassLimit) {
		t.Error("expected PassLimit warning")
	}
}

func TestInwardClassifiesRawLoops(t *testing.T) {
	res, err := Inward([]contour.Loop{contour.Rect(30, 15, 40, 30), contour.Rect(0, 0, 100, 60)}, 6, 0.45, 0)
	if err != nil {
		t.Fatalf("Inward: %v", err)
	}
	if len(res.Rings) < 2 || res.Rings[1].Kind != BoundaryHole {
		t.Errorf("expected the smaller loop to be treated as an island")
	}
}

func TestInwardNormalizesAssignedRoles(t *testing.T) {
	// Roles set by the caller with the island left counter-clockwise.
	outer, island := contour.Rect(0, 0, 100, 60), contour.Rect(30, 15, 40, 30)
	outer.Role, island.Role = contour.RoleOuter, contour.RoleIsland
	if geom.SignedArea(island.Points) <= 0 {
		t.Fatal("fixture island should start counter-clockwise")
	}

	res, err := Inward([]contour.Loop{outer, island}, 6, 0.45, 0)
	if err != nil {
		t.Fatalf("Inward: %v", err)
	}
	want, err := Inward(classified(t, contour.Rect(0, 0, 100, 60), contour.Rect(30, 15, 40, 30)), 6, 0.45, 0)
	if err != nil {
		t.Fatalf("Inward (classified): %v", err)
	}
	if len(res.Rings) == 0 || len(res.Rings) != len(want.Rings) {
		t.Fatalf("got %d rings, want %d", len(res.Rings), len(want.Rings))
	}
	if res.Diagnostics.Has(diag.IslandClearance) {
		t.Errorf("unexpected clearance warning: %v", res.Diagnostics)
	}
	for i, r := range res.Rings {
		if geom.RingsIntersect(r.Points, island.Points) {
			t.Fatalf("ring %d crosses the island", i)
		}
	}
}

func TestInwardRejectsBadIslands(t *testing.T) {
	_, err := Inward([]contour.Loop{contour.Rect(0, 0, 100, 60), contour.Rect(90, 15, 40, 30)}, 6, 0.45, 0)
	if !diag.Is(err, diag.IslandContainmentViolation) {
		t.Fatalf("err = %v, want IslandContainmentViolation", err)
	}
}

// dumbbell is two 40 mm squares joined by a corridor of the given width.
func dumbbell(corridor float64) contour.Loop {
	lo, hi := 20-corridor/2, 20+corridor/2
	return contour.NewLoop(
		geom.Pt(0, 0), geom.Pt(40, 0), geom.Pt(40, lo), geom.Pt(60, lo),
		geom.Pt(60, 0), geom.Pt(100, 0), geom.Pt(100, 40), geom.Pt(60, 40),
		geom.Pt(60, hi), geom.Pt(40, hi), geom.Pt(40, 40), geom.Pt(0, 40),
	)
}

func TestInwardBowtieKeepsEveryLobe(t *testing.T) {
	res, err := Inward(classified(t, dumbbell(4)), 6, 0.45, 0)
	if err != nil {
		t.Fatalf("Inward: %v", err)
	}
	if len(res.Domain) != 2 {
		t.Fatalf("Domain has %d lobes, want 2", len(res.Domain))
	}
	var firstPass int
	for _, r := range res.Rings {
		if r.Pass == 0 {
			firstPass++
		}
		if geom.Area(r.Points) < MinRingArea {
			t.Errorf("ring below minimum area: %v", geom.Area(r.Points))
		}
	}
	if firstPass != 2 {
		t.Errorf("got %d first-pass rings, want one per lobe", firstPass)
	}

	// Both lobes are machined completely before the walk moves on: the
	// rings of each lobe form one contiguous block.
	side := func(r Ring) bool { return geom.Centroid(r.Points).X < 50 }
	switches := 0
	for i := 1; i < len(res.Rings); i++ {
		if side(res.Rings[i]) != side(res.Rings[i-1]) {
			switches++
		}
	}
	if switches != 1 {
		t.Errorf("lobes interleaved: %d switches", switches)
	}
}

func TestInwardDiscardsTinyLobe(t *testing.T) {
	// A 6.4 mm bump hanging off a narrow corridor: after a 3 mm inset only
	// a sliver well under 1 mm² is left of it.
	loop := contour.NewLoop(
		geom.Pt(0, 0), geom.Pt(40, 0), geom.Pt(40, 18), geom.Pt(50, 18),
		geom.Pt(50, 16.8), geom.Pt(56.4, 16.8), geom.Pt(56.4, 23.2), geom.Pt(50, 23.2),
		geom.Pt(50, 22), geom.Pt(40, 22), geom.Pt(40, 40), geom.Pt(0, 40),
	)
	res, err := Inward(classified(t, loop), 6, 0.45, 0)
	if err != nil {
		t.Fatalf("Inward: %v", err)
	}
	if !res.Diagnostics.Has(diag.LobeDiscarded) {
		t.Errorf("expected LobeDiscarded, got %v", res.Diagnostics)
	}
	if len(res.Domain) != 1 {
		t.Errorf("Domain has %d lobes, want 1", len(res.Domain))
	}
}

func TestNestAssignsHoles(t *testing.T) {
	outer := []geom.Point{{0, 0}, {50, 0}, {50, 50}, {0, 50}}
	hole := []geom.Point{{10, 10}, {20, 10}, {20, 20}, {10, 20}}
	other := []geom.Point{{60, 0}, {70, 0}, {70, 10}, {60, 10}}
	polys := nest(clipper.Paths{toPath(outer), toPath(hole), toPath(other)})
	if len(polys) != 2 {
		t.Fatalf("got %d polygons, want 2", len(polys))
	}
	if len(polys[0].Holes) != 1 || len(polys[1].Holes) != 0 {
		t.Errorf("holes = %d/%d, want 1/0", len(polys[0].Holes), len(polys[1].Holes))
	}
	if !geom.IsCCW(polys[0].Outer) || geom.IsCCW(polys[0].Holes[0]) {
		t.Error("orientation not normalized")
	}
	if !geom.Approx(polys[0].Area(), 2400, 1e-6) {
		t.Errorf("Area = %v, want 2400", polys[0].Area())
	}
}
