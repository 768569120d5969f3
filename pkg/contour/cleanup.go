package contour

import (
	"math"

	"github.com/chazu/gouge/pkg/geom"
)

const (
	// MaxCleanupPasses bounds the cleanup fixed-point iteration.
	MaxCleanupPasses = 10

	// CollinearEpsilon is the largest |sin| of the turn at a vertex for it
	// to be treated as collinear and removed.
	CollinearEpsilon = 1e-7
)

// Cleanup normalizes a closed ring: it removes the closing duplicate,
// merges consecutive points closer than tol and drops collinear or spike
// vertices. Passes repeat until nothing changes or MaxCleanupPasses is
// reached. The input is not modified.
func Cleanup(pts []geom.Point, tol float64) []geom.Point {
	out := geom.Clone(pts)
	for pass := 0; pass < MaxCleanupPasses; pass++ {
		n := len(out)
		out = dropClosing(out, tol)
		out = mergeNear(out, tol)
		out = dropCollinear(out)
		if len(out) == n || len(out) < 3 {
			break
		}
	}
	return out
}

func dropClosing(pts []geom.Point, tol float64) []geom.Point {
	for len(pts) > 1 && pts[0].Near(pts[len(pts)-1], tol) {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func mergeNear(pts []geom.Point, tol float64) []geom.Point {
	if len(pts) < 2 {
		return pts
	}
	out := make([]geom.Point, 0, len(pts))
	out = append(out, pts[0])
	for _, p := range pts[1:] {
		if p.Near(out[len(out)-1], tol) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func collinear(a, b, c geom.Point) bool {
	u, v := b.Sub(a), c.Sub(b)
	lu, lv := u.Len(), v.Len()
	if lu < geom.Epsilon || lv < geom.Epsilon {
		return true
	}
	return math.Abs(u.Cross(v)) <= CollinearEpsilon*lu*lv
}

// dropCollinear removes vertices whose neighbours are collinear with them.
// Reversals (spikes) have zero cross product and are removed as well.
func dropCollinear(pts []geom.Point) []geom.Point {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([]geom.Point, 0, n)
	for i := 0; i < n; i++ {
		prev := pts[(i+n-1)%n]
		if len(out) > 0 {
			prev = out[len(out)-1]
		}
		if collinear(prev, pts[i], pts[(i+1)%n]) {
			continue
		}
		out = append(out, pts[i])
	}
	return out
}
