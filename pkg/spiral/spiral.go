// Package spiral stitches offset rings into a tool path: either one
// continuous spiral that links each ring to the next without lifting the
// tool, or discrete closed lanes separated by retracts.
package spiral

import (
	"fmt"
	"math"

	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/geom"
	"github.com/chazu/gouge/pkg/offset"
)

// Mode selects how rings are joined.
type Mode int

const (
	ModeSpiral Mode = iota // continuous, no retract between rings
	ModeLanes              // one closed run per ring
)

func (m Mode) String() string {
	switch m {
	case ModeSpiral:
		return "spiral"
	case ModeLanes:
		return "lanes"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a strategy name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "spiral", "":
		return ModeSpiral, nil
	case "lanes":
		return ModeLanes, nil
	default:
		return 0, fmt.Errorf("spiral: unknown strategy %q", s)
	}
}

// tieEpsilon decides when two candidate distances are equal.
const tieEpsilon = 1e-9

// Run is a continuous tool motion. A retract separates consecutive runs.
// Closed runs repeat their first point at the end.
type Run struct {
	Points []geom.Point `json:"points"`
	Closed bool         `json:"closed"`
}

// Path is the stitched tool path for one region.
type Path struct {
	Runs []Run `json:"runs"`
}

// Retracts returns the number of retract/plunge pairs between runs.
func (p Path) Retracts() int {
	if len(p.Runs) == 0 {
		return 0
	}
	return len(p.Runs) - 1
}

// Len returns the total number of points.
func (p Path) Len() int {
	n := 0
	for _, r := range p.Runs {
		n += len(r.Points)
	}
	return n
}

// Length returns the total cutting length, excluding retracts.
func (p Path) Length() float64 {
	l := 0.0
	for _, r := range p.Runs {
		l += geom.PolylineLength(r.Points)
	}
	return l
}

// Clone returns a deep copy of p.
func (p Path) Clone() Path {
	out := Path{Runs: make([]Run, len(p.Runs))}
	for i, r := range p.Runs {
		out.Runs[i] = Run{Points: geom.Clone(r.Points), Closed: r.Closed}
	}
	return out
}

// Options configures Stitch.
type Options struct {
	Mode Mode
	// Climb reverses the traversal direction of every ring.
	Climb bool
	// Domain, when set, is the region the tool center may travel through.
	// Spiral links leaving it are replaced by a retract.
	Domain    []offset.Polygon
	Tolerance float64
}

// Stitch joins rings, given in machining order, into a Path.
func Stitch(rings []offset.Ring, opts Options) (Path, diag.List) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = geom.DefaultTolerance
	}
	var (
		path  Path
		diags diag.List
		cur   *Run
	)
	for i, ring := range rings {
		pts := ring.Points
		if len(pts) < 3 {
			continue
		}
		// Entry ties resolve on the ring's own vertex order, whatever the
		// traversal direction.
		start := 0
		if cur != nil {
			start = nearestIndex(pts, cur.Points[len(cur.Points)-1])
		}
		if opts.Climb {
			pts = geom.Reversed(pts)
			start = len(pts) - 1 - start
		}
		pts = rotate(pts, start)
		loop := append(geom.Clone(pts), pts[0])

		switch {
		case cur == nil:
			path.Runs = append(path.Runs, Run{Points: loop})
		case opts.Mode == ModeLanes:
			path.Runs = append(path.Runs, Run{Points: loop})
		default:
			end := cur.Points[len(cur.Points)-1]
			if opts.Domain != nil && !linkInside(end, loop[0], opts.Domain, opts.Tolerance) {
				diags = append(diags, diag.Warn(diag.UnsafeLink,
					"link from %v to ring %d leaves the tool-center region; retracting", end, i).At(i))
				path.Runs = append(path.Runs, Run{Points: loop})
			} else {
				cur.Points = append(cur.Points, loop...)
			}
		}
		cur = &path.Runs[len(path.Runs)-1]
	}
	for i := range path.Runs {
		r := &path.Runs[i]
		r.Closed = len(r.Points) > 3 && r.Points[0] == r.Points[len(r.Points)-1]
	}
	return path, diags
}

// nearestIndex returns the index of the vertex of pts closest to p; on a
// tie the lower index wins.
func nearestIndex(pts []geom.Point, p geom.Point) int {
	best, bd := 0, math.Inf(1)
	for i, q := range pts {
		if d := q.Dist(p); d < bd-tieEpsilon {
			best, bd = i, d
		}
	}
	return best
}

// rotate returns a copy of pts starting at index k.
func rotate(pts []geom.Point, k int) []geom.Point {
	out := make([]geom.Point, 0, len(pts))
	out = append(out, pts[k:]...)
	return append(out, pts[:k]...)
}

// linkInside reports whether the straight link a→b stays within the
// domain: no boundary is crossed and sample points along it are inside or
// on the boundary.
func linkInside(a, b geom.Point, domain []offset.Polygon, tol float64) bool {
	for _, poly := range domain {
		for _, ring := range append([][]geom.Point{poly.Outer}, poly.Holes...) {
			n := len(ring)
			for i := 0; i < n; i++ {
				if geom.SegmentsCross(a, b, ring[i], ring[(i+1)%n]) {
					return false
				}
			}
		}
	}
	for _, t := range []float64{0.25, 0.5, 0.75} {
		p := a.Lerp(b, t)
		if !inDomain(p, domain, tol) {
			return false
		}
	}
	return true
}

func inDomain(p geom.Point, domain []offset.Polygon, tol float64) bool {
	for _, poly := range domain {
		if poly.Contains(p) {
			return true
		}
		if geom.DistToRing(p, poly.Outer) <= tol {
			return true
		}
		for _, h := range poly.Holes {
			if geom.DistToRing(p, h) <= tol {
				return true
			}
		}
	}
	return false
}
