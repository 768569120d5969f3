package offset

import (
	"math"
	"sort"

	clipper "github.com/ctessum/go.clipper"

	"github.com/chazu/gouge/pkg/geom"
)

// Scale converts millimeters to Clipper's integer grid (0.1 µm).
const Scale = 1e4

// DefaultArcTolerance is the maximum deviation (mm) of the chords Clipper
// uses to approximate round joins.
const DefaultArcTolerance = 0.005

func toPath(pts []geom.Point) clipper.Path {
	path := make(clipper.Path, len(pts))
	for i, p := range pts {
		path[i] = &clipper.IntPoint{
			X: clipper.CInt(math.Round(p.X * Scale)),
			Y: clipper.CInt(math.Round(p.Y * Scale)),
		}
	}
	return path
}

func fromPath(path clipper.Path) []geom.Point {
	pts := make([]geom.Point, len(path))
	for i, ip := range path {
		pts[i] = geom.Point{X: float64(ip.X) / Scale, Y: float64(ip.Y) / Scale}
	}
	return pts
}

// offsetPolygon offsets p by delta mm (negative shrinks the region, which
// grows its holes) and returns the resulting simple polygons with holes.
func offsetPolygon(p Polygon, delta, arcTol float64) []Polygon {
	co := clipper.NewClipperOffset()
	co.ArcTolerance = arcTol * Scale
	co.AddPath(toPath(p.Outer), clipper.JtRound, clipper.EtClosedPolygon)
	for _, h := range p.Holes {
		co.AddPath(toPath(h), clipper.JtRound, clipper.EtClosedPolygon)
	}
	return nest(co.Execute(delta * Scale))
}

// nest rebuilds polygons-with-holes from a flat set of simple rings. A
// ring nested inside an even number of others is an outer boundary; an
// odd count makes it a hole of the smallest outer that contains it.
// Orientation of the input is ignored.
func nest(paths clipper.Paths) []Polygon {
	type entry struct {
		pts   []geom.Point
		area  float64
		depth int
	}
	var rings []entry
	for _, path := range paths {
		pts := fromPath(path)
		a := geom.Area(pts)
		if len(pts) < 3 || a < geom.Epsilon {
			continue
		}
		rings = append(rings, entry{pts: pts, area: a})
	}
	for i := range rings {
		for j := range rings {
			if i != j && rings[j].area > rings[i].area && geom.Contains(rings[j].pts, rings[i].pts[0]) {
				rings[i].depth++
			}
		}
	}

	var out []Polygon
	outerOf := make(map[int]int) // ring index -> index in out
	for i, r := range rings {
		if r.depth%2 == 0 {
			outerOf[i] = len(out)
			out = append(out, Polygon{Outer: ccw(r.pts)})
		}
	}
	for _, r := range rings {
		if r.depth%2 == 0 {
			continue
		}
		best := -1
		for j, o := range rings {
			if o.depth != r.depth-1 || !geom.Contains(o.pts, r.pts[0]) {
				continue
			}
			if best < 0 || o.area < rings[best].area {
				best = j
			}
		}
		if best < 0 {
			continue
		}
		k := outerOf[best]
		out[k].Holes = append(out[k].Holes, cw(r.pts))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Area() > out[j].Area() })
	return out
}

func ccw(pts []geom.Point) []geom.Point {
	if geom.IsCCW(pts) {
		return pts
	}
	return geom.Reversed(pts)
}

func cw(pts []geom.Point) []geom.Point {
	if geom.IsCCW(pts) {
		return geom.Reversed(pts)
	}
	return pts
}
