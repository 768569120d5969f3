// Package overlay writes the diagnostic side channels of a job (offset
// rings, stitched path, fillets, overload zones, links and plunges) to
// files an external viewer can open: a layered DXF drawing and a JSON
// report.
package overlay

import (
	"fmt"
	"math"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"

	"github.com/chazu/gouge/pkg/geom"
	"github.com/chazu/gouge/pkg/pipeline"
	"github.com/chazu/gouge/pkg/toolpath"
)

// DXF layer names.
const (
	LayerRings     = "RINGS"
	LayerPath      = "PATH"
	LayerFillets   = "FILLETS"
	LayerOverloads = "OVERLOADS"
	LayerLinks     = "LINKS"
	LayerPlunges   = "PLUNGES"
)

// PlungeMarkerRadius is the radius of the circle drawn at each plunge.
const PlungeMarkerRadius = 1.0

var layers = []struct {
	name  string
	color color.ColorNumber
}{
	{LayerRings, color.Cyan},
	{LayerPath, color.White},
	{LayerFillets, color.Green},
	{LayerOverloads, color.Red},
	{LayerLinks, color.Yellow},
	{LayerPlunges, color.Magenta},
}

// Stats counts the entities written per kind.
type Stats struct {
	Regions  int // regions drawn; failed regions are skipped
	Lines    int
	Arcs     int
	Circles  int
	Overload int // overload segments, also counted in Lines
}

func (s Stats) String() string {
	return fmt.Sprintf("%d regions: %d lines, %d arcs, %d circles", s.Regions, s.Lines, s.Arcs, s.Circles)
}

// WriteDXF draws every successful region of results into one drawing and
// saves it at path.
func WriteDXF(path string, results []pipeline.RegionResult) (Stats, error) {
	var st Stats
	d := dxf.NewDrawing()
	for _, l := range layers {
		d.AddLayer(l.name, l.color, dxf.DefaultLineType, false)
	}

	line := func(a, b geom.Point) {
		d.Line(a.X, a.Y, 0, b.X, b.Y, 0)
		st.Lines++
	}
	polyline := func(pts []geom.Point, closed bool) {
		for i := 1; i < len(pts); i++ {
			line(pts[i-1], pts[i])
		}
		if closed && len(pts) > 2 {
			line(pts[len(pts)-1], pts[0])
		}
	}

	for i := range results {
		res := &results[i]
		if !res.OK() {
			continue
		}
		st.Regions++

		d.ChangeLayer(LayerRings)
		for _, r := range res.Rings {
			polyline(r.Points, true)
		}

		d.ChangeLayer(LayerPath)
		for _, run := range res.Path.Runs {
			polyline(run.Points, false)
		}

		d.ChangeLayer(LayerFillets)
		for _, f := range res.Fillets {
			pts := res.Path.Runs[f.Run].Points
			start, end := degrees(f.Center, pts[f.Start]), degrees(f.Center, pts[f.End])
			if f.Clockwise {
				start, end = end, start
			}
			d.Arc(f.Center.X, f.Center.Y, 0, f.Radius, start, end)
			st.Arcs++
		}

		d.ChangeLayer(LayerOverloads)
		for _, z := range res.Overloads {
			pts := res.Path.Runs[z.Run].Points
			if z.Start == z.End {
				// A single sharp vertex.
				p := pts[z.Start]
				d.Circle(p.X, p.Y, 0, PlungeMarkerRadius/2)
				st.Circles++
				continue
			}
			n := st.Lines
			polyline(pts[z.Start:z.End+1], false)
			st.Overload += st.Lines - n
		}

		d.ChangeLayer(LayerLinks)
		for j := 1; j < len(res.Path.Runs); j++ {
			prev, next := res.Path.Runs[j-1].Points, res.Path.Runs[j].Points
			if len(prev) == 0 || len(next) == 0 {
				continue
			}
			line(prev[len(prev)-1], next[0])
		}

		d.ChangeLayer(LayerPlunges)
		for _, m := range res.Moves {
			if m.Kind == toolpath.MovePlunge {
				d.Circle(m.To.X, m.To.Y, 0, PlungeMarkerRadius)
				st.Circles++
			}
		}
	}

	if err := d.SaveAs(path); err != nil {
		return st, fmt.Errorf("overlay: save %s: %w", path, err)
	}
	return st, nil
}

// degrees returns the direction from c to p in degrees, in [0, 360).
func degrees(c, p geom.Point) float64 {
	a := math.Atan2(p.Y-c.Y, p.X-c.X) * 180 / math.Pi
	if a < 0 {
		a += 360
	}
	return a
}
