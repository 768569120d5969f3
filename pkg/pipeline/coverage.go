package pipeline

import (
	"fmt"
	"math"

	"github.com/chazu/gouge/pkg/contour"
	"github.com/chazu/gouge/pkg/kernel"
	"github.com/chazu/gouge/pkg/offset"
	"github.com/chazu/gouge/pkg/spiral"
)

// CoverageGapFraction is the uncovered share of a pocket floor above which
// a CoverageGap warning is raised. Square outer corners alone leave well
// under this.
const CoverageGapFraction = 0.01

// maxCoverageSamples bounds the estimation grid.
const maxCoverageSamples = 4096

// Coverage is the estimated share of the pocket floor swept by the tool.
// Areas are in mm². Links between rings are not counted as cutting.
type Coverage struct {
	Fraction float64 `json:"fraction"`
	Missed   float64 `json:"missed"`
	Area     float64 `json:"area"`
}

func (c Coverage) String() string {
	return fmt.Sprintf("%.1f%% of %.1f mm² (%.2f mm² missed)", 100*c.Fraction, c.Area, c.Missed)
}

// coverage estimates how much of the pocket described by loops, shrunk by
// the margin, lies within the tool radius of some ring or plunge point.
func (r *Runner) coverage(loops []contour.Loop, rings []offset.Ring, path spiral.Path, p Params) (Coverage, error) {
	k := r.kernel
	var (
		outer   kernel.Shape
		islands []kernel.Shape
	)
	for _, l := range loops {
		s, err := k.Polygon(l.Points)
		if err != nil {
			return Coverage{}, fmt.Errorf("pipeline: coverage: %w", err)
		}
		if l.Role == contour.RoleOuter {
			outer = s
		} else {
			islands = append(islands, s)
		}
	}
	if outer == nil {
		return Coverage{}, fmt.Errorf("pipeline: coverage: region has no outer loop")
	}
	floor := k.Difference(outer, k.Union(islands...))
	if p.Margin > 0 {
		floor = k.Offset(floor, -p.Margin)
	}

	radius := p.ToolDiameter / 2
	var swept []kernel.Shape
	for _, ring := range rings {
		s, err := k.Polygon(ring.Points)
		if err != nil {
			return Coverage{}, fmt.Errorf("pipeline: coverage: ring %d: %w", ring.Pass, err)
		}
		// The band of points within one tool radius of the ring.
		swept = append(swept, k.Difference(k.Offset(s, radius), k.Offset(s, -radius)))
	}
	for _, run := range path.Runs {
		if len(run.Points) == 0 {
			continue
		}
		disc, err := k.Circle(run.Points[0], radius)
		if err != nil {
			return Coverage{}, fmt.Errorf("pipeline: coverage: %w", err)
		}
		swept = append(swept, disc)
	}

	b := outer.Bounds()
	step := math.Max(radius/2, math.Sqrt(b.Width()*b.Height()/maxCoverageSamples))
	missed, area := kernel.Uncovered(k, floor, k.Union(swept...), step)
	c := Coverage{Missed: missed, Area: area}
	if area > 0 {
		c.Fraction = 1 - missed/area
	}
	return c, nil
}
