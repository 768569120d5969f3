// Package toolpath converts a stitched, filleted path into typed motion
// primitives for a downstream post-processor.
package toolpath

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/fillet"
	"github.com/chazu/gouge/pkg/geom"
	"github.com/chazu/gouge/pkg/overload"
	"github.com/chazu/gouge/pkg/spiral"
)

const (
	DefaultSafeZ = 5.0

	// DefaultPlungeRatio derives the plunge feed from the XY feed when no
	// plunge feed is given.
	DefaultPlungeRatio = 0.5
)

// Kind is the type of a Move.
type Kind int

const (
	MoveLinear Kind = iota // straight cut
	MoveArc                // circular cut
	MoveRapid              // positioning at machine rapid rate
	MovePlunge             // vertical feed into material
)

func (k Kind) String() string {
	switch k {
	case MoveLinear:
		return "linear"
	case MoveArc:
		return "arc"
	case MoveRapid:
		return "rapid"
	case MovePlunge:
		return "plunge"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Source is the index range of path points a move was built from.
type Source struct {
	Run   int `json:"run"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Move is one motion primitive. Center, Radius and Clockwise apply to
// arcs only. Rapid moves carry no feed.
type Move struct {
	Kind      Kind       `json:"kind"`
	To        geom.Point `json:"to"`
	Z         float64    `json:"z"`
	Feed      float64    `json:"feed"`
	Center    geom.Point `json:"center"`
	Radius    float64    `json:"radius,omitempty"`
	Clockwise bool       `json:"clockwise,omitempty"`
	Source    Source     `json:"source"`
}

// Cutting reports whether m removes material in XY.
func (m Move) Cutting() bool { return m.Kind == MoveLinear || m.Kind == MoveArc }

func (m Move) String() string {
	switch m.Kind {
	case MoveArc:
		dir := "ccw"
		if m.Clockwise {
			dir = "cw"
		}
		return fmt.Sprintf("arc %s to %v z=%.3f r=%.3f f=%.0f", dir, m.To, m.Z, m.Radius, m.Feed)
	case MoveRapid:
		return fmt.Sprintf("rapid to %v z=%.3f", m.To, m.Z)
	default:
		return fmt.Sprintf("%s to %v z=%.3f f=%.0f", m.Kind, m.To, m.Z, m.Feed)
	}
}

type options struct {
	depths     []float64
	safeZ      float64
	plungeFeed float64
}

// Option configures Emit.
type Option func(*options)

// WithDepths repeats the path once per cutting depth, in the given order.
func WithDepths(z ...float64) Option {
	return func(o *options) { o.depths = append([]float64(nil), z...) }
}

// WithSafeZ sets the retract height.
func WithSafeZ(z float64) Option { return func(o *options) { o.safeZ = z } }

// WithPlungeFeed sets the feed of vertical entries.
func WithPlungeFeed(f float64) Option { return func(o *options) { o.plungeFeed = f } }

// Layers returns the cutting depths for a pocket of the given depth cut
// in steps of at most stepdown: -stepdown, -2·stepdown, ..., -depth.
// A zero depth yields a single layer at 0.
func Layers(depth, stepdown float64) ([]float64, error) {
	if depth < 0 || (depth > 0 && !(stepdown > 0)) {
		return nil, fmt.Errorf("toolpath: %w", diag.Contractf(
			"depth must be >= 0 and stepdown > 0, got depth %g stepdown %g", depth, stepdown))
	}
	if depth == 0 {
		return []float64{0}, nil
	}
	n := int(math.Ceil(depth/stepdown - 1e-9))
	out := make([]float64, n)
	for i := range out {
		out[i] = -math.Min(float64(i+1)*stepdown, depth)
	}
	out[n-1] = -depth
	return out, nil
}

// Emit walks path and produces one move per segment. Point ranges covered
// by a fillet annotation collapse into a single arc move. Runs are joined
// by a retract to safe Z, a rapid to the next start and a plunge.
func Emit(path spiral.Path, fillets []fillet.Annotation, feedXY float64, opts ...Option) ([]Move, error) {
	if !(feedXY > 0) {
		return nil, fmt.Errorf("toolpath: %w", diag.Contractf("feed must be positive, got %g", feedXY))
	}
	o := options{depths: []float64{0}, safeZ: DefaultSafeZ, plungeFeed: feedXY * DefaultPlungeRatio}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.depths) == 0 {
		o.depths = []float64{0}
	}
	for _, z := range o.depths {
		if z >= o.safeZ {
			return nil, fmt.Errorf("toolpath: %w", diag.Contractf("cut depth %g is not below safe Z %g", z, o.safeZ))
		}
	}

	arcs := make(map[int]map[int]fillet.Annotation)
	for _, a := range fillets {
		if a.Run < 0 || a.Run >= len(path.Runs) || a.End >= len(path.Runs[a.Run].Points) || a.Start >= a.End {
			continue
		}
		if arcs[a.Run] == nil {
			arcs[a.Run] = make(map[int]fillet.Annotation)
		}
		arcs[a.Run][a.Start] = a
	}

	var moves []Move
	for _, z := range o.depths {
		for ri, run := range path.Runs {
			pts := run.Points
			if len(pts) == 0 {
				continue
			}
			moves = append(moves,
				Move{Kind: MoveRapid, To: pts[0], Z: o.safeZ, Source: Source{Run: ri}},
				Move{Kind: MovePlunge, To: pts[0], Z: z, Feed: o.plungeFeed, Source: Source{Run: ri}},
			)
			for i := 0; i < len(pts)-1; {
				if a, ok := arcs[ri][i]; ok {
					moves = append(moves, Move{
						Kind:      MoveArc,
						To:        pts[a.End],
						Z:         z,
						Feed:      feedXY,
						Center:    a.Center,
						Radius:    a.Radius,
						Clockwise: a.Clockwise,
						Source:    Source{Run: ri, Start: a.Start, End: a.End},
					})
					i = a.End
					continue
				}
				moves = append(moves, Move{
					Kind:   MoveLinear,
					To:     pts[i+1],
					Z:      z,
					Feed:   feedXY,
					Source: Source{Run: ri, Start: i, End: i + 1},
				})
				i++
			}
			last := len(pts) - 1
			moves = append(moves, Move{Kind: MoveRapid, To: pts[last], Z: o.safeZ, Source: Source{Run: ri, Start: last, End: last}})
		}
	}
	return moves, nil
}

// ApplyOverloads returns a copy of moves with the feed of every cutting
// move that touches an overload zone scaled by the zone's multiplier.
// Where zones overlap the lowest multiplier wins.
func ApplyOverloads(moves []Move, zones []overload.Zone) []Move {
	out := make([]Move, len(moves))
	copy(out, moves)
	if len(zones) == 0 {
		return out
	}
	byRun := make(map[int][]overload.Zone)
	for _, z := range zones {
		byRun[z.Run] = append(byRun[z.Run], z)
	}
	for run := range byRun {
		sort.Slice(byRun[run], func(i, j int) bool { return byRun[run][i].Start < byRun[run][j].Start })
	}
	for i, m := range out {
		if !m.Cutting() {
			continue
		}
		mult := 1.0
		for _, z := range byRun[m.Source.Run] {
			if z.Start > m.Source.End {
				break
			}
			if z.End >= m.Source.Start {
				mult = math.Min(mult, z.Multiplier)
			}
		}
		out[i].Feed = m.Feed * mult
	}
	return out
}

// Stats summarizes a move list.
type Stats struct {
	Moves      int     `json:"moves"`
	Arcs       int     `json:"arcs"`
	Plunges    int     `json:"plunges"`
	CutLength  float64 `json:"cut_length"`
	RapidCount int     `json:"rapids"`
}

// Summarize computes Stats for moves. Arc lengths are measured along the
// arc.
func Summarize(moves []Move) Stats {
	var s Stats
	s.Moves = len(moves)
	var prev geom.Point
	for i, m := range moves {
		switch m.Kind {
		case MoveArc:
			s.Arcs++
			if i > 0 {
				s.CutLength += arcLength(prev, m)
			}
		case MoveLinear:
			if i > 0 {
				s.CutLength += prev.Dist(m.To)
			}
		case MovePlunge:
			s.Plunges++
		case MoveRapid:
			s.RapidCount++
		}
		prev = m.To
	}
	return s
}

func arcLength(from geom.Point, m Move) float64 {
	a1 := from.Sub(m.Center).Angle()
	a2 := m.To.Sub(m.Center).Angle()
	sweep := a2 - a1
	if m.Clockwise {
		sweep = -sweep
	}
	for sweep < 0 {
		sweep += 2 * math.Pi
	}
	return sweep * m.Radius
}
