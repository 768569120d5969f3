package contour

import (
	"fmt"

	"github.com/chazu/gouge/pkg/geom"
)

// Role classifies a closed loop within a region.
type Role int

const (
	RoleUnassigned Role = iota // not yet classified
	RoleOuter                  // boundary of the region to clear
	RoleIsland                 // region to avoid inside the outer loop
)

func (r Role) String() string {
	switch r {
	case RoleUnassigned:
		return "unassigned"
	case RoleOuter:
		return "outer"
	case RoleIsland:
		return "island"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Loop is an ordered closed ring of points. After classification the
// closing duplicate is removed, outer loops wind counter-clockwise and
// islands clockwise.
type Loop struct {
	Points []geom.Point `json:"points"`
	Role   Role         `json:"role"`
	// Closed marks a loop as closed even when its first and last points
	// differ by more than the tolerance.
	Closed bool `json:"closed,omitempty"`
}

// NewLoop returns an unclassified loop over a copy of pts.
func NewLoop(pts ...geom.Point) Loop {
	return Loop{Points: geom.Clone(pts), Closed: true}
}

// Rect returns the closed rectangle with corner (x, y) and size w × h.
func Rect(x, y, w, h float64) Loop {
	return NewLoop(geom.Pt(x, y), geom.Pt(x+w, y), geom.Pt(x+w, y+h), geom.Pt(x, y+h))
}

// Circle returns a closed circular loop sampled at chordTol.
func Circle(center geom.Point, radius, chordTol float64) Loop {
	c := SampleCircle(center, radius, chordTol)
	return NewLoop(c.Pts[:len(c.Pts)-1]...)
}

// SignedArea returns the shoelace area; positive for counter-clockwise.
func (l Loop) SignedArea() float64 { return geom.SignedArea(l.Points) }

// Area returns the absolute enclosed area.
func (l Loop) Area() float64 { return geom.Area(l.Points) }

// Perimeter returns the closed length of the loop.
func (l Loop) Perimeter() float64 { return geom.Perimeter(l.Points) }

// Bounds returns the bounding box of the loop.
func (l Loop) Bounds() geom.Rect { return geom.Bounds(l.Points) }

// Primitives returns the loop as a closed chain of Line primitives.
func (l Loop) Primitives() []Primitive {
	n := len(l.Points)
	out := make([]Primitive, 0, n)
	for i := 0; i < n; i++ {
		a, b := l.Points[i], l.Points[(i+1)%n]
		if a == b {
			continue
		}
		out = append(out, Line{A: a, B: b})
	}
	return out
}

// Normalized returns a copy of l wound for its role: outer loops
// counter-clockwise, islands clockwise. Unassigned loops keep their winding.
func (l Loop) Normalized() Loop {
	switch l.Role {
	case RoleOuter:
		return l.withWinding(true)
	case RoleIsland:
		return l.withWinding(false)
	}
	out := l
	out.Points = geom.Clone(l.Points)
	return out
}

// withWinding returns a copy of l wound counter-clockwise when ccw is true
// and clockwise otherwise.
func (l Loop) withWinding(ccw bool) Loop {
	out := Loop{Role: l.Role, Closed: true}
	if geom.IsCCW(l.Points) == ccw {
		out.Points = geom.Clone(l.Points)
	} else {
		out.Points = geom.Reversed(l.Points)
	}
	return out
}
