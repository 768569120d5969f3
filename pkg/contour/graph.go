package contour

import (
	"math"
	"sort"

	"github.com/chazu/gouge/pkg/geom"
)

// endpoint identifies one end of a primitive: id = 2*prim + side, where
// side 0 is the start and side 1 is the end.
type endpoint int

func (e endpoint) prim() int        { return int(e) / 2 }
func (e endpoint) other() endpoint  { return e ^ 1 }
func endOf(prim, side int) endpoint { return endpoint(2*prim + side) }

type cellKey struct{ x, y int64 }

// graph is an arena of primitives with endpoint adjacency resolved through
// a spatial hash whose cells are one tolerance wide.
type graph struct {
	prims []Primitive
	tol   float64
	adj   [][]endpoint // adj[e] = endpoints of other primitives within tol of e
}

func (g *graph) point(e endpoint) geom.Point {
	p := g.prims[e.prim()]
	if e%2 == 0 {
		return p.Start()
	}
	return p.End()
}

func newGraph(prims []Primitive, tol float64) *graph {
	g := &graph{prims: prims, tol: tol, adj: make([][]endpoint, 2*len(prims))}

	cell := func(p geom.Point) cellKey {
		return cellKey{int64(math.Floor(p.X / tol)), int64(math.Floor(p.Y / tol))}
	}
	buckets := make(map[cellKey][]endpoint, 2*len(prims))
	for e := endpoint(0); int(e) < 2*len(prims); e++ {
		k := cell(g.point(e))
		buckets[k] = append(buckets[k], e)
	}

	for e := endpoint(0); int(e) < 2*len(prims); e++ {
		p := g.point(e)
		k := cell(p)
		var near []endpoint
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for _, f := range buckets[cellKey{k.x + dx, k.y + dy}] {
					if f.prim() == e.prim() {
						continue
					}
					if p.Near(g.point(f), tol) {
						near = append(near, f)
					}
				}
			}
		}
		// Nearest first, then by index, so the walk is deterministic.
		sort.Slice(near, func(i, j int) bool {
			di, dj := p.DistSq(g.point(near[i])), p.DistSq(g.point(near[j]))
			if di != dj {
				return di < dj
			}
			return near[i] < near[j]
		})
		g.adj[e] = near
	}
	return g
}

// step is one primitive in a chain, entered at endpoint in.
type step struct {
	in   endpoint
	next int // index into adj[in.other()] of the next candidate to try
}

// chainer walks the graph to extract closed cycles.
type chainer struct {
	g      *graph
	used   []bool // primitive belongs to an emitted loop
	budget int
}

// findCycle runs a backtracking depth-first walk starting at the start
// endpoint of primitive s, looking for a chain that returns to it. It gives
// up when the shared step budget is exhausted.
func (c *chainer) findCycle(s int) ([]endpoint, bool) {
	g := c.g
	origin := g.point(endOf(s, 0))
	onPath := map[int]bool{s: true}
	stack := []step{{in: endOf(s, 0)}}

	for len(stack) > 0 {
		if c.budget <= 0 {
			return nil, false
		}
		c.budget--

		top := &stack[len(stack)-1]
		out := top.in.other()
		if len(stack) > 1 && g.point(out).Near(origin, g.tol) {
			chain := make([]endpoint, len(stack))
			for i, st := range stack {
				chain[i] = st.in
			}
			return chain, true
		}

		cands := g.adj[out]
		advanced := false
		for top.next < len(cands) {
			f := cands[top.next]
			top.next++
			if c.used[f.prim()] || onPath[f.prim()] {
				continue
			}
			onPath[f.prim()] = true
			stack = append(stack, step{in: f})
			advanced = true
			break
		}
		if !advanced {
			delete(onPath, top.in.prim())
			stack = stack[:len(stack)-1]
		}
	}
	return nil, false
}

// points concatenates the primitive samples along chain, dropping the
// shared joint at each junction.
func (g *graph) points(chain []endpoint) []geom.Point {
	var out []geom.Point
	for i, in := range chain {
		pts := g.prims[in.prim()].Points()
		if in%2 == 1 {
			pts = geom.Reversed(pts)
		}
		if i > 0 {
			pts = pts[1:]
		}
		out = append(out, pts...)
	}
	return out
}

// components groups the given primitives into connected sets.
func (g *graph) components(prims []int) [][]int {
	parent := make(map[int]int, len(prims))
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	member := make(map[int]bool, len(prims))
	for _, p := range prims {
		parent[p] = p
		member[p] = true
	}
	for _, p := range prims {
		for side := 0; side < 2; side++ {
			for _, f := range g.adj[endOf(p, side)] {
				if !member[f.prim()] {
					continue
				}
				a, b := find(p), find(f.prim())
				if a != b {
					if a < b {
						parent[b] = a
					} else {
						parent[a] = b
					}
				}
			}
		}
	}
	groups := map[int][]int{}
	var roots []int
	for _, p := range prims {
		r := find(p)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], p)
	}
	sort.Ints(roots)
	out := make([][]int, 0, len(roots))
	for _, r := range roots {
		out = append(out, groups[r])
	}
	return out
}

// freeEnds returns the endpoints in group that touch no other primitive of
// the group.
func (g *graph) freeEnds(group []int) []geom.Point {
	member := make(map[int]bool, len(group))
	for _, p := range group {
		member[p] = true
	}
	var out []geom.Point
	for _, p := range group {
		for side := 0; side < 2; side++ {
			e := endOf(p, side)
			linked := false
			for _, f := range g.adj[e] {
				if member[f.prim()] {
					linked = true
					break
				}
			}
			if !linked {
				out = append(out, g.point(e))
			}
		}
	}
	return out
}
