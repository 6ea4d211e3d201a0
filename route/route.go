// Package route finds travel paths that stay inside a polygon
// boundary. A Router is built once per boundary and answers routing
// queries between points; it walks around any boundary polygon the
// direct segment would cross, keeping waypoints strictly inside.
package route

import (
	"math"
	"sort"

	"github.com/larsbrubaker/MatterSlice/geom"
)

// Kind classifies the result of a routing query.
type Kind int

const (
	// Direct means the straight segment already stays inside; no
	// waypoints are needed.
	Direct Kind = iota
	// Interior means the returned waypoints, walked in order between
	// the two endpoints, stay inside the boundary.
	Interior
	// NoPath means no fully interior route was found.
	NoPath
)

// nudge is how far waypoints are pushed off the boundary toward the
// interior, in micrometres.
const nudge = 200

// A Router answers inside-boundary routing queries against one fixed
// polygon set. It is not safe to keep using a Router after its
// boundary has been replaced upstream; build a new one per boundary.
type Router struct {
	boundary geom.Polygons
	inset    []geom.Polygon // per-polygon vertices nudged inward
}

// NewRouter builds a router over the given boundary. The vertex nudge
// directions are precomputed so repeated queries against the same
// boundary stay cheap.
func NewRouter(boundary geom.Polygons) *Router {
	r := &Router{boundary: boundary}
	r.inset = make([]geom.Polygon, len(boundary))
	for i, poly := range boundary {
		r.inset[i] = insetVertices(poly, boundary)
	}
	return r
}

// insetVertices nudges every vertex of poly along its angle bisector,
// picking whichever side of the boundary is interior.
func insetVertices(poly geom.Polygon, boundary geom.Polygons) geom.Polygon {
	n := len(poly)
	out := make(geom.Polygon, n)
	for i := 0; i < n; i++ {
		prev := poly[(i+n-1)%n]
		next := poly[(i+1)%n]
		out[i] = nudgeVertex(poly[i], prev, next, boundary)
	}
	return out
}

func nudgeVertex(v, prev, next geom.Point, boundary geom.Polygons) geom.Point {
	ax, ay := unit(prev.Sub(v))
	bx, by := unit(next.Sub(v))
	dx, dy := ax+bx, ay+by
	if math.Hypot(dx, dy) < 1e-9 {
		// straight through: use the edge normal instead
		dx, dy = -by, bx
	} else {
		dx, dy = unitf(dx, dy)
	}
	cand := geom.Point{X: v.X + int64(dx*nudge), Y: v.Y + int64(dy*nudge), Z: v.Z}
	if boundary.Inside(cand) {
		return cand
	}
	// wedge points the wrong way; try the opposite side
	return geom.Point{X: v.X - int64(dx*nudge), Y: v.Y - int64(dy*nudge), Z: v.Z}
}

func unit(p geom.Point) (float64, float64) {
	return unitf(float64(p.X), float64(p.Y))
}

func unitf(x, y float64) (float64, float64) {
	h := math.Hypot(x, y)
	if h == 0 {
		return 0, 0
	}
	return x / h, y / h
}

// crossing is one intersection of the query segment with a boundary
// edge. t is the parameter along the query segment, edge the index of
// the boundary edge's first vertex.
type crossing struct {
	t    float64
	edge int
}

// Route finds a path from 'from' to 'to' that stays inside the
// boundary. For Interior results the waypoints exclude both
// endpoints. The result is deterministic for a given boundary and
// query.
func (r *Router) Route(from, to geom.Point) (Kind, []geom.Point) {
	if !r.boundary.Inside(from) || !r.boundary.Inside(to) {
		return NoPath, nil
	}

	type crossed struct {
		poly int
		xs   []crossing
	}
	var hits []crossed
	for pi, poly := range r.boundary {
		xs := segmentCrossings(from, to, poly)
		if len(xs) > 0 {
			hits = append(hits, crossed{poly: pi, xs: xs})
		}
	}
	if len(hits) == 0 {
		return Direct, nil
	}

	// visit crossed polygons in the order the segment meets them
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].xs[0].t < hits[j].xs[0].t
	})

	var waypoints []geom.Point
	for _, h := range hits {
		wps := r.skirt(h.poly, h.xs)
		if wps == nil {
			return NoPath, nil
		}
		waypoints = append(waypoints, wps...)
	}
	if len(waypoints) == 0 {
		return NoPath, nil
	}
	return Interior, waypoints
}

// skirt walks around one crossed polygon between its first and last
// crossing, in whichever direction is shorter, returning nudged
// vertices that survive the interior check.
func (r *Router) skirt(pi int, xs []crossing) []geom.Point {
	poly := r.boundary[pi]
	inset := r.inset[pi]
	n := len(poly)

	enter := xs[0].edge
	exit := xs[len(xs)-1].edge
	if enter == exit {
		// clips a single edge; nothing to walk around
		return nil
	}

	// candidate walks: forward enter+1..exit, backward enter..exit+1
	var fwd, bwd []int
	for i := (enter + 1) % n; ; i = (i + 1) % n {
		fwd = append(fwd, i)
		if i == exit {
			break
		}
	}
	for i := enter; ; i = (i + n - 1) % n {
		bwd = append(bwd, i)
		if i == (exit+1)%n {
			break
		}
	}

	pick := fwd
	if walkLength(poly, bwd) < walkLength(poly, fwd) {
		pick = bwd
	}

	var out []geom.Point
	for _, i := range pick {
		if r.boundary.Inside(inset[i]) {
			out = append(out, inset[i])
		}
	}
	return out
}

func walkLength(poly geom.Polygon, idx []int) int64 {
	var total int64
	for i := 1; i < len(idx); i++ {
		total += poly[idx[i-1]].DistanceTo(poly[idx[i]])
	}
	return total
}

// segmentCrossings returns the crossings of segment a-b with the
// closed polygon, sorted by position along the segment.
func segmentCrossings(a, b geom.Point, poly geom.Polygon) []crossing {
	n := len(poly)
	if n < 3 {
		return nil
	}
	var xs []crossing
	for i := 0; i < n; i++ {
		p := poly[i]
		q := poly[(i+1)%n]
		if t, ok := segmentIntersect(a, b, p, q); ok {
			xs = append(xs, crossing{t: t, edge: i})
		}
	}
	sort.Slice(xs, func(i, j int) bool { return xs[i].t < xs[j].t })
	return xs
}

// segmentIntersect returns the parameter along a-b where it properly
// crosses p-q.
func segmentIntersect(a, b, p, q geom.Point) (float64, bool) {
	d1x := float64(b.X - a.X)
	d1y := float64(b.Y - a.Y)
	d2x := float64(q.X - p.X)
	d2y := float64(q.Y - p.Y)
	den := d1x*d2y - d1y*d2x
	if den == 0 {
		return 0, false
	}
	ex := float64(p.X - a.X)
	ey := float64(p.Y - a.Y)
	t := (ex*d2y - ey*d2x) / den
	u := (ex*d1y - ey*d1x) / den
	if t <= 0 || t >= 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}
