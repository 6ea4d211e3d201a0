package plan

import (
	"math"

	"github.com/larsbrubaker/MatterSlice/geom"
	"github.com/larsbrubaker/MatterSlice/route"
)

// OrderPolygons chooses a traversal order over polys from the given
// start point, and for each polygon the vertex to begin at. Closed
// polygons may start anywhere and end back at their start vertex;
// open polygons start at either end and finish at the other.
//
// The order greedily minimizes the hop from the end of each polygon
// to the start of the next, roughly quadratic in the number of
// polygons. When a router is supplied, polygons it cannot reach from
// the current position are deferred until only unreachable ones
// remain.
func OrderPolygons(polys geom.Polygons, start geom.Point, router *route.Router, closed bool) (order, startIdx []int) {
	n := len(polys)
	order = make([]int, 0, n)
	startIdx = make([]int, n)

	visited := make([]bool, n)
	pos := start
	for len(order) < n {
		best := -1
		bestStart := 0
		bestDist := int64(math.MaxInt64)
		bestReach := false
		for i := range polys {
			if visited[i] || len(polys[i]) == 0 {
				continue
			}
			cand, dist := nearestStart(polys[i], pos, closed)
			reach := router == nil || reachable(router, pos, polys[i][cand])
			// a reachable polygon always beats an unreachable one
			if best >= 0 {
				if reach == bestReach && dist >= bestDist {
					continue
				}
				if !reach && bestReach {
					continue
				}
			}
			best, bestStart, bestDist, bestReach = i, cand, dist, reach
		}
		if best < 0 {
			// only empty polygons remain
			for i := range polys {
				if !visited[i] {
					visited[i] = true
					order = append(order, i)
				}
			}
			break
		}
		visited[best] = true
		order = append(order, best)
		startIdx[best] = bestStart
		pos = endPoint(polys[best], bestStart, closed)
	}
	return order, startIdx
}

// nearestStart picks the candidate start vertex of poly closest to
// pos. Closed loops may start at any vertex; open paths only at an
// end.
func nearestStart(poly geom.Polygon, pos geom.Point, closed bool) (idx int, dist int64) {
	candidates := []int{0}
	if closed {
		candidates = candidates[:0]
		for i := range poly {
			candidates = append(candidates, i)
		}
	} else if len(poly) > 1 {
		candidates = append(candidates, len(poly)-1)
	}
	idx = candidates[0]
	dist = pos.DistanceTo(poly[idx])
	for _, c := range candidates[1:] {
		if d := pos.DistanceTo(poly[c]); d < dist {
			idx, dist = c, d
		}
	}
	return idx, dist
}

func endPoint(poly geom.Polygon, startIdx int, closed bool) geom.Point {
	if closed {
		return poly[startIdx]
	}
	if startIdx == 0 {
		return poly[len(poly)-1]
	}
	return poly[0]
}

func reachable(router *route.Router, from, to geom.Point) bool {
	kind, _ := router.Route(from, to)
	return kind != route.NoPath
}
