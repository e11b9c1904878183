package sequence

import (
	"github.com/starford/raido/internal/geo"
	"github.com/starford/raido/internal/models"
)

// SpatialWalk orders points along a greedy nearest-neighbor path on a planar
// projection. It is a cheap TSP heuristic: not optimal, but deterministic and
// O(n²), which is acceptable for per-sequence groups in the low thousands.
//
// The walk starts at the point with the smallest projected x+y (ties by id)
// and repeatedly hops to the nearest unvisited point by squared planar
// distance. Distance ties are broken by insertion order; coincident points
// fall back to id order so identical coordinates cannot jitter the result.
// The input is never mutated; a new ordering is returned. Groups of one or
// two points are returned in input order.
func SpatialWalk(points []models.Point) []models.Point {
	if len(points) <= 2 {
		out := make([]models.Point, len(points))
		copy(out, points)
		return out
	}

	type projected struct {
		x, y float64
	}
	proj := make([]projected, len(points))
	for i, p := range points {
		x, y := geo.Project(geo.Coord{Lat: p.Lat, Lon: p.Lon})
		proj[i] = projected{x, y}
	}

	start := 0
	for i := 1; i < len(points); i++ {
		si, sj := proj[i].x+proj[i].y, proj[start].x+proj[start].y
		if si < sj || (si == sj && points[i].ID < points[start].ID) {
			start = i
		}
	}

	visited := make([]bool, len(points))
	out := make([]models.Point, 0, len(points))
	cur := start
	visited[cur] = true
	out = append(out, points[cur])

	for len(out) < len(points) {
		next := -1
		best := 0.0
		for i := range points {
			if visited[i] {
				continue
			}
			dx := proj[i].x - proj[cur].x
			dy := proj[i].y - proj[cur].y
			d := dx*dx + dy*dy
			switch {
			case next < 0 || d < best:
				next, best = i, d
			case d == best && d == 0 && points[i].ID < points[next].ID:
				// Coincident candidates rank by id, not scan order.
				next = i
			}
		}
		visited[next] = true
		out = append(out, points[next])
		cur = next
	}

	return out
}
