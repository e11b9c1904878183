package sequence

import (
	"github.com/starford/raido/internal/geo"
	"github.com/starford/raido/internal/models"
)

// BuildLinks derives per-point next/prev links from an ordered sequence.
// Endpoints lack the corresponding side. Bearings point from the owning point
// toward the target.
func BuildLinks(ordered []models.Point) map[string]models.Links {
	out := make(map[string]models.Links, len(ordered))
	for i, p := range ordered {
		var l models.Links
		from := geo.Coord{Lat: p.Lat, Lon: p.Lon}
		if i > 0 {
			prev := ordered[i-1]
			l.Prev = &models.Link{
				From:       p.ID,
				To:         prev.ID,
				BearingDeg: geo.Bearing(from, geo.Coord{Lat: prev.Lat, Lon: prev.Lon}),
				Role:       models.RolePrev,
			}
		}
		if i < len(ordered)-1 {
			next := ordered[i+1]
			l.Next = &models.Link{
				From:       p.ID,
				To:         next.ID,
				BearingDeg: geo.Bearing(from, geo.Coord{Lat: next.Lat, Lon: next.Lon}),
				Role:       models.RoleNext,
			}
		}
		out[p.ID] = l
	}
	return out
}
