package sequence

import (
	"github.com/starford/raido/internal/geo"
	"github.com/starford/raido/internal/models"
)

// Segments splits an ordered sequence into polyline runs wherever the hop
// between consecutive points exceeds maxHopMeters, so a genuine break in
// coverage is never drawn as one phantom long line. Runs of fewer than two
// points are dropped: a single point is not renderable as a polyline.
func Segments(sequenceID string, ordered []models.Point, maxHopMeters float64) []models.Segment {
	var out []models.Segment
	var run []models.Point

	flush := func() {
		if len(run) >= 2 {
			out = append(out, models.Segment{SequenceID: sequenceID, Points: run})
		}
		run = nil
	}

	for i, p := range ordered {
		if i > 0 {
			prev := ordered[i-1]
			hop := geo.DistanceMeters(
				geo.Coord{Lat: prev.Lat, Lon: prev.Lon},
				geo.Coord{Lat: p.Lat, Lon: p.Lon},
			)
			if hop > maxHopMeters {
				flush()
			}
		}
		run = append(run, p)
	}
	flush()

	return out
}

// HopThresholds maps zoom levels to the maximum plausible hop in meters.
// Sparse, zoomed-out views still draw connective lines across larger
// real-world gaps; dense, zoomed-in views expose genuine breaks.
type HopThresholds map[int]float64

// DefaultHopThresholds covers the usual web-map zoom range.
func DefaultHopThresholds() HopThresholds {
	return HopThresholds{
		10: 2000,
		12: 1000,
		14: 400,
		16: 150,
		18: 60,
	}
}

// At returns the threshold for a zoom level: the entry for the nearest
// configured zoom at or below it, or the loosest entry when the zoom sits
// below the whole table.
func (h HopThresholds) At(zoom int) float64 {
	if len(h) == 0 {
		return DefaultHopThresholds().At(zoom)
	}
	bestZoom, bestVal := -1, 0.0
	minZoom, minVal := -1, 0.0
	for z, v := range h {
		if z <= zoom && z > bestZoom {
			bestZoom, bestVal = z, v
		}
		if minZoom < 0 || z < minZoom {
			minZoom, minVal = z, v
		}
	}
	if bestZoom >= 0 {
		return bestVal
	}
	return minVal
}
