// Package sequence derives deterministic visiting orders, navigation links,
// and renderable polyline segments from groups of capture points sharing one
// sequence tag.
package sequence

import (
	"math"
	"sort"

	"github.com/starford/raido/internal/geo"
	"github.com/starford/raido/internal/models"
)

// Margin of the numeric-token strategy: a run shorter than this is treated as
// incidental (version suffixes, "cam2"), not a frame counter.
const minTokenDigits = 3

// OrderOptions tunes the fallback heuristic.
type OrderOptions struct {
	// SpreadRatio is the maximum allowed ratio of median consecutive-hop
	// distance (under natural order) to the point cloud's diagonal spread for
	// natural order to be trusted. Empirically tuned, no derivation known;
	// kept configurable for that reason.
	SpreadRatio float64

	// WalkSizeCeiling bounds the O(n²) spatial walk. Groups larger than this
	// keep natural order; callers with bigger sequences should pre-partition.
	WalkSizeCeiling int
}

// DefaultOrderOptions returns the production defaults.
func DefaultOrderOptions() OrderOptions {
	return OrderOptions{
		SpreadRatio:     1.0 / 8.0,
		WalkSizeCeiling: 4000,
	}
}

// Order produces a total visiting order for one tag group. The input is not
// mutated. Strategies are tried in order, first applicable wins:
//
//  1. Ascending capture timestamp, when every point has one. True capture
//     order is authoritative and skips every heuristic.
//  2. Ascending first numeric token (>= 3 digits) of the image ref, when
//     every point has one. Handles frame-numbered image names.
//  3. Natural lexical order of the image ref, unless its median hop distance
//     is implausibly large relative to the cloud's spread, in which case the
//     names are unreliable and a greedy spatial walk wins.
//
// Ties inside strategies 1 and 2 break by id, which makes the order stable
// under arbitrary batch permutations.
func Order(points []models.Point, opts OrderOptions) []models.Point {
	out := make([]models.Point, len(points))
	copy(out, points)
	if len(out) <= 1 {
		return out
	}

	if allTimestamped(out) {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := *out[i].CapturedAt, *out[j].CapturedAt
			if a != b {
				return a < b
			}
			return out[i].ID < out[j].ID
		})
		return out
	}

	if tokens, ok := numericTokens(out); ok {
		sort.SliceStable(out, func(i, j int) bool {
			if tokens[out[i].ID] != tokens[out[j].ID] {
				return tokens[out[i].ID] < tokens[out[j].ID]
			}
			return out[i].ID < out[j].ID
		})
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Ref(), out[j].Ref()
		if a != b {
			return naturalLess(a, b)
		}
		return out[i].ID < out[j].ID
	})

	if opts.SpreadRatio <= 0 {
		opts.SpreadRatio = DefaultOrderOptions().SpreadRatio
	}
	if opts.WalkSizeCeiling <= 0 {
		opts.WalkSizeCeiling = DefaultOrderOptions().WalkSizeCeiling
	}
	if len(out) > opts.WalkSizeCeiling {
		return out
	}
	if medianHopMeters(out) <= opts.SpreadRatio*diagonalSpreadMeters(out) {
		// Hops under natural order are short relative to the cloud: the
		// names encode the true path.
		return out
	}

	// Deterministic walk input: the walk breaks distance ties by insertion
	// order, so feed it the id-sorted group rather than the batch order.
	byID := make([]models.Point, len(points))
	copy(byID, points)
	sort.Slice(byID, func(i, j int) bool { return byID[i].ID < byID[j].ID })
	return SpatialWalk(byID)
}

func allTimestamped(points []models.Point) bool {
	for _, p := range points {
		if p.CapturedAt == nil {
			return false
		}
	}
	return true
}

// numericTokens returns the first long digit run of every point's ref, or
// false when any point lacks one.
func numericTokens(points []models.Point) (map[string]int64, bool) {
	tokens := make(map[string]int64, len(points))
	for _, p := range points {
		v, ok := firstNumericToken(p.Ref(), minTokenDigits)
		if !ok {
			return nil, false
		}
		tokens[p.ID] = v
	}
	return tokens, true
}

// medianHopMeters is the median consecutive-hop distance of an ordered group.
func medianHopMeters(ordered []models.Point) float64 {
	if len(ordered) < 2 {
		return 0
	}
	hops := make([]float64, 0, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		hops = append(hops, geo.DistanceMeters(
			geo.Coord{Lat: ordered[i-1].Lat, Lon: ordered[i-1].Lon},
			geo.Coord{Lat: ordered[i].Lat, Lon: ordered[i].Lon},
		))
	}
	sort.Float64s(hops)
	mid := len(hops) / 2
	if len(hops)%2 == 1 {
		return hops[mid]
	}
	return (hops[mid-1] + hops[mid]) / 2
}

// diagonalSpreadMeters is the great-circle length of the bounding box
// diagonal of the whole group.
func diagonalSpreadMeters(points []models.Point) float64 {
	minLat, minLon := math.Inf(1), math.Inf(1)
	maxLat, maxLon := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}
	return geo.DistanceMeters(
		geo.Coord{Lat: minLat, Lon: minLon},
		geo.Coord{Lat: maxLat, Lon: maxLon},
	)
}
