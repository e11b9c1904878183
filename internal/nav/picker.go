// Package nav resolves which neighboring panorama a viewer should jump to
// given their current heading. It owns per-session navigation state only;
// the point graph itself lives in the engine.
package nav

import (
	"math"

	"github.com/starford/raido/internal/geo"
	"github.com/starford/raido/internal/models"
)

// projectionEpsilon is the hysteresis band: a previous pick whose projection
// dipped below zero by no more than this is kept rather than dropped, so the
// chosen target does not flicker while the viewer stands still or moves
// orthogonally to the path.
const projectionEpsilon = 0.15

// Candidate is one possible navigation target: a link plus the great-circle
// distance to it. Callers may pass more than the formal next/prev links, e.g.
// every nearby point, for free-form hotspot navigation.
type Candidate struct {
	Link           models.Link
	DistanceMeters float64
}

// Memo remembers the previous pick for hysteresis. Zero value means "no
// previous pick".
type Memo struct {
	ForwardID  string
	BackwardID string
}

// Result is the outcome of a pick. Either side may be nil: a dead end is a
// normal outcome, not an error.
type Result struct {
	Forward  *models.Link
	Backward *models.Link
}

// Pick resolves the forward and backward targets from a candidate set.
//
// Explicitly tagged next/prev candidates are authoritative. Otherwise each
// candidate's bearing is projected onto the travel hint (falling back to the
// viewer yaw when no hint is available): positive projections are "ahead",
// negative "behind". Each side ranks by projection magnitude descending, then
// distance ascending. A side that comes up empty keeps the previous pick if
// that target is still among the candidates and its projection has not
// flipped sign beyond a small epsilon. When both sides resolve to the same
// target, a side kept by hysteresis cannot lose it; otherwise it stays with
// the side its projection sign supports, and the other side re-ranks
// without it.
func Pick(candidates []Candidate, viewerYawDeg float64, hint *TravelHint, memo Memo) Result {
	if len(candidates) == 0 {
		return Result{}
	}

	if r, ok := pickByRole(candidates); ok {
		return r
	}

	refDeg := viewerYawDeg
	if hint != nil && hint.Valid() {
		refDeg = hint.BearingDeg()
	}

	var ahead, behind []scored
	projByID := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		// Dot product of the unit heading and unit bearing vectors.
		proj := math.Cos(geo.SignedAngleDelta(c.Link.BearingDeg, refDeg) * math.Pi / 180)
		projByID[c.Link.To] = proj
		if proj >= 0 {
			ahead = append(ahead, scored{c, proj})
		} else {
			behind = append(behind, scored{c, proj})
		}
	}

	res := Result{Forward: rank(ahead), Backward: rank(behind)}

	// Hysteresis: an empty side resurrects the previous pick while its
	// projection hovers around zero. A side filled this way is final below.
	var keptForward, keptBackward bool
	if res.Forward == nil && memo.ForwardID != "" {
		if proj, ok := projByID[memo.ForwardID]; ok && proj > -projectionEpsilon {
			res.Forward = findLink(candidates, memo.ForwardID)
			keptForward = res.Forward != nil
		}
	}
	if res.Backward == nil && memo.BackwardID != "" {
		if proj, ok := projByID[memo.BackwardID]; ok && proj < projectionEpsilon {
			res.Backward = findLink(candidates, memo.BackwardID)
			keptBackward = res.Backward != nil
		}
	}

	// Degenerate dense cluster: both sides picked the same target. A side
	// kept by hysteresis wins it outright; between two ranked picks it stays
	// with the side its projection sign supports. The losing side re-ranks
	// without it.
	if res.Forward != nil && res.Backward != nil && res.Forward.To == res.Backward.To {
		id := res.Forward.To
		switch {
		case keptForward:
			res.Backward = rank(exclude(behind, id))
		case keptBackward:
			res.Forward = rank(exclude(ahead, id))
		case projByID[id] >= 0:
			res.Backward = rank(exclude(behind, id))
		default:
			res.Forward = rank(exclude(ahead, id))
		}
	}

	return res
}

// scored pairs a candidate with its projection onto the reference heading.
type scored struct {
	c    Candidate
	proj float64
}

// rank picks the strongest candidate of one side: largest absolute
// projection first, shorter distance on ties.
func rank(side []scored) *models.Link {
	best := -1
	for i := range side {
		if best < 0 {
			best = i
			continue
		}
		bi, bb := math.Abs(side[i].proj), math.Abs(side[best].proj)
		if bi > bb || (bi == bb && side[i].c.DistanceMeters < side[best].c.DistanceMeters) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	l := side[best].c.Link
	return &l
}

func exclude(side []scored, id string) []scored {
	out := make([]scored, 0, len(side))
	for _, s := range side {
		if s.c.Link.To != id {
			out = append(out, s)
		}
	}
	return out
}

func pickByRole(candidates []Candidate) (Result, bool) {
	var r Result
	found := false
	for i := range candidates {
		switch candidates[i].Link.Role {
		case models.RoleNext:
			if r.Forward == nil {
				l := candidates[i].Link
				r.Forward = &l
				found = true
			}
		case models.RolePrev:
			if r.Backward == nil {
				l := candidates[i].Link
				r.Backward = &l
				found = true
			}
		}
	}
	return r, found
}

func findLink(candidates []Candidate, id string) *models.Link {
	for i := range candidates {
		if candidates[i].Link.To == id {
			l := candidates[i].Link
			return &l
		}
	}
	return nil
}

// PickByYaw is the simplified variant for plain "look left / look right"
// button taps: the single candidate whose bearing sits closest to the yaw,
// within maxDeltaDeg, or nil.
func PickByYaw(candidates []Candidate, yawDeg, maxDeltaDeg float64) *models.Link {
	var best *models.Link
	bestDelta := maxDeltaDeg
	for i := range candidates {
		d := math.Abs(geo.SignedAngleDelta(candidates[i].Link.BearingDeg, yawDeg))
		if d <= bestDelta {
			l := candidates[i].Link
			best = &l
			bestDelta = d
		}
	}
	return best
}
