package nav

import (
	"math"

	"github.com/starford/raido/internal/geo"
)

// defaultHintAlpha is the smoothing factor applied to each new position
// delta; higher values react faster, lower values resist jitter.
const defaultHintAlpha = 0.3

// TravelHint is an exponentially smoothed unit vector of the viewer's recent
// travel direction, fed by consecutive position deltas. It stands in for
// explicit link metadata when the picker has none to go on.
type TravelHint struct {
	alpha float64
	x, y  float64
	last  *geo.Coord
}

// NewTravelHint creates a hint with the given smoothing factor. Alpha outside
// (0,1] falls back to the default.
func NewTravelHint(alpha float64) *TravelHint {
	if alpha <= 0 || alpha > 1 {
		alpha = defaultHintAlpha
	}
	return &TravelHint{alpha: alpha}
}

// Observe feeds the viewer's next position. The first observation only
// establishes the anchor; a zero-length delta is ignored.
func (h *TravelHint) Observe(pos geo.Coord) {
	if h.last == nil {
		p := pos
		h.last = &p
		return
	}
	prev := *h.last
	*h.last = pos
	if prev == pos {
		return
	}

	b := geo.Bearing(prev, pos) * math.Pi / 180
	// Compass bearing to planar: x east, y north.
	dx, dy := math.Sin(b), math.Cos(b)

	h.x = h.alpha*dx + (1-h.alpha)*h.x
	h.y = h.alpha*dy + (1-h.alpha)*h.y

	if n := math.Hypot(h.x, h.y); n > 0 {
		h.x /= n
		h.y /= n
	}
}

// Valid reports whether the hint has accumulated any direction yet.
func (h *TravelHint) Valid() bool {
	return h.x != 0 || h.y != 0
}

// BearingDeg returns the smoothed travel direction as a compass bearing.
func (h *TravelHint) BearingDeg() float64 {
	return geo.Norm360(math.Atan2(h.x, h.y) * 180 / math.Pi)
}

// Reset clears all accumulated state, e.g. after a teleport jump.
func (h *TravelHint) Reset() {
	h.x, h.y = 0, 0
	h.last = nil
}
