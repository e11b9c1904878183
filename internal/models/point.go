// Package models defines the domain types for Raido.
package models

// Point is one panorama capture location.
//
// ID is unique within a dataset and stable across batches: an unseen id is an
// insertion, a known id is a position update. CapturedAt is an epoch-like
// timestamp; nil when the capture device did not record one. ImageRef is an
// opaque handle to the panorama asset and is never dereferenced by the engine.
type Point struct {
	ID          string  `json:"id"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	SequenceTag string  `json:"sequence_tag,omitempty"`
	CapturedAt  *int64  `json:"captured_at,omitempty"`
	ImageRef    string  `json:"image_ref,omitempty"`
}

// Ref returns the best available name for ordering heuristics: the image
// reference when present, otherwise the id.
func (p Point) Ref() string {
	if p.ImageRef != "" {
		return p.ImageRef
	}
	return p.ID
}

// Link roles.
const (
	RoleNext = "next"
	RolePrev = "prev"
)

// Link is a directed navigation edge between two points of one sequence.
// BearingDeg is the geodesic bearing from From to To, degrees clockwise from
// north in [0,360).
type Link struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	BearingDeg float64 `json:"bearing_deg"`
	Role       string  `json:"role"`
}

// Links holds the at-most-one next and prev link of a point. Either side is
// nil at a sequence endpoint.
type Links struct {
	Next *Link `json:"next,omitempty"`
	Prev *Link `json:"prev,omitempty"`
}

// Segment is a maximal run of consecutive ordered points whose hop distances
// all fit under the active threshold. Derived on demand for polyline
// rendering, never persisted.
type Segment struct {
	SequenceID string  `json:"sequence_id"`
	Points     []Point `json:"points"`
}
