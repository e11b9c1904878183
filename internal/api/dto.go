package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/models"
)

// maxIngestBatch caps a single POST /points request.
const maxIngestBatch = 10_000

// validateBatch enforces envelope-level constraints on an ingest batch.
// Per-record problems (bad coordinates, empty ids) are not rejected here;
// the engine reports them as skips so one bad record never fails a batch.
func validateBatch(points []models.Point) error {
	return validation.Validate(points,
		validation.Required.Error("at least one point is required"),
		validation.Length(1, maxIngestBatch))
}

// IngestResponse reports the outcome of a batch ingest.
type IngestResponse struct {
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	Skipped  []engine.Skip `json:"skipped,omitempty"`
}

// SequenceListResponse wraps the sequence listing.
type SequenceListResponse struct {
	Sequences []engine.SequenceInfo `json:"sequences"`
}

// OrderResponse is the computed point order of one sequence.
type OrderResponse struct {
	Sequence string   `json:"sequence"`
	Order    []string `json:"order"`
}

// SegmentsResponse carries the zoom-filtered polylines of one sequence.
type SegmentsResponse struct {
	Sequence string           `json:"sequence"`
	Zoom     int              `json:"zoom"`
	Segments []models.Segment `json:"segments"`
}

// PickResponse is the directional navigation answer for a viewer yaw.
// Link is null when no candidate lies within the yaw tolerance.
type PickResponse struct {
	Link *models.Link `json:"link"`
}

// ViewportResponse carries the archive points inside a bounding box.
type ViewportResponse struct {
	Points []models.Point `json:"points"`
	Cached bool           `json:"cached"`
}
