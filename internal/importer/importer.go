// Package importer ingests point batches dropped as JSON files into a
// watched directory, persisting them to the archive and merging them into
// the live engine.
package importer

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/starford/raido/internal/models"
)

// rawPoint tolerates the field spellings produced by common capture tools.
// Aliases are resolved in normalize; the first non-empty value wins.
type rawPoint struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Lat      *float64 `json:"lat"`
	Latitude *float64 `json:"latitude"`

	Lon       *float64 `json:"lon"`
	Lng       *float64 `json:"lng"`
	Longitude *float64 `json:"longitude"`

	SequenceTag string `json:"sequence_tag"`
	Sequence    string `json:"sequence"`
	Tag         string `json:"tag"`

	CapturedAt *int64 `json:"captured_at"`
	Timestamp  *int64 `json:"timestamp"`

	ImageRef string `json:"image_ref"`
	Image    string `json:"image"`
}

type batchFile struct {
	Points []rawPoint `json:"points"`
}

// DecodeBatch parses a dropped batch file. Both a bare JSON array and a
// {"points": [...]} wrapper are accepted.
func DecodeBatch(data []byte) ([]models.Point, error) {
	var raw []rawPoint
	if err := json.Unmarshal(data, &raw); err != nil {
		var wrapped batchFile
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("importer: decode batch: %w", err)
		}
		raw = wrapped.Points
	}

	points := make([]models.Point, 0, len(raw))
	for _, r := range raw {
		points = append(points, normalize(r))
	}
	return points, nil
}

func normalize(r rawPoint) models.Point {
	p := models.Point{
		ID:          strings.TrimSpace(firstNonEmpty(r.ID, r.Name)),
		SequenceTag: firstNonEmpty(r.SequenceTag, r.Sequence, r.Tag),
		ImageRef:    firstNonEmpty(r.ImageRef, r.Image),
		// A record with no coordinate field must become a per-record skip
		// at merge time, not a point at (0,0).
		Lat: math.NaN(),
		Lon: math.NaN(),
	}
	if v := firstCoord(r.Lat, r.Latitude); v != nil {
		p.Lat = *v
	}
	if v := firstCoord(r.Lon, r.Lng, r.Longitude); v != nil {
		p.Lon = *v
	}
	if r.CapturedAt != nil {
		ts := *r.CapturedAt
		p.CapturedAt = &ts
	} else if r.Timestamp != nil {
		ts := *r.Timestamp
		p.CapturedAt = &ts
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstCoord(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
