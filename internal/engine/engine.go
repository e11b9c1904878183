// Package engine maintains the incremental point index: per-sequence
// visiting orders, navigation links, and renderable segments, kept up to
// date as point batches stream in from paginated or bounded queries.
//
// Each dataset (the on-screen viewport, the background full-coverage set)
// is its own Engine instance with its own caches; instances share nothing.
package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/geo"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/nav"
	"github.com/starford/raido/internal/sequence"
)

// DefaultTag is the sequence tag assigned to points whose tag is empty after
// normalization.
const DefaultTag = "default"

// Event kinds passed to the event callback.
const (
	EventPointCreated    = "point.created"
	EventPointUpdated    = "point.updated"
	EventPointDeleted    = "point.deleted"
	EventPointVanished   = "point.vanished"
	EventSequenceRebuilt = "sequence.rebuilt"
)

// EventFunc is called after index mutations. kind is one of the Event
// constants; id is a point id, or a sequence id for EventSequenceRebuilt.
// Callbacks run outside the engine lock and must not call back into it.
type EventFunc func(kind, id string)

// Options configures one Engine instance.
type Options struct {
	Order         sequence.OrderOptions
	HopThresholds sequence.HopThresholds
	// Debounce is the rebuild coalescing window in milliseconds. Merges
	// arriving within the window share one rebuild.
	DebounceMs int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Order:         sequence.DefaultOrderOptions(),
		HopThresholds: sequence.DefaultHopThresholds(),
		DebounceMs:    250,
	}
}

// Skip describes one rejected record of a merge batch.
type Skip struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// MergeResult summarizes one merge batch.
type MergeResult struct {
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Skipped  []Skip `json:"skipped,omitempty"`
}

// SequenceInfo is a lightweight sequence listing entry.
type SequenceInfo struct {
	ID   string `json:"id"`
	Size int    `json:"size"`
}

// NormalizeTag canonicalizes a free-text sequence tag: trimmed, lowercased,
// empty mapped to DefaultTag.
func NormalizeTag(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	if t == "" {
		return DefaultTag
	}
	return t
}

// New creates an empty engine. events may be nil.
func New(opts Options, events EventFunc) *Engine {
	if opts.DebounceMs <= 0 {
		opts.DebounceMs = DefaultOptions().DebounceMs
	}
	if opts.HopThresholds == nil {
		opts.HopThresholds = sequence.DefaultHopThresholds()
	}
	return &Engine{
		opts:      opts,
		events:    events,
		points:    make(map[string]models.Point),
		sequences: make(map[string][]string),
		links:     make(map[string]models.Links),
		dirty:     make(map[string]struct{}),
	}
}

// Merge validates and upserts a batch. Malformed records are skipped and
// reported, never aborting the batch. Sequences whose membership or geometry
// changed are marked dirty and rebuilt after the debounce window; read
// operations force the rebuild earlier.
func (e *Engine) Merge(batch []models.Point) MergeResult {
	var res MergeResult
	var emitted []emittedEvent

	e.mu.Lock()
	for i, p := range batch {
		if reason := validate(p); reason != "" {
			res.Skipped = append(res.Skipped, Skip{Index: i, ID: p.ID, Reason: reason})
			continue
		}
		p.SequenceTag = NormalizeTag(p.SequenceTag)

		old, known := e.points[p.ID]
		if known && samePoint(old, p) {
			// Idempotent merge: re-sending identical records changes nothing.
			res.Updated++
			continue
		}

		e.points[p.ID] = p
		if known {
			res.Updated++
			e.markDirtyLocked(old.SequenceTag)
			emitted = append(emitted, emittedEvent{EventPointUpdated, p.ID})
		} else {
			res.Inserted++
			emitted = append(emitted, emittedEvent{EventPointCreated, p.ID})
		}
		e.markDirtyLocked(p.SequenceTag)
	}
	if len(e.dirty) > 0 {
		e.gen++
		e.scheduleRebuildLocked()
	}
	e.mu.Unlock()

	e.emit(emitted)
	return res
}

// Remove drops a point from the index. The owning sequence is rebuilt; a
// sequence emptied by the removal is deleted entirely. A point.vanished event
// tells the caller to fail navigation over, rather than silently stranding a
// viewer on a point that no longer exists.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	p, ok := e.points[id]
	if !ok {
		e.mu.Unlock()
		return apperr.ErrNotFound
	}
	delete(e.points, id)
	delete(e.links, id)
	e.markDirtyLocked(p.SequenceTag)
	e.gen++
	e.scheduleRebuildLocked()
	e.mu.Unlock()

	e.emit([]emittedEvent{
		{EventPointDeleted, id},
		{EventPointVanished, id},
	})
	return nil
}

// Point returns a point by id.
func (e *Engine) Point(id string) (models.Point, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.points[id]
	if !ok {
		return models.Point{}, apperr.ErrNotFound
	}
	return p, nil
}

// Len returns the number of known points.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.points)
}

// Sequences lists all known sequences with their sizes.
func (e *Engine) Sequences() []SequenceInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()

	out := make([]SequenceInfo, 0, len(e.sequences))
	for id, ordered := range e.sequences {
		out = append(out, SequenceInfo{ID: id, Size: len(ordered)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SequenceOrder returns the ordered point ids of one sequence.
func (e *Engine) SequenceOrder(sequenceID string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()

	ordered, ok := e.sequences[NormalizeTag(sequenceID)]
	if !ok {
		return nil, apperr.ErrSequenceUnknown
	}
	out := make([]string, len(ordered))
	copy(out, ordered)
	return out, nil
}

// Segments derives the polyline segments of one sequence at a zoom level.
func (e *Engine) Segments(sequenceID string, zoom int) ([]models.Segment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()

	tag := NormalizeTag(sequenceID)
	ordered, ok := e.sequences[tag]
	if !ok {
		return nil, apperr.ErrSequenceUnknown
	}
	points := make([]models.Point, 0, len(ordered))
	for _, id := range ordered {
		points = append(points, e.points[id])
	}
	return sequence.Segments(tag, points, e.opts.HopThresholds.At(zoom)), nil
}

// AllSegments derives the polyline segments of every sequence at a zoom
// level, in sorted sequence order.
func (e *Engine) AllSegments(zoom int) []models.Segment {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()

	tags := make([]string, 0, len(e.sequences))
	for tag := range e.sequences {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	maxHop := e.opts.HopThresholds.At(zoom)
	var out []models.Segment
	for _, tag := range tags {
		points := make([]models.Point, 0, len(e.sequences[tag]))
		for _, id := range e.sequences[tag] {
			points = append(points, e.points[id])
		}
		out = append(out, sequence.Segments(tag, points, maxHop)...)
	}
	return out
}

// Links returns the next/prev links of a point.
func (e *Engine) Links(pointID string) (models.Links, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()

	if _, ok := e.points[pointID]; !ok {
		return models.Links{}, apperr.ErrNotFound
	}
	return e.links[pointID], nil
}

// Pick resolves the forward/backward navigation targets of a point from the
// viewer's yaw. The point's formal next/prev links are the candidate set, so
// the pick follows strict sequence traversal; free-form hotspot navigation
// goes through nav.Pick directly with a caller-built candidate set.
func (e *Engine) Pick(pointID string, viewerYawDeg float64, hint *nav.TravelHint, memo nav.Memo) (nav.Result, error) {
	candidates, err := e.candidates(pointID)
	if err != nil {
		return nav.Result{}, err
	}
	return nav.Pick(candidates, viewerYawDeg, hint, memo), nil
}

// PickByYaw is the simplified single-target variant for button taps.
func (e *Engine) PickByYaw(pointID string, yawDeg, maxDeltaDeg float64) (*models.Link, error) {
	candidates, err := e.candidates(pointID)
	if err != nil {
		return nil, err
	}
	return nav.PickByYaw(candidates, yawDeg, maxDeltaDeg), nil
}

func (e *Engine) candidates(pointID string) ([]nav.Candidate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()

	p, ok := e.points[pointID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	var out []nav.Candidate
	l := e.links[pointID]
	for _, link := range []*models.Link{l.Next, l.Prev} {
		if link == nil {
			continue
		}
		out = append(out, nav.Candidate{
			Link:           *link,
			DistanceMeters: e.distanceLocked(p, link.To),
		})
	}
	return out, nil
}

// samePoint compares two records field by field; CapturedAt compares by
// value, not pointer identity.
func samePoint(a, b models.Point) bool {
	if a.ID != b.ID || a.Lat != b.Lat || a.Lon != b.Lon ||
		a.SequenceTag != b.SequenceTag || a.ImageRef != b.ImageRef {
		return false
	}
	switch {
	case a.CapturedAt == nil && b.CapturedAt == nil:
		return true
	case a.CapturedAt == nil || b.CapturedAt == nil:
		return false
	default:
		return *a.CapturedAt == *b.CapturedAt
	}
}

func (e *Engine) distanceLocked(from models.Point, toID string) float64 {
	to, ok := e.points[toID]
	if !ok {
		return 0
	}
	return geo.DistanceMeters(
		geo.Coord{Lat: from.Lat, Lon: from.Lon},
		geo.Coord{Lat: to.Lat, Lon: to.Lon},
	)
}

func validate(p models.Point) string {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return "empty id"
	case math.IsNaN(p.Lat) || math.IsNaN(p.Lon):
		return "NaN coordinate"
	case math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0):
		return "infinite coordinate"
	case p.Lat < -90 || p.Lat > 90:
		return "latitude out of range"
	case p.Lon < -180 || p.Lon > 180:
		return "longitude out of range"
	}
	return ""
}

type emittedEvent struct {
	kind, id string
}

func (e *Engine) emit(events []emittedEvent) {
	if e.events == nil {
		return
	}
	for _, ev := range events {
		e.events(ev.kind, ev.id)
	}
}
