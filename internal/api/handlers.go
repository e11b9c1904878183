package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/importer"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// defaultMaxYawDelta is the yaw tolerance (degrees) for pick requests that
// omit maxDelta.
const defaultMaxYawDelta = 60.0

// maxIngestBody bounds the POST /points request body.
const maxIngestBody = 10 << 20

// maxBlobBody bounds a single blob upload.
const maxBlobBody = 32 << 20

// Handler holds API route handlers.
type Handler struct {
	eng     *engine.Engine
	archive store.Archive
	queries *engine.QueryCache
	blobs   *engine.BlobCache
}

// NewHandler creates a Handler over the live engine and archive. queries and
// blobs may be nil; the corresponding endpoints then work uncached or return
// 404.
func NewHandler(eng *engine.Engine, archive store.Archive, queries *engine.QueryCache, blobs *engine.BlobCache) *Handler {
	return &Handler{eng: eng, archive: archive, queries: queries, blobs: blobs}
}

// IngestPoints handles POST /api/points.
func (h *Handler) IngestPoints(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	points, err := importer.DecodeBatch(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := validateBatch(points); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res := h.eng.Merge(points)

	if h.archive != nil {
		accepted := withoutSkipped(points, res.Skipped)
		if len(accepted) > 0 {
			if err := h.archive.UpsertBatch(accepted); err != nil {
				slog.Error("ingest: archive failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		Inserted: res.Inserted,
		Updated:  res.Updated,
		Skipped:  res.Skipped,
	})
}

// DeletePoint handles DELETE /api/points/{id}.
func (h *Handler) DeletePoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}

	if err := h.eng.Remove(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("delete point failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.archive != nil {
		if err := h.archive.Delete(id); err != nil {
			slog.Error("delete point: archive failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSequences handles GET /api/sequences.
func (h *Handler) ListSequences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SequenceListResponse{Sequences: h.eng.Sequences()})
}

// SequenceOrder handles GET /api/sequences/{id}/order.
func (h *Handler) SequenceOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := h.eng.SequenceOrder(id)
	if err != nil {
		if errors.Is(err, apperr.ErrSequenceUnknown) {
			writeJSON(w, http.StatusNotFound, errorBody("unknown sequence"))
			return
		}
		slog.Error("sequence order failed", slog.String("sequence", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, OrderResponse{Sequence: engine.NormalizeTag(id), Order: order})
}

// SequenceSegments handles GET /api/sequences/{id}/segments?zoom=N.
func (h *Handler) SequenceSegments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	zoom, err := strconv.Atoi(r.URL.Query().Get("zoom"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'zoom' is required"))
		return
	}

	segs, err := h.eng.Segments(id, zoom)
	if err != nil {
		if errors.Is(err, apperr.ErrSequenceUnknown) {
			writeJSON(w, http.StatusNotFound, errorBody("unknown sequence"))
			return
		}
		slog.Error("segments failed", slog.String("sequence", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SegmentsResponse{
		Sequence: engine.NormalizeTag(id),
		Zoom:     zoom,
		Segments: segs,
	})
}

// AllSegments handles GET /api/segments?zoom=N: polylines for every
// sequence, for whole-dataset overview rendering.
func (h *Handler) AllSegments(w http.ResponseWriter, r *http.Request) {
	zoom, err := strconv.Atoi(r.URL.Query().Get("zoom"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'zoom' is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"zoom":     zoom,
		"segments": h.eng.AllSegments(zoom),
	})
}

// PointLinks handles GET /api/points/{id}/links.
func (h *Handler) PointLinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	links, err := h.eng.Links(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("links failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// PickDirection handles GET /api/points/{id}/pick?yaw=D&maxDelta=D.
func (h *Handler) PickDirection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	yaw, err := strconv.ParseFloat(q.Get("yaw"), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'yaw' is required"))
		return
	}
	maxDelta := defaultMaxYawDelta
	if raw := q.Get("maxDelta"); raw != "" {
		maxDelta, err = strconv.ParseFloat(raw, 64)
		if err != nil || maxDelta <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid maxDelta"))
			return
		}
	}

	link, err := h.eng.PickByYaw(id, yaw, maxDelta)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("pick failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PickResponse{Link: link})
}

// QueryViewport handles GET /api/points?bbox=minLat,minLon,maxLat,maxLon&zoom=N.
// Results come from the archive through a small bucketed cache, so panning
// back over a recent viewport skips the range query.
func (h *Handler) QueryViewport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	box, err := parseBBox(q.Get("bbox"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	zoom, err := strconv.Atoi(q.Get("zoom"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'zoom' is required"))
		return
	}

	key := engine.BucketKey(box[0], box[1], box[2], box[3], zoom)
	if h.queries != nil {
		if points, ok := h.queries.Get(key); ok {
			writeJSON(w, http.StatusOK, ViewportResponse{Points: points, Cached: true})
			return
		}
	}

	points, err := h.archive.QueryBounds(box[0], box[1], box[2], box[3])
	if err != nil {
		slog.Error("viewport query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.queries != nil {
		h.queries.Put(key, points)
	}
	writeJSON(w, http.StatusOK, ViewportResponse{Points: points, Cached: false})
}

// UploadBlob handles PUT /api/blobs/{ref}: deposits a panorama image blob.
func (h *Handler) UploadBlob(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if ref == "" || h.blobs == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("ref is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBlobBody)
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("blob too large"))
		return
	}
	if !h.blobs.Put(ref, blob) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("blob exceeds cache budget"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBlob handles GET /api/blobs/{ref}: withdraws a cached panorama blob.
func (h *Handler) GetBlob(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if h.blobs == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not cached"))
		return
	}
	blob, ok := h.blobs.Get(ref)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not cached"))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// parseBBox parses "minLat,minLon,maxLat,maxLon".
func parseBBox(raw string) ([4]float64, error) {
	var box [4]float64
	parts := strings.Split(raw, ",")
	if raw == "" || len(parts) != 4 {
		return box, errors.New("query parameter 'bbox' must be minLat,minLon,maxLat,maxLon")
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return box, errors.New("invalid bbox coordinate")
		}
		box[i] = v
	}
	if box[0] > box[2] || box[1] > box[3] {
		return box, errors.New("bbox min must not exceed max")
	}
	return box, nil
}

// withoutSkipped drops the records the engine rejected from an ingest batch.
func withoutSkipped(points []models.Point, skipped []engine.Skip) []models.Point {
	if len(skipped) == 0 {
		return points
	}
	drop := make(map[int]struct{}, len(skipped))
	for _, s := range skipped {
		drop[s.Index] = struct{}{}
	}
	out := make([]models.Point, 0, len(points)-len(skipped))
	for i, p := range points {
		if _, ok := drop[i]; !ok {
			out = append(out, p)
		}
	}
	return out
}
