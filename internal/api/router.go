// Package api implements the Raido REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(h *Handler, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	// Ingest and removal.
	r.Post("/points", h.IngestPoints)
	r.Delete("/points/{id}", h.DeletePoint)

	// Viewport query over the archive.
	r.Get("/points", h.QueryViewport)

	// Sequences.
	r.Get("/sequences", h.ListSequences)
	r.Get("/sequences/{id}/order", h.SequenceOrder)
	r.Get("/sequences/{id}/segments", h.SequenceSegments)
	r.Get("/segments", h.AllSegments)

	// Per-point navigation.
	r.Get("/points/{id}/links", h.PointLinks)
	r.Get("/points/{id}/pick", h.PickDirection)

	// Panorama blob cache.
	r.Put("/blobs/{ref}", h.UploadBlob)
	r.Get("/blobs/{ref}", h.GetBlob)

	// SSE event stream.
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
