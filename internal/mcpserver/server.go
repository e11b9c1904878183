// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Raido's sequencing and navigation tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/importer"
	"github.com/starford/raido/internal/store"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp     *server.MCPServer
	eng     *engine.Engine
	archive store.Archive
}

// New creates a new MCP server with all Raido tools registered. archive may
// be nil; ingested points then live only in the engine.
func New(eng *engine.Engine, archive store.Archive) *Server {
	s := &Server{eng: eng, archive: archive}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_sequences",
		mcp.WithDescription("List all panorama sequences with their point counts."),
	), s.listSequences)

	s.mcp.AddTool(mcp.NewTool("get_sequence_order",
		mcp.WithDescription("Return the computed point order of one sequence."),
		mcp.WithString("sequence", mcp.Required(), mcp.Description("Sequence tag (case-insensitive)")),
	), s.getSequenceOrder)

	s.mcp.AddTool(mcp.NewTool("get_links",
		mcp.WithDescription("Return the next/prev navigation links of a point, with bearings."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Point id")),
	), s.getLinks)

	s.mcp.AddTool(mcp.NewTool("pick_direction",
		mcp.WithDescription("Pick the navigation link best aligned with a viewer yaw. "+
			"Returns null when no link lies within max_delta degrees."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Point id the viewer stands on")),
		mcp.WithNumber("yaw", mcp.Required(), mcp.Description("Viewer yaw in degrees clockwise from north")),
		mcp.WithNumber("max_delta", mcp.Description("Yaw tolerance in degrees (default 60)")),
	), s.pickDirection)

	s.mcp.AddTool(mcp.NewTool("ingest_points",
		mcp.WithDescription("Ingest a JSON batch of panorama points. Accepts a bare array or "+
			`a {"points": [...]} wrapper; loose field spellings (latitude/lng/timestamp) are normalized.`),
		mcp.WithString("batch", mcp.Required(), mcp.Description("JSON-encoded point batch")),
	), s.ingestPoints)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listSequences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.eng.Sequences(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSequenceOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("sequence")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	order, err := s.eng.SequenceOrder(tag)
	if err != nil {
		if errors.Is(err, apperr.ErrSequenceUnknown) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown sequence: %s", tag)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(order, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.eng.Links(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(links, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) pickDirection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	yaw, err := req.RequireFloat("yaw")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxDelta := req.GetFloat("max_delta", 60)
	if maxDelta <= 0 {
		return mcp.NewToolResultError("max_delta must be positive"), nil
	}

	link, err := s.eng.PickByYaw(id, yaw, maxDelta)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(link, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) ingestPoints(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("batch")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	points, err := importer.DecodeBatch([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(points) == 0 {
		return mcp.NewToolResultError("batch contains no points"), nil
	}

	res := s.eng.Merge(points)

	if s.archive != nil {
		accepted := points
		if len(res.Skipped) > 0 {
			drop := make(map[int]struct{}, len(res.Skipped))
			for _, sk := range res.Skipped {
				drop[sk.Index] = struct{}{}
			}
			accepted = accepted[:0:0]
			for i, p := range points {
				if _, ok := drop[i]; !ok {
					accepted = append(accepted, p)
				}
			}
		}
		if len(accepted) > 0 {
			if err := s.archive.UpsertBatch(accepted); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
