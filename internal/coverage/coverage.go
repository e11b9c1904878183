// Package coverage prefetches the full archive into a dedicated engine so
// coarse overview queries (whole-dataset sequence listings, low-zoom
// segment rendering) do not depend on what has streamed in live.
package coverage

import (
	"context"
	"log/slog"

	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/store"
)

// DefaultPageSize is how many archive rows each prefetch page loads.
const DefaultPageSize = 500

// Prefetcher pages the archive into its own engine in the background.
// Cancelling its context stops paging; pages merged so far stay queryable.
type Prefetcher struct {
	eng      *engine.Engine
	archive  store.Archive
	pageSize int
	logger   *slog.Logger
}

// New creates a prefetcher over archive. opts configures the internal
// engine; pass engine.DefaultOptions() when no overrides are needed.
func New(archive store.Archive, opts engine.Options, pageSize int, logger *slog.Logger) *Prefetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Prefetcher{
		eng:      engine.New(opts, nil),
		archive:  archive,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Engine exposes the coverage engine for queries. It is safe to query
// while Run is still paging.
func (p *Prefetcher) Engine() *engine.Engine {
	return p.eng
}

// Close releases the internal engine.
func (p *Prefetcher) Close() {
	p.eng.Close()
}

// Run pages the archive into the coverage engine until exhausted or ctx is
// cancelled. A cancelled run returns ctx.Err(); everything merged before
// cancellation remains in the engine.
func (p *Prefetcher) Run(ctx context.Context) error {
	offset := 0
	total := 0

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("coverage: prefetch aborted", slog.Int("loaded", total))
			return ctx.Err()
		default:
		}

		page, err := p.archive.ListPage(p.pageSize, offset)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		res := p.eng.Merge(page)
		total += res.Inserted + res.Updated
		if len(res.Skipped) > 0 {
			p.logger.Warn("coverage: archive rows skipped",
				slog.Int("offset", offset),
				slog.Int("skipped", len(res.Skipped)))
		}

		offset += len(page)
		if len(page) < p.pageSize {
			break
		}
	}

	p.logger.Info("coverage: prefetch complete", slog.Int("loaded", total))
	return nil
}
