package coverage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/testutil"
)

// fakeArchive serves a fixed point set in pages and lets tests hook each
// ListPage call.
type fakeArchive struct {
	points []models.Point
	onPage func(offset int)
}

func (f *fakeArchive) ListPage(limit, offset int) ([]models.Point, error) {
	if f.onPage != nil {
		f.onPage(offset)
	}
	if offset >= len(f.points) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.points) {
		end = len(f.points)
	}
	return f.points[offset:end], nil
}

func (f *fakeArchive) UpsertBatch(points []models.Point) error { return nil }
func (f *fakeArchive) Delete(id string) error                  { return nil }
func (f *fakeArchive) QueryBounds(minLat, minLon, maxLat, maxLon float64) ([]models.Point, error) {
	return nil, nil
}
func (f *fakeArchive) Count() (int, error) { return len(f.points), nil }
func (f *fakeArchive) Close() error        { return nil }

func archivePoints(n int) []models.Point {
	return testutil.DrivePoints("drive-1", n)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_LoadsWholeArchive(t *testing.T) {
	arch := &fakeArchive{points: archivePoints(25)}
	p := New(arch, engine.Options{DebounceMs: 10}, 10, testLogger())
	t.Cleanup(p.Close)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := p.Engine().Len(); n != 25 {
		t.Fatalf("engine has %d points, want 25", n)
	}
	seqs := p.Engine().Sequences()
	if len(seqs) != 1 || seqs[0].Size != 25 {
		t.Errorf("sequences = %+v", seqs)
	}
}

func TestRun_CancelKeepsPartialPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	arch := &fakeArchive{points: archivePoints(30)}
	// Cancel after the first page has been served; the second iteration's
	// ctx check must then abort before requesting more.
	arch.onPage = func(offset int) {
		if offset > 0 {
			t.Errorf("page requested at offset %d after cancel", offset)
		}
		cancel()
	}

	p := New(arch, engine.Options{DebounceMs: 10}, 10, testLogger())
	t.Cleanup(p.Close)

	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}
	if n := p.Engine().Len(); n != 10 {
		t.Fatalf("engine has %d points, want first page of 10", n)
	}
}

func TestRun_EmptyArchive(t *testing.T) {
	p := New(&fakeArchive{}, engine.Options{DebounceMs: 10}, 0, testLogger())
	t.Cleanup(p.Close)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := p.Engine().Len(); n != 0 {
		t.Fatalf("engine has %d points, want 0", n)
	}
}
