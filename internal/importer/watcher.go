package importer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// settleDelay debounces file events: capture tools often write a batch in
// several chunks, so we wait for writes to quiet down before reading.
const settleDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on dropDir and processes batch files
// until ctx is cancelled. Files already present at startup are imported
// first. New subdirectories created at runtime are watched automatically.
func Watch(ctx context.Context, eng *engine.Engine, archive store.Archive, dropDir string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, dropDir); err != nil {
		return err
	}

	logger.Info("importer: started", slog.String("dir", dropDir))

	// Pick up batches dropped before the watcher was running.
	importExisting(eng, archive, dropDir, logger)

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(path string) {
		pending[path] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("importer: stopped")
			return nil

		case <-settleCh:
			for path := range pending {
				delete(pending, path)
				importFile(eng, archive, path, logger)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("importer: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("importer: watching new dir", slog.String("path", ev.Name))
						importExisting(eng, archive, ev.Name, logger)
					}
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule(ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("importer: error", slog.String("error", watchErr.Error()))
		}
	}
}

// importFile reads a single batch file, persists valid points to the
// archive, and merges them into the engine. Per-record failures are
// reported by the engine as skips; a file-level failure is logged and the
// file is left in place for inspection.
func importFile(eng *engine.Engine, archive store.Archive, path string, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("importer: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	points, err := DecodeBatch(data)
	if err != nil {
		logger.Warn("importer: decode failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	res := eng.Merge(points)

	accepted := acceptedPoints(points, res)
	if archive != nil && len(accepted) > 0 {
		if err := archive.UpsertBatch(accepted); err != nil {
			logger.Warn("importer: archive failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	logger.Info("importer: batch merged",
		slog.String("path", path),
		slog.Int("inserted", res.Inserted),
		slog.Int("updated", res.Updated),
		slog.Int("skipped", len(res.Skipped)))
	for _, s := range res.Skipped {
		logger.Warn("importer: record skipped",
			slog.String("path", path),
			slog.Int("index", s.Index),
			slog.String("id", s.ID),
			slog.String("reason", s.Reason))
	}
}

// acceptedPoints filters a decoded batch down to the records the engine
// accepted, so the archive never stores points the engine rejected.
func acceptedPoints(points []models.Point, res engine.MergeResult) []models.Point {
	if len(res.Skipped) == 0 {
		return points
	}
	skipped := make(map[int]struct{}, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped[s.Index] = struct{}{}
	}
	out := points[:0:0]
	for i, p := range points {
		if _, ok := skipped[i]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func importExisting(eng *engine.Engine, archive store.Archive, dir string, logger *slog.Logger) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		importFile(eng, archive, path, logger)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
