package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/sequence"
)

// Rebuild states. Merges while scheduled extend the timer; merges while a
// rebuild runs set queued so the next cycle picks them up instead of mutating
// data mid-rebuild.
const (
	stateIdle = iota
	stateScheduled
	stateRebuilding
)

// Engine is the incremental index. All mutable state is guarded by mu;
// rebuilds compute against a snapshot and swap results in atomically, so
// readers see either the pre- or the post-rebuild state, never a half-updated
// link graph.
type Engine struct {
	opts   Options
	events EventFunc

	mu        sync.Mutex
	points    map[string]models.Point
	sequences map[string][]string // normalized tag -> ordered ids
	links     map[string]models.Links
	dirty     map[string]struct{} // tags awaiting rebuild
	gen       uint64              // bumped on every mutation

	state  int
	queued bool
	timer  *time.Timer
	closed bool
}

// Close cancels any pending debounced rebuild. The engine stays readable.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.state = stateIdle
}

// Flush forces any pending rebuild to complete before returning. Useful for
// callers that just merged and want deterministic reads, and for tests.
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureFreshLocked()
}

func (e *Engine) markDirtyLocked(tag string) {
	e.dirty[tag] = struct{}{}
}

// scheduleRebuildLocked advances the debounce state machine after a mutation.
func (e *Engine) scheduleRebuildLocked() {
	if e.closed {
		return
	}
	switch e.state {
	case stateIdle:
		e.state = stateScheduled
		d := time.Duration(e.opts.DebounceMs) * time.Millisecond
		if e.timer == nil {
			e.timer = time.AfterFunc(d, e.rebuildAsync)
		} else {
			e.timer.Reset(d)
		}
	case stateScheduled:
		// Extend the window so a burst coalesces into one rebuild.
		e.timer.Reset(time.Duration(e.opts.DebounceMs) * time.Millisecond)
	case stateRebuilding:
		e.queued = true
	}
}

// rebuildAsync is the debounce timer callback.
func (e *Engine) rebuildAsync() {
	e.mu.Lock()
	if e.state != stateScheduled || e.closed {
		// A read-path flush or Close got there first.
		e.mu.Unlock()
		return
	}
	e.state = stateRebuilding
	snapGen := e.gen
	tags, groups := e.snapshotDirtyLocked()
	e.mu.Unlock()

	results := buildAll(groups, e.opts)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	stale := e.gen != snapGen
	if stale {
		// The snapshot no longer reflects the data; put its tags back so
		// the next cycle rebuilds them against the latest state.
		for _, tag := range tags {
			e.dirty[tag] = struct{}{}
		}
	} else {
		e.installLocked(tags, results)
	}
	e.state = stateIdle
	if stale || e.queued {
		// Newer merges arrived mid-rebuild: discard nothing already merged,
		// just run another cycle against the latest state.
		e.queued = false
		e.scheduleRebuildLocked()
	}
	e.mu.Unlock()

	if !stale && e.events != nil {
		for _, tag := range tags {
			e.events(EventSequenceRebuilt, tag)
		}
	}
}

// ensureFreshLocked rebuilds all dirty sequences synchronously, so the read
// about to happen never observes stale orderings. Any scheduled async
// rebuild is cancelled; it would have nothing left to do.
func (e *Engine) ensureFreshLocked() {
	if len(e.dirty) == 0 {
		return
	}
	if e.state == stateScheduled && e.timer != nil {
		e.timer.Stop()
		e.state = stateIdle
	}
	tags, groups := e.snapshotDirtyLocked()
	e.installLocked(tags, buildAll(groups, e.opts))
}

// snapshotDirtyLocked collects the dirty tags and a copy of their member
// points, then clears the dirty set.
func (e *Engine) snapshotDirtyLocked() ([]string, map[string][]models.Point) {
	tags := make([]string, 0, len(e.dirty))
	for tag := range e.dirty {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	e.dirty = make(map[string]struct{})

	groups := make(map[string][]models.Point, len(tags))
	for _, tag := range tags {
		groups[tag] = nil
	}
	for _, p := range e.points {
		if _, ok := groups[p.SequenceTag]; ok {
			groups[p.SequenceTag] = append(groups[p.SequenceTag], p)
		}
	}
	return tags, groups
}

// built holds the pure rebuild output for one sequence.
type built struct {
	order []string
	links map[string]models.Links
}

// buildAll reorders and relinks each group. Pure: no engine state touched.
func buildAll(groups map[string][]models.Point, opts Options) map[string]built {
	out := make(map[string]built, len(groups))
	for tag, members := range groups {
		ordered := sequence.Order(members, opts.Order)
		ids := make([]string, len(ordered))
		for i, p := range ordered {
			ids[i] = p.ID
		}
		out[tag] = built{order: ids, links: sequence.BuildLinks(ordered)}
	}
	return out
}

// installLocked swaps rebuild results in. Emptied sequences are deleted
// rather than kept as dangling entries.
func (e *Engine) installLocked(tags []string, results map[string]built) {
	for _, tag := range tags {
		b := results[tag]
		if len(b.order) == 0 {
			delete(e.sequences, tag)
			continue
		}
		e.sequences[tag] = b.order
		for id, l := range b.links {
			e.links[id] = l
		}
	}
}
