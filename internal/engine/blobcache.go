package engine

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultBlobBudgetBytes is the default panorama blob budget (64 MiB).
const DefaultBlobBudgetBytes = 64 << 20

// BlobCache is a byte-budgeted LRU for panorama image blobs, keyed by image
// ref. The engine never fetches images itself; viewer-facing callers deposit
// blobs they downloaded and withdraw them on revisit. Entries are evicted
// oldest-first until the cache fits its budget again.
type BlobCache struct {
	mu     sync.Mutex
	c      *lru.Cache[string, []byte]
	budget int64
	used   int64
}

// NewBlobCache creates a cache holding at most budgetBytes of blob data
// (<=0 uses the default).
func NewBlobCache(budgetBytes int64) *BlobCache {
	if budgetBytes <= 0 {
		budgetBytes = DefaultBlobBudgetBytes
	}
	b := &BlobCache{budget: budgetBytes}
	// Entry-count bound is a backstop only; the byte budget governs.
	b.c, _ = lru.NewWithEvict[string, []byte](4096, func(_ string, v []byte) {
		b.used -= int64(len(v))
	})
	return b
}

// Put deposits a blob. Blobs larger than the whole budget are rejected.
func (b *BlobCache) Put(ref string, blob []byte) bool {
	if int64(len(blob)) > b.budget {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.c.Peek(ref); ok {
		b.used -= int64(len(old))
	}
	b.c.Add(ref, blob)
	b.used += int64(len(blob))
	for b.used > b.budget {
		if _, _, ok := b.c.RemoveOldest(); !ok {
			break
		}
	}
	return true
}

// Get withdraws a blob, refreshing its recency.
func (b *BlobCache) Get(ref string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c.Get(ref)
}

// UsedBytes reports the current cache footprint.
func (b *BlobCache) UsedBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}
