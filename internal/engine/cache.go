package engine

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/raido/internal/geo"
	"github.com/starford/raido/internal/models"
)

// DefaultQueryCacheCapacity bounds the bounded-box query cache. Panning a map
// revisits only a handful of recent viewports, so the cache stays small.
const DefaultQueryCacheCapacity = 8

// BucketKey derives a stable cache key for a bounded query: the viewport
// center rounded on the projected plane, plus the zoom bucket. Nearby pans at
// the same zoom land in the same bucket and reuse the cached batch.
func BucketKey(minLat, minLon, maxLat, maxLon float64, zoom int) string {
	cx, cy := geo.Project(geo.Coord{
		Lat: (minLat + maxLat) / 2,
		Lon: (minLon + maxLon) / 2,
	})
	// Finer buckets at higher zooms.
	scale := math.Ldexp(1, zoom+4)
	return fmt.Sprintf("%d:%d:%d", zoom, int(cx*scale), int(cy*scale))
}

// QueryCache remembers the last few raw batches fetched for spatial buckets,
// so panning back and forth does not re-issue identical range queries.
type QueryCache struct {
	c *lru.Cache[string, []models.Point]
}

// NewQueryCache creates a cache with the given capacity (<=0 uses the
// default).
func NewQueryCache(capacity int) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultQueryCacheCapacity
	}
	c, _ := lru.New[string, []models.Point](capacity)
	return &QueryCache{c: c}
}

// Get returns the cached batch for a bucket key.
func (q *QueryCache) Get(key string) ([]models.Point, bool) {
	return q.c.Get(key)
}

// Put stores a fetched batch under its bucket key, evicting the least
// recently used entry when full.
func (q *QueryCache) Put(key string, batch []models.Point) {
	q.c.Add(key, batch)
}

// Len returns the number of cached buckets.
func (q *QueryCache) Len() int {
	return q.c.Len()
}
