package store

import "github.com/starford/raido/internal/models"

// Archive defines the persistence operations the rest of the system depends
// on. Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type Archive interface {
	UpsertBatch(points []models.Point) error
	Delete(id string) error
	ListPage(limit, offset int) ([]models.Point, error)
	QueryBounds(minLat, minLon, maxLat, maxLon float64) ([]models.Point, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies Archive at compile time.
var _ Archive = (*DB)(nil)
