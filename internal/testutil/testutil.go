// Package testutil provides shared test helpers for setting up archives and
// point fixtures.
package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// Archive creates a temporary SQLite point archive that is automatically
// cleaned up.
func Archive(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// DrivePoints generates n timestamped points marching north along one
// sequence, spaced ~44 m apart.
func DrivePoints(tag string, n int) []models.Point {
	points := make([]models.Point, n)
	for i := range points {
		ts := int64(100 + i)
		points[i] = models.Point{
			ID:          fmt.Sprintf("%s-p%03d", tag, i),
			Lat:         48.0 + float64(i)*0.0004,
			Lon:         11.5,
			SequenceTag: tag,
			CapturedAt:  &ts,
		}
	}
	return points
}
