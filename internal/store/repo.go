package store

import (
	"fmt"

	"github.com/starford/raido/internal/models"
)

// UpsertBatch inserts or replaces a batch of points in one transaction.
func (db *DB) UpsertBatch(points []models.Point) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`
		INSERT INTO points (id, lat, lon, sequence_tag, captured_at, image_ref, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			lat          = excluded.lat,
			lon          = excluded.lon,
			sequence_tag = excluded.sequence_tag,
			captured_at  = excluded.captured_at,
			image_ref    = excluded.image_ref,
			updated_at   = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("store: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		var capturedAt any
		if p.CapturedAt != nil {
			capturedAt = *p.CapturedAt
		}
		if _, err := stmt.Exec(p.ID, p.Lat, p.Lon, p.SequenceTag, capturedAt, p.ImageRef); err != nil {
			return fmt.Errorf("store: upsert point %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes a point by id. Deleting an unknown id is a no-op.
func (db *DB) Delete(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM points WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete point: %w", err)
	}
	return nil
}

// ListPage returns one page of points in stable id order.
func (db *DB) ListPage(limit, offset int) ([]models.Point, error) {
	rows, err := db.conn.Query(
		`SELECT id, lat, lon, sequence_tag, captured_at, image_ref
		 FROM points ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list page: %w", err)
	}
	defer rows.Close()
	return scanPoints(rows)
}

// QueryBounds returns every point inside a bounding box.
func (db *DB) QueryBounds(minLat, minLon, maxLat, maxLon float64) ([]models.Point, error) {
	rows, err := db.conn.Query(
		`SELECT id, lat, lon, sequence_tag, captured_at, image_ref
		 FROM points
		 WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
		 ORDER BY id`, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("store: query bounds: %w", err)
	}
	defer rows.Close()
	return scanPoints(rows)
}

// Count returns the number of archived points.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM points`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPoints(rows rowScanner) ([]models.Point, error) {
	var out []models.Point
	for rows.Next() {
		var p models.Point
		var capturedAt *int64
		if err := rows.Scan(&p.ID, &p.Lat, &p.Lon, &p.SequenceTag, &capturedAt, &p.ImageRef); err != nil {
			return nil, fmt.Errorf("store: scan point: %w", err)
		}
		p.CapturedAt = capturedAt
		out = append(out, p)
	}
	return out, rows.Err()
}
