// Package store provides the SQLite-backed archive of ingested capture
// points. The live engine is rebuilt from the archive at startup; bounded
// and paginated queries feed the viewport and coverage datasets.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS points (
	id           TEXT PRIMARY KEY,
	lat          REAL NOT NULL,
	lon          REAL NOT NULL,
	sequence_tag TEXT NOT NULL DEFAULT '',
	captured_at  INTEGER,
	image_ref    TEXT NOT NULL DEFAULT '',
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_points_tag ON points(sequence_tag);
CREATE INDEX IF NOT EXISTS idx_points_lat_lon ON points(lat, lon);
`

// DB wraps a sql.DB with archive operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the archive database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
