// Package cache provides a SQLite-backed store for decoded track lengths.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

const (
	// CurrentSchemaVersion is bumped whenever the probes table changes shape.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is used when no path is configured.
	DefaultDBPath = "data/probes.db"
)

// ErrNotOpen is returned by operations on a closed database.
var ErrNotOpen = errors.New("database not open")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS probes (
		path TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		samples INTEGER NOT NULL,
		sample_rate INTEGER NOT NULL,
		channels INTEGER NOT NULL,
		frames INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS cache_meta (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Stats summarizes the cache contents.
type Stats struct {
	ProbeCount    int       `json:"probeCount"`
	SchemaVersion string    `json:"schemaVersion"`
	LastUpdated   time.Time `json:"lastUpdated,omitempty"`
}

// DB is the probe cache. The zero value is closed; call Open before use.
type DB struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewDB returns a closed cache stored at path, or DefaultDBPath if empty.
func NewDB(path string) *DB {
	if path == "" {
		path = DefaultDBPath
	}
	return &DB{path: path}
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Open creates the file if needed and brings the schema to CurrentSchemaVersion.
func (d *DB) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite3", d.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	// One connection: SQLite has a single writer and the pool only adds lock contention.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return fmt.Errorf("migrate cache: %w", err)
	}
	d.db = db
	log.Info().Str("path", d.path).Msg("Probe cache opened")
	return nil
}

// migrate creates the tables. Probe rows are derived data, so a version
// mismatch drops them instead of converting.
func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	var version string
	err = tx.QueryRow(`SELECT value FROM cache_meta WHERE key = 'schema_version'`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case version == CurrentSchemaVersion:
		return tx.Commit()
	default:
		log.Info().Str("from", version).Str("to", CurrentSchemaVersion).Msg("Resetting probe cache")
		if _, err := tx.Exec(`DROP TABLE probes`); err != nil {
			return err
		}
		if _, err := tx.Exec(schema[0]); err != nil {
			return err
		}
	}

	if err := putMeta(tx, "schema_version", CurrentSchemaVersion); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func putMeta(x execer, key, value string) error {
	_, err := x.Exec(`
		INSERT INTO cache_meta (key, value, updated_at) VALUES (?1, ?2, ?3)
		ON CONFLICT(key) DO UPDATE SET value = ?2, updated_at = ?3
	`, key, value, time.Now().Format(time.RFC3339))
	return err
}

func (d *DB) setMeta(key, value string) error {
	return putMeta(d.db, key, value)
}

// Close closes the database. Closing a closed DB is a no-op.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// GetStats returns the row count, schema version and last write time.
func (d *DB) GetStats() (*Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	var (
		stats   Stats
		updated sql.NullString
	)
	err := d.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM probes),
			COALESCE((SELECT value FROM cache_meta WHERE key = 'schema_version'), ''),
			(SELECT value FROM cache_meta WHERE key = 'last_updated')
	`).Scan(&stats.ProbeCount, &stats.SchemaVersion, &updated)
	if err != nil {
		return nil, fmt.Errorf("read cache stats: %w", err)
	}
	if updated.Valid {
		stats.LastUpdated, _ = time.Parse(time.RFC3339, updated.String)
	}
	return &stats, nil
}
