package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jgoulah/eco2mix/pkg/models"
	_ "modernc.org/sqlite"
)

const (
	// StorageKey names the single cache slot.
	StorageKey = "eco2mix_cache"
	// StorageVersion is bumped whenever the stored snapshot layout changes.
	StorageVersion = 1
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	key  string
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, key: StorageKey}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshot_cache (
		key TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Load returns the cached snapshot, or nil if none was ever saved
func (db *DB) Load(ctx context.Context) (*models.Snapshot, error) {
	query := `SELECT version, data FROM snapshot_cache WHERE key = ?`

	var version int
	var data string
	err := db.conn.QueryRowContext(ctx, query, db.key).Scan(&version, &data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot cache: %w", err)
	}

	return decodeEnvelope(envelope{Version: version, Data: []byte(data)})
}

// Save overwrites the cached snapshot
func (db *DB) Save(ctx context.Context, snapshot *models.Snapshot) error {
	env, err := encodeEnvelope(snapshot)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO snapshot_cache (key, version, data, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		version = excluded.version,
		data = excluded.data,
		updated_at = excluded.updated_at
	`

	updatedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.conn.ExecContext(ctx, query, db.key, env.Version, string(env.Data), updatedAt); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	return nil
}

// UpdatedAt returns when the slot was last written, zero if never
func (db *DB) UpdatedAt(ctx context.Context) (time.Time, error) {
	query := `SELECT updated_at FROM snapshot_cache WHERE key = ?`

	var updatedAt string
	err := db.conn.QueryRowContext(ctx, query, db.key).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying snapshot cache: %w", err)
	}

	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return t, nil
}
