// Package store owns the two persistence handles shared across the core: an
// embedded DuckDB database for the durable catalog (videos, sources, tasks,
// collect_logs, access_log, ratings) and an embedded Badger KV store for hot,
// short-lived state (classifier mapping cache, in-flight hit counters, the
// rating 30-day cache). Every other internal package depends on *store.DB /
// *store.KV rather than opening its own handle.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/videocatalog/catalogcore/internal/config"
)

// DB wraps the DuckDB connection backing the catalog.
type DB struct {
	Conn *sql.DB
}

// Open opens (creating if necessary) the DuckDB file at cfg.DuckDBPath and applies
// the schema migrations in schema.go.
func Open(cfg config.StorageConfig) (*DB, error) {
	if dir := filepath.Dir(cfg.DuckDBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("store: create duckdb dir: %w", err)
		}
	}
	conn, err := sql.Open("duckdb", cfg.DuckDBPath)
	if err != nil {
		return nil, fmt.Errorf("store: open duckdb: %w", err)
	}
	db := &DB{Conn: conn}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return db, nil
}

// Close releases the DuckDB connection.
func (d *DB) Close() error {
	return d.Conn.Close()
}
