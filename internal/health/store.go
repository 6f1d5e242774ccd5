package health

import "context"

// Store persists Records and lists the configured source set. Implemented by
// internal/catalogstore against the `sources`/`source_health` DuckDB tables; kept
// as an interface here so health has no import-time dependency on catalogstore.
type Store interface {
	GetRecord(ctx context.Context, sourceID string) (Record, bool, error)
	SaveRecord(ctx context.Context, rec Record) error
	ListActiveSources(ctx context.Context) ([]Source, error)
}
