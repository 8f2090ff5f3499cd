// Package store defines the Airspace Store contract and its three
// interchangeable backends (SQLite, PostgreSQL, ClickHouse).
package store

import (
	"context"
	"fmt"

	"github.com/navprofile/navprofile/internal/airspace"
)

// Writer is the import-time half of the Store contract: insert operations
// used by the AIXM importer. A full re-import replaces the store wholesale,
// so writers provide Reset to clear prior contents first.
type Writer interface {
	Reset(ctx context.Context) error
	InsertAirspace(ctx context.Context, a *airspace.Airspace) (int64, error)
	InsertBorder(ctx context.Context, b *airspace.Border) (int64, error)
	InsertVertices(ctx context.Context, borderID int64, vertices []airspace.Vertex) error
	Flush(ctx context.Context) error
}

// Store is the full Airspace Store contract: the read operations from
// spec §4.2 plus the Writer half used during import.
type Store interface {
	Writer

	ListAirspaceIDsWithGeometry(ctx context.Context) ([]int64, error)
	GetAirspace(ctx context.Context, id int64) (*airspace.Airspace, error)
	GetBorders(ctx context.Context, airspaceID int64) ([]airspace.Border, error)
	GetVertices(ctx context.Context, borderID int64) ([]airspace.Vertex, error)
	SearchByName(ctx context.Context, pattern string) ([]airspace.Airspace, error)
	SearchByType(ctx context.Context, codeType string) ([]airspace.Airspace, error)

	Close() error
}

// Backend selects which concrete Store implementation Open constructs.
type Backend string

const (
	BackendSQLite     Backend = "sqlite"
	BackendPostgres   Backend = "postgres"
	BackendClickHouse Backend = "clickhouse"
)

// Config holds the connection settings for every supported backend; only
// the fields matching Backend are consulted.
type Config struct {
	Backend Backend

	SQLitePath string

	PostgresHost     string
	PostgresPort     int
	PostgresDatabase string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
}

// DefaultConfig returns a SQLite-backed configuration pointing at a local
// file, suitable for single-node deployments and tests.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendSQLite,
		SQLitePath: "navprofile.db",
	}
}

// Open constructs and schema-initializes the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return openSQLite(cfg.SQLitePath)
	case BackendPostgres:
		return openPostgres(ctx, cfg)
	case BackendClickHouse:
		return openClickHouse(ctx, cfg)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
