// Package postgres connects the GORM storage backend to PostgreSQL/PostGIS.
package postgres

import (
	"fmt"

	"github.com/OCAP2/skirmish/internal/database"
	gormstorage "github.com/OCAP2/skirmish/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend is the GORM backend bound to a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	deps gormstorage.Dependencies
	log  zerolog.Logger
}

// New creates a Postgres backend. If deps.DB is nil, Init connects using the
// db.* settings.
func New(deps gormstorage.Dependencies, log zerolog.Logger) *Backend {
	return &Backend{deps: deps, log: log}
}

// Init connects, enables PostGIS and migrates the schema, then starts the
// embedded writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	if err := database.Migrate(b.deps.DB, b.log); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.Backend = gormstorage.New(b.deps)
	return b.Backend.Init()
}

// Close closes the embedded backend if Init got that far.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
