// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the only SQLite-specific concerns are creating the
// database and dumping it to disk.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/OCAP2/skirmish/internal/database"
	"github.com/OCAP2/skirmish/internal/logging"
	gormstorage "github.com/OCAP2/skirmish/internal/storage/gorm"
	"github.com/OCAP2/skirmish/pkg/core"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path         string // database file, empty for in-memory
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg Config, deps gormstorage.Dependencies) (*Backend, error) {
	db := deps.DB
	if db == nil {
		var err error
		db, err = database.OpenSqlite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
		}
		deps.DB = db
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}

	return &Backend{
		Backend: gormstorage.New(deps),
		db:      db,
		cfg:     cfg,
		log:     deps.LogManager,
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}
	return nil
}

// EndMission writes the queued rows and dumps the final state.
func (b *Backend) EndMission() error {
	if err := b.Backend.EndMission(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return b.Backend.Close()
}

// Dump writes a point-in-time copy of the database to DumpPath.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	start := time.Now()
	if err := database.DumpToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Logger().Debug("Dumped SQLite DB to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

// GetExportedFilePath returns the dump file.
func (b *Backend) GetExportedFilePath() string {
	return b.cfg.DumpPath
}

// GetExportMetadata returns empty metadata; SQLite dumps are not uploaded to
// the web frontend.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	return core.UploadMetadata{}
}

// dumpLoop periodically dumps the database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Logger().Error("Error dumping to disk", "error", err)
			}
		}
	}
}
