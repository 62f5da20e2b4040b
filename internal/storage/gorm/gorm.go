// Package gormstorage implements the storage.Backend interface on GORM with
// internal queues and a background DB writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/skirmish/internal/logging"
	"github.com/OCAP2/skirmish/internal/model"
	"github.com/OCAP2/skirmish/internal/model/convert"
	"github.com/OCAP2/skirmish/internal/queue"
	"github.com/OCAP2/skirmish/pkg/core"

	"gorm.io/gorm"
)

// ErrNoDatabase is returned by Init when no connection was injected.
var ErrNoDatabase = errors.New("no database connection")

const (
	defaultWriteInterval = 2 * time.Second
	writeBatchSize       = 5000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	WriteInterval time.Duration

	// BufferLengths optionally reports dispatcher queue lengths for the
	// recorder performance samples.
	BufferLengths func() model.BufferLengths
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Targets      *queue.Queue[model.Target]
	Shots        *queue.Queue[model.ShotEvent]
	Hits         *queue.Queue[model.HitEvent]
	Kills        *queue.Queue[model.KillEvent]
	WeaponStates *queue.Queue[model.WeaponStateEvent]
	ZoneStates   *queue.Queue[model.ZoneEvent]
	General      *queue.Queue[model.GeneralEvent]
	Telemetry    *queue.Queue[model.TelemetryEvent]
}

func newQueues() *queues {
	return &queues{
		Targets:      queue.New[model.Target](),
		Shots:        queue.New[model.ShotEvent](),
		Hits:         queue.New[model.HitEvent](),
		Kills:        queue.New[model.KillEvent](),
		WeaponStates: queue.New[model.WeaponStateEvent](),
		ZoneStates:   queue.New[model.ZoneEvent](),
		General:      queue.New[model.GeneralEvent](),
		Telemetry:    queue.New[model.TelemetryEvent](),
	}
}

func (q *queues) lengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{
		Targets:     clampU16(q.Targets.Len()),
		Shots:       clampU16(q.Shots.Len()),
		Hits:        clampU16(q.Hits.Len()),
		Kills:       clampU16(q.Kills.Len()),
		WeaponState: clampU16(q.WeaponStates.Len()),
		ZoneState:   clampU16(q.ZoneStates.Len()),
		General:     clampU16(q.General.Len()),
		Telemetry:   clampU16(q.Telemetry.Len()),
	}
}

func clampU16(n int) uint16 {
	if n > 0xFFFF {
		return 0xFFFF
	}
	return uint16(n)
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	missionID atomic.Uint64

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = defaultWriteInterval
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

// StartMission inserts the world (reusing an existing row with the same name)
// and the mission, assigning the DB-generated IDs back to the core values.
func (b *Backend) StartMission(coreMission *core.Mission, coreWorld *core.World) error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}
	db := b.deps.DB

	gormWorld := convert.CoreToWorld(*coreWorld)
	gormWorld.ID = 0
	if _, err := gormWorld.GetOrInsert(db); err != nil {
		return fmt.Errorf("failed to get or insert world: %w", err)
	}

	gormMission := convert.CoreToMission(*coreMission)
	gormMission.ID = 0
	gormMission.WorldID = gormWorld.ID
	if err := db.Omit("World").Create(&gormMission).Error; err != nil {
		return fmt.Errorf("failed to insert new mission: %w", err)
	}

	coreWorld.ID = gormWorld.ID
	coreMission.ID = gormMission.ID
	coreMission.WorldID = gormWorld.ID

	b.missionID.Store(uint64(gormMission.ID))
	b.deps.LogManager.Logger().Info("Mission row created",
		"missionId", gormMission.ID,
		"world", gormWorld.WorldName)
	return nil
}

// SetMissionID sets the mission the writer stamps on queued rows.
func (b *Backend) SetMissionID(id uint) {
	b.missionID.Store(uint64(id))
}

// MissionID returns the current mission ID.
func (b *Backend) MissionID() uint {
	return uint(b.missionID.Load())
}

// EndMission writes every queued row.
func (b *Backend) EndMission() error {
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

// AddTarget queues a target row.
func (b *Backend) AddTarget(t *core.TargetEvent) error {
	b.queues.Targets.Push(convert.CoreToTarget(*t, 0))
	return nil
}

// RecordShotEvent queues a shot row.
func (b *Backend) RecordShotEvent(e *core.ShotEvent) error {
	b.queues.Shots.Push(convert.CoreToShotEvent(*e, 0))
	return nil
}

// RecordHitEvent queues a hit row.
func (b *Backend) RecordHitEvent(e *core.HitEvent) error {
	b.queues.Hits.Push(convert.CoreToHitEvent(*e, 0))
	return nil
}

// RecordKillEvent queues a kill row.
func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	b.queues.Kills.Push(convert.CoreToKillEvent(*e, 0))
	return nil
}

// RecordWeaponStateEvent queues a weapon transition row.
func (b *Backend) RecordWeaponStateEvent(e *core.WeaponStateEvent) error {
	b.queues.WeaponStates.Push(convert.CoreToWeaponStateEvent(*e, 0))
	return nil
}

// RecordZoneEvent queues a zone transition row.
func (b *Backend) RecordZoneEvent(e *core.ZoneEvent) error {
	b.queues.ZoneStates.Push(convert.CoreToZoneEvent(*e, 0))
	return nil
}

// RecordGeneralEvent queues a general event row.
func (b *Backend) RecordGeneralEvent(e *core.GeneralEvent) error {
	b.queues.General.Push(convert.CoreToGeneralEvent(*e, 0))
	return nil
}

// RecordTelemetryEvent queues a telemetry row.
func (b *Backend) RecordTelemetryEvent(e *core.TelemetryEvent) error {
	b.queues.Telemetry.Push(convert.CoreToTelemetryEvent(*e, 0))
	return nil
}

// QueueLengths returns the pending rows per table.
func (b *Backend) QueueLengths() model.WriteQueueLengths {
	return b.queues.lengths()
}

// writeQueue drains q in batches, each in its own transaction. A failed batch
// is pushed back and the rest of the queue is left for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, stamp func(*T)) error {
	for !q.Empty() {
		items := q.TakeBatch(writeBatchSize)
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			stamp(&items[i])
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Omit("Mission").Create(&items).Error
		})
		if err != nil {
			q.Push(items...)
			return fmt.Errorf("error creating %s: %w", name, err)
		}
	}
	return nil
}

// Flush writes every queued row now.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_, err := b.writeAll()
	return err
}

func (b *Backend) writeAll() (int, error) {
	db := b.deps.DB
	missionID := uint(b.missionID.Load())
	q := b.queues

	before := q.lengths()
	pending := int(before.Targets) + int(before.Shots) + int(before.Hits) + int(before.Kills) +
		int(before.WeaponState) + int(before.ZoneState) + int(before.General) + int(before.Telemetry)

	// targets first so hit/kill rows never reference a missing victim
	errs := []error{
		writeQueue(db, q.Targets, "targets", func(r *model.Target) { r.MissionID = missionID }),
		writeQueue(db, q.Shots, "shot events", func(r *model.ShotEvent) { r.MissionID = missionID }),
		writeQueue(db, q.Hits, "hit events", func(r *model.HitEvent) { r.MissionID = missionID }),
		writeQueue(db, q.Kills, "kill events", func(r *model.KillEvent) { r.MissionID = missionID }),
		writeQueue(db, q.WeaponStates, "weapon state events", func(r *model.WeaponStateEvent) { r.MissionID = missionID }),
		writeQueue(db, q.ZoneStates, "zone events", func(r *model.ZoneEvent) { r.MissionID = missionID }),
		writeQueue(db, q.General, "general events", func(r *model.GeneralEvent) { r.MissionID = missionID }),
		writeQueue(db, q.Telemetry, "telemetry events", func(r *model.TelemetryEvent) { r.MissionID = missionID }),
	}
	return pending, errors.Join(errs...)
}

// writerLoop periodically drains the queues into the DB and samples its own
// performance.
func (b *Backend) writerLoop() {
	defer close(b.done)
	log := b.deps.LogManager.Logger()

	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
		}

		b.writeMu.Lock()
		start := time.Now()
		pending, err := b.writeAll()
		elapsed := time.Since(start)
		b.writeMu.Unlock()

		if err != nil {
			log.Error("DB write cycle failed", "error", err)
		}
		if pending == 0 || b.missionID.Load() == 0 {
			continue
		}
		if err := b.recordPerformance(start, elapsed); err != nil {
			log.Error("Failed to record performance", "error", err)
		}
	}
}

func (b *Backend) recordPerformance(at time.Time, elapsed time.Duration) error {
	perf := model.RecorderPerformance{
		Time:                at,
		MissionID:           uint(b.missionID.Load()),
		WriteQueueLengths:   b.queues.lengths(),
		LastWriteDurationMs: float32(elapsed.Microseconds()) / 1000,
	}
	if b.deps.BufferLengths != nil {
		perf.BufferLengths = b.deps.BufferLengths()
	}
	return b.deps.DB.Omit("Mission").Create(&perf).Error
}
