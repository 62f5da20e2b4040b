// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"

	"github.com/OCAP2/skirmish/internal/config"
	"github.com/OCAP2/skirmish/pkg/core"
)

// ErrNoMission is returned when ending a mission that was never started.
var ErrNoMission = errors.New("no mission started")

// TargetRecord groups a target with the damage it received
type TargetRecord struct {
	Target core.TargetEvent
	Hits   []core.HitEvent
	Kill   *core.KillEvent
}

// Backend stores mission data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	mission *core.Mission
	world   *core.World

	targets map[uint32]*TargetRecord // keyed by transform

	shotEvents    []core.ShotEvent
	hitEvents     []core.HitEvent
	killEvents    []core.KillEvent
	weaponEvents  []core.WeaponStateEvent
	zoneEvents    []core.ZoneEvent
	generalEvents []core.GeneralEvent
	telemetry     []core.TelemetryEvent

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		targets: make(map[uint32]*TargetRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartMission begins recording a new mission
func (b *Backend) StartMission(mission *core.Mission, world *core.World) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mission = mission
	b.world = world

	// Reset all collections
	b.targets = make(map[uint32]*TargetRecord)
	b.shotEvents = nil
	b.hitEvents = nil
	b.killEvents = nil
	b.weaponEvents = nil
	b.zoneEvents = nil
	b.generalEvents = nil
	b.telemetry = nil
	b.idCounter = 0
	b.lastExportPath = ""

	return nil
}

// EndMission finalizes and exports the mission data
func (b *Backend) EndMission() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mission == nil {
		return ErrNoMission
	}
	return b.exportJSON()
}

func (b *Backend) nextID() uint {
	b.idCounter++
	return b.idCounter
}

// AddTarget registers a new target
func (b *Backend) AddTarget(t *core.TargetEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.targets[t.TargetID] = &TargetRecord{Target: *t}
	return nil
}

// GetTarget looks up a target by transform
func (b *Backend) GetTarget(id uint32) (*TargetRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.targets[id]
	return record, ok
}

// RecordShotEvent records a pellet leaving the weapon
func (b *Backend) RecordShotEvent(e *core.ShotEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shotEvents = append(b.shotEvents, *e)
	return nil
}

// RecordHitEvent records a hit event and attaches it to the target
func (b *Backend) RecordHitEvent(e *core.HitEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.ID = b.nextID()
	b.hitEvents = append(b.hitEvents, *e)
	if record, ok := b.targets[e.TargetID]; ok {
		record.Hits = append(record.Hits, *e)
	}
	return nil
}

// RecordKillEvent records a kill event
func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.ID = b.nextID()
	b.killEvents = append(b.killEvents, *e)
	if record, ok := b.targets[e.TargetID]; ok {
		kill := *e
		record.Kill = &kill
	}
	return nil
}

// RecordWeaponStateEvent records a weapon state transition
func (b *Backend) RecordWeaponStateEvent(e *core.WeaponStateEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.weaponEvents = append(b.weaponEvents, *e)
	return nil
}

// RecordZoneEvent records a zone transition
func (b *Backend) RecordZoneEvent(e *core.ZoneEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.ID = b.nextID()
	b.zoneEvents = append(b.zoneEvents, *e)
	return nil
}

// RecordGeneralEvent records a general event
func (b *Backend) RecordGeneralEvent(e *core.GeneralEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.ID = b.nextID()
	b.generalEvents = append(b.generalEvents, *e)
	return nil
}

// RecordTelemetryEvent records a telemetry snapshot
func (b *Backend) RecordTelemetryEvent(e *core.TelemetryEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.telemetry = append(b.telemetry, *e)
	return nil
}

// Counts returns how many records of each kind are held.
func (b *Backend) Counts() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]int{
		"targets":   len(b.targets),
		"shots":     len(b.shotEvents),
		"hits":      len(b.hitEvents),
		"kills":     len(b.killEvents),
		"weapon":    len(b.weaponEvents),
		"zones":     len(b.zoneEvents),
		"general":   len(b.generalEvents),
		"telemetry": len(b.telemetry),
	}
}
