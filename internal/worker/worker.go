// Package worker turns dispatched recording commands into storage calls.
package worker

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/OCAP2/skirmish/internal/cache"
	"github.com/OCAP2/skirmish/internal/logging"
	"github.com/OCAP2/skirmish/internal/mission"
	"github.com/OCAP2/skirmish/internal/model"
	"github.com/OCAP2/skirmish/internal/storage"
	"github.com/OCAP2/skirmish/pkg/core"
)

// ErrUnexpectedPayload is returned when a command carries the wrong type.
var ErrUnexpectedPayload = errors.New("unexpected payload")

// Recording commands.
const (
	CmdTarget       = ":NEW:TARGET:"
	CmdShot         = ":SHOT:"
	CmdHit          = ":HIT:"
	CmdKill         = ":KILL:"
	CmdWeaponState  = ":WEAPON:STATE:"
	CmdZoneState    = ":ZONE:STATE:"
	CmdGeneralEvent = ":EVENT:"
	CmdTelemetry    = ":TELEMETRY:"
)

// Commands lists every recording command in registration order.
var Commands = []string{
	CmdTarget, CmdShot, CmdHit, CmdKill,
	CmdWeaponState, CmdZoneState, CmdGeneralEvent, CmdTelemetry,
}

// TelemetrySink receives time series copies of telemetry and zone records.
type TelemetrySink interface {
	WriteTelemetry(mission string, e core.TelemetryEvent) error
	WriteZone(mission string, e core.ZoneEvent) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	EntityCache    *cache.EntityCache
	ZoneCache      *cache.ZoneCache
	MissionContext *mission.Context
	LogManager     *logging.SlogManager
	Telemetry      TelemetrySink // optional
}

// Manager owns the recording handlers.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	shots cache.SafeCounter
	hits  cache.SafeCounter
	kills cache.SafeCounter

	telemetryMu   sync.RWMutex
	lastTelemetry *core.TelemetryEvent
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.EntityCache == nil {
		deps.EntityCache = cache.NewEntityCache()
	}
	if deps.ZoneCache == nil {
		deps.ZoneCache = cache.NewZoneCache()
	}
	if deps.MissionContext == nil {
		deps.MissionContext = mission.NewContext()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Stats is a running tally of handled combat records.
type Stats struct {
	Shots int
	Hits  int
	Kills int
}

// Stats returns how many combat records reached the backend.
func (m *Manager) Stats() Stats {
	return Stats{Shots: m.shots.Value(), Hits: m.hits.Value(), Kills: m.kills.Value()}
}

// LastTelemetry returns the most recent telemetry snapshot handled.
func (m *Manager) LastTelemetry() (core.TelemetryEvent, bool) {
	m.telemetryMu.RLock()
	defer m.telemetryMu.RUnlock()
	if m.lastTelemetry == nil {
		return core.TelemetryEvent{}, false
	}
	return *m.lastTelemetry, true
}

// Reset clears caches and counters between missions.
func (m *Manager) Reset() {
	m.telemetryMu.Lock()
	m.lastTelemetry = nil
	m.telemetryMu.Unlock()

	m.deps.EntityCache.Reset()
	m.deps.ZoneCache.Reset()
	m.shots.Set(0)
	m.hits.Set(0)
	m.kills.Set(0)
}

func payload[T any](cmd string, v any) (T, error) {
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w: %T", cmd, ErrUnexpectedPayload, v)
	}
	return out, nil
}

// BufferLengths maps dispatcher queue lengths onto the performance model.
func BufferLengths(queues map[string]int) model.BufferLengths {
	c := func(cmd string) uint16 {
		n := queues[cmd]
		if n > math.MaxUint16 {
			return math.MaxUint16
		}
		return uint16(n)
	}
	return model.BufferLengths{
		Targets:     c(CmdTarget),
		Shots:       c(CmdShot),
		Hits:        c(CmdHit),
		Kills:       c(CmdKill),
		WeaponState: c(CmdWeaponState),
		ZoneState:   c(CmdZoneState),
		General:     c(CmdGeneralEvent),
		Telemetry:   c(CmdTelemetry),
	}
}
