package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/skirmish/internal/cache"
	"github.com/OCAP2/skirmish/internal/dispatcher"
	"github.com/OCAP2/skirmish/internal/mission"
	"github.com/OCAP2/skirmish/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) { l.add(msg) }
func (l *mockLogger) Info(msg string, keysAndValues ...any)  { l.add(msg) }
func (l *mockLogger) Error(msg string, keysAndValues ...any) { l.add(msg) }

func (l *mockLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu sync.Mutex

	targets      []*core.TargetEvent
	shots        []*core.ShotEvent
	hits         []*core.HitEvent
	kills        []*core.KillEvent
	weaponStates []*core.WeaponStateEvent
	zones        []*core.ZoneEvent
	general      []*core.GeneralEvent
	telemetry    []*core.TelemetryEvent

	failWith error
}

func (b *mockBackend) Init() error                                   { return nil }
func (b *mockBackend) Close() error                                  { return nil }
func (b *mockBackend) StartMission(*core.Mission, *core.World) error { return nil }
func (b *mockBackend) EndMission() error                             { return nil }

func (b *mockBackend) AddTarget(t *core.TargetEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targets = append(b.targets, t)
	return b.failWith
}

func (b *mockBackend) RecordShotEvent(e *core.ShotEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.shots = append(b.shots, e)
	return nil
}

func (b *mockBackend) RecordHitEvent(e *core.HitEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits = append(b.hits, e)
	return nil
}

func (b *mockBackend) RecordKillEvent(e *core.KillEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kills = append(b.kills, e)
	return nil
}

func (b *mockBackend) RecordWeaponStateEvent(e *core.WeaponStateEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.weaponStates = append(b.weaponStates, e)
	return nil
}

func (b *mockBackend) RecordZoneEvent(e *core.ZoneEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.zones = append(b.zones, e)
	return nil
}

func (b *mockBackend) RecordGeneralEvent(e *core.GeneralEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.general = append(b.general, e)
	return nil
}

func (b *mockBackend) RecordTelemetryEvent(e *core.TelemetryEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.telemetry = append(b.telemetry, e)
	return nil
}

func (b *mockBackend) count(f func(*mockBackend) int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return f(b)
}

// mockSink implements TelemetrySink for testing
type mockSink struct {
	mu        sync.Mutex
	missions  []string
	telemetry int
	zones     int
}

func (s *mockSink) WriteTelemetry(mission string, _ core.TelemetryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missions = append(s.missions, mission)
	s.telemetry++
	return nil
}

func (s *mockSink) WriteZone(mission string, _ core.ZoneEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missions = append(s.missions, mission)
	s.zones++
	return errors.New("influx down")
}

func newTestManager(t *testing.T, backend *mockBackend, sink TelemetrySink) (*Manager, *dispatcher.Dispatcher, Dependencies) {
	t.Helper()
	mc := mission.NewContext()
	mc.SetMission(&core.Mission{MissionName: "Lantern"}, &core.World{WorldName: "range"})
	deps := Dependencies{
		EntityCache:    cache.NewEntityCache(),
		ZoneCache:      cache.NewZoneCache(),
		MissionContext: mc,
	}
	if sink != nil {
		deps.Telemetry = sink
	}
	m := NewManager(deps, backend)

	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	m.RegisterHandlers(d)
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	return m, d, deps
}

func TestRegisterHandlers_AllCommands(t *testing.T) {
	_, d, _ := newTestManager(t, &mockBackend{}, nil)

	for _, cmd := range Commands {
		assert.True(t, d.HasHandler(cmd), "missing handler for %s", cmd)
	}
	assert.False(t, d.HasHandler(":NEW:SOLDIER:"))
}

func TestHandleTarget_CachesAndStores(t *testing.T) {
	backend := &mockBackend{}
	_, d, deps := newTestManager(t, backend, nil)

	_, err := d.Dispatch(dispatcher.Event{
		Command: CmdTarget,
		Payload: core.TargetEvent{TargetID: 7, Name: "dummy_a", MaxHealth: 100},
	})
	require.NoError(t, err)

	// target handler is synchronous
	require.Len(t, backend.targets, 1)
	assert.Equal(t, uint32(7), backend.targets[0].TargetID)
	assert.Equal(t, "dummy_a", deps.EntityCache.TargetName(7))
}

func TestHandleTarget_BackendError(t *testing.T) {
	backend := &mockBackend{failWith: errors.New("disk full")}
	_, d, _ := newTestManager(t, backend, nil)

	_, err := d.Dispatch(dispatcher.Event{Command: CmdTarget, Payload: core.TargetEvent{TargetID: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestHandleTarget_WrongPayload(t *testing.T) {
	_, d, _ := newTestManager(t, &mockBackend{}, nil)

	_, err := d.Dispatch(dispatcher.Event{Command: CmdTarget, Payload: "not a target"})
	assert.ErrorIs(t, err, ErrUnexpectedPayload)
}

func TestHandleKill_FillsTargetName(t *testing.T) {
	backend := &mockBackend{}
	m, d, _ := newTestManager(t, backend, nil)

	_, err := d.Dispatch(dispatcher.Event{Command: CmdTarget, Payload: core.TargetEvent{TargetID: 3, Name: "pillar"}})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{Command: CmdKill, Payload: core.KillEvent{TargetID: 3, Weapon: "rifle"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return backend.count(func(b *mockBackend) int { return len(b.kills) }) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "pillar", backend.kills[0].TargetName)
	assert.Equal(t, 1, m.Stats().Kills)
}

func TestHandleCombat_Counters(t *testing.T) {
	backend := &mockBackend{}
	m, d, _ := newTestManager(t, backend, nil)

	for i := 0; i < 3; i++ {
		_, err := d.Dispatch(dispatcher.Event{Command: CmdShot, Payload: core.ShotEvent{Weapon: "rifle", Pellet: i}})
		require.NoError(t, err)
	}
	_, err := d.Dispatch(dispatcher.Event{Command: CmdHit, Payload: core.HitEvent{TargetID: 1, Damage: 25}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := m.Stats()
		return s.Shots == 3 && s.Hits == 1
	}, time.Second, 5*time.Millisecond)

	m.Reset()
	assert.Equal(t, Stats{}, m.Stats())
}

func TestHandleZoneState_UpdatesCacheAndSink(t *testing.T) {
	backend := &mockBackend{}
	sink := &mockSink{}
	_, d, deps := newTestManager(t, backend, sink)

	_, err := d.Dispatch(dispatcher.Event{Command: CmdZoneState, Payload: core.ZoneEvent{
		ZoneID: "alpha", From: "inactive", To: "capturing", CaptureProgress: 0.25,
	}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return backend.count(func(b *mockBackend) int { return len(b.zones) }) == 1
	}, time.Second, 5*time.Millisecond)

	got, ok := deps.ZoneCache.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "capturing", got.To)

	// sink failures are logged, not returned
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 1, sink.zones)
	assert.Equal(t, []string{"Lantern"}, sink.missions)
}

func TestHandleTelemetry_ForwardsToSink(t *testing.T) {
	backend := &mockBackend{}
	sink := &mockSink{}
	_, d, _ := newTestManager(t, backend, sink)

	_, err := d.Dispatch(dispatcher.Event{Command: CmdTelemetry, Payload: core.TelemetryEvent{
		TickDuration: 2 * time.Millisecond, ShotsFired: 4,
	}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.telemetry == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, backend.count(func(b *mockBackend) int { return len(b.telemetry) }))
}

func TestRecorder_DispatchesAllRecords(t *testing.T) {
	backend := &mockBackend{}
	_, d, deps := newTestManager(t, backend, nil)
	rec := NewRecorder(d, deps.MissionContext, nil)

	now := time.Now()
	rec.RecordTarget(core.TargetEvent{Time: now, CaptureFrame: 1, TargetID: 9, Name: "dummy"})
	rec.RecordShot(core.ShotEvent{Time: now, CaptureFrame: 2})
	rec.RecordHit(core.HitEvent{Time: now, CaptureFrame: 2, TargetID: 9})
	rec.RecordKill(core.KillEvent{Time: now, CaptureFrame: 3, TargetID: 9})
	rec.RecordWeaponState(core.WeaponStateEvent{Time: now, CaptureFrame: 3, From: "idle", To: "firing"})
	rec.RecordZoneState(core.ZoneEvent{Time: now, CaptureFrame: 4, ZoneID: "alpha"})
	rec.RecordGeneralEvent(core.GeneralEvent{Time: now, CaptureFrame: 4, Name: "zone_registered"})
	rec.RecordTelemetry(core.TelemetryEvent{Time: now, CaptureFrame: 5})

	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, uint(5), deps.MissionContext.Frame())
	assert.Zero(t, rec.Dropped())

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Len(t, backend.targets, 1)
	assert.Len(t, backend.shots, 1)
	assert.Len(t, backend.hits, 1)
	assert.Len(t, backend.kills, 1)
	assert.Len(t, backend.weaponStates, 1)
	assert.Len(t, backend.zones, 1)
	assert.Len(t, backend.general, 1)
	assert.Len(t, backend.telemetry, 1)
	assert.Equal(t, "dummy", backend.kills[0].TargetName)
}

func TestRecorder_CountsDroppedAfterClose(t *testing.T) {
	_, d, deps := newTestManager(t, &mockBackend{}, nil)
	rec := NewRecorder(d, deps.MissionContext, nil)

	require.NoError(t, d.Close(context.Background()))
	rec.RecordShot(core.ShotEvent{CaptureFrame: 1})

	assert.Equal(t, uint64(1), rec.Dropped())
}

func TestLastTelemetry(t *testing.T) {
	m, d, _ := newTestManager(t, &mockBackend{}, nil)

	_, ok := m.LastTelemetry()
	assert.False(t, ok)

	_, err := d.Dispatch(dispatcher.Event{Command: CmdTelemetry, Payload: core.TelemetryEvent{WeaponState: "firing", BulletsLeft: 12}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := m.LastTelemetry()
		return ok
	}, time.Second, 5*time.Millisecond)
	got, _ := m.LastTelemetry()
	assert.Equal(t, "firing", got.WeaponState)

	m.Reset()
	_, ok = m.LastTelemetry()
	assert.False(t, ok)
}

func TestBufferLengths(t *testing.T) {
	got := BufferLengths(map[string]int{CmdShot: 12, CmdTelemetry: 1 << 20, "unknown": 4})
	assert.Equal(t, uint16(12), got.Shots)
	assert.Equal(t, uint16(65535), got.Telemetry)
	assert.Zero(t, got.Hits)
}
