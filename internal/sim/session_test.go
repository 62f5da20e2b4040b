package sim

import (
	"context"
	"testing"
	"time"

	"github.com/OCAP2/skirmish/internal/curve"
	"github.com/OCAP2/skirmish/internal/geo"
	"github.com/OCAP2/skirmish/internal/input"
	"github.com/OCAP2/skirmish/internal/player"
	"github.com/OCAP2/skirmish/internal/rng"
	"github.com/OCAP2/skirmish/internal/weapon"
	"github.com/OCAP2/skirmish/internal/zone"
	"github.com/OCAP2/skirmish/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 10 * time.Millisecond

type memRecorder struct {
	targets   []core.TargetEvent
	shots     []core.ShotEvent
	hits      []core.HitEvent
	kills     []core.KillEvent
	states    []core.WeaponStateEvent
	zones     []core.ZoneEvent
	events    []core.GeneralEvent
	telemetry []core.TelemetryEvent
}

func (r *memRecorder) RecordTarget(e core.TargetEvent)           { r.targets = append(r.targets, e) }
func (r *memRecorder) RecordShot(e core.ShotEvent)               { r.shots = append(r.shots, e) }
func (r *memRecorder) RecordHit(e core.HitEvent)                 { r.hits = append(r.hits, e) }
func (r *memRecorder) RecordKill(e core.KillEvent)               { r.kills = append(r.kills, e) }
func (r *memRecorder) RecordWeaponState(e core.WeaponStateEvent) { r.states = append(r.states, e) }
func (r *memRecorder) RecordZoneState(e core.ZoneEvent)          { r.zones = append(r.zones, e) }
func (r *memRecorder) RecordGeneralEvent(e core.GeneralEvent)    { r.events = append(r.events, e) }
func (r *memRecorder) RecordTelemetry(e core.TelemetryEvent)     { r.telemetry = append(r.telemetry, e) }

func (r *memRecorder) event(name string) bool {
	for _, e := range r.events {
		if e.Name == name {
			return true
		}
	}
	return false
}

func carbine() *weapon.Definition {
	d := &weapon.Definition{
		Name:         "carbine",
		FireRate:     0.1,
		MagazineSize: 10,
		MaxReserve:   30,
		Damage:       25,
		Range:        100,
		ReloadTime:   1,
	}
	d.ApplyDefaults()
	return d
}

func newSession(t *testing.T, setup Setup) (*Session, *memRecorder) {
	t.Helper()
	if setup.Player == (player.Settings{}) {
		setup.Player = player.DefaultSettings()
	}
	if len(setup.Loadout) == 0 {
		setup.Loadout = []*weapon.Definition{carbine()}
	}
	rec := &memRecorder{}
	s, err := NewSession(setup, Options{
		RelaxSpeed: 2,
		Random:     rng.Fixed(0),
		Recorder:   rec,
		StartTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	s.Start()
	return s, rec
}

func hold(actions ...input.Action) input.Snapshot {
	var set input.ActionSet
	for _, a := range actions {
		set = set.With(a)
	}
	return input.Snapshot{Held: set}
}

func run(s *Session, n int, snap input.Snapshot) {
	for i := 0; i < n; i++ {
		s.FixedUpdate(frame)
		s.Update(frame, snap)
	}
}

func TestNewSession_RequiresWeapon(t *testing.T) {
	_, err := NewSession(Setup{Player: player.DefaultSettings()}, Options{})
	require.ErrorIs(t, err, weapon.ErrNoWeapon)
}

func TestSession_ShootKillsTarget(t *testing.T) {
	s, rec := newSession(t, Setup{
		Targets: []TargetSpec{{Name: "dummy", Position: core.Vec3{Y: 1.7, Z: 10}, Radius: 0.5, Health: 50}},
	})
	require.True(t, rec.event("mission_start"))

	run(s, 25, hold(input.Shoot))

	assert.Len(t, rec.shots, 3)
	assert.Len(t, rec.hits, 2)
	require.Len(t, rec.kills, 1)
	assert.Equal(t, "dummy", rec.kills[0].TargetName)
	assert.Equal(t, "carbine", rec.kills[0].Weapon)
	assert.False(t, rec.shots[2].Hit, "collider removed after the kill")
	assert.Equal(t, 0, s.TargetsAlive())
	assert.Equal(t, 3, s.ShotsFired())

	assert.Equal(t, uint(1), rec.shots[0].CaptureFrame)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, int(10*time.Millisecond), time.UTC), rec.shots[0].Time)
	require.NotEmpty(t, rec.states)
	assert.Equal(t, "shoot", rec.states[0].To)
}

func TestSession_RecoilProgressPerShot(t *testing.T) {
	def := carbine()
	def.Recoil = weapon.RecoilSettings{
		Enabled: true,
		Pitch:   curve.Linear([2]float64{0, 0}, [2]float64{1, 20}),
		Yaw:     curve.Linear([2]float64{0, 0}, [2]float64{1, 0}),
	}
	def.ApplyDefaults()
	s, _ := newSession(t, Setup{Loadout: []*weapon.Definition{def}})

	run(s, 25, hold(input.Shoot))
	assert.InDelta(t, 0.3, s.Recoil().Progress(), 1e-9)
	pitch, _ := s.Recoil().Offsets()
	assert.Greater(t, pitch, 0.0)

	run(s, 2, input.Snapshot{})
	assert.Zero(t, s.Recoil().Progress())
}

func TestSession_SwapResetsRecoil(t *testing.T) {
	def := carbine()
	def.Recoil.Enabled = true
	def.Recoil.Pitch = curve.Linear([2]float64{0, 5}, [2]float64{1, 5})
	pistol := carbine()
	pistol.Name = "pistol"
	s, rec := newSession(t, Setup{Loadout: []*weapon.Definition{def, pistol}})

	run(s, 5, hold(input.Shoot))
	require.Greater(t, s.Recoil().Progress(), 0.0)

	run(s, 1, input.Snapshot{})
	run(s, 1, hold(input.NextWeapon))
	assert.Equal(t, "pistol", s.Machine().Current().Def.Name)
	assert.Zero(t, s.Recoil().Progress())
	pitch, yaw := s.Recoil().Offsets()
	assert.Zero(t, pitch)
	assert.Zero(t, yaw)

	last := rec.states[len(rec.states)-1]
	assert.Equal(t, "pistol", last.Weapon)
}

func zoneAround(t *testing.T, id string) zone.Spec {
	t.Helper()
	area, err := geo.NewArea([][2]float64{{-5, -5}, {5, -5}, {5, 5}, {-5, 5}})
	require.NoError(t, err)
	return zone.Spec{
		ID:              id,
		CaptureDuration: 500 * time.Millisecond,
		PillarMaxHealth: 50,
		Pillar:          core.Vec3{Z: 8},
		Area:            area,
	}
}

func TestSession_ZoneCaptureAndPillar(t *testing.T) {
	s, rec := newSession(t, Setup{Zones: []zone.Spec{zoneAround(t, "alpha")}})

	run(s, 10, hold(input.Shoot))
	assert.Empty(t, rec.hits, "pillar is not hittable before it is vulnerable")

	run(s, 1, input.Snapshot{})
	run(s, 40, input.Snapshot{})
	z, ok := s.Zones().Zone("alpha")
	require.True(t, ok)
	require.Equal(t, zone.PillarVulnerable, z.State())

	run(s, 15, hold(input.Shoot))
	assert.Equal(t, zone.Cleansed, z.State())
	assert.Len(t, rec.hits, 2)
	assert.True(t, s.Complete())
	assert.Equal(t, 1.0, s.Zones().Progress())
	assert.True(t, rec.event("zones_cleansed"))

	var tos []string
	for _, e := range rec.zones {
		tos = append(tos, e.To)
	}
	assert.Equal(t, []string{"active", "capturing", "pillar_vulnerable", "cleansed"}, tos)
	assert.Equal(t, 1, rec.zones[3].Cleansed)
	assert.Equal(t, 1, rec.zones[3].Total)

	run(s, 15, hold(input.Shoot))
	assert.Len(t, rec.hits, 2, "cleansed pillar is no longer hittable")
}

func TestSession_SpawnRequestsCreateTargets(t *testing.T) {
	spec := zoneAround(t, "alpha")
	spec.CaptureDuration = 10 * time.Second
	spec.Spawns = []zone.SpawnTable{{Target: "grunt", Position: core.Vec3{X: 20}, Interval: 200 * time.Millisecond, Count: 2}}
	s, rec := newSession(t, Setup{
		Zones:      []zone.Spec{spec},
		Archetypes: map[string]TargetSpec{"grunt": {Name: "grunt", Health: 30}},
	})
	assert.True(t, rec.event("zone_registered"))

	run(s, 50, input.Snapshot{})
	assert.Equal(t, 4, s.TargetsAlive())
	for _, tg := range s.Targets() {
		assert.Equal(t, "alpha", tg.ZoneID)
		assert.Equal(t, 30.0, tg.Health)
	}
	require.Len(t, rec.targets, 4)
	assert.Equal(t, "alpha", rec.targets[0].ZoneID)
	assert.Equal(t, 30.0, rec.targets[0].MaxHealth)
}

func TestSession_Telemetry(t *testing.T) {
	s, rec := newSession(t, Setup{})
	run(s, 250, input.Snapshot{})
	require.Len(t, rec.telemetry, 2)
	assert.Equal(t, "default", rec.telemetry[0].WeaponState)
	assert.Equal(t, 10, rec.telemetry[0].BulletsLeft)
	assert.Equal(t, 100, rec.telemetry[0].FixedSteps)
}

func TestSession_OnFrame(t *testing.T) {
	var frames []uint
	s, err := NewSession(Setup{Player: player.DefaultSettings(), Loadout: []*weapon.Definition{carbine()}},
		Options{OnFrame: func(f uint) { frames = append(frames, f) }})
	require.NoError(t, err)
	run(s, 3, input.Snapshot{})
	assert.Equal(t, []uint{1, 2, 3}, frames)
	assert.Equal(t, uint(3), s.Frame())
}

func TestLoop_RunsScriptToEnd(t *testing.T) {
	s, rec := newSession(t, Setup{})
	script := NewScript(Step{At: 0, Duration: 500 * time.Millisecond, Held: hold(input.Shoot).Held})

	stats, err := NewLoop(LoopConfig{TickRate: 60, FixedTickRate: 50}, s, script).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 31, stats.Frames)
	assert.Equal(t, 25, stats.FixedSteps)
	assert.GreaterOrEqual(t, stats.SimTime, 500*time.Millisecond)
	assert.Len(t, rec.shots, 5)
}

func TestLoop_Duration(t *testing.T) {
	s, _ := newSession(t, Setup{})
	stats, err := NewLoop(LoopConfig{TickRate: 100, FixedTickRate: 50, Duration: time.Second}, s, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, stats.Frames)
	assert.Equal(t, 50, stats.FixedSteps)
	assert.Equal(t, time.Second, stats.SimTime)
}

func TestLoop_Cancelled(t *testing.T) {
	s, _ := newSession(t, Setup{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := NewLoop(LoopConfig{Duration: time.Second}, s, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Frames)
}

func TestLoop_RealtimeCancelled(t *testing.T) {
	s, _ := newSession(t, Setup{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	stats, err := NewLoop(LoopConfig{TickRate: 100, Realtime: true, Duration: time.Hour}, s, nil).Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, stats.Frames, 0)
	assert.Less(t, stats.SimTime, time.Second)
}

func TestLoop_StopOnComplete(t *testing.T) {
	spec := zoneAround(t, "alpha")
	spec.PillarMaxHealth = 0
	s, _ := newSession(t, Setup{Zones: []zone.Spec{spec}})
	stats, err := NewLoop(LoopConfig{TickRate: 100, Duration: time.Minute, StopOnComplete: true}, s, nil).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Completed)
	assert.Less(t, stats.SimTime, time.Second)
}

func TestScript_Snapshot(t *testing.T) {
	sc := NewScript(
		Step{At: 100 * time.Millisecond, Duration: 100 * time.Millisecond, Held: hold(input.Aim).Held, MoveY: 1},
		Step{At: 0, Duration: time.Second, Held: hold(input.Shoot).Held, MoveY: 1, LookX: 90},
	)
	assert.Equal(t, 2, sc.Len())
	assert.Equal(t, time.Second, sc.End())

	snap := sc.Snapshot(150*time.Millisecond, 10*time.Millisecond)
	assert.True(t, snap.Held.Has(input.Shoot))
	assert.True(t, snap.Held.Has(input.Aim))
	assert.Equal(t, 1.0, snap.MoveY, "axes are clamped")
	assert.InDelta(t, 0.9, snap.LookX, 1e-9)

	snap = sc.Snapshot(500*time.Millisecond, 10*time.Millisecond)
	assert.False(t, snap.Held.Has(input.Aim))

	snap = sc.Snapshot(time.Second, 10*time.Millisecond)
	assert.Zero(t, snap.Held)
}
