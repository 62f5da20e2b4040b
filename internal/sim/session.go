// Package sim assembles the player rig, weapons, zones and collision world
// into one mission session advanced by an external tick.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/skirmish/internal/input"
	"github.com/OCAP2/skirmish/internal/physics"
	"github.com/OCAP2/skirmish/internal/player"
	"github.com/OCAP2/skirmish/internal/recoil"
	"github.com/OCAP2/skirmish/internal/rng"
	"github.com/OCAP2/skirmish/internal/sched"
	"github.com/OCAP2/skirmish/internal/weapon"
	"github.com/OCAP2/skirmish/internal/zone"
	"github.com/OCAP2/skirmish/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Setup is the content of a mission.
type Setup struct {
	Player  player.Settings
	Loadout []*weapon.Definition
	Zones   []zone.Spec
	Targets []TargetSpec
	// Archetypes resolve zone spawn requests by target name.
	Archetypes map[string]TargetSpec
	Obstacles  []physics.Collider
}

// Options tune a Session.
type Options struct {
	RelaxSpeed        float64
	RegistrationDelay time.Duration
	Activation        zone.ActivationMode
	TelemetryInterval time.Duration
	StartTime         time.Time
	Random            rng.Source
	Recorder          Recorder
	Logger            *slog.Logger
	// OnFrame is called at the start of every Update with the new frame number.
	OnFrame func(frame uint)
}

// Session is one running mission. All methods must be called from the same
// goroutine.
type Session struct {
	sched   *sched.Scheduler
	router  *input.Router
	motor   *player.Motor
	camfx   *player.CameraEffects
	machine *weapon.Machine
	recoil  *recoil.Model
	world   *physics.World
	zones   *zone.Controller

	targets       map[uint32]*Target
	archetypes    map[string]TargetSpec
	pillars       map[uint32]string
	pillarByZone  map[string]physics.ColliderID
	turrets       []*Target
	nextTransform uint32

	health float64
	down   bool

	opts       Options
	rec        Recorder
	log        *slog.Logger
	metrics    *instruments
	frame      uint
	fixedSteps int
	shots      int
	complete   bool
	sinceTelem time.Duration
}

// NewSession builds every component and registers the zones. Call Start to
// open the mission.
func NewSession(setup Setup, opts Options) (*Session, error) {
	if opts.Recorder == nil {
		opts.Recorder = NopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Random == nil {
		opts.Random = rng.Default()
	}
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now()
	}
	if opts.TelemetryInterval <= 0 {
		opts.TelemetryInterval = time.Second
	}

	metrics, err := newInstruments()
	if err != nil {
		return nil, err
	}

	if setup.Player.Health <= 0 {
		setup.Player.Health = player.DefaultSettings().Health
	}

	s := &Session{
		sched:        sched.New(),
		router:       input.NewRouter(),
		motor:        player.NewMotor(setup.Player),
		recoil:       recoil.New(opts.RelaxSpeed),
		world:        physics.NewWorld(),
		targets:      make(map[uint32]*Target),
		archetypes:   setup.Archetypes,
		pillars:      make(map[uint32]string),
		pillarByZone: make(map[string]physics.ColliderID),
		opts:         opts,
		rec:          opts.Recorder,
		log:          opts.Logger,
		metrics:      metrics,
		health:       setup.Player.Health,
	}
	s.camfx = player.NewCameraEffects(setup.Player.Camera, s.sched)

	for _, c := range setup.Obstacles {
		s.nextTransform++
		c.Transform = s.nextTransform
		c.Layer = physics.LayerEnvironment
		s.world.Add(c)
	}
	for _, t := range setup.Targets {
		s.spawnTarget(t, t.Position, "")
	}

	s.machine, err = weapon.NewMachine(weapon.Config{
		Scheduler: s.sched,
		Router:    s.router,
		World:     s.world,
		Camera:    s.camera,
		Mover:     s.motor,
		Random:    opts.Random,
		Logger:    opts.Logger.With("component", "weapon"),
	}, setup.Loadout...)
	if err != nil {
		return nil, fmt.Errorf("creating weapon machine: %w", err)
	}

	s.zones = zone.NewController(s.sched, zone.Options{
		RegistrationDelay: opts.RegistrationDelay,
		Mode:              opts.Activation,
		Logger:            opts.Logger.With("component", "zones"),
	})
	for _, spec := range setup.Zones {
		if err := s.RegisterZone(spec); err != nil {
			return nil, err
		}
	}

	s.wire()
	return s, nil
}

// RegisterZone adds a zone and its pillar collider. It fails once the zone
// controller has activated.
func (s *Session) RegisterZone(spec zone.Spec) error {
	if _, err := s.zones.Register(spec); err != nil {
		return err
	}
	s.nextTransform++
	id := s.world.Add(physics.Collider{
		Transform: s.nextTransform,
		Shape:     physics.Box,
		Center:    spec.Pillar.Add(core.Vec3{Y: 1.5}),
		Extents:   core.Vec3{X: 0.5, Y: 1.5, Z: 0.5},
		Layer:     physics.LayerPillar,
	})
	s.world.Enable(id, false)
	s.pillars[s.nextTransform] = spec.ID
	s.pillarByZone[spec.ID] = id
	s.rec.RecordGeneralEvent(core.GeneralEvent{
		Time:         s.Now(),
		CaptureFrame: s.frame,
		Name:         "zone_registered",
		Message:      spec.ID,
		ExtraData: map[string]any{
			"order":        spec.Order,
			"area":         spec.Area.WKT(),
			"pillarHealth": spec.PillarMaxHealth,
		},
	})
	return nil
}

func (s *Session) wire() {
	m := s.machine
	m.Fired.Subscribe(s.onFired)
	m.Damage.Subscribe(s.onDamage)
	m.StateChanged.Subscribe(func(e weapon.StateChange) {
		s.rec.RecordWeaponState(core.WeaponStateEvent{
			Time:         s.Now(),
			CaptureFrame: s.frame,
			Weapon:       e.Weapon,
			From:         string(e.From),
			To:           string(e.To),
			BulletsLeft:  e.BulletsLeft,
			Reserve:      e.Reserve,
			Heat:         e.Heat,
		})
	})
	m.Swapped.Subscribe(func(name string) {
		s.recoil.Reset()
		s.log.Debug("weapon swapped", "weapon", name)
	})
	m.Effects.Subscribe(func(e weapon.Effect) {
		switch {
		case e.Kind == weapon.EffectShake:
			s.camfx.Shake(e.Amount)
		case e.Kind == weapon.EffectSound && e.Sound == m.Current().Def.EmptyMagSound:
			s.log.Debug("empty magazine", "weapon", e.Weapon)
		}
	})

	s.zones.ZoneChanged.Subscribe(s.onZoneChanged)
	s.zones.SpawnRequested.Subscribe(s.onSpawn)
	s.zones.AllCleansed.Subscribe(func(sum zone.Summary) {
		s.complete = true
		s.rec.RecordGeneralEvent(core.GeneralEvent{
			Time:         s.Now(),
			CaptureFrame: s.frame,
			Name:         "zones_cleansed",
			Message:      "all zones cleansed",
			ExtraData:    map[string]any{"cleansed": sum.Cleansed, "total": sum.Total},
		})
	})
}

// Start opens zone registration and records the mission start.
func (s *Session) Start() {
	s.zones.Start()
	s.rec.RecordGeneralEvent(core.GeneralEvent{
		Time:         s.Now(),
		CaptureFrame: s.frame,
		Name:         "mission_start",
		ExtraData: map[string]any{
			"zones":   s.zones.Total(),
			"targets": len(s.targets),
			"weapon":  s.machine.Current().Def.Name,
		},
	})
}

// FixedUpdate runs one physics step of player movement with the most recent
// input.
func (s *Session) FixedUpdate(dt time.Duration) {
	s.fixedSteps++
	s.motor.FixedTick(dt, s.router.Last())
}

// Update runs one frame: deferred routines, input edges, weapon, recoil,
// camera effects, zones and turrets, in that order.
func (s *Session) Update(dt time.Duration, snap input.Snapshot) {
	start := time.Now()
	s.frame++
	if s.opts.OnFrame != nil {
		s.opts.OnFrame(s.frame)
	}

	s.sched.Tick(dt)
	s.motor.Look(snap.LookX, snap.LookY)
	s.router.Dispatch(snap)
	s.machine.Update(dt)

	w := s.machine.Current()
	firing := s.machine.Firing()
	// a semi-automatic sequence lasts until the trigger is released
	if w != nil && w.Def.FireMode == weapon.FireSemi && s.router.Tracker().Held(input.Shoot) {
		firing = true
	}
	s.recoil.Tick(dt, recoil.Context{
		HasWeapon: w != nil,
		Empty:     w.Runtime.Empty(),
		Enabled:   w.Def.Recoil.Enabled,
		Firing:    firing,
		Aiming:    s.machine.Aiming(),
		Profile: recoil.Profile{
			Pitch:         w.Def.Recoil.Pitch,
			Yaw:           w.Def.Recoil.Yaw,
			HipMultiplier: w.Def.Recoil.HipMultiplier,
			AimMultiplier: w.Def.Recoil.AimMultiplier,
			RelaxSpeed:    w.Def.Recoil.RelaxSpeed,
		},
	})
	s.camfx.Lean(snap.MoveX)
	s.camfx.Tick(dt)
	s.zones.Tick(dt, s.motor.Position())
	s.tickTurrets()

	elapsed := time.Since(start)
	s.metrics.tickDuration.Record(context.Background(), float64(elapsed.Microseconds())/1000)

	s.sinceTelem += dt
	if s.sinceTelem >= s.opts.TelemetryInterval {
		s.sinceTelem = 0
		s.recordTelemetry(elapsed)
	}
}

func (s *Session) recordTelemetry(tick time.Duration) {
	pitch, yaw := s.recoil.Offsets()
	w := s.machine.Current()
	s.rec.RecordTelemetry(core.TelemetryEvent{
		Time:           s.Now(),
		CaptureFrame:   s.frame,
		TickDuration:   tick,
		FixedSteps:     s.fixedSteps,
		ShotsFired:     s.shots,
		TargetsAlive:   s.TargetsAlive(),
		ZoneProgress:   s.zones.Progress(),
		WeaponState:    string(s.machine.State()),
		BulletsLeft:    w.Runtime.BulletsLeft,
		RecoilProgress: s.recoil.Progress(),
		RecoilPitch:    pitch,
		RecoilYaw:      yaw,
		CameraShake:    s.camfx.Amplitude(),
		CameraRoll:     s.camfx.Roll(),
		PlayerHealth:   s.health,
	})
}

func (s *Session) camera() (core.Vec3, core.Vec3) {
	return s.motor.Camera(s.recoil.Offsets())
}

func (s *Session) onFired(e weapon.ShotFired) {
	s.shots++
	s.recoil.OnShot(s.machine.Current().Def.MagazineSize)
	s.metrics.shots.Add(context.Background(), 1, metric.WithAttributes(attribute.String("weapon", e.Weapon)))
	s.rec.RecordShot(core.ShotEvent{
		Time:         s.Now(),
		CaptureFrame: s.frame,
		Weapon:       e.Weapon,
		Pellet:       e.Pellet,
		Origin:       e.Origin,
		Direction:    e.Direction,
		EndPos:       e.End,
		Hit:          e.Hit,
	})
}

func (s *Session) onDamage(d weapon.Damage) {
	hit := core.HitEvent{
		Time:         s.Now(),
		CaptureFrame: s.frame,
		TargetID:     d.Transform,
		ColliderID:   uint32(d.Collider),
		Weapon:       d.Weapon,
		Damage:       d.Amount,
		Penetration:  d.Penetration,
		Melee:        d.Melee,
		Distance:     d.Distance,
		Position:     d.Point,
	}

	if zoneID, ok := s.pillars[d.Transform]; ok {
		applied, err := s.zones.DamagePillar(zoneID, d.Amount)
		if err != nil {
			s.log.Debug("pillar damage dropped", "zone", zoneID, "error", err)
			return
		}
		if applied {
			s.metrics.damage.Add(context.Background(), d.Amount)
			s.rec.RecordHit(hit)
		}
		return
	}

	t, ok := s.targets[d.Transform]
	if !ok || !t.Alive {
		return
	}
	t.Health -= d.Amount
	s.metrics.damage.Add(context.Background(), d.Amount)
	s.rec.RecordHit(hit)
	if t.Health > 0 {
		return
	}

	t.Health = 0
	t.Alive = false
	s.disarm(t)
	s.world.Remove(t.collider)
	s.rec.RecordKill(core.KillEvent{
		Time:         s.Now(),
		CaptureFrame: s.frame,
		TargetID:     t.Transform,
		TargetName:   t.Name,
		Weapon:       d.Weapon,
		Distance:     d.Distance,
	})
}

func (s *Session) onZoneChanged(c zone.Change) {
	if id, ok := s.pillarByZone[c.ZoneID]; ok {
		switch c.To {
		case zone.PillarVulnerable:
			s.world.Enable(id, true)
		case zone.Cleansed:
			s.world.Enable(id, false)
		}
	}
	s.rec.RecordZoneState(core.ZoneEvent{
		Time:            s.Now(),
		CaptureFrame:    s.frame,
		ZoneID:          c.ZoneID,
		From:            c.From.String(),
		To:              c.To.String(),
		CaptureProgress: c.CaptureProgress,
		PillarHealth:    c.PillarHealth,
		Cleansed:        s.zones.Cleansed(),
		Total:           s.zones.Total(),
	})
}

func (s *Session) onSpawn(r zone.SpawnRequest) {
	spec, ok := s.archetypes[r.Target]
	if !ok {
		s.log.Debug("unknown spawn archetype", "zone", r.ZoneID, "target", r.Target)
		return
	}
	for i := 0; i < r.Count; i++ {
		at := r.Position.Add(core.Vec3{X: float64(i) * 1.5})
		s.spawnTarget(spec, at, r.ZoneID)
	}
	s.log.Debug("spawned wave", "zone", r.ZoneID, "target", r.Target, "count", r.Count, "wave", r.Wave)
}

// Now returns the wall-clock time of the current simulated instant.
func (s *Session) Now() time.Time { return s.opts.StartTime.Add(s.sched.Now()) }

// Elapsed returns simulated time since the session started.
func (s *Session) Elapsed() time.Duration { return s.sched.Now() }

// Frame returns the number of Update calls so far.
func (s *Session) Frame() uint { return s.frame }

// Complete reports whether every zone has been cleansed.
func (s *Session) Complete() bool { return s.complete }

// ShotsFired returns the number of rounds fired.
func (s *Session) ShotsFired() int { return s.shots }

// Machine exposes the weapon state machine.
func (s *Session) Machine() *weapon.Machine { return s.machine }

// Zones exposes the zone controller.
func (s *Session) Zones() *zone.Controller { return s.zones }

// Recoil exposes the recoil model.
func (s *Session) Recoil() *recoil.Model { return s.recoil }

// CameraEffects exposes view shake and tilt.
func (s *Session) CameraEffects() *player.CameraEffects { return s.camfx }

// Motor exposes the player motor.
func (s *Session) Motor() *player.Motor { return s.motor }

// Router exposes the input router.
func (s *Session) Router() *input.Router { return s.router }

// World exposes the collision world.
func (s *Session) World() *physics.World { return s.world }
