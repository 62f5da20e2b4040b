package scenario

import (
	"fmt"
	"strings"

	"github.com/OCAP2/skirmish/internal/geo"
	"github.com/OCAP2/skirmish/internal/input"
	"github.com/OCAP2/skirmish/internal/physics"
	"github.com/OCAP2/skirmish/internal/player"
	"github.com/OCAP2/skirmish/internal/sim"
	"github.com/OCAP2/skirmish/internal/weapon"
	"github.com/OCAP2/skirmish/internal/zone"
	"github.com/OCAP2/skirmish/pkg/core"
)

// circleSegments is the polygon resolution of circular capture areas.
const circleSegments = 32

// Setup converts the scenario into session content. The scenario must have
// passed Validate.
func (s *Scenario) Setup() (sim.Setup, error) {
	var setup sim.Setup

	ps, err := s.playerSettings()
	if err != nil {
		return setup, err
	}
	setup.Player = ps

	for _, def := range s.WeaponDefinitions() {
		setup.Loadout = append(setup.Loadout, def)
	}

	setup.Archetypes = make(map[string]sim.TargetSpec, len(s.Archetypes))
	for name, a := range s.Archetypes {
		setup.Archetypes[name] = sim.TargetSpec{Name: name, Health: a.Health, Radius: a.Radius, Turret: a.Turret.spec()}
	}

	for _, t := range s.Targets {
		spec, err := s.targetSpec(t)
		if err != nil {
			return setup, err
		}
		setup.Targets = append(setup.Targets, spec)
	}

	zones, err := s.ZoneSpecs()
	if err != nil {
		return setup, err
	}
	setup.Zones = zones

	for i, o := range s.Obstacles {
		c, err := obstacle(o)
		if err != nil {
			return setup, fmt.Errorf("obstacles[%d]: %w", i, err)
		}
		setup.Obstacles = append(setup.Obstacles, c)
	}
	return setup, nil
}

// WeaponDefinitions returns the loadout in order. Definitions are shared,
// not copied per instance.
func (s *Scenario) WeaponDefinitions() []*weapon.Definition {
	byName := make(map[string]*weapon.Definition, len(s.Weapons))
	for i := range s.Weapons {
		byName[s.Weapons[i].Name] = &s.Weapons[i]
	}
	out := make([]*weapon.Definition, 0, len(s.Loadout))
	for _, name := range s.Loadout {
		if def, ok := byName[name]; ok {
			out = append(out, def)
		}
	}
	return out
}

// ZoneSpecs builds every zone with its capture area.
func (s *Scenario) ZoneSpecs() ([]zone.Spec, error) {
	out := make([]zone.Spec, 0, len(s.Zones))
	for _, z := range s.Zones {
		var (
			area geo.Area
			err  error
		)
		if z.Circle != nil {
			var c core.Vec3
			c, err = geo.Vec3FromString(z.Circle.Center)
			if err == nil {
				area, err = geo.CircleArea(c.X, c.Z, z.Circle.Radius, circleSegments)
			}
		} else {
			area, err = geo.NewArea(z.Area)
		}
		if err != nil {
			return nil, fmt.Errorf("zone %q area: %w", z.ID, err)
		}

		spec := zone.Spec{
			ID:              z.ID,
			Order:           z.Order,
			CaptureDuration: z.CaptureTime,
			PillarMaxHealth: z.PillarHealth,
			Area:            area,
			Pillar:          area.Centroid(),
		}
		if z.Pillar != "" {
			if spec.Pillar, err = geo.Vec3FromString(z.Pillar); err != nil {
				return nil, fmt.Errorf("zone %q pillar: %w", z.ID, err)
			}
		}
		for _, sp := range z.Spawns {
			pos := spec.Pillar
			if sp.Position != "" {
				if pos, err = geo.Vec3FromString(sp.Position); err != nil {
					return nil, fmt.Errorf("zone %q spawn position: %w", z.ID, err)
				}
			}
			spec.Spawns = append(spec.Spawns, zone.SpawnTable{
				Target:   sp.Target,
				Position: pos,
				Interval: sp.Interval,
				Count:    sp.Count,
				Waves:    sp.Waves,
			})
		}
		out = append(out, spec)
	}
	return out, nil
}

// InputScript converts the input timeline.
func (s *Scenario) InputScript() (*sim.Script, error) {
	steps := make([]sim.Step, 0, len(s.Script))
	for i, st := range s.Script {
		var held input.ActionSet
		for _, name := range st.Hold {
			a, err := input.ParseAction(name)
			if err != nil {
				return nil, fmt.Errorf("script[%d]: %w", i, err)
			}
			held = held.With(a)
		}
		steps = append(steps, sim.Step{
			At:       st.At,
			Duration: st.For,
			Held:     held,
			MoveX:    st.Move[0],
			MoveY:    st.Move[1],
			LookX:    st.Look[0],
			LookY:    st.Look[1],
		})
	}
	return sim.NewScript(steps...), nil
}

// MissionRecord returns the recording metadata for this scenario.
func (s *Scenario) MissionRecord() core.Mission {
	return core.Mission{
		MissionName:  s.Mission.Name,
		Author:       s.Mission.Author,
		Tag:          s.Mission.Tag,
		ScenarioFile: s.path,
	}
}

// WorldRecord returns the arena metadata with its web-mercator origin.
func (s *Scenario) WorldRecord() core.World {
	ref := geo.Georef{Latitude: s.World.Latitude, Longitude: s.World.Longitude}
	return core.World{
		WorldName:   s.World.Name,
		DisplayName: s.World.DisplayName,
		WorldSize:   s.World.Size,
		Latitude:    float32(s.World.Latitude),
		Longitude:   float32(s.World.Longitude),
		Location:    ref.Origin(),
	}
}

func (s *Scenario) playerSettings() (player.Settings, error) {
	ps := player.DefaultSettings()
	p := s.Player
	if p.Spawn != "" {
		spawn, err := geo.Vec3FromString(p.Spawn)
		if err != nil {
			return ps, fmt.Errorf("player spawn: %w", err)
		}
		ps.Spawn = spawn
	}
	ps.Yaw = p.Yaw
	if p.WalkSpeed > 0 {
		ps.WalkSpeed = p.WalkSpeed
	}
	if p.RunSpeed > 0 {
		ps.RunSpeed = p.RunSpeed
	}
	if p.Acceleration > 0 {
		ps.Acceleration = p.Acceleration
	}
	if p.EyeHeight > 0 {
		ps.EyeHeight = p.EyeHeight
	}
	if p.Sensitivity > 0 {
		ps.Sensitivity = p.Sensitivity
	}
	if p.Health > 0 {
		ps.Health = p.Health
	}
	if c := p.Camera; c != nil {
		if c.TiltAngle != nil {
			ps.Camera.TiltAngle = *c.TiltAngle
		}
		if c.TiltTime > 0 {
			ps.Camera.TiltTime = c.TiltTime
		}
		if c.ShakeAttack > 0 {
			ps.Camera.ShakeAttack = c.ShakeAttack
		}
		if c.ShakeDecay > 0 {
			ps.Camera.ShakeDecay = c.ShakeDecay
		}
		if c.ShakeFrequency > 0 {
			ps.Camera.ShakeFrequency = c.ShakeFrequency
		}
	}
	return ps, nil
}

func (t *TurretInfo) spec() *sim.TurretSpec {
	if t == nil {
		return nil
	}
	return &sim.TurretSpec{Range: t.Range, Interval: t.Interval, Damage: t.Damage, Shake: t.Shake}
}

func (s *Scenario) targetSpec(t TargetInfo) (sim.TargetSpec, error) {
	pos, err := geo.Vec3FromString(t.Position)
	if err != nil {
		return sim.TargetSpec{}, fmt.Errorf("target %q position: %w", t.Name, err)
	}
	spec := sim.TargetSpec{Name: t.Name, Position: pos, Health: t.Health, Radius: t.Radius}
	if a, ok := s.Archetypes[t.Archetype]; ok {
		if spec.Health == 0 {
			spec.Health = a.Health
		}
		if spec.Radius == 0 {
			spec.Radius = a.Radius
		}
		spec.Turret = a.Turret.spec()
	}
	return spec, nil
}

func obstacle(o ObstacleInfo) (physics.Collider, error) {
	center, err := geo.Vec3FromString(o.Center)
	if err != nil {
		return physics.Collider{}, err
	}
	c := physics.Collider{Center: center}
	switch strings.ToLower(o.Shape) {
	case "sphere":
		c.Shape = physics.Sphere
		c.Radius = o.Radius
	case "box":
		c.Shape = physics.Box
		if c.Extents, err = geo.Vec3FromString(o.Extents); err != nil {
			return physics.Collider{}, err
		}
	default:
		return physics.Collider{}, fmt.Errorf("unknown shape %q", o.Shape)
	}
	return c, nil
}
