// Package scenario loads mission descriptions from YAML.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/OCAP2/skirmish/internal/geo"
	"github.com/OCAP2/skirmish/internal/input"
	"github.com/OCAP2/skirmish/internal/weapon"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid scenario")

// Scenario is the YAML document.
type Scenario struct {
	Mission    MissionInfo          `yaml:"mission"`
	World      WorldInfo            `yaml:"world"`
	Duration   time.Duration        `yaml:"duration"`
	Player     PlayerInfo           `yaml:"player"`
	Weapons    []weapon.Definition  `yaml:"weapons"`
	Loadout    []string             `yaml:"loadout"`
	Archetypes map[string]Archetype `yaml:"archetypes"`
	Targets    []TargetInfo         `yaml:"targets"`
	Zones      []ZoneInfo           `yaml:"zones"`
	Obstacles  []ObstacleInfo       `yaml:"obstacles"`
	Script     []ScriptStep         `yaml:"script"`

	path string
}

type MissionInfo struct {
	Name   string `yaml:"name"`
	Author string `yaml:"author"`
	Tag    string `yaml:"tag"`
}

type WorldInfo struct {
	Name        string  `yaml:"name"`
	DisplayName string  `yaml:"displayName"`
	Size        float32 `yaml:"size"`
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
}

type PlayerInfo struct {
	Spawn        string  `yaml:"spawn"`
	Yaw          float64 `yaml:"yaw"`
	WalkSpeed    float64 `yaml:"walkSpeed"`
	RunSpeed     float64 `yaml:"runSpeed"`
	Acceleration float64 `yaml:"acceleration"`
	EyeHeight    float64 `yaml:"eyeHeight"`
	Sensitivity  float64 `yaml:"sensitivity"`
	Health       float64 `yaml:"health"`

	Camera *CameraInfo `yaml:"camera"`
}

// CameraInfo overrides camera effect defaults. Unset fields keep the default;
// tiltAngle 0 disables tilt only when set explicitly.
type CameraInfo struct {
	TiltAngle      *float64 `yaml:"tiltAngle"`
	TiltTime       float64  `yaml:"tiltTime"`
	ShakeAttack    float64  `yaml:"shakeAttack"`
	ShakeDecay     float64  `yaml:"shakeDecay"`
	ShakeFrequency float64  `yaml:"shakeFrequency"`
}

// Archetype is a reusable target template.
type Archetype struct {
	Health float64     `yaml:"health"`
	Radius float64     `yaml:"radius"`
	Turret *TurretInfo `yaml:"turret"`
}

// TurretInfo arms an archetype.
type TurretInfo struct {
	Range    float64       `yaml:"range"`
	Interval time.Duration `yaml:"interval"`
	Damage   float64       `yaml:"damage"`
	Shake    float64       `yaml:"shake"`
}

type TargetInfo struct {
	Name      string  `yaml:"name"`
	Archetype string  `yaml:"archetype"`
	Position  string  `yaml:"position"`
	Health    float64 `yaml:"health"`
	Radius    float64 `yaml:"radius"`
}

type CircleInfo struct {
	Center string  `yaml:"center"`
	Radius float64 `yaml:"radius"`
}

type ZoneInfo struct {
	ID           string        `yaml:"id"`
	Order        int           `yaml:"order"`
	CaptureTime  time.Duration `yaml:"captureTime"`
	PillarHealth float64       `yaml:"pillarHealth"`
	Pillar       string        `yaml:"pillar"`
	Area         [][2]float64  `yaml:"area"`
	Circle       *CircleInfo   `yaml:"circle"`
	Spawns       []SpawnInfo   `yaml:"spawns"`
}

type SpawnInfo struct {
	Target   string        `yaml:"target"`
	Position string        `yaml:"position"`
	Interval time.Duration `yaml:"interval"`
	Count    int           `yaml:"count"`
	Waves    int           `yaml:"waves"`
}

type ObstacleInfo struct {
	Shape   string  `yaml:"shape"`
	Center  string  `yaml:"center"`
	Extents string  `yaml:"extents"`
	Radius  float64 `yaml:"radius"`
}

type ScriptStep struct {
	At   time.Duration `yaml:"at"`
	For  time.Duration `yaml:"for"`
	Hold []string      `yaml:"hold"`
	Move [2]float64    `yaml:"move"`
	Look [2]float64    `yaml:"look"`
}

// Load reads, defaults and validates a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	sc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	sc.path = path
	return sc, nil
}

// Parse decodes a scenario held in memory.
func Parse(data []byte) (*Scenario, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a scenario document. Unknown keys are rejected.
func Decode(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	sc.ApplyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Path returns the file the scenario was loaded from, if any.
func (s *Scenario) Path() string { return s.path }

// ApplyDefaults fills optional fields.
func (s *Scenario) ApplyDefaults() {
	if s.World.DisplayName == "" {
		s.World.DisplayName = s.World.Name
	}
	for i := range s.Weapons {
		s.Weapons[i].ApplyDefaults()
	}
	if len(s.Loadout) == 0 && len(s.Weapons) > 0 {
		s.Loadout = []string{s.Weapons[0].Name}
	}
}

// Validate reports every problem found, joined into one error wrapping
// ErrInvalid.
func (s *Scenario) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if s.Mission.Name == "" {
		add("mission.name is required")
	}
	if s.Duration < 0 {
		add("duration must not be negative")
	}
	if s.Player.Spawn != "" {
		if _, err := geo.Vec3FromString(s.Player.Spawn); err != nil {
			add("player.spawn: %v", err)
		}
	}

	if s.Player.Health < 0 {
		add("player.health must not be negative")
	}
	for name, a := range s.Archetypes {
		if a.Turret == nil {
			continue
		}
		if a.Turret.Range <= 0 {
			add("archetype %q: turret.range must be positive", name)
		}
		if a.Turret.Interval <= 0 {
			add("archetype %q: turret.interval must be positive", name)
		}
		if a.Turret.Damage < 0 {
			add("archetype %q: turret.damage must not be negative", name)
		}
	}

	weapons := make(map[string]bool, len(s.Weapons))
	for i := range s.Weapons {
		w := &s.Weapons[i]
		if weapons[w.Name] {
			add("duplicate weapon %q", w.Name)
		}
		weapons[w.Name] = true
		if err := w.Validate(); err != nil {
			add("%v", err)
		}
	}
	if len(s.Loadout) == 0 {
		add("loadout needs at least one weapon")
	}
	for _, name := range s.Loadout {
		if !weapons[name] {
			add("loadout references unknown weapon %q", name)
		}
	}

	for i, t := range s.Targets {
		if t.Name == "" {
			add("targets[%d].name is required", i)
		}
		if _, err := geo.Vec3FromString(t.Position); err != nil {
			add("targets[%d].position: %v", i, err)
		}
		if t.Archetype != "" {
			if _, ok := s.Archetypes[t.Archetype]; !ok {
				add("targets[%d] references unknown archetype %q", i, t.Archetype)
			}
		}
	}

	zoneIDs := make(map[string]bool, len(s.Zones))
	for i, z := range s.Zones {
		if z.ID == "" {
			add("zones[%d].id is required", i)
		} else if zoneIDs[z.ID] {
			add("duplicate zone %q", z.ID)
		}
		zoneIDs[z.ID] = true
		if z.CaptureTime < 0 {
			add("zone %q: captureTime must not be negative", z.ID)
		}
		if z.Circle == nil && len(z.Area) < 3 {
			add("zone %q: area needs at least 3 points or a circle", z.ID)
		}
		if z.Circle != nil && z.Circle.Radius <= 0 {
			add("zone %q: circle.radius must be positive", z.ID)
		}
		if z.Pillar != "" {
			if _, err := geo.Vec3FromString(z.Pillar); err != nil {
				add("zone %q: pillar: %v", z.ID, err)
			}
		}
		for j, sp := range z.Spawns {
			if _, ok := s.Archetypes[sp.Target]; !ok {
				add("zone %q: spawns[%d] references unknown archetype %q", z.ID, j, sp.Target)
			}
			if sp.Interval <= 0 {
				add("zone %q: spawns[%d].interval must be positive", z.ID, j)
			}
		}
	}

	for i, o := range s.Obstacles {
		switch strings.ToLower(o.Shape) {
		case "box":
			if _, err := geo.Vec3FromString(o.Extents); err != nil {
				add("obstacles[%d].extents: %v", i, err)
			}
		case "sphere":
			if o.Radius <= 0 {
				add("obstacles[%d].radius must be positive", i)
			}
		default:
			add("obstacles[%d]: unknown shape %q", i, o.Shape)
		}
		if _, err := geo.Vec3FromString(o.Center); err != nil {
			add("obstacles[%d].center: %v", i, err)
		}
	}

	for i, st := range s.Script {
		if st.At < 0 || st.For < 0 {
			add("script[%d]: times must not be negative", i)
		}
		for _, a := range st.Hold {
			if _, err := input.ParseAction(a); err != nil {
				add("script[%d]: %v", i, err)
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: scenario validation failed: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
