// Package weapon implements weapon definitions, their runtime ammunition
// state, the weapon state machine and the hitscan shoot style.
package weapon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OCAP2/skirmish/internal/curve"
)

// ErrNoWeapon is returned when a loadout is empty or a weapon is missing.
var ErrNoWeapon = errors.New("no weapon")

// FireMode selects whether holding the trigger keeps firing.
type FireMode string

const (
	FireAuto FireMode = "auto"
	FireSemi FireMode = "semi"
)

// ReloadStyle selects how a weapon runs out of rounds.
type ReloadStyle string

const (
	ReloadMagazine ReloadStyle = "magazine"
	ReloadOverheat ReloadStyle = "overheat"
)

// RecoilSettings shape the camera kick of a weapon.
type RecoilSettings struct {
	Enabled       bool        `yaml:"enabled" json:"enabled"`
	Pitch         curve.Curve `yaml:"pitch" json:"pitch"`
	Yaw           curve.Curve `yaml:"yaw" json:"yaw"`
	HipMultiplier float64     `yaml:"hipMultiplier" json:"hipMultiplier"`
	AimMultiplier float64     `yaml:"aimMultiplier" json:"aimMultiplier"`
	RelaxSpeed    float64     `yaml:"relaxSpeed" json:"relaxSpeed"`
}

// InspectSettings control the inspection state.
type InspectSettings struct {
	Allowed               bool    `yaml:"allowed" json:"allowed"`
	MinTime               float64 `yaml:"minTime" json:"minTime"`
	RealtimeCustomization bool    `yaml:"realtimeCustomization" json:"realtimeCustomization"`
}

// MeleeSettings control the melee attack.
type MeleeSettings struct {
	Enabled  bool    `yaml:"enabled" json:"enabled"`
	Damage   float64 `yaml:"damage" json:"damage"`
	Range    float64 `yaml:"range" json:"range"`
	Duration float64 `yaml:"duration" json:"duration"`
	HitDelay float64 `yaml:"hitDelay" json:"hitDelay"`
}

// Definition is the static configuration of a weapon. It is shared by every
// runtime instance and must not be mutated once the simulation starts.
// Durations are in seconds.
type Definition struct {
	Name                        string          `yaml:"name" json:"name"`
	FireRate                    float64         `yaml:"fireRate" json:"fireRate"`
	MagazineSize                int             `yaml:"magazineSize" json:"magazineSize"`
	MaxReserve                  int             `yaml:"maxReserve" json:"maxReserve"`
	BulletsPerFire              int             `yaml:"bulletsPerFire" json:"bulletsPerFire"`
	TimeBetweenShots            float64         `yaml:"timeBetweenShots" json:"timeBetweenShots"`
	Damage                      float64         `yaml:"damage" json:"damage"`
	Range                       float64         `yaml:"range" json:"range"`
	HipSpread                   float64         `yaml:"hipSpread" json:"hipSpread"`
	AimSpread                   float64         `yaml:"aimSpread" json:"aimSpread"`
	PenetrationAmount           float64         `yaml:"penetrationAmount" json:"penetrationAmount"`
	PenetrationDamageMultiplier float64         `yaml:"penetrationDamageMultiplier" json:"penetrationDamageMultiplier"`
	FireMode                    FireMode        `yaml:"fireMode" json:"fireMode"`
	ReloadStyle                 ReloadStyle     `yaml:"reloadStyle" json:"reloadStyle"`
	ReloadTime                  float64         `yaml:"reloadTime" json:"reloadTime"`
	AutoReload                  bool            `yaml:"autoReload" json:"autoReload"`
	HeatPerShot                 float64         `yaml:"heatPerShot" json:"heatPerShot"`
	CoolSpeed                   float64         `yaml:"coolSpeed" json:"coolSpeed"`
	EmptyMagSound               string          `yaml:"emptyMagSound" json:"emptyMagSound"`
	FireSound                   string          `yaml:"fireSound" json:"fireSound"`
	ShakeAmount                 float64         `yaml:"shakeAmount" json:"shakeAmount"`
	AimDamageMultiplier         float64         `yaml:"aimDamageMultiplier" json:"aimDamageMultiplier"`
	Recoil                      RecoilSettings  `yaml:"recoil" json:"recoil"`
	Inspect                     InspectSettings `yaml:"inspect" json:"inspect"`
	Melee                       MeleeSettings   `yaml:"melee" json:"melee"`
}

// ApplyDefaults fills unset optional fields.
func (d *Definition) ApplyDefaults() {
	if d.BulletsPerFire <= 0 {
		d.BulletsPerFire = 1
	}
	if d.PenetrationDamageMultiplier == 0 {
		d.PenetrationDamageMultiplier = 0.5
	}
	if d.FireMode == "" {
		d.FireMode = FireAuto
	}
	if d.ReloadStyle == "" {
		d.ReloadStyle = ReloadMagazine
	}
	if d.AimDamageMultiplier == 0 {
		d.AimDamageMultiplier = 1
	}
	if d.Recoil.HipMultiplier == 0 {
		d.Recoil.HipMultiplier = 1
	}
	if d.Recoil.AimMultiplier == 0 {
		d.Recoil.AimMultiplier = 1
	}
	d.Recoil.Pitch.Sort()
	d.Recoil.Yaw.Sort()
}

// Validate reports every problem with the definition.
func (d *Definition) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if d.Name == "" {
		add("name is required")
	}
	if d.FireRate < 0 {
		add("fireRate must not be negative")
	}
	if d.MagazineSize <= 0 {
		add("magazineSize must be positive")
	}
	if d.MaxReserve < 0 {
		add("maxReserve must not be negative")
	}
	if d.BulletsPerFire < 0 {
		add("bulletsPerFire must not be negative")
	}
	if d.TimeBetweenShots < 0 {
		add("timeBetweenShots must not be negative")
	}
	if d.Range <= 0 {
		add("range must be positive")
	}
	if d.PenetrationAmount < 0 {
		add("penetrationAmount must not be negative")
	}
	switch d.FireMode {
	case "", FireAuto, FireSemi:
	default:
		add("unknown fireMode %q", d.FireMode)
	}
	switch d.ReloadStyle {
	case "", ReloadMagazine:
	case ReloadOverheat:
		if d.HeatPerShot <= 0 {
			add("heatPerShot must be positive for overheat weapons")
		}
	default:
		add("unknown reloadStyle %q", d.ReloadStyle)
	}
	if d.ReloadTime < 0 {
		add("reloadTime must not be negative")
	}
	if d.Inspect.MinTime < 0 {
		add("inspect.minTime must not be negative")
	}
	if d.Melee.Enabled {
		if d.Melee.Range <= 0 {
			add("melee.range must be positive")
		}
		if d.Melee.HitDelay > d.Melee.Duration {
			add("melee.hitDelay must not exceed melee.duration")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("weapon %q: %s", d.Name, strings.Join(problems, "; "))
	}
	return nil
}

// FireInterval is the cooldown between trigger pulls.
func (d *Definition) FireInterval() time.Duration { return seconds(d.FireRate) }

// PelletInterval is the spacing between pellets of one trigger pull.
func (d *Definition) PelletInterval() time.Duration { return seconds(d.TimeBetweenShots) }

// ReloadDuration is how long a reload takes.
func (d *Definition) ReloadDuration() time.Duration { return seconds(d.ReloadTime) }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
