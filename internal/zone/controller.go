package zone

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/OCAP2/skirmish/internal/eventbus"
	"github.com/OCAP2/skirmish/internal/sched"
	"github.com/OCAP2/skirmish/pkg/core"
)

var (
	// ErrRegistrationClosed is returned when a zone registers after activation.
	ErrRegistrationClosed = errors.New("zone registration closed")
	// ErrUnknownZone is returned for an unregistered zone ID.
	ErrUnknownZone = errors.New("unknown zone")
)

// ActivationMode decides which zones unlock when the controller activates.
type ActivationMode string

const (
	// ActivateAll unlocks every zone at once; each zone gates itself.
	ActivateAll ActivationMode = "all"
	// ActivateSequential unlocks zones one at a time in order.
	ActivateSequential ActivationMode = "sequential"
)

// ParseActivationMode accepts "all" or "sequential". Empty means all.
func ParseActivationMode(s string) (ActivationMode, error) {
	switch ActivationMode(strings.ToLower(s)) {
	case "", ActivateAll:
		return ActivateAll, nil
	case ActivateSequential:
		return ActivateSequential, nil
	}
	return "", fmt.Errorf("unknown zone activation mode %q", s)
}

// Summary is published once every zone is cleansed.
type Summary struct {
	Cleansed int
	Total    int
	At       time.Duration
}

// Options configure a Controller.
type Options struct {
	RegistrationDelay time.Duration
	Mode              ActivationMode
	Logger            *slog.Logger
}

// Controller owns the zone registry and aggregate completion.
type Controller struct {
	ZoneChanged    eventbus.Topic[Change]
	SpawnRequested eventbus.Topic[SpawnRequest]
	AllCleansed    eventbus.Topic[Summary]

	sched *sched.Scheduler
	opts  Options
	zones []*Zone
	byID  map[string]*Zone
	log   *slog.Logger

	activation *sched.Routine
	activated  bool
	cleansed   int
	completed  bool
}

// NewController creates an empty registry.
func NewController(s *sched.Scheduler, opts Options) *Controller {
	if opts.Mode == "" {
		opts.Mode = ActivateAll
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		sched: s,
		opts:  opts,
		byID:  make(map[string]*Zone),
		log:   log,
	}
}

// Register adds a zone. Registration stays open until activation.
func (c *Controller) Register(spec Spec) (*Zone, error) {
	if c.activated {
		return nil, fmt.Errorf("register %q: %w", spec.ID, ErrRegistrationClosed)
	}
	if _, ok := c.byID[spec.ID]; ok {
		return nil, fmt.Errorf("register %q: zone already registered", spec.ID)
	}
	z := New(spec)
	z.onChange = c.handleChange
	z.onSpawn = c.SpawnRequested.Publish
	c.zones = append(c.zones, z)
	c.byID[spec.ID] = z
	return z, nil
}

// Start schedules activation after the registration delay. Calling Start
// again before activation is a no-op.
func (c *Controller) Start() {
	if c.activated || c.activation.Active() {
		return
	}
	c.activation = c.sched.After(c.opts.RegistrationDelay, c.activate)
}

// Activated reports whether registration has closed.
func (c *Controller) Activated() bool { return c.activated }

func (c *Controller) activate() {
	c.activated = true
	sort.SliceStable(c.zones, func(i, j int) bool {
		return c.zones[i].Order() < c.zones[j].Order()
	})
	c.log.Debug("activating zones", "count", len(c.zones), "mode", c.opts.Mode)

	if len(c.zones) == 0 {
		return
	}
	if c.opts.Mode == ActivateSequential {
		c.zones[0].Activate()
		return
	}
	for _, z := range c.zones {
		z.Activate()
	}
}

// Tick advances every zone with the player's position.
func (c *Controller) Tick(dt time.Duration, player core.Vec3) {
	for _, z := range c.zones {
		z.Tick(dt, player)
	}
}

// DamagePillar routes pillar damage to a zone.
func (c *Controller) DamagePillar(zoneID string, amount float64) (bool, error) {
	z, ok := c.byID[zoneID]
	if !ok {
		return false, fmt.Errorf("damage pillar %q: %w", zoneID, ErrUnknownZone)
	}
	return z.DamagePillar(amount), nil
}

// Zone looks up a zone by ID.
func (c *Controller) Zone(id string) (*Zone, bool) {
	z, ok := c.byID[id]
	return z, ok
}

// Zones returns the registry, sorted by order once activated.
func (c *Controller) Zones() []*Zone { return c.zones }

// Total returns the number of registered zones.
func (c *Controller) Total() int { return len(c.zones) }

// Cleansed returns how many zones have been cleansed.
func (c *Controller) Cleansed() int { return c.cleansed }

// Progress returns cleansed/total, or 0 without zones.
func (c *Controller) Progress() float64 {
	if len(c.zones) == 0 {
		return 0
	}
	return float64(c.cleansed) / float64(len(c.zones))
}

// Complete reports whether every zone is cleansed.
func (c *Controller) Complete() bool { return c.completed }

func (c *Controller) handleChange(ch Change) {
	if ch.To == Cleansed {
		c.cleansed++
	}
	c.ZoneChanged.Publish(ch)
	if ch.To != Cleansed {
		return
	}

	c.log.Debug("zone cleansed", "zone", ch.ZoneID, "cleansed", c.cleansed, "total", len(c.zones))

	if c.opts.Mode == ActivateSequential {
		for _, z := range c.zones {
			if z.State() == Locked {
				z.Activate()
				break
			}
		}
	}

	if c.cleansed >= len(c.zones) && !c.completed {
		c.completed = true
		c.AllCleansed.Publish(Summary{Cleansed: c.cleansed, Total: len(c.zones), At: c.sched.Now()})
	}
}
