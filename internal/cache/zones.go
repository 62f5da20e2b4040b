package cache

import (
	"slices"
	"strings"
	"sync"

	"github.com/OCAP2/skirmish/pkg/core"
)

// ZoneCache keeps the latest recorded transition of every zone for the
// current mission.
type ZoneCache struct {
	mu    sync.RWMutex
	zones map[string]core.ZoneEvent
}

// NewZoneCache creates a new ZoneCache
func NewZoneCache() *ZoneCache {
	return &ZoneCache{
		zones: make(map[string]core.ZoneEvent),
	}
}

// Get retrieves the latest transition of a zone
func (c *ZoneCache) Get(id string) (core.ZoneEvent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.zones[id]
	return e, ok
}

// Set stores the latest transition of a zone
func (c *ZoneCache) Set(e core.ZoneEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zones[e.ZoneID] = e
}

// States returns zone id to state name, sorted by id.
func (c *ZoneCache) States() []ZoneState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ZoneState, 0, len(c.zones))
	for id, e := range c.zones {
		out = append(out, ZoneState{ID: id, State: e.To, Progress: e.CaptureProgress})
	}
	slices.SortFunc(out, func(a, b ZoneState) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// ZoneState is a compact view for status reporting.
type ZoneState struct {
	ID       string  `json:"id"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
}

// Reset clears all zones from the cache
func (c *ZoneCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zones = make(map[string]core.ZoneEvent)
}
