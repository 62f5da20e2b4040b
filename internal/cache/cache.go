package cache

import (
	"sync"

	"github.com/OCAP2/skirmish/pkg/core"
)

// EntityCache caches targets when they spawn so hit and kill records can be
// resolved without a backend read.
type EntityCache struct {
	m       sync.Mutex
	Targets map[uint32]core.TargetEvent
}

func NewEntityCache() *EntityCache {
	return &EntityCache{
		m:       sync.Mutex{},
		Targets: make(map[uint32]core.TargetEvent),
	}
}

func (c *EntityCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Targets = make(map[uint32]core.TargetEvent)
}

func (c *EntityCache) Lock() {
	c.m.Lock()
}

func (c *EntityCache) Unlock() {
	c.m.Unlock()
}

func (c *EntityCache) GetTarget(id uint32) (core.TargetEvent, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if t, ok := c.Targets[id]; ok {
		return t, true
	}
	return core.TargetEvent{}, false
}

func (c *EntityCache) AddTarget(t core.TargetEvent) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Targets[t.TargetID] = t
}

// TargetName returns the cached name, or "" for unknown targets.
func (c *EntityCache) TargetName(id uint32) string {
	t, _ := c.GetTarget(id)
	return t.Name
}

func (c *EntityCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Targets)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
