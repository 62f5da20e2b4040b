package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/skirmish/pkg/core"
)

func TestEntityCache_NewEntityCache(t *testing.T) {
	cache := NewEntityCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.Targets)
	assert.Equal(t, 0, cache.Len())
}

func TestEntityCache_AddAndGetTarget(t *testing.T) {
	cache := NewEntityCache()

	cache.AddTarget(core.TargetEvent{TargetID: 42, Name: "grunt", MaxHealth: 40})

	got, ok := cache.GetTarget(42)
	require.True(t, ok, "expected to find target 42")
	assert.Equal(t, "grunt", got.Name)
	assert.Equal(t, 40.0, got.MaxHealth)
	assert.Equal(t, "grunt", cache.TargetName(42))
}

func TestEntityCache_GetTarget_NotFound(t *testing.T) {
	cache := NewEntityCache()

	_, ok := cache.GetTarget(999)
	assert.False(t, ok, "expected not to find target 999")
	assert.Equal(t, "", cache.TargetName(999))
}

func TestEntityCache_Reset(t *testing.T) {
	cache := NewEntityCache()

	cache.AddTarget(core.TargetEvent{TargetID: 1, Name: "a"})
	cache.AddTarget(core.TargetEvent{TargetID: 2, Name: "b"})
	assert.Equal(t, 2, cache.Len())

	cache.Reset()
	assert.Equal(t, 0, cache.Len())

	cache.AddTarget(core.TargetEvent{TargetID: 3, Name: "c"})
	_, ok := cache.GetTarget(3)
	assert.True(t, ok, "expected to find target added after reset")
}

func TestEntityCache_LockUnlock(t *testing.T) {
	cache := NewEntityCache()

	cache.Lock()
	cache.Targets[1] = core.TargetEvent{TargetID: 1, Name: "Direct Add"}
	cache.Unlock()

	got, ok := cache.GetTarget(1)
	require.True(t, ok)
	assert.Equal(t, "Direct Add", got.Name)
}

func TestEntityCache_Concurrent(t *testing.T) {
	cache := NewEntityCache()
	var wg sync.WaitGroup

	for i := uint32(0); i < 100; i++ {
		wg.Add(2)
		go func(id uint32) {
			defer wg.Done()
			cache.AddTarget(core.TargetEvent{TargetID: id, Name: "drone"})
		}(i)
		go func(id uint32) {
			defer wg.Done()
			cache.GetTarget(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
}

func TestSafeCounter(t *testing.T) {
	var c SafeCounter
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Value())

	c.Set(3)
	assert.Equal(t, 3, c.Value())
}

func TestZoneCache(t *testing.T) {
	c := NewZoneCache()

	_, ok := c.Get("alpha")
	assert.False(t, ok)

	c.Set(core.ZoneEvent{ZoneID: "bravo", To: "active"})
	c.Set(core.ZoneEvent{ZoneID: "alpha", To: "capturing", CaptureProgress: 0.5})
	c.Set(core.ZoneEvent{ZoneID: "alpha", To: "pillar_vulnerable", CaptureProgress: 1})

	got, ok := c.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "pillar_vulnerable", got.To)

	assert.Equal(t, []ZoneState{
		{ID: "alpha", State: "pillar_vulnerable", Progress: 1},
		{ID: "bravo", State: "active"},
	}, c.States())

	c.Reset()
	assert.Empty(t, c.States())
}
