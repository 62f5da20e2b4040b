package mission

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/OCAP2/skirmish/pkg/core"
)

// Context holds the current mission and world state. The simulation
// goroutine advances the frame; recording workers and loggers read it.
type Context struct {
	mu      sync.RWMutex
	Mission *core.Mission
	World   *core.World

	frame atomic.Uint64
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Mission: &core.Mission{MissionName: "No mission loaded"},
		World:   &core.World{WorldName: "No world loaded"},
	}
}

// GetMission returns the current mission
func (mc *Context) GetMission() *core.Mission {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.Mission
}

// GetWorld returns the current world
func (mc *Context) GetWorld() *core.World {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.World
}

// SetMission sets the current mission and world and rewinds the frame.
func (mc *Context) SetMission(mission *core.Mission, world *core.World) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.Mission = mission
	mc.World = world
	mc.frame.Store(0)
}

// SetFrame records the latest capture frame.
func (mc *Context) SetFrame(frame uint) {
	mc.frame.Store(uint64(frame))
}

// Frame returns the latest capture frame.
func (mc *Context) Frame() uint {
	return uint(mc.frame.Load())
}

// LogAttrs returns the attributes attached to every log record.
func (mc *Context) LogAttrs() []slog.Attr {
	m := mc.GetMission()
	return []slog.Attr{
		slog.String("mission", m.MissionName),
		slog.Uint64("frame", mc.frame.Load()),
	}
}
