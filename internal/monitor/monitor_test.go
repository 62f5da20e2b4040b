package monitor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/skirmish/internal/cache"
	"github.com/OCAP2/skirmish/internal/mission"
	"github.com/OCAP2/skirmish/internal/model"
	"github.com/OCAP2/skirmish/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelemetry struct{ e *core.TelemetryEvent }

func (f fakeTelemetry) LastTelemetry() (core.TelemetryEvent, bool) {
	if f.e == nil {
		return core.TelemetryEvent{}, false
	}
	return *f.e, true
}

type fakeSink struct {
	mu    sync.Mutex
	calls int
	last  map[string]int
}

func (f *fakeSink) WriteQueueSizes(_ string, _ time.Time, sizes map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = sizes
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newDeps(t *testing.T) Dependencies {
	t.Helper()
	mc := mission.NewContext()
	mc.SetMission(&core.Mission{MissionName: "Lantern"}, &core.World{WorldName: "range"})
	mc.SetFrame(42)

	ec := cache.NewEntityCache()
	ec.AddTarget(core.TargetEvent{TargetID: 1, Name: "dummy"})

	zc := cache.NewZoneCache()
	zc.Set(core.ZoneEvent{ZoneID: "b", To: "capturing", CaptureProgress: 0.5})
	zc.Set(core.ZoneEvent{ZoneID: "a", To: "cleansed", CaptureProgress: 1})

	return Dependencies{
		MissionContext: mc,
		EntityCache:    ec,
		ZoneCache:      zc,
		Telemetry:      fakeTelemetry{e: &core.TelemetryEvent{WeaponState: "reloading", BulletsLeft: 3}},
		Queues:         func() map[string]int { return map[string]int{":SHOT:": 4} },
		WriteQueues:    func() model.WriteQueueLengths { return model.WriteQueueLengths{Shots: 9} },
	}
}

func TestSnapshot(t *testing.T) {
	s := NewService(newDeps(t))

	st := s.Snapshot()
	assert.Equal(t, "Lantern", st.Mission)
	assert.Equal(t, uint(42), st.Frame)
	assert.Equal(t, 1, st.Targets)
	assert.Equal(t, "reloading", st.Weapon)
	assert.Equal(t, 3, st.BulletsLeft)
	require.Len(t, st.Zones, 2)
	assert.Equal(t, "a", st.Zones[0].ID)
	assert.Equal(t, 4, st.Queues[":SHOT:"])
	require.NotNil(t, st.WriteQueues)
	assert.Equal(t, uint16(9), st.WriteQueues.Shots)
}

func TestSnapshot_EmptyDependencies(t *testing.T) {
	s := NewService(Dependencies{})

	st := s.Snapshot()
	assert.Empty(t, st.Mission)
	assert.Empty(t, st.Queues)
	assert.Nil(t, st.WriteQueues)
}

func TestGetProgramStatus(t *testing.T) {
	s := NewService(newDeps(t))

	lines, _ := s.GetProgramStatus(true, true, true)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "mission: Lantern frame: 42")
	assert.Contains(t, lines[1], `":SHOT:": 4`)
	assert.Contains(t, lines[2], `"shots": 9`)
	assert.Contains(t, lines[3], `"capturing"`)

	lines, _ = s.GetProgramStatus(false, false, false)
	assert.Len(t, lines, 1)
}

func TestStartStop_WritesStatusFile(t *testing.T) {
	deps := newDeps(t)
	deps.LogsDir = t.TempDir()
	sink := &fakeSink{}
	deps.QueueSink = sink
	s := NewService(deps)

	require.NoError(t, s.Start(10*time.Millisecond))
	assert.True(t, s.IsRunning())
	// second start is a no-op
	require.NoError(t, s.Start(10*time.Millisecond))

	require.Eventually(t, func() bool { return sink.count() > 0 }, time.Second, 5*time.Millisecond)
	s.Stop()
	assert.False(t, s.IsRunning())

	data, err := os.ReadFile(filepath.Join(deps.LogsDir, StatusFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "mission: Lantern")

	// stopping twice is safe
	s.Stop()
}

func TestStart_BadLogsDir(t *testing.T) {
	deps := newDeps(t)
	deps.LogsDir = filepath.Join(t.TempDir(), "missing", "dir")
	s := NewService(deps)

	assert.Error(t, s.Start(time.Millisecond))
	assert.False(t, s.IsRunning())
}
