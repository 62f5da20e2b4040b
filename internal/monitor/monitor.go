package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/skirmish/internal/cache"
	"github.com/OCAP2/skirmish/internal/logging"
	"github.com/OCAP2/skirmish/internal/mission"
	"github.com/OCAP2/skirmish/internal/model"
	"github.com/OCAP2/skirmish/pkg/core"
)

// StatusFileName is written into the logs directory while the monitor runs.
const StatusFileName = "status.txt"

// TelemetrySource exposes the last telemetry snapshot seen by the recorder.
type TelemetrySource interface {
	LastTelemetry() (core.TelemetryEvent, bool)
}

// QueueSink receives dispatcher queue sizes as time series.
type QueueSink interface {
	WriteQueueSizes(mission string, at time.Time, sizes map[string]int) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager     *logging.SlogManager
	MissionContext *mission.Context
	EntityCache    *cache.EntityCache
	ZoneCache      *cache.ZoneCache
	Telemetry      TelemetrySource
	Queues         func() map[string]int
	WriteQueues    func() model.WriteQueueLengths // nil unless the backend batches writes
	QueueSink      QueueSink                      // optional
	LogsDir        string
}

// Status is a point-in-time view of the running recorder.
type Status struct {
	Time        time.Time                `json:"time"`
	Mission     string                   `json:"mission"`
	Frame       uint                     `json:"frame"`
	Targets     int                      `json:"targets"`
	Weapon      string                   `json:"weapon,omitempty"`
	BulletsLeft int                      `json:"bulletsLeft"`
	Zones       []cache.ZoneState        `json:"zones"`
	Queues      map[string]int           `json:"queues"`
	WriteQueues *model.WriteQueueLengths `json:"writeQueues,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot collects the current status.
func (s *Service) Snapshot() Status {
	st := Status{
		Time:   time.Now(),
		Queues: map[string]int{},
	}
	if mc := s.deps.MissionContext; mc != nil {
		st.Mission = mc.GetMission().MissionName
		st.Frame = mc.Frame()
	}
	if s.deps.EntityCache != nil {
		st.Targets = s.deps.EntityCache.Len()
	}
	if s.deps.ZoneCache != nil {
		st.Zones = s.deps.ZoneCache.States()
	}
	if s.deps.Telemetry != nil {
		if t, ok := s.deps.Telemetry.LastTelemetry(); ok {
			st.Weapon = t.WeaponState
			st.BulletsLeft = t.BulletsLeft
		}
	}
	if s.deps.Queues != nil {
		st.Queues = s.deps.Queues()
	}
	if s.deps.WriteQueues != nil {
		wq := s.deps.WriteQueues()
		st.WriteQueues = &wq
	}
	return st
}

// GetProgramStatus returns the current status rendered for the status file
func (s *Service) GetProgramStatus(queues, writeQueues, zones bool) (output []string, status Status) {
	status = s.Snapshot()

	output = append(output, fmt.Sprintf("mission: %s frame: %d targets: %d weapon: %s (%d)",
		status.Mission, status.Frame, status.Targets, status.Weapon, status.BulletsLeft))
	if queues {
		output = append(output, indent(status.Queues))
	}
	if writeQueues && status.WriteQueues != nil {
		output = append(output, indent(status.WriteQueues))
	}
	if zones {
		output = append(output, indent(status.Zones))
	}
	return output, status
}

func indent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(b)
}

// Start starts the status monitor goroutine
func (s *Service) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	var statusFile *os.File
	if s.deps.LogsDir != "" {
		f, err := os.Create(filepath.Join(s.deps.LogsDir, StatusFileName))
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("creating status file: %w", err)
		}
		statusFile = f
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "interval", interval)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				lines, status := s.GetProgramStatus(true, true, true)

				if statusFile != nil {
					if err := rewrite(statusFile, lines); err != nil {
						logger.Error("Error writing status file", "error", err)
					}
				}

				if sink := s.deps.QueueSink; sink != nil && len(status.Queues) > 0 {
					if err := sink.WriteQueueSizes(status.Mission, status.Time, status.Queues); err != nil {
						logger.Warn("Error writing queue sizes", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

func rewrite(f *os.File, lines []string) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}
