// Package influx writes simulation telemetry to InfluxDB, falling back to a
// gzip line-protocol file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/skirmish/internal/config"
	"github.com/OCAP2/skirmish/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx is disabled")

// PerformanceBucket receives recorder self-metrics.
const PerformanceBucket = "recorder_performance"

// Measurement names.
const (
	MeasurementTelemetry = "sim_telemetry"
	MeasurementZone      = "zone_state"
	MeasurementDispatch  = "dispatcher_queues"
)

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.TelemetryConfig
	mu         sync.Mutex
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.TelemetryConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: []string{cfg.Bucket, PerformanceBucket},
		Logger:      log,
		BackupPath:  backupPath,
		cfg:         cfg,
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer a ping the manager switches to the backup file.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.IsValid = true
	m.CreateWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgAPI := m.Client.OrganizationsAPI()

	// ensure org exists
	influxOrg, err := orgAPI.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		influxOrg, err = orgAPI.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", m.cfg.Org, err)
		}
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %s: %w", bucket, err)
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(m.cfg.Org, bucket)
		m.Writers[bucket] = w

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}

	m.Logger.Debug().Int("buckets", len(m.BucketNames)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteTelemetry records one simulation telemetry sample.
func (m *Manager) WriteTelemetry(mission string, e core.TelemetryEvent) error {
	return m.WritePoint(m.cfg.Bucket, TelemetryPoint(mission, e))
}

// WriteZone records a zone transition.
func (m *Manager) WriteZone(mission string, e core.ZoneEvent) error {
	return m.WritePoint(m.cfg.Bucket, ZonePoint(mission, e))
}

// WriteQueueSizes records dispatcher queue lengths by command.
func (m *Manager) WriteQueueSizes(mission string, at time.Time, sizes map[string]int) error {
	return m.WritePoint(PerformanceBucket, QueuePoint(mission, at, sizes))
}

// Close flushes pending writes and closes the client or backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return nil
	}
	err := errors.Join(m.BackupWriter.Close(), m.backupFile.Close())
	m.BackupWriter = nil
	return err
}

// TelemetryPoint builds the point for a telemetry sample.
func TelemetryPoint(mission string, e core.TelemetryEvent) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementTelemetry,
		map[string]string{
			"mission":      mission,
			"weapon_state": e.WeaponState,
		},
		map[string]any{
			"capture_frame":   int64(e.CaptureFrame),
			"tick_ms":         float64(e.TickDuration.Microseconds()) / 1000,
			"fixed_steps":     e.FixedSteps,
			"shots_fired":     e.ShotsFired,
			"targets_alive":   e.TargetsAlive,
			"zone_progress":   e.ZoneProgress,
			"bullets_left":    e.BulletsLeft,
			"recoil_progress": e.RecoilProgress,
			"recoil_pitch":    e.RecoilPitch,
			"recoil_yaw":      e.RecoilYaw,
			"camera_shake":    e.CameraShake,
			"camera_roll":     e.CameraRoll,
			"player_health":   e.PlayerHealth,
		},
		e.Time,
	)
}

// ZonePoint builds the point for a zone transition.
func ZonePoint(mission string, e core.ZoneEvent) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementZone,
		map[string]string{
			"mission": mission,
			"zone":    e.ZoneID,
			"state":   e.To,
		},
		map[string]any{
			"capture_frame":    int64(e.CaptureFrame),
			"capture_progress": e.CaptureProgress,
			"pillar_health":    e.PillarHealth,
			"cleansed":         e.Cleansed,
			"total":            e.Total,
		},
		e.Time,
	)
}

// QueuePoint builds the point for dispatcher queue lengths.
func QueuePoint(mission string, at time.Time, sizes map[string]int) *influxdb2_write.Point {
	fields := make(map[string]any, len(sizes))
	for cmd, n := range sizes {
		fields[cmd] = n
	}
	return influxdb2.NewPoint(MeasurementDispatch, map[string]string{"mission": mission}, fields, at)
}
