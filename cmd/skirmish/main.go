// Command skirmish runs a scenario headless and records everything it does.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/OCAP2/skirmish/internal/api"
	"github.com/OCAP2/skirmish/internal/cache"
	"github.com/OCAP2/skirmish/internal/config"
	"github.com/OCAP2/skirmish/internal/dispatcher"
	"github.com/OCAP2/skirmish/internal/influx"
	"github.com/OCAP2/skirmish/internal/logging"
	"github.com/OCAP2/skirmish/internal/mission"
	"github.com/OCAP2/skirmish/internal/model"
	"github.com/OCAP2/skirmish/internal/monitor"
	intOtel "github.com/OCAP2/skirmish/internal/otel"
	"github.com/OCAP2/skirmish/internal/progress"
	"github.com/OCAP2/skirmish/internal/rng"
	"github.com/OCAP2/skirmish/internal/scenario"
	"github.com/OCAP2/skirmish/internal/sim"
	"github.com/OCAP2/skirmish/internal/storage"
	"github.com/OCAP2/skirmish/internal/worker"
	"github.com/OCAP2/skirmish/internal/zone"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"golang.org/x/sync/errgroup"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "skirmish"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger is the zerolog logger used by the database and influx managers
	ZLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
	// SessionID doubles as the mission UUID
	SessionID string

	EntityCache    *cache.EntityCache = cache.NewEntityCache()
	ZoneCache      *cache.ZoneCache   = cache.NewZoneCache()
	MissionContext *mission.Context   = mission.NewContext()
)

func main() {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	fs.String("scenario", "", "scenario YAML file")
	fs.String("storage", "", "storage backend: memory, sqlite, postgres, websocket")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.Uint64("seed", 1, "spread random seed, 0 for non-deterministic")
	fs.Bool("realtime", false, "pace frames by wall clock")
	fs.String("logs-dir", "", "directory for log and status files")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *showVersion {
		fmt.Printf("%s %s (%s)\n", AppName, CurrentVersion, BuildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, fs, *configDir); err != nil {
		if Logger != nil {
			Logger.Error("Run failed", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, fs *pflag.FlagSet, configDir string) error {
	SessionID = uuid.NewString()
	SlogManager = logging.NewSlogManager()
	SlogManager.Context = MissionContext.LogAttrs
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	// load config
	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}
	if err := config.BindFlags(fs); err != nil {
		return err
	}

	logFile, err := setupLogging()
	if err != nil {
		return err
	}
	defer logFile.Close()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := SlogManager.Close(shutdownCtx); err != nil {
			fmt.Fprintln(os.Stderr, "closing logger:", err)
		}
		if OTelProvider != nil {
			_ = OTelProvider.Shutdown(shutdownCtx)
		}
	}()

	simCfg := config.GetSimulationConfig()
	sc, err := scenario.Load(simCfg.Scenario)
	if err != nil {
		return err
	}
	Logger.Info("Loaded scenario", "path", simCfg.Scenario, "mission", sc.Mission.Name)

	// dispatcher first so the storage backend can sample its queues
	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(ZLogger.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg, eventDispatcher)
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	influxManager := setupInflux(ctx)
	if influxManager != nil {
		defer influxManager.Close()
	}

	missionRec := sc.MissionRecord()
	missionRec.UUID = SessionID
	missionRec.StartTime = SessionStartTime
	missionRec.ExtensionVersion = CurrentVersion
	if simCfg.TickRate > 0 {
		missionRec.CaptureDelay = 1 / float32(simCfg.TickRate)
	}
	worldRec := sc.WorldRecord()

	if err := backend.StartMission(&missionRec, &worldRec); err != nil {
		return fmt.Errorf("failed to start mission: %w", err)
	}
	MissionContext.SetMission(&missionRec, &worldRec)
	Logger.Info("Mission started", "uuid", missionRec.UUID, "storage", storageCfg.Type)

	workerDeps := worker.Dependencies{
		EntityCache:    EntityCache,
		ZoneCache:      ZoneCache,
		MissionContext: MissionContext,
		LogManager:     SlogManager,
	}
	if influxManager != nil {
		workerDeps.Telemetry = influxManager
	}
	workerManager := worker.NewManager(workerDeps, backend)
	workerManager.RegisterHandlers(eventDispatcher)

	result, err := simulate(ctx, sc, simCfg, eventDispatcher, workerManager, backend, influxManager)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// drain recording queues before the backend finalizes
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := eventDispatcher.Close(drainCtx); err != nil {
		Logger.Error("Failed to drain dispatcher", "error", err)
	}

	if err := backend.EndMission(); err != nil {
		Logger.Error("Failed to end mission", "error", err)
	}

	combat := workerManager.Stats()
	Logger.Info("Mission finished",
		"frames", result.Frames,
		"simTime", result.SimTime,
		"completed", result.Completed,
		"zones", fmt.Sprintf("%d/%d", result.ZonesCleansed, result.ZonesTotal),
		"shots", combat.Shots,
		"hits", combat.Hits,
		"kills", combat.Kills,
	)

	uploadRecording(backend)
	saveProgress(missionRec.MissionName, result, combat)
	return nil
}

func setupLogging() (*os.File, error) {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}

	logFilePath := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(logFilePath); err == nil {
		_ = os.Rename(logFilePath, logFilePath+".old")
	}
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open log file: %w", err)
	}

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			SessionID:      SessionID,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      logFile,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	if viper.GetBool("graylog.enabled") {
		if err := SlogManager.EnableGraylog(viper.GetString("graylog.address")); err != nil {
			Logger.Warn("Failed to enable Graylog", "error", err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	level := viper.GetString("logLevel")
	SlogManager.Setup(logFile, level, otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", logFilePath, "version", CurrentVersion)

	ZLogger = newZerolog(logFile, level)
	return logFile, nil
}

func newZerolog(file *os.File, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	w := zerolog.ConsoleWriter{
		Out:        file,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("currentMission", MissionContext.GetMission().MissionName).
				Uint("frame", MissionContext.Frame())
		}))
}

func setupInflux(ctx context.Context) *influx.Manager {
	cfg := config.GetTelemetryConfig()
	if !cfg.Enabled {
		return nil
	}
	backupPath := filepath.Join(
		viper.GetString("logsDir"),
		fmt.Sprintf("influx_backup_%s.lp.gz", SessionStartTime.Format("20060102_150405")),
	)
	m := influx.NewManager(cfg, ZLogger.With().Str("component", "influx").Logger(), backupPath)
	if err := m.Connect(ctx); err != nil {
		Logger.Warn("InfluxDB unavailable", "error", err)
		return nil
	}
	return m
}

// runResult is what a finished run reports back to main.
type runResult struct {
	sim.Stats
	ZonesCleansed int
	ZonesTotal    int
}

func simulate(
	ctx context.Context,
	sc *scenario.Scenario,
	simCfg config.SimulationConfig,
	d *dispatcher.Dispatcher,
	wm *worker.Manager,
	backend storage.Backend,
	influxManager *influx.Manager,
) (runResult, error) {
	setup, err := sc.Setup()
	if err != nil {
		return runResult{}, err
	}
	script, err := sc.InputScript()
	if err != nil {
		return runResult{}, err
	}
	mode, err := zone.ParseActivationMode(simCfg.Activation)
	if err != nil {
		return runResult{}, err
	}

	random := rng.Default()
	if simCfg.Seed != 0 {
		random = rng.NewSeeded(simCfg.Seed)
	}

	recorder := worker.NewRecorder(d, MissionContext, Logger)
	session, err := sim.NewSession(setup, sim.Options{
		RelaxSpeed:        simCfg.RelaxSpeed,
		RegistrationDelay: simCfg.RegistrationDelay,
		Activation:        mode,
		TelemetryInterval: simCfg.TelemetryInterval,
		StartTime:         SessionStartTime,
		Random:            random,
		Recorder:          recorder,
		Logger:            Logger.With("component", "sim"),
		OnFrame:           MissionContext.SetFrame,
	})
	if err != nil {
		return runResult{}, fmt.Errorf("creating session: %w", err)
	}

	loop := sim.NewLoop(sim.LoopConfig{
		TickRate:       simCfg.TickRate,
		FixedTickRate:  simCfg.FixedTickRate,
		MaxFrameSkip:   simCfg.MaxFrameSkip,
		Realtime:       simCfg.Realtime,
		Duration:       sc.Duration,
		StopOnComplete: true,
	}, session, script)

	monDeps := monitor.Dependencies{
		LogManager:     SlogManager,
		MissionContext: MissionContext,
		EntityCache:    EntityCache,
		ZoneCache:      ZoneCache,
		Telemetry:      wm,
		Queues:         d.QueueLengths,
		LogsDir:        viper.GetString("logsDir"),
	}
	if wq, ok := backend.(interface{ QueueLengths() model.WriteQueueLengths }); ok {
		monDeps.WriteQueues = wq.QueueLengths
	}
	if influxManager != nil {
		monDeps.QueueSink = influxManager
	}
	monitorService := monitor.NewService(monDeps)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	var stats sim.Stats
	g.Go(func() error {
		defer cancel()
		session.Start()
		var err error
		stats, err = loop.Run(gctx)
		if dropped := recorder.Dropped(); dropped > 0 {
			Logger.Warn("Records not dispatched", "count", dropped)
		}
		return err
	})
	g.Go(func() error {
		if err := monitorService.Start(time.Second); err != nil {
			Logger.Warn("Status monitor not started", "error", err)
			return nil
		}
		<-gctx.Done()
		monitorService.Stop()
		return nil
	})

	err = g.Wait()
	return runResult{
		Stats:         stats,
		ZonesCleansed: session.Zones().Cleansed(),
		ZonesTotal:    session.Zones().Total(),
	}, err
}

func uploadRecording(backend storage.Backend) {
	if !viper.GetBool("api.upload") {
		return
	}
	up, ok := backend.(storage.Uploadable)
	if !ok {
		Logger.Info("Storage backend has nothing to upload")
		return
	}

	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := client.Healthcheck(ctx); err != nil {
		Logger.Warn("Web frontend is offline, skipping upload", "error", err)
		return
	}
	if err := client.UploadExport(ctx, up); err != nil {
		Logger.Error("Failed to upload recording", "error", err)
		return
	}
	Logger.Info("Uploaded recording", "path", up.GetExportedFilePath())
}

func saveProgress(missionName string, result runResult, combat worker.Stats) {
	cfg := config.GetProgressConfig()
	if !cfg.Enabled {
		return
	}
	store, err := progress.Open(cfg.AppName)
	if err != nil {
		Logger.Warn("Progress store unavailable", "error", err)
		return
	}

	rec, err := store.Add(progress.Result{
		Mission:       missionName,
		Completed:     result.Completed,
		Duration:      result.SimTime,
		ShotsFired:    combat.Shots,
		Hits:          combat.Hits,
		ZonesCleansed: result.ZonesCleansed,
		ZonesTotal:    result.ZonesTotal,
		At:            time.Now(),
	})
	if err != nil {
		Logger.Warn("Failed to save progress", "error", err)
		return
	}
	Logger.Info("Progress saved",
		"runs", rec.Runs,
		"completions", rec.Completions,
		"bestDuration", rec.BestDuration,
		"bestAccuracy", rec.BestAccuracy,
	)
}
