package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "skirmish.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the recording backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// SimulationConfig drives the headless run loop
type SimulationConfig struct {
	Scenario          string
	TickRate          int
	FixedTickRate     int
	MaxFrameSkip      int
	Realtime          bool
	Seed              uint64
	RelaxSpeed        float64
	RegistrationDelay time.Duration
	Activation        string
	TelemetryInterval time.Duration
}

// TelemetryConfig holds InfluxDB settings
type TelemetryConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// ProgressConfig controls persisted mission progress
type ProgressConfig struct {
	Enabled bool
	AppName string
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("defaultTag", "Skirmish")
	viper.SetDefault("logsDir", "./skirmishlogs")
	viper.SetDefault("scenario", "./scenarios/default.yaml")

	viper.SetDefault("sim.tickRate", 60)
	viper.SetDefault("sim.fixedTickRate", 50)
	viper.SetDefault("sim.maxFrameSkip", 5)
	viper.SetDefault("sim.realtime", false)
	viper.SetDefault("sim.seed", 1)
	viper.SetDefault("sim.telemetryInterval", "1s")

	viper.SetDefault("recoil.relaxSpeed", 2.0)
	viper.SetDefault("zones.registrationDelay", "100ms")
	viper.SetDefault("zones.activation", "all")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "skirmish")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "skirmish-metrics")
	viper.SetDefault("influx.bucket", "skirmish-telemetry")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "skirmish")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("progress.enabled", true)
	viper.SetDefault("progress.appName", "skirmish")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// BindFlags maps command line flags onto config keys. Flags only override
// the file when set explicitly.
func BindFlags(fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"scenario":  "scenario",
		"storage":   "storage.type",
		"log-level": "logLevel",
		"seed":      "sim.seed",
		"realtime":  "sim.realtime",
		"logs-dir":  "logsDir",
	}
	for flag, key := range bindings {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetSimulationConfig returns the run loop and gameplay tuning.
func GetSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Scenario:          viper.GetString("scenario"),
		TickRate:          viper.GetInt("sim.tickRate"),
		FixedTickRate:     viper.GetInt("sim.fixedTickRate"),
		MaxFrameSkip:      viper.GetInt("sim.maxFrameSkip"),
		Realtime:          viper.GetBool("sim.realtime"),
		Seed:              viper.GetUint64("sim.seed"),
		RelaxSpeed:        viper.GetFloat64("recoil.relaxSpeed"),
		RegistrationDelay: viper.GetDuration("zones.registrationDelay"),
		Activation:        viper.GetString("zones.activation"),
		TelemetryInterval: viper.GetDuration("sim.telemetryInterval"),
	}
}

// GetTelemetryConfig returns the InfluxDB settings.
func GetTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetProgressConfig returns the progress store settings.
func GetProgressConfig() ProgressConfig {
	return ProgressConfig{
		Enabled: viper.GetBool("progress.enabled"),
		AppName: viper.GetString("progress.appName"),
	}
}
