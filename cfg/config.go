package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// Watch transport modes
const (
	ModeAuto    = "auto"    // Managed when credentials resolve, raw stream otherwise
	ModeManaged = "managed" // Native SDK snapshot listeners (admin credentials)
	ModeStream  = "stream"  // Raw HTTP listen stream (bearer token)
)

// Relay formats
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// StreamConfiguration controls the raw HTTP listen transport
type StreamConfiguration struct {
	TokenEnv string `toml:"token_env"` // Environment variable holding the bearer token
}

// ManagedConfiguration controls the SDK-backed transport
type ManagedConfiguration struct {
	CredentialsPath   string `toml:"credentials_path"`    // Explicit service account file, never auto-discovered
	PreviousCacheSize int    `toml:"previous_cache_size"` // Per-listener cache of prior document data
}

// FilterConfiguration is one where-clause of a configured collection watch
type FilterConfiguration struct {
	Field string      `toml:"field"`
	Op    string      `toml:"op"`
	Value interface{} `toml:"value"`
}

// TargetConfiguration declares a watch started at boot. Exactly one of
// Collection or Document must be set.
type TargetConfiguration struct {
	Collection string                `toml:"collection"`
	Document   string                `toml:"document"`
	Filters    []FilterConfiguration `toml:"filters"`
}

// WatchConfiguration controls real-time watching
type WatchConfiguration struct {
	Enabled               bool    `toml:"enabled"` // false = callers fall back to polling
	Mode                  string  `toml:"mode"`
	ProjectID             string  `toml:"project_id"`
	DatabaseID            string  `toml:"database_id"`
	BaseURL               string  `toml:"base_url"`
	ConnectTimeoutSeconds int     `toml:"connect_timeout_seconds"`
	ReconnectInitialMS    int     `toml:"reconnect_initial_ms"`
	ReconnectMultiplier   float64 `toml:"reconnect_multiplier"`
	MaxRetries            int     `toml:"max_retries"` // Consecutive failures tolerated before a listener stops, 0 disables reconnects

	Stream  StreamConfiguration   `toml:"stream"`
	Managed ManagedConfiguration  `toml:"managed"`
	Targets []TargetConfiguration `toml:"targets"`
}

// SinkConfiguration configures one relay destination
type SinkConfiguration struct {
	Name              string   `toml:"name"`
	Type              string   `toml:"type"`   // "nats" or "kafka"
	Format            string   `toml:"format"` // "json" or "msgpack"
	TopicPrefix       string   `toml:"topic_prefix"`
	FilterCollections []string `toml:"filter_collections"` // Glob patterns over collection paths
	NatsURL           string   `toml:"nats_url"`
	Brokers           []string `toml:"brokers"`
	BatchSize         int      `toml:"batch_size"`
	QueueSize         int      `toml:"queue_size"`
	RetryInitialMS    int      `toml:"retry_initial_ms"`
	RetryMaxMS        int      `toml:"retry_max_ms"`
	RetryMultiplier   float64  `toml:"retry_multiplier"`
	MaxRetries        int      `toml:"max_retries"`
}

// RelayConfiguration controls mirroring of change events to brokers
type RelayConfiguration struct {
	Enabled bool                `toml:"enabled"`
	Sinks   []SinkConfiguration `toml:"sinks"`
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool `toml:"enabled"`
}

// AdminConfiguration for the admin HTTP endpoints
type AdminConfiguration struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	Secret      string `toml:"secret"`
}

// Configuration is the main configuration structure
type Configuration struct {
	InstanceID string `toml:"instance_id"`

	Watch      WatchConfiguration      `toml:"watch"`
	Relay      RelayConfiguration      `toml:"relay"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
	Admin      AdminConfiguration      `toml:"admin"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "docwatch.toml", "Path to configuration file")
	ProjectFlag    = flag.String("project", "", "Project ID (overrides config)")
	DatabaseFlag   = flag.String("database", "", "Database ID (overrides config)")
	ModeFlag       = flag.String("mode", "", "Watch transport: auto, managed or stream (overrides config)")
	AdminPortFlag  = flag.Int("admin-port", 0, "Admin HTTP port (overrides config)")
)

// Default returns the built-in configuration
func Default() *Configuration {
	return &Configuration{
		Watch: WatchConfiguration{
			Enabled:               true,
			Mode:                  ModeAuto,
			DatabaseID:            "(default)",
			BaseURL:               "https://firestore.googleapis.com",
			ConnectTimeoutSeconds: 30,
			ReconnectInitialMS:    1000, // 1s, doubling per consecutive failure
			ReconnectMultiplier:   2.0,
			MaxRetries:            3,
			Stream: StreamConfiguration{
				TokenEnv: "DOCWATCH_ID_TOKEN",
			},
			Managed: ManagedConfiguration{
				PreviousCacheSize: 256,
			},
		},

		Relay: RelayConfiguration{
			Enabled: false,
		},

		Logging: LoggingConfiguration{
			Verbose: false,
			Format:  "console",
		},

		Prometheus: PrometheusConfiguration{
			Enabled: false,
		},

		Admin: AdminConfiguration{
			Enabled:     false,
			BindAddress: "127.0.0.1",
			Port:        8099,
		},
	}
}

// Config is the process configuration, populated by Load
var Config = Default()

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	// Load from file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	// Apply CLI overrides
	if *ProjectFlag != "" {
		Config.Watch.ProjectID = *ProjectFlag
	}
	if *DatabaseFlag != "" {
		Config.Watch.DatabaseID = *DatabaseFlag
	}
	if *ModeFlag != "" {
		Config.Watch.Mode = *ModeFlag
	}
	if *AdminPortFlag != 0 {
		Config.Admin.Port = *AdminPortFlag
	}

	if Config.InstanceID == "" {
		id, err := generateInstanceID()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to derive instance ID from machine ID")
			id = "unknown"
		}
		Config.InstanceID = id
		log.Debug().Str("instance_id", id).Msg("Auto-generated instance ID")
	}

	return nil
}

// generateInstanceID derives a stable identifier from the machine ID
func generateInstanceID() (string, error) {
	id, err := machineid.ProtectedID("docwatch")
	if err != nil {
		return "", err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return strconv.FormatUint(h.Sum64(), 16), nil
}

// Validate checks configuration for errors
func Validate() error {
	return Config.Validate()
}

// Validate checks the configuration for errors
func (c *Configuration) Validate() error {
	if err := c.Watch.Validate(); err != nil {
		return err
	}

	if c.Relay.Enabled {
		if len(c.Relay.Sinks) == 0 {
			return fmt.Errorf("relay enabled but no sinks configured")
		}
		names := make(map[string]bool, len(c.Relay.Sinks))
		for i, sink := range c.Relay.Sinks {
			if err := sink.Validate(); err != nil {
				return fmt.Errorf("relay sink %d: %w", i, err)
			}
			if names[sink.Name] {
				return fmt.Errorf("duplicate relay sink name: %s", sink.Name)
			}
			names[sink.Name] = true
		}
	}

	if c.Admin.Enabled && (c.Admin.Port < 1 || c.Admin.Port > 65535) {
		return fmt.Errorf("invalid admin port: %d", c.Admin.Port)
	}

	if c.Logging.Format != "" && c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	return nil
}

// Validate checks the watch section. A disabled watch section is always valid.
func (w *WatchConfiguration) Validate() error {
	if !w.Enabled {
		return nil
	}

	switch w.Mode {
	case ModeAuto, ModeManaged, ModeStream:
	default:
		return fmt.Errorf("invalid watch mode: %q", w.Mode)
	}

	if w.ProjectID == "" {
		return fmt.Errorf("watch.project_id is required when watching is enabled")
	}

	if w.DatabaseID == "" {
		return fmt.Errorf("watch.database_id must not be empty")
	}

	if w.ConnectTimeoutSeconds < 1 {
		return fmt.Errorf("watch connect timeout must be >= 1 second")
	}

	if w.ReconnectInitialMS < 1 {
		return fmt.Errorf("watch reconnect initial delay must be >= 1ms")
	}

	if w.ReconnectMultiplier < 1 {
		return fmt.Errorf("watch reconnect multiplier must be >= 1")
	}

	if w.MaxRetries < 0 {
		return fmt.Errorf("watch max retries must be >= 0")
	}

	if w.Managed.PreviousCacheSize < 0 {
		return fmt.Errorf("watch previous cache size must be >= 0")
	}

	for i, t := range w.Targets {
		if (t.Collection == "") == (t.Document == "") {
			return fmt.Errorf("watch target %d: exactly one of collection or document is required", i)
		}
		if t.Document != "" && len(t.Filters) > 0 {
			return fmt.Errorf("watch target %d: filters are only valid on collection targets", i)
		}
	}

	return nil
}

// Validate checks a single relay sink
func (s *SinkConfiguration) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("sink name is required")
	}
	if s.Type == "" {
		return fmt.Errorf("sink %s: type is required", s.Name)
	}
	switch s.Format {
	case "", FormatJSON, FormatMsgpack:
	default:
		return fmt.Errorf("sink %s: invalid format %q", s.Name, s.Format)
	}
	if s.RetryMultiplier != 0 && s.RetryMultiplier < 1 {
		return fmt.Errorf("sink %s: retry multiplier must be >= 1", s.Name)
	}
	return nil
}

// TokenFromEnv returns the bearer token configured for the raw stream transport
func (w *WatchConfiguration) TokenFromEnv() string {
	if w.Stream.TokenEnv == "" {
		return ""
	}
	return os.Getenv(w.Stream.TokenEnv)
}
