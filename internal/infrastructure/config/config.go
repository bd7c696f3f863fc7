package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/obs-scene-scheduler/internal/schedule"
)

// Config is the root configuration structure for the scene scheduler.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	OBS       OBSConfig       `yaml:"obs"`
	Scenes    ScenesConfig    `yaml:"scenes"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Switcher  SwitcherConfig  `yaml:"switcher"`
	Crossfade CrossfadeConfig `yaml:"crossfade"`
	History   HistoryConfig   `yaml:"history"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// OBSConfig contains obs-websocket connection settings.
type OBSConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
}

// Address returns the host:port pair used to dial obs-websocket.
func (c OBSConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ScenesConfig maps each time window to the OBS scene it activates.
type ScenesConfig struct {
	Daytime   string `yaml:"daytime"`
	Evening   string `yaml:"evening"`
	Nighttime string `yaml:"nighttime"`
}

// ScheduleConfig holds the window boundaries as "HH:MM" local wall-clock values.
type ScheduleConfig struct {
	DaytimeStart   string `yaml:"daytime_start"`
	EveningStart   string `yaml:"evening_start"`
	NighttimeStart string `yaml:"nighttime_start"`
}

// Boundaries returns the configured windows as a schedule.Schedule.
func (c ScheduleConfig) Boundaries() schedule.Schedule {
	return schedule.Schedule{
		DaytimeStart:   c.DaytimeStart,
		EveningStart:   c.EveningStart,
		NighttimeStart: c.NighttimeStart,
	}
}

// SwitcherConfig contains control loop settings.
type SwitcherConfig struct {
	// Transition is the OBS scene transition selected on every switch.
	Transition string `yaml:"transition"`

	// Interval is the polling period between schedule evaluations.
	Interval time.Duration `yaml:"interval"`
}

// CrossfadeConfig contains settings for the background video rotator.
type CrossfadeConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sources are the two OBS media inputs that alternate as the visible background.
	Sources []string `yaml:"sources"`

	// Videos are the file paths cycled through, in order.
	Videos []string `yaml:"videos"`

	// FilterName is the Color Correction filter whose opacity is faded.
	FilterName string `yaml:"filter_name"`

	Interval     time.Duration `yaml:"interval"`
	FadeDuration time.Duration `yaml:"fade_duration"`
	Steps        int           `yaml:"steps"`
}

// HistoryConfig contains settings for the SQLite switch history.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// TopicPrefix is the first topic level, "scenesched" by default.
	// Give each instance its own prefix when several share a broker.
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains settings for the read-only status API.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
	JWT       JWTConfig        `yaml:"jwt"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the live switch event stream.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// JWTConfig contains bearer token settings. An empty Secret leaves the
// API unauthenticated.
type JWTConfig struct {
	Secret string `yaml:"secret"`

	// TokenTTL is the lifetime in minutes of tokens printed by
	// "scenescheduler token".
	TokenTTL int `yaml:"token_ttl"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// Output is stderr, stdout or file.
	Output string        `yaml:"output"`
	File   LogFileConfig `yaml:"file"`
}

// LogFileConfig contains rotation settings used when output is "file".
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// An empty path skips step 2. Environment variables follow the pattern
// SCENESCHED_SECTION_KEY, for example SCENESCHED_OBS_PASSWORD.
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOptional behaves like Load but falls back to defaults when the file
// does not exist. Other read errors are still returned.
func LoadOptional(path string) (cfg *Config, fromFile bool, err error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		cfg, err = Load("")
		return cfg, false, err
	}
	cfg, err = Load(path)
	return cfg, err == nil, err
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		OBS: OBSConfig{
			Host: "localhost",
			Port: 4455,
		},
		Scenes: ScenesConfig{
			Daytime:   "Daytime Scene",
			Evening:   "Evening Scene",
			Nighttime: "Nighttime Scene",
		},
		Schedule: ScheduleConfig{
			DaytimeStart:   "06:00",
			EveningStart:   "18:00",
			NighttimeStart: "22:00",
		},
		Switcher: SwitcherConfig{
			Transition: "Fade",
			Interval:   60 * time.Second,
		},
		Crossfade: CrossfadeConfig{
			Sources:      []string{"PalaceBackground1", "PalaceBackground2"},
			FilterName:   "Color Correction",
			Interval:     60 * time.Second,
			FadeDuration: 10 * time.Second,
			Steps:        1000,
		},
		History: HistoryConfig{
			Path:        "./data/scenesched.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "scenesched",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "scenesched",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
			JWT: JWTConfig{
				TokenTTL: 1440,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
			File: LogFileConfig{
				Path:       "./data/scenesched.log",
				MaxSizeMB:  10,
				MaxBackups: 5,
				MaxAgeDays: 30,
				Compress:   true,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SCENESCHED_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// OBS
	if v := os.Getenv("SCENESCHED_OBS_HOST"); v != "" {
		cfg.OBS.Host = v
	}
	if v := os.Getenv("SCENESCHED_OBS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing SCENESCHED_OBS_PORT: %w", err)
		}
		cfg.OBS.Port = port
	}
	if v := os.Getenv("SCENESCHED_OBS_PASSWORD"); v != "" {
		cfg.OBS.Password = v
	}

	// MQTT
	if v := os.Getenv("SCENESCHED_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SCENESCHED_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SCENESCHED_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("SCENESCHED_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// History
	if v := os.Getenv("SCENESCHED_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	// API
	if v := os.Getenv("SCENESCHED_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing SCENESCHED_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("SCENESCHED_API_JWT_SECRET"); v != "" {
		cfg.API.JWT.Secret = v
	}

	// Logging
	if v := os.Getenv("SCENESCHED_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// OBS
	if c.OBS.Host == "" {
		errs = append(errs, "obs.host is required")
	}
	if c.OBS.Port < 1 || c.OBS.Port > 65535 {
		errs = append(errs, "obs.port must be between 1 and 65535")
	}

	// Scenes
	if c.Scenes.Daytime == "" {
		errs = append(errs, "scenes.daytime is required")
	}
	if c.Scenes.Evening == "" {
		errs = append(errs, "scenes.evening is required")
	}
	if c.Scenes.Nighttime == "" {
		errs = append(errs, "scenes.nighttime is required")
	}

	// Schedule
	if err := c.Schedule.Boundaries().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("schedule is invalid: %v", err))
	}

	// Switcher
	if c.Switcher.Transition == "" {
		errs = append(errs, "switcher.transition is required")
	}
	if c.Switcher.Interval <= 0 {
		errs = append(errs, "switcher.interval must be positive")
	}

	// Crossfade
	if c.Crossfade.Enabled {
		if len(c.Crossfade.Sources) != 2 {
			errs = append(errs, "crossfade.sources must name exactly two inputs")
		}
		if len(c.Crossfade.Videos) == 0 {
			errs = append(errs, "crossfade.videos must not be empty")
		}
		if c.Crossfade.FilterName == "" {
			errs = append(errs, "crossfade.filter_name is required")
		}
		if c.Crossfade.Steps < 1 {
			errs = append(errs, "crossfade.steps must be at least 1")
		}
		if c.Crossfade.Interval <= 0 {
			errs = append(errs, "crossfade.interval must be positive")
		}
		if c.Crossfade.FadeDuration < 0 {
			errs = append(errs, "crossfade.fade_duration must not be negative")
		}
	}

	// History
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required when mqtt is enabled")
	}
	if c.MQTT.Enabled {
		switch p := c.MQTT.TopicPrefix; {
		case p == "":
			errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
		case strings.ContainsAny(p, "+#"), strings.HasPrefix(p, "/"), strings.HasSuffix(p, "/"):
			errs = append(errs, "mqtt.topic_prefix must not contain wildcards or leading/trailing slashes")
		}
	}

	// InfluxDB
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// API
	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if c.API.WebSocket.PingInterval < 1 || c.API.WebSocket.PongTimeout < 1 {
			errs = append(errs, "api.websocket ping_interval and pong_timeout must be positive")
		}
	}
	const minJWTSecretLength = 32
	if c.API.JWT.Secret != "" && len(c.API.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "api.jwt.secret must be at least 32 characters")
	}

	// Logging
	switch strings.ToLower(c.Logging.Output) {
	case "", "stderr", "stdout":
	case "file":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required when logging.output is file")
		}
	default:
		errs = append(errs, "logging.output must be stderr, stdout, or file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
