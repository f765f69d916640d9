package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the intercom controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Hardware HardwareConfig `yaml:"hardware"`
	Intercom IntercomConfig `yaml:"intercom"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DeviceConfig identifies the intercom unit this controller drives.
type DeviceConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// HardwareConfig selects the hardware driver and maps logical signals to pins.
type HardwareConfig struct {
	// Driver is either "gpio" (periph.io on real hardware) or "simulated".
	Driver string `yaml:"driver"`

	// Pin names as understood by periph.io's gpioreg (e.g. "GPIO17").
	SoundRelayPin   string `yaml:"sound_relay_pin"`
	HandsetRelayPin string `yaml:"handset_relay_pin"`
	DoorButtonPin   string `yaml:"door_button_pin"`
	CallLinePin     string `yaml:"call_line_pin"`
	StatusLEDPin    string `yaml:"status_led_pin"`

	// CallLinePull is the input pull for the call optocoupler: "up", "down" or "float".
	CallLinePull string `yaml:"call_line_pull"`

	// StatusLEDActiveLow inverts the LED output (on-board LEDs are usually wired to VCC).
	StatusLEDActiveLow bool `yaml:"status_led_active_low"`

	RTC RTCConfig `yaml:"rtc"`
}

// RTCConfig configures the optional DS1307 real-time clock.
// When disabled, the system clock in device.timezone is used.
type RTCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
}

// IntercomConfig holds the control policy parameters.
type IntercomConfig struct {
	// UnmuteTime and MuteTime bound the audible window (HH:MM or HH:MM:SS).
	UnmuteTime string `yaml:"unmute_time"`
	MuteTime   string `yaml:"mute_time"`

	DebounceMS         int `yaml:"debounce_ms"`
	SettleMS           int `yaml:"settle_ms"`
	PollIntervalMS     int `yaml:"poll_interval_ms"`
	SoundReevaluateSec int `yaml:"sound_reevaluate_interval"`
	AutoOpenSec        int `yaml:"auto_open_duration"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	KeepAlive   int              `yaml:"keepalive"`
	TopicPrefix string           `yaml:"topic_prefix"`
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

// DatabaseConfig contains SQLite event journal settings.
type DatabaseConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	WALMode       bool   `yaml:"wal_mode"`
	BusyTimeout   int    `yaml:"busy_timeout"`
	RetentionDays int    `yaml:"retention_days"`
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

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains settings for the live event stream.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CYFRAL_SECTION_KEY
// For example: CYFRAL_MQTT_HOST, CYFRAL_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:       "cyfral-01",
			Name:     "Cyfral intercom",
			Timezone: "Local",
		},
		Hardware: HardwareConfig{
			Driver:             "gpio",
			SoundRelayPin:      "GPIO17",
			HandsetRelayPin:    "GPIO27",
			DoorButtonPin:      "GPIO22",
			CallLinePin:        "GPIO23",
			StatusLEDPin:       "GPIO24",
			CallLinePull:       "down",
			StatusLEDActiveLow: true,
			RTC: RTCConfig{
				Enabled: false,
				Bus:     "",
				Address: 0x68,
			},
		},
		Intercom: IntercomConfig{
			UnmuteTime:         "03:00",
			MuteTime:           "18:00",
			DebounceMS:         5000,
			SettleMS:           500,
			PollIntervalMS:     20,
			SoundReevaluateSec: 300,
			AutoOpenSec:        1800,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "cyfral-controller",
			},
			QoS:         1,
			KeepAlive:   60,
			TopicPrefix: "cyfral",
		},
		Database: DatabaseConfig{
			Enabled:       true,
			Path:          "./data/cyfral.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 90,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 15,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CYFRAL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("CYFRAL_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
	if v := os.Getenv("CYFRAL_TIMEZONE"); v != "" {
		cfg.Device.Timezone = v
	}

	// Hardware
	if v := os.Getenv("CYFRAL_HARDWARE_DRIVER"); v != "" {
		cfg.Hardware.Driver = v
	}

	// MQTT
	if v := os.Getenv("CYFRAL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CYFRAL_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("CYFRAL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CYFRAL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("CYFRAL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("CYFRAL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("CYFRAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("device.timezone %q is not a known zone", c.Device.Timezone))
	}

	// Hardware validation
	switch c.Hardware.Driver {
	case "gpio":
		pins := []struct{ key, value string }{
			{"hardware.sound_relay_pin", c.Hardware.SoundRelayPin},
			{"hardware.handset_relay_pin", c.Hardware.HandsetRelayPin},
			{"hardware.door_button_pin", c.Hardware.DoorButtonPin},
			{"hardware.call_line_pin", c.Hardware.CallLinePin},
		}
		for _, p := range pins {
			if p.value == "" {
				errs = append(errs, p.key+" is required for the gpio driver")
			}
		}
	case "simulated":
	default:
		errs = append(errs, "hardware.driver must be \"gpio\" or \"simulated\"")
	}
	switch c.Hardware.CallLinePull {
	case "up", "down", "float", "":
	default:
		errs = append(errs, "hardware.call_line_pull must be up, down or float")
	}

	// Intercom validation
	unmute, unmuteErr := ParseClock(c.Intercom.UnmuteTime)
	if unmuteErr != nil {
		errs = append(errs, fmt.Sprintf("intercom.unmute_time: %v", unmuteErr))
	}
	mute, muteErr := ParseClock(c.Intercom.MuteTime)
	if muteErr != nil {
		errs = append(errs, fmt.Sprintf("intercom.mute_time: %v", muteErr))
	}
	if unmuteErr == nil && muteErr == nil && unmute >= mute {
		errs = append(errs, "intercom.unmute_time must be before intercom.mute_time")
	}
	if c.Intercom.DebounceMS <= 0 {
		errs = append(errs, "intercom.debounce_ms must be positive")
	}
	if c.Intercom.SettleMS < 0 {
		errs = append(errs, "intercom.settle_ms cannot be negative")
	}
	if c.Intercom.PollIntervalMS <= 0 {
		errs = append(errs, "intercom.poll_interval_ms must be positive")
	}
	if c.Intercom.SoundReevaluateSec <= 0 {
		errs = append(errs, "intercom.sound_reevaluate_interval must be positive")
	}
	if c.Intercom.AutoOpenSec <= 0 {
		errs = append(errs, "intercom.auto_open_duration must be positive")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.KeepAlive <= 0 {
		errs = append(errs, "mqtt.keepalive must be positive")
	}
	if strings.Trim(c.MQTT.TopicPrefix, "/") == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the journal is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Enabled && (c.API.WebSocket.PingInterval < 1 || c.API.WebSocket.PongTimeout < 1) {
		errs = append(errs, "api.websocket ping_interval and pong_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location resolves device.timezone. "Local" and "" mean the system zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Device.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Device.Timezone)
	}
}

// SoundWindow returns unmute_time and mute_time as offsets since midnight.
// Only meaningful on a validated Config.
func (c *Config) SoundWindow() (unmute, mute time.Duration) {
	unmute, _ = ParseClock(c.Intercom.UnmuteTime) //nolint:errcheck // validated in Validate
	mute, _ = ParseClock(c.Intercom.MuteTime)     //nolint:errcheck // validated in Validate
	return unmute, mute
}

// Debounce returns the call-line debounce window as a Duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Intercom.DebounceMS) * time.Millisecond
}

// Settle returns the relay settle delay as a Duration.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.Intercom.SettleMS) * time.Millisecond
}

// PollInterval returns the main loop tick as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Intercom.PollIntervalMS) * time.Millisecond
}

// SoundReevaluateInterval returns the sound policy period as a Duration.
func (c *Config) SoundReevaluateInterval() time.Duration {
	return time.Duration(c.Intercom.SoundReevaluateSec) * time.Second
}

// AutoOpenDuration returns how long auto-open stays enabled.
func (c *Config) AutoOpenDuration() time.Duration {
	return time.Duration(c.Intercom.AutoOpenSec) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// ParseClock parses a time of day in HH:MM or HH:MM:SS form and returns
// the offset since midnight.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q (want HH:MM or HH:MM:SS)", s)
	}

	limits := []int{23, 59, 59}
	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] || len(p) != 2 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		total += time.Duration(n) * units[i]
	}

	return total, nil
}
