package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
device:
  id: "porch"
  timezone: "UTC"
hardware:
  driver: "simulated"
intercom:
  unmute_time: "07:30"
  mute_time: "22:00:00"
mqtt:
  broker:
    host: "broker.lan"
    port: 1883
    client_id: "porch-intercom"
  topic_prefix: "home/intercom"
database:
  path: "/tmp/cyfral.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.ID != "porch" {
		t.Errorf("Device.ID = %q, want %q", cfg.Device.ID, "porch")
	}
	if cfg.Hardware.Driver != "simulated" {
		t.Errorf("Hardware.Driver = %q, want %q", cfg.Hardware.Driver, "simulated")
	}
	if cfg.MQTT.TopicPrefix != "home/intercom" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "home/intercom")
	}

	unmute, mute := cfg.SoundWindow()
	if unmute != 7*time.Hour+30*time.Minute {
		t.Errorf("unmute = %v, want 7h30m", unmute)
	}
	if mute != 22*time.Hour {
		t.Errorf("mute = %v, want 22h", mute)
	}

	// Untouched sections keep their defaults.
	if cfg.Intercom.DebounceMS != 5000 {
		t.Errorf("Intercom.DebounceMS = %d, want 5000", cfg.Intercom.DebounceMS)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
device:
  id: ""
hardware:
  driver: "simulated"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty device.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "simulated driver without pins", mutate: func(c *Config) {
			c.Hardware.Driver = "simulated"
			c.Hardware.CallLinePin = ""
		}, wantErr: false},
		{name: "gpio driver without call line pin", mutate: func(c *Config) {
			c.Hardware.CallLinePin = ""
		}, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Hardware.Driver = "serial" }, wantErr: true},
		{name: "bad pull", mutate: func(c *Config) { c.Hardware.CallLinePull = "sideways" }, wantErr: true},
		{name: "missing device ID", mutate: func(c *Config) { c.Device.ID = "" }, wantErr: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.Device.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "bad unmute time", mutate: func(c *Config) { c.Intercom.UnmuteTime = "3am" }, wantErr: true},
		{name: "bad mute time", mutate: func(c *Config) { c.Intercom.MuteTime = "24:00" }, wantErr: true},
		{name: "empty sound window", mutate: func(c *Config) {
			c.Intercom.UnmuteTime = "00:00"
			c.Intercom.MuteTime = "00:00"
		}, wantErr: true},
		{name: "inverted sound window", mutate: func(c *Config) {
			c.Intercom.UnmuteTime = "22:00"
			c.Intercom.MuteTime = "07:00"
		}, wantErr: true},
		{name: "sound window from midnight", mutate: func(c *Config) {
			c.Intercom.UnmuteTime = "00:00"
			c.Intercom.MuteTime = "23:59:59"
		}, wantErr: false},
		{name: "zero debounce", mutate: func(c *Config) { c.Intercom.DebounceMS = 0 }, wantErr: true},
		{name: "zero settle allowed", mutate: func(c *Config) { c.Intercom.SettleMS = 0 }, wantErr: false},
		{name: "negative settle", mutate: func(c *Config) { c.Intercom.SettleMS = -1 }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid broker port", mutate: func(c *Config) { c.MQTT.Broker.Port = 70000 }, wantErr: true},
		{name: "empty topic prefix", mutate: func(c *Config) { c.MQTT.TopicPrefix = "/" }, wantErr: true},
		{name: "journal enabled without path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "journal disabled without path", mutate: func(c *Config) {
			c.Database.Enabled = false
			c.Database.Path = ""
		}, wantErr: false},
		{name: "influx enabled without url", mutate: func(c *Config) {
			c.InfluxDB.Enabled = true
			c.InfluxDB.Bucket = "intercom"
		}, wantErr: true},
		{name: "api enabled with bad port", mutate: func(c *Config) {
			c.API.Enabled = true
			c.API.Port = 0
		}, wantErr: true},
		{name: "api enabled with zero ping interval", mutate: func(c *Config) {
			c.API.Enabled = true
			c.API.WebSocket.PingInterval = 0
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Device.Timezone = "UTC"
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "03:00", want: 3 * time.Hour},
		{input: "18:00:00", want: 18 * time.Hour},
		{input: "00:00:01", want: time.Second},
		{input: "23:59:59", want: 23*time.Hour + 59*time.Minute + 59*time.Second},
		{input: " 07:05 ", want: 7*time.Hour + 5*time.Minute},
		{input: "7:05", wantErr: true},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "12", wantErr: true},
		{input: "12:00:00:00", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseClock(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.Debounce(); got != 5*time.Second {
		t.Errorf("Debounce() = %v, want 5s", got)
	}
	if got := cfg.Settle(); got != 500*time.Millisecond {
		t.Errorf("Settle() = %v, want 500ms", got)
	}
	if got := cfg.SoundReevaluateInterval(); got != 5*time.Minute {
		t.Errorf("SoundReevaluateInterval() = %v, want 5m", got)
	}
	if got := cfg.AutoOpenDuration(); got != 30*time.Minute {
		t.Errorf("AutoOpenDuration() = %v, want 30m", got)
	}
	if got := cfg.GetReadTimeout(); got != 10*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 10s", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("CYFRAL_DEVICE_ID", "backdoor")
	t.Setenv("CYFRAL_HARDWARE_DRIVER", "simulated")
	t.Setenv("CYFRAL_MQTT_HOST", "mqtt.example.com")
	t.Setenv("CYFRAL_MQTT_PORT", "8883")
	t.Setenv("CYFRAL_MQTT_USERNAME", "testuser")
	t.Setenv("CYFRAL_MQTT_PASSWORD", "testpass")
	t.Setenv("CYFRAL_DATABASE_PATH", "/custom/path.db")
	t.Setenv("CYFRAL_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("CYFRAL_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	if cfg.Device.ID != "backdoor" {
		t.Errorf("Device.ID = %q, want %q", cfg.Device.ID, "backdoor")
	}
	if cfg.Hardware.Driver != "simulated" {
		t.Errorf("Hardware.Driver = %q, want %q", cfg.Hardware.Driver, "simulated")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Intercom.UnmuteTime != "03:00" || cfg.Intercom.MuteTime != "18:00" {
		t.Errorf("default sound window = %s-%s, want 03:00-18:00", cfg.Intercom.UnmuteTime, cfg.Intercom.MuteTime)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Hardware.RTC.Address != 0x68 {
		t.Errorf("defaultConfig RTC.Address = %#x, want 0x68", cfg.Hardware.RTC.Address)
	}
	if cfg.API.Enabled {
		t.Error("defaultConfig should leave the HTTP API disabled")
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("example configs/config.yaml does not load: %v", err)
	}
	if cfg.Hardware.RTC.Address != 0x68 {
		t.Errorf("RTC.Address = %#x, want 0x68", cfg.Hardware.RTC.Address)
	}
}
