package config

import (
	"os"
	"path/filepath"
	"strings"
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
bridge:
  id: "toon-test"
toon:
  username: "jan"
  password: "hunter2"
  client_id: "cid"
  client_secret: "csecret"
  refresh_interval: 60000
devices:
  - id: "toon-display"
    type: "display"
    name: "Living room"
  - id: "fridge"
    type: "plug"
    dev_uuid: "hue-1234"
mqtt:
  broker:
    host: "mqtt.local"
    port: 1883
  qos: 1
api:
  port: 8090
  public_url: "https://home.example.com"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.ID != "toon-test" {
		t.Errorf("Bridge.ID = %q, want %q", cfg.Bridge.ID, "toon-test")
	}
	if cfg.Toon == nil {
		t.Fatal("Toon = nil, want section")
	}
	if cfg.Toon.Username != "jan" || cfg.Toon.RefreshInterval != 60000 {
		t.Errorf("Toon = %+v", cfg.Toon)
	}
	if len(cfg.Devices) != 2 || cfg.Devices[1].DevUUID != "hue-1234" {
		t.Errorf("Devices = %+v", cfg.Devices)
	}
	if cfg.MQTT.Broker.Host != "mqtt.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.local")
	}

	// Defaults survive a partial file.
	if cfg.Bridge.HealthInterval != 30 {
		t.Errorf("Bridge.HealthInterval = %d, want default 30", cfg.Bridge.HealthInterval)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want default json", cfg.Logging.Format)
	}
}

func TestLoad_MissingToonSection(t *testing.T) {
	configPath := writeConfig(t, `
bridge:
  id: "toon-test"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Toon != nil {
		t.Errorf("Toon = %+v, want nil", cfg.Toon)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
bridge:
  id: ""
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty bridge.id, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
bridge:
  id: "toon-test"
`)

	t.Setenv("GRAYLOGIC_TOON_USERNAME", "env-user")
	t.Setenv("GRAYLOGIC_TOON_CLIENT_SECRET", "env-secret")
	t.Setenv("GRAYLOGIC_MQTT_HOST", "broker.env")
	t.Setenv("GRAYLOGIC_API_PORT", "9999")
	t.Setenv("GRAYLOGIC_API_JWT_SECRET", "env-secret-key-at-least-32-characters")
	t.Setenv("GRAYLOGIC_API_TRUST_PROXY", "true")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Toon == nil || cfg.Toon.Username != "env-user" || cfg.Toon.ClientSecret != "env-secret" {
		t.Errorf("Toon = %+v, want env values", cfg.Toon)
	}
	if cfg.MQTT.Broker.Host != "broker.env" {
		t.Errorf("MQTT.Broker.Host = %q, want broker.env", cfg.MQTT.Broker.Host)
	}
	if cfg.API.Port != 9999 {
		t.Errorf("API.Port = %d, want 9999", cfg.API.Port)
	}
	if cfg.API.Auth.JWTSecret != "env-secret-key-at-least-32-characters" {
		t.Errorf("API.Auth.JWTSecret not taken from environment")
	}
	if !cfg.API.TrustProxy {
		t.Error("API.TrustProxy not taken from environment")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Devices = []DeviceConfig{
			{ID: "display", Type: DeviceTypeDisplay},
			{ID: "plug", Type: DeviceTypePlug, DevUUID: "uuid-1"},
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid config", func(*Config) {}, ""},
		{"missing toon section is fine", func(c *Config) { c.Toon = nil }, ""},
		{"missing bridge id", func(c *Config) { c.Bridge.ID = "" }, "bridge.id"},
		{"refresh too short", func(c *Config) { c.Toon = &ToonConfig{RefreshInterval: 10} }, "refresh_interval"},
		{"duplicate device", func(c *Config) { c.Devices[1].ID = "display" }, "duplicated"},
		{"unknown device type is skipped later", func(c *Config) { c.Devices[0].Type = "boiler" }, ""},
		{"plug without uuid", func(c *Config) { c.Devices[1].DevUUID = "" }, "dev_uuid"},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"invalid port", func(c *Config) { c.API.Port = 0 }, "api.port"},
		{"bad public url", func(c *Config) { c.API.PublicURL = "home.example.com" }, "public_url"},
		{"short jwt secret", func(c *Config) { c.API.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"no jwt secret is fine", func(c *Config) { c.API.Auth.JWTSecret = "" }, ""},
		{"influx without url", func(c *Config) {
			c.InfluxDB = InfluxDBConfig{Enabled: true, Org: "o", Bucket: "b"}
		}, "influxdb.url"},
		{"database without path", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Path = ""
		}, "database.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 45*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 45s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 60s", got)
	}
	if got := cfg.GetHealthInterval(); got != 30*time.Second {
		t.Errorf("GetHealthInterval() = %v, want 30s", got)
	}
}

func TestToonConfig_StringRedacts(t *testing.T) {
	tc := &ToonConfig{Username: "jan", Password: "hunter2", ClientSecret: "csecret", AccessToken: "tok"}
	s := tc.String()

	for _, secret := range []string{"hunter2", "csecret", "tok\""} {
		if strings.Contains(s, secret) {
			t.Errorf("String() = %q leaks %q", s, secret)
		}
	}

	var missing *ToonConfig
	if got := missing.String(); !strings.Contains(got, "missing") {
		t.Errorf("String() on nil = %q", got)
	}
}
