package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "database:\n  path: /tmp/test.db\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("database.path = %q, want /tmp/test.db", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("mqtt.broker.port default = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Reconnect.RetryDelay != 3 {
		t.Errorf("mqtt.reconnect.retry_delay default = %d, want 3", cfg.MQTT.Reconnect.RetryDelay)
	}
	if cfg.Sync.DispatchShards != 4 {
		t.Errorf("sync.dispatch_shards default = %d, want 4", cfg.Sync.DispatchShards)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/test.db
mqtt:
  broker:
    host: broker.example.net
    port: 2883
    tls: true
sync:
  dispatch_shards: 8
  command_timeout: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.example.net" {
		t.Errorf("mqtt.broker.host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 2883 {
		t.Errorf("mqtt.broker.port = %d", cfg.MQTT.Broker.Port)
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("mqtt.broker.tls = false, want true")
	}
	if cfg.Sync.DispatchShards != 8 {
		t.Errorf("sync.dispatch_shards = %d, want 8", cfg.Sync.DispatchShards)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "database:\n  path: /tmp/test.db\n")

	t.Setenv("WIHAJSTER_MQTT_HOST", "env-broker")
	t.Setenv("WIHAJSTER_MQTT_USERNAME", "core")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("mqtt.broker.host = %q, want env-broker", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Auth.Username != "core" {
		t.Errorf("mqtt.auth.username = %q, want core", cfg.MQTT.Auth.Username)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty database path", "database:\n  path: \"\"\n"},
		{"invalid qos", "database:\n  path: /tmp/t.db\nmqtt:\n  qos: 3\n"},
		{"zero retry delay", "database:\n  path: /tmp/t.db\nmqtt:\n  reconnect:\n    retry_delay: 0\n"},
		{"bad api port", "database:\n  path: /tmp/t.db\napi:\n  port: 70000\n"},
		{"zero shards", "database:\n  path: /tmp/t.db\nsync:\n  dispatch_shards: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			if _, err := Load(path); err == nil {
				t.Error("Load() succeeded, want validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() succeeded for missing file")
	}
}
