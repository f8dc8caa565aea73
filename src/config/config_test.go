package config

import (
	"os"
	"path/filepath"
	"testing"
)

// -----------------------------------------------------------------------------

const validYAML = `
name: test-dashboard
log_level: DEBUG
realtime:
  url: ws://127.0.0.1:9000/ws
api:
  base_url: http://127.0.0.1:9000
storage:
  db_type: sqlite
  db_path: test.db
network:
  timeout: 5
  retries: 2
channels:
  - topic: agent_stats
    entity_id: run-1
`

// -----------------------------------------------------------------------------

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Realtime.ReconnectDelaySeconds != DefaultReconnectDelaySeconds {
		t.Errorf("ReconnectDelaySeconds = %d", cfg.Realtime.ReconnectDelaySeconds)
	}
	if cfg.Realtime.PingIntervalSeconds != DefaultPingIntervalSeconds {
		t.Errorf("PingIntervalSeconds = %d", cfg.Realtime.PingIntervalSeconds)
	}
	if cfg.Buffer.Capacity != DefaultBufferCapacity {
		t.Errorf("Buffer.Capacity = %d", cfg.Buffer.Capacity)
	}
	if cfg.Storage.RetentionDays != DefaultRetentionDays {
		t.Errorf("RetentionDays = %d", cfg.Storage.RetentionDays)
	}

	if len(cfg.Channels) != 1 || cfg.Channels[0].Topic != "agent_stats" {
		t.Errorf("Channels = %+v", cfg.Channels)
	}
}

// -----------------------------------------------------------------------------

func TestNewConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", `
log_level: INFO
realtime: {url: ws://x/ws}
api: {base_url: http://x}
storage: {db_type: sqlite, db_path: x.db}
network: {timeout: 5, retries: 1}
`},
		{"missing realtime url", `
name: t
api: {base_url: http://x}
storage: {db_type: sqlite, db_path: x.db}
network: {timeout: 5, retries: 1}
`},
		{"missing api base_url", `
name: t
realtime: {url: ws://x/ws}
storage: {db_type: sqlite, db_path: x.db}
network: {timeout: 5, retries: 1}
`},
		{"sqlite without path", `
name: t
realtime: {url: ws://x/ws}
api: {base_url: http://x}
storage: {db_type: sqlite}
network: {timeout: 5, retries: 1}
`},
		{"postgres without dsn", `
name: t
realtime: {url: ws://x/ws}
api: {base_url: http://x}
storage: {db_type: postgres}
network: {timeout: 5, retries: 1}
`},
		{"zero timeout", `
name: t
realtime: {url: ws://x/ws}
api: {base_url: http://x}
storage: {db_type: sqlite, db_path: x.db}
network: {timeout: 0, retries: 1}
`},
		{"channel without entity", `
name: t
realtime: {url: ws://x/ws}
api: {base_url: http://x}
storage: {db_type: sqlite, db_path: x.db}
network: {timeout: 5, retries: 1}
channels:
  - topic: agent_stats
`},
		{"bad simulator port", `
name: t
realtime: {url: ws://x/ws}
api: {base_url: http://x}
storage: {db_type: sqlite, db_path: x.db}
network: {timeout: 5, retries: 1}
simulator: {port: 80, tick_interval_seconds: 1}
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewConfig(writeConfig(t, tc.yaml)); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

// -----------------------------------------------------------------------------

func TestConfigSaveRoundTrip(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "saved.yaml")
	if err := cfg.Save(out); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewConfig(out)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Name != cfg.Name || reloaded.Realtime.URL != cfg.Realtime.URL {
		t.Errorf("round trip changed config: %+v", reloaded.MConfig)
	}
}

// -----------------------------------------------------------------------------

func TestNewConfigMissingFile(t *testing.T) {
	if _, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
