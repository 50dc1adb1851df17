package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Store.Dir != "data" {
		t.Fatalf("expected default store dir, got %q", cfg.Store.Dir)
	}
	if got := cfg.FetchTimeout(); got != 20*time.Second {
		t.Fatalf("expected fetch timeout 20s, got %v", got)
	}
	if !cfg.Browser.Enabled {
		t.Fatalf("expected browser enabled by default")
	}
	if got := cfg.NavTimeout(); got != 45*time.Second {
		t.Fatalf("expected nav timeout 45s, got %v", got)
	}
	if cfg.Schedule.SyncIntervalSec != 30 {
		t.Fatalf("expected sync interval 30s, got %d", cfg.Schedule.SyncIntervalSec)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
store:
  dir: /var/lib/vigil
fetch:
  user_agent: real-agent
  timeout_seconds: 5
browser:
  enabled: false
schedule:
  sync_interval_seconds: 60
  startup_grace_seconds: 5
  item_delay_ms: 500
telegram:
  token: "123:abc"
  default_chat_id: 42
logging:
  development: true
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Store.Dir != "/var/lib/vigil" {
		t.Fatalf("expected store dir override, got %q", cfg.Store.Dir)
	}
	if cfg.Fetch.UserAgent != "real-agent" || cfg.FetchTimeout() != 5*time.Second {
		t.Fatalf("expected fetch overrides to apply: %+v", cfg.Fetch)
	}
	if cfg.Browser.Enabled {
		t.Fatalf("expected browser disabled")
	}
	if cfg.Schedule.SyncIntervalSec != 60 || cfg.Schedule.ItemDelayMs != 500 {
		t.Fatalf("expected schedule overrides to apply: %+v", cfg.Schedule)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.DefaultChatID != 42 {
		t.Fatalf("expected telegram overrides to apply: %+v", cfg.Telegram)
	}
	if !cfg.Logging.Development {
		t.Fatalf("expected development logging")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	base := Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Dir: "data"},
		Fetch:  FetchConfig{TimeoutSeconds: 20},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "missing store dir",
			cfg: func() Config {
				c := base
				c.Store.Dir = ""
				return c
			}(),
			want: "store.dir",
		},
		{
			name: "invalid fetch timeout",
			cfg: func() Config {
				c := base
				c.Fetch.TimeoutSeconds = 0
				return c
			}(),
			want: "fetch.timeout_seconds",
		},
		{
			name: "browser enabled without nav timeout",
			cfg: func() Config {
				c := base
				c.Browser.Enabled = true
				c.Browser.NavTimeoutSec = 0
				return c
			}(),
			want: "browser.nav_timeout_seconds",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
