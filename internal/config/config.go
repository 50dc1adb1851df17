// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the ops HTTP endpoint.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// StoreConfig locates the persistent state directory.
type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

// FetchConfig governs the direct-request tier.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// BrowserConfig configures the headless fallback tier.
type BrowserConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	NavTimeoutSec     int  `mapstructure:"nav_timeout_seconds"`
	ChallengeAttempts int  `mapstructure:"challenge_attempts"`
	ChallengeWaitSec  int  `mapstructure:"challenge_wait_seconds"`
}

// ScheduleConfig governs timer reconciliation.
type ScheduleConfig struct {
	SyncIntervalSec int `mapstructure:"sync_interval_seconds"`
	StartupGraceSec int `mapstructure:"startup_grace_seconds"`
	ItemDelayMs     int `mapstructure:"item_delay_ms"`
}

// TelegramConfig identifies the delivery bot.
type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	DefaultChatID int64  `mapstructure:"default_chat_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.dir", "data")
	v.SetDefault("fetch.timeout_seconds", 20)
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("browser.challenge_attempts", 5)
	v.SetDefault("browser.challenge_wait_seconds", 2)
	v.SetDefault("schedule.sync_interval_seconds", 30)
	v.SetDefault("schedule.startup_grace_seconds", 15)
	v.SetDefault("schedule.item_delay_ms", 2000)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Browser.Enabled && c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0 when the browser is enabled")
	}
	return nil
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// NavTimeout converts the browser navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}
