// Package config provides configuration loading, validation, and management
// for botscope. It handles reading from YAML files, environment variables,
// default values, and validation of configuration parameters.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration sections.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Log      LogConfig      `mapstructure:"log"`
}

// TelegramConfig holds Bot API connectivity settings. The token may be
// empty; the session then starts at the token entry screen.
type TelegramConfig struct {
	Token       string        `mapstructure:"token"        validate:"max=256"`
	BaseURL     string        `mapstructure:"base_url"     validate:"required,url"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"min=1s,max=50s"`
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"min=1s,max=2m"`
	BackoffBase time.Duration `mapstructure:"backoff_base" validate:"min=100ms,max=1m"`
	BackoffMax  time.Duration `mapstructure:"backoff_max"  validate:"min=1s,max=10m"`
}

// CacheConfig holds state file settings.
type CacheConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// FlushInterval is how often dirty state is checkpointed to disk on top
	// of the per-batch write-through.
	FlushInterval time.Duration `mapstructure:"flush_interval" validate:"min=1s,max=1h"`
}

// ArchiveConfig holds the message archive settings.
type ArchiveConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// MaintenanceInterval is how often VACUUM runs.
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval" validate:"min=1m,max=168h"`
	HistoryLimit        int           `mapstructure:"history_limit"        validate:"min=1,max=1000"`
}

// MonitorConfig holds the in-memory view buffer sizes.
type MonitorConfig struct {
	RingSize    int `mapstructure:"ring_size"    validate:"min=16,max=4096"`
	MonitorSize int `mapstructure:"monitor_size" validate:"min=16,max=4096"`
}

// LogConfig holds logging settings. Logs go to a file because stdout
// belongs to the terminal UI.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
	File   string `mapstructure:"file"   validate:"required"`
}

// Validate checks the configuration against the struct tags plus the
// cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Telegram.BackoffMax < c.Telegram.BackoffBase {
		return fmt.Errorf("invalid configuration: backoff_max must be at least backoff_base")
	}
	return nil
}
