package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default values for optional configuration parameters.
const (
	DefaultBaseURL             = "https://api.telegram.org"
	DefaultPollTimeout         = 25 * time.Second
	DefaultSendTimeout         = 15 * time.Second
	DefaultBackoffBase         = time.Second
	DefaultBackoffMax          = 60 * time.Second
	DefaultCachePath           = "botscope-state.json"
	DefaultFlushInterval       = 30 * time.Second
	DefaultArchivePath         = "botscope-archive.db"
	DefaultMaintenanceInterval = 24 * time.Hour
	DefaultHistoryLimit        = 50
	DefaultRingSize            = 256
	DefaultMonitorSize         = 100
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultLogFile             = "botscope.log"
)

// ErrConfiguration wraps every configuration failure for errors.Is checks.
var ErrConfiguration = errors.New("configuration error")

// Load loads and validates configuration from:
// 1. Default values
// 2. The config file at path (optional; empty means ./config.yaml)
// 3. BOTSCOPE_* environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BOTSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing config file is fine unless one was named explicitly.
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// The token default makes the key visible to AutomaticEnv unmarshalling.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.base_url", DefaultBaseURL)
	v.SetDefault("telegram.poll_timeout", DefaultPollTimeout)
	v.SetDefault("telegram.send_timeout", DefaultSendTimeout)
	v.SetDefault("telegram.backoff_base", DefaultBackoffBase)
	v.SetDefault("telegram.backoff_max", DefaultBackoffMax)

	v.SetDefault("cache.path", DefaultCachePath)
	v.SetDefault("cache.flush_interval", DefaultFlushInterval)

	v.SetDefault("archive.path", DefaultArchivePath)
	v.SetDefault("archive.maintenance_interval", DefaultMaintenanceInterval)
	v.SetDefault("archive.history_limit", DefaultHistoryLimit)

	v.SetDefault("monitor.ring_size", DefaultRingSize)
	v.SetDefault("monitor.monitor_size", DefaultMonitorSize)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", DefaultLogFile)
}
