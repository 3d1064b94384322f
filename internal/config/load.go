package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional config file and from
// environment variables. Environment variables use the HERALD_ prefix with
// underscores for nesting (HERALD_SERVER_PORT, HERALD_CHANNEL_URL, ...)
// and take precedence over file values.
//
// Returns a populated, validated Config or an error describing what is
// missing or malformed.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("herald")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/herald")

	v.SetEnvPrefix("HERALD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars may carry everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.log_level", "info")

	// Keys without a meaningful default still need registering so that
	// AutomaticEnv-provided values survive Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("channel.url", "")
	v.SetDefault("channel.token", "")
	v.SetDefault("channel.user_id", "")

	v.SetDefault("notify.dedup_window", 2000*time.Millisecond)
	v.SetDefault("notify.dispatch_spacing", 1000*time.Millisecond)
	v.SetDefault("notify.liveness_interval", 30*time.Second)
	v.SetDefault("notify.queue_capacity", 100)

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.inbox_size", 32)
}
