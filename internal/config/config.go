package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Channel  ChannelConfig  `mapstructure:"channel"  validate:"required"`
	Notify   NotifyConfig   `mapstructure:"notify"   validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig contains the HTTP surface settings (settings UI and consent
// endpoints).
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the notification-preferences storage settings.
// An empty URL selects the in-memory store (per-device mode, nothing
// survives a restart).
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// ChannelConfig describes the live push channel this service subscribes to.
// The channel's server side and its authentication scheme are external; the
// token is treated as opaque.
type ChannelConfig struct {
	URL    string `mapstructure:"url"     validate:"required,url"`
	Token  string `mapstructure:"token"`
	UserID string `mapstructure:"user_id" validate:"required"`
}

// NotifyConfig contains the delivery pipeline's tuning knobs. The dedup
// window and dispatch spacing exist for UX smoothing, not correctness, so
// they are configuration rather than constants.
type NotifyConfig struct {
	DedupWindow      time.Duration `mapstructure:"dedup_window"      validate:"min=0"`
	DispatchSpacing  time.Duration `mapstructure:"dispatch_spacing"  validate:"min=0"`
	LivenessInterval time.Duration `mapstructure:"liveness_interval" validate:"min=1s"`
	QueueCapacity    int           `mapstructure:"queue_capacity"    validate:"gt=0"`
}

// WorkerConfig controls the background worker router.
type WorkerConfig struct {
	// Enabled controls whether displays are delegated to the background
	// worker when it is active. The dispatcher falls back to foreground
	// display either way.
	Enabled bool `mapstructure:"enabled"`

	// InboxSize is the buffer of the worker's message inbox.
	InboxSize int `mapstructure:"inbox_size" validate:"gt=0"`
}
