package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all Slack Alert Processor configuration.
type Config struct {
	Device          DeviceConfig          `mapstructure:"device" yaml:"device"`
	Subscriptions   []string              `mapstructure:"subscriptions" yaml:"subscriptions"`
	Slack           SlackConfig           `mapstructure:"slack" yaml:"slack"`
	ChannelAlerts   ChannelAlertsConfig   `mapstructure:"channel_alerts" yaml:"channel_alerts"`
	OfflineAlerts   OfflineAlertsConfig   `mapstructure:"offline_alerts" yaml:"offline_alerts"`
	ThresholdAlerts ThresholdAlertsConfig `mapstructure:"threshold_alerts" yaml:"threshold_alerts"`
	Storage         StorageConfig         `mapstructure:"storage" yaml:"storage"`
	Platform        PlatformConfig        `mapstructure:"platform" yaml:"platform"`
	Server          ServerConfig          `mapstructure:"server" yaml:"server"`
	MQTT            MQTTConfig            `mapstructure:"mqtt" yaml:"mqtt"`
	Logging         LoggingConfig         `mapstructure:"logging" yaml:"logging"`
}

// DeviceConfig identifies the device this processor reports on.
type DeviceConfig struct {
	AgentID     string `mapstructure:"agent_id" yaml:"agent_id"`
	IncludeName bool   `mapstructure:"include_name" yaml:"include_name"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	WebhookURL            string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Channel               string `mapstructure:"channel" yaml:"channel"`
	Username              string `mapstructure:"username" yaml:"username"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	Attachments           bool   `mapstructure:"attachments" yaml:"attachments"`
}

// ChannelAlertsConfig controls notifications for subscribed channel messages.
type ChannelAlertsConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Template string `mapstructure:"template" yaml:"template"`
}

// OfflineAlertsConfig controls device offline notifications.
type OfflineAlertsConfig struct {
	Enabled                 bool   `mapstructure:"enabled" yaml:"enabled"`
	ThresholdMinutes        int    `mapstructure:"threshold_minutes" yaml:"threshold_minutes"`
	ReminderIntervalMinutes int    `mapstructure:"reminder_interval_minutes" yaml:"reminder_interval_minutes"`
	Message                 string `mapstructure:"message" yaml:"message"`
	ReminderMessage         string `mapstructure:"reminder_message" yaml:"reminder_message"`
}

// ThresholdAlertsConfig controls tag threshold notifications.
type ThresholdAlertsConfig struct {
	Enabled bool            `mapstructure:"enabled" yaml:"enabled"`
	Rules   []ThresholdRule `mapstructure:"rules" yaml:"rules"`
}

// ThresholdRule alerts when a tag value leaves [LowerLimit, UpperLimit].
type ThresholdRule struct {
	ID              string   `mapstructure:"id" yaml:"id,omitempty"`
	TagName         string   `mapstructure:"tag_name" yaml:"tag_name"`
	UpperLimit      *float64 `mapstructure:"upper_limit" yaml:"upper_limit,omitempty"`
	LowerLimit      *float64 `mapstructure:"lower_limit" yaml:"lower_limit,omitempty"`
	AlertMessage    string   `mapstructure:"alert_message" yaml:"alert_message"`
	CooldownMinutes *float64 `mapstructure:"cooldown_minutes" yaml:"cooldown_minutes,omitempty"`
}

// StorageConfig selects the tag storage backend.
type StorageConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend"`
	Path    string      `mapstructure:"path" yaml:"path"`
	Redis   RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig defines Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// PlatformConfig defines the host platform REST API.
type PlatformConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Token   string `mapstructure:"token" yaml:"token,omitempty"`
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig defines the event intake HTTP server.
type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// MQTTConfig defines the optional MQTT channel subscriber.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker      string `mapstructure:"broker" yaml:"broker"`
	ClientID    string `mapstructure:"client_id" yaml:"client_id"`
	Username    string `mapstructure:"username" yaml:"username,omitempty"`
	Password    string `mapstructure:"password" yaml:"password,omitempty"`
	TopicPrefix string `mapstructure:"topic_prefix" yaml:"topic_prefix"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default message templates.
const (
	DefaultChannelTemplate   = "New message on {channel} from {device}: {data}"
	DefaultOfflineMessage    = "Device *{device}* has gone offline"
	DefaultReminderMessage   = "Device *{device}* is still offline (duration: {duration} minutes)"
	DefaultThresholdTemplate = "{tag} is {value} (threshold: {limit}) on {device}"
	DefaultCooldownMinutes   = 15.0
)

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".slackproc"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	home, _ := os.UserHomeDir()
	v.SetDefault("device.agent_id", "")
	v.SetDefault("device.include_name", true)
	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("slack.channel", "")
	v.SetDefault("slack.username", "Doover Alerts")
	v.SetDefault("slack.request_timeout_seconds", 30)
	v.SetDefault("channel_alerts.enabled", true)
	v.SetDefault("channel_alerts.template", DefaultChannelTemplate)
	v.SetDefault("offline_alerts.enabled", false)
	v.SetDefault("offline_alerts.threshold_minutes", 30)
	v.SetDefault("offline_alerts.reminder_interval_minutes", 60)
	v.SetDefault("offline_alerts.message", DefaultOfflineMessage)
	v.SetDefault("offline_alerts.reminder_message", DefaultReminderMessage)
	v.SetDefault("threshold_alerts.enabled", false)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", filepath.Join(home, ".slackproc", "tags.db"))
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.prefix", "slackproc:tags:")
	v.SetDefault("platform.base_url", "")
	v.SetDefault("platform.token", "")
	v.SetDefault("platform.timeout", "10s")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("mqtt.client_id", "slackproc")
	v.SetDefault("mqtt.topic_prefix", "channels")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("SLACKPROC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
