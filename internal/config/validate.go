package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ogulcanaydogan/slack-alert-processor/pkg/alerts"
)

// Validate checks settings that make the whole processor unusable.
// Individual threshold rules are checked separately by RuleProblems so that
// one bad rule does not stop the others from being evaluated.
func (c *Config) Validate() error {
	var errs []error

	if c.Slack.RequestTimeoutSeconds < 5 || c.Slack.RequestTimeoutSeconds > 120 {
		errs = append(errs, fmt.Errorf("slack.request_timeout_seconds must be between 5 and 120, got %d", c.Slack.RequestTimeoutSeconds))
	}
	if c.OfflineAlerts.ThresholdMinutes < 1 || c.OfflineAlerts.ThresholdMinutes > 1440 {
		errs = append(errs, fmt.Errorf("offline_alerts.threshold_minutes must be between 1 and 1440, got %d", c.OfflineAlerts.ThresholdMinutes))
	}
	if c.OfflineAlerts.ReminderIntervalMinutes < 0 || c.OfflineAlerts.ReminderIntervalMinutes > 1440 {
		errs = append(errs, fmt.Errorf("offline_alerts.reminder_interval_minutes must be between 0 and 1440, got %d", c.OfflineAlerts.ReminderIntervalMinutes))
	}

	templates := []struct {
		field   string
		tmpl    string
		allowed []string
	}{
		{"channel_alerts.template", c.ChannelAlerts.Template, alerts.ChannelPlaceholders},
		{"offline_alerts.message", c.OfflineAlerts.Message, alerts.OfflinePlaceholders},
		{"offline_alerts.reminder_message", c.OfflineAlerts.ReminderMessage, alerts.OfflinePlaceholders},
	}
	for _, t := range templates {
		if err := alerts.CheckPlaceholders(t.tmpl, t.allowed); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.field, err))
		}
	}

	switch c.Storage.Backend {
	case "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be sqlite or redis, got %q", c.Storage.Backend))
	}

	if c.Platform.Timeout != "" {
		if _, err := time.ParseDuration(c.Platform.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("platform.timeout: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RuleProblems returns one error per invalid threshold rule, keyed by rule index.
func (c *Config) RuleProblems() map[int]error {
	problems := make(map[int]error)
	seen := make(map[string]int)
	for i, r := range c.ThresholdAlerts.Rules {
		if err := r.Validate(); err != nil {
			problems[i] = err
			continue
		}
		if prev, ok := seen[r.Key()]; ok {
			problems[i] = fmt.Errorf("rule id %q duplicates rule %d", r.Key(), prev)
			continue
		}
		seen[r.Key()] = i
	}
	return problems
}

// MaxCooldownMinutes is the longest cooldown a time.Duration can hold.
const MaxCooldownMinutes = float64(math.MaxInt64 / int64(time.Minute))

// Validate reports why a rule cannot be evaluated.
func (r ThresholdRule) Validate() error {
	var errs []error
	if r.TagName == "" {
		errs = append(errs, errors.New("tag_name is required"))
	}
	if r.UpperLimit == nil && r.LowerLimit == nil {
		errs = append(errs, errors.New("at least one of upper_limit or lower_limit must be set"))
	}
	if c := r.CooldownMinutes; c != nil && (math.IsNaN(*c) || *c < 0 || *c > MaxCooldownMinutes) {
		errs = append(errs, fmt.Errorf("cooldown_minutes must be between 0 and %.0f, got %v", MaxCooldownMinutes, *c))
	}
	if err := alerts.CheckPlaceholders(r.Message(), alerts.ThresholdPlaceholders); err != nil {
		errs = append(errs, fmt.Errorf("alert_message: %w", err))
	}
	return errors.Join(errs...)
}

// Key identifies the rule's cooldown stream. It defaults to the tag name.
func (r ThresholdRule) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.TagName
}

// Message returns the alert template, falling back to the default.
func (r ThresholdRule) Message() string {
	if r.AlertMessage == "" {
		return DefaultThresholdTemplate
	}
	return r.AlertMessage
}

// Cooldown returns the minimum spacing between alerts for this rule.
func (r ThresholdRule) Cooldown() time.Duration {
	minutes := DefaultCooldownMinutes
	if r.CooldownMinutes != nil {
		minutes = *r.CooldownMinutes
	}
	if math.IsNaN(minutes) || minutes < 0 {
		return 0
	}
	if minutes >= MaxCooldownMinutes {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(minutes * float64(time.Minute))
}
