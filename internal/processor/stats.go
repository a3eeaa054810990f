package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/slack-alert-processor/pkg/tags"
)

// Counter tag names.
const (
	StatChannelAlertsSent   = "channel_alerts_sent"
	StatOfflineAlertsSent   = "offline_alerts_sent"
	StatThresholdAlertsSent = "threshold_alerts_sent"

	TagLastError   = "last_error"
	TagLastErrorAt = "last_error_at"
)

// Stats writes counters and last-error details to tag storage.
// Write failures are logged and otherwise ignored.
type Stats struct {
	tags   *tags.Tags
	logger *slog.Logger
}

// NewStats creates a stats writer over t.
func NewStats(t *tags.Tags, logger *slog.Logger) *Stats {
	return &Stats{tags: t, logger: logger}
}

// Increment adds one to the named counter and stamps <name>_last with at.
func (s *Stats) Increment(ctx context.Context, name string, at time.Time) {
	if _, err := s.tags.Incr(ctx, name); err != nil {
		s.logger.Warn("could not update stat", "stat", name, "error", err)
		return
	}
	if err := s.tags.SetTime(ctx, name+"_last", at); err != nil {
		s.logger.Warn("could not update stat", "stat", name+"_last", "error", err)
	}
}

// RecordError overwrites the last-error message and timestamp.
func (s *Stats) RecordError(ctx context.Context, msg string, at time.Time) {
	if err := s.tags.SetString(ctx, TagLastError, msg); err != nil {
		s.logger.Warn("could not update error tag", "error", err)
		return
	}
	if err := s.tags.SetTime(ctx, TagLastErrorAt, at); err != nil {
		s.logger.Warn("could not update error tag", "error", err)
	}
}
