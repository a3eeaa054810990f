// Package processor evaluates channel, offline and threshold alerts for one
// device and delivers them through a Notifier. Each call to OnMessage or
// OnSchedule is one invocation: it reads config and device state, decides,
// sends, and records bookkeeping in tag storage before returning.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/config"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/metrics"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/alerts"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/platform"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/tags"
)

// UnknownDevice is used in messages when device names are disabled.
const UnknownDevice = "Unknown Device"

// MessageEvent is a message published on a subscribed channel.
type MessageEvent struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
	Device  string `json:"device,omitempty"` // originating device name, resolved from the platform when empty
}

// ScheduleEvent is a scheduled tick. A zero At means "now".
type ScheduleEvent struct {
	At time.Time `json:"at,omitempty"`
}

// Result summarises what one invocation did.
type Result struct {
	Sent       int `json:"sent"`
	Suppressed int `json:"suppressed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

func (r *Result) add(o Result) {
	r.Sent += o.Sent
	r.Suppressed += o.Suppressed
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// Processor is not safe for concurrent use; invocations must be serialised
// (see Dispatcher).
type Processor struct {
	cfg      *config.Config
	notifier alerts.Notifier
	platform platform.Platform
	tags     *tags.Tags
	stats    *Stats
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithMetrics mirrors notification outcomes into Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// New creates a processor for cfg.Device.AgentID. Tag state is scoped to
// that agent in store.
func New(cfg *config.Config, notifier alerts.Notifier, plat platform.Platform, store tags.Store, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		cfg:      cfg,
		notifier: notifier,
		platform: plat,
		tags:     tags.New(store, cfg.Device.AgentID),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.stats = NewStats(p.tags, logger)
	return p
}

// Tags exposes the processor's tag scope, for status reporting.
func (p *Processor) Tags() *tags.Tags { return p.tags }

// OnMessage handles a channel message event.
func (p *Processor) OnMessage(ctx context.Context, ev MessageEvent) (Result, error) {
	if ev.Channel == "" {
		return Result{}, errors.New("message event: channel is required")
	}
	inv := p.begin("message", p.now())
	inv.logger.Info("received channel message", "channel", ev.Channel)
	return inv.channelAlert(ctx, ev), nil
}

// OnSchedule runs the offline and threshold checks.
func (p *Processor) OnSchedule(ctx context.Context, ev ScheduleEvent) (Result, error) {
	now := ev.At
	if now.IsZero() {
		now = p.now()
	}
	inv := p.begin("schedule", now)
	inv.logger.Info("running scheduled checks")

	var res Result
	if p.cfg.Slack.WebhookURL == "" {
		inv.logger.Warn("slack webhook url not configured, skipping scheduled checks")
		res.Skipped++
		return res, nil
	}

	if p.cfg.OfflineAlerts.Enabled {
		res.add(inv.offlineAlert(ctx))
	}
	if p.cfg.ThresholdAlerts.Enabled {
		res.add(inv.thresholdAlerts(ctx))
	}

	inv.logger.Info("scheduled checks finished",
		"sent", res.Sent,
		"suppressed", res.Suppressed,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

// invocation carries per-call state: a correlated logger, the evaluation
// time and the lazily resolved device name.
type invocation struct {
	*Processor
	logger *slog.Logger
	now    time.Time
	device string
}

func (p *Processor) begin(kind string, now time.Time) *invocation {
	return &invocation{
		Processor: p,
		logger: p.logger.With(
			"invocation", uuid.NewString(),
			"trigger", kind,
			"agent", p.cfg.Device.AgentID,
		),
		now: now,
	}
}

// deviceName returns the name used for {device}. Lookup failures fall back
// to the agent id.
func (inv *invocation) deviceName(ctx context.Context) string {
	if inv.device != "" {
		return inv.device
	}
	if !inv.cfg.Device.IncludeName {
		inv.device = UnknownDevice
		return inv.device
	}
	name, err := inv.platform.AgentName(ctx, inv.cfg.Device.AgentID)
	if err != nil || name == "" {
		inv.logger.Debug("could not get device name", "error", err)
		name = inv.cfg.Device.AgentID
	}
	inv.device = name
	return inv.device
}

// deliver sends n and reports whether Slack accepted it. Failures are
// recorded in the last-error tags and never retried.
func (inv *invocation) deliver(ctx context.Context, n alerts.Notification) bool {
	n.ID = uuid.NewString()
	n.Channel = inv.cfg.Slack.Channel
	n.Username = inv.cfg.Slack.Username

	if err := inv.notifier.Send(ctx, n); err != nil {
		inv.logger.Error("send notification failed",
			"notifier", inv.notifier.Name(),
			"kind", n.Kind,
			"title", n.Title,
			"error", err,
		)
		inv.metrics.Failed(string(n.Kind))
		inv.stats.RecordError(ctx, "Slack delivery failed: "+err.Error(), inv.now)
		return false
	}

	inv.logger.Info("notification sent", "kind", n.Kind, "title", n.Title, "id", n.ID)
	inv.metrics.Sent(string(n.Kind))
	return true
}
