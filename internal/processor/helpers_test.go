package processor_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ogulcanaydogan/slack-alert-processor/internal/config"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/processor"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/alerts"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/platform"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/tags"
	"github.com/stretchr/testify/require"
)

const agentID = "pump-7"

var t0 = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

// recordingNotifier captures delivered notifications. Send fails for every
// notification when failAll is set, or for those failFor matches.
type recordingNotifier struct {
	mu      sync.Mutex
	sent    []alerts.Notification
	failAll bool
	failFor func(alerts.Notification) bool
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(_ context.Context, n alerts.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll || (r.failFor != nil && r.failFor(n)) {
		return errors.New("slack returned status 500")
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) Sent() []alerts.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]alerts.Notification(nil), r.sent...)
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	proc     *processor.Processor
	notifier *recordingNotifier
	platform *platform.Static
	tags     *tags.Tags
	clock    *clock
}

func baseConfig() *config.Config {
	return &config.Config{
		Device: config.DeviceConfig{AgentID: agentID, IncludeName: true},
		Slack: config.SlackConfig{
			WebhookURL:            "https://hooks.slack.com/services/T/B/X",
			Username:              "Doover Alerts",
			RequestTimeoutSeconds: 30,
		},
		ChannelAlerts: config.ChannelAlertsConfig{
			Enabled:  true,
			Template: config.DefaultChannelTemplate,
		},
		OfflineAlerts: config.OfflineAlertsConfig{
			ThresholdMinutes:        30,
			ReminderIntervalMinutes: 60,
			Message:                 config.DefaultOfflineMessage,
			ReminderMessage:         config.DefaultReminderMessage,
		},
		Storage: config.StorageConfig{Backend: "sqlite"},
	}
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	store, err := tags.NewSQLite(filepath.Join(t.TempDir(), "tags.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	plat := platform.NewStatic()
	plat.Put(agentID, platform.Snapshot{Name: "Pump 7"})

	clk := &clock{now: t0}
	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &harness{
		proc:     processor.New(cfg, notifier, plat, store, logger, processor.WithClock(clk.Now)),
		notifier: notifier,
		platform: plat,
		tags:     tags.New(store, agentID),
		clock:    clk,
	}
}

func (h *harness) tick(t *testing.T) processor.Result {
	t.Helper()
	res, err := h.proc.OnSchedule(context.Background(), processor.ScheduleEvent{})
	require.NoError(t, err)
	return res
}

func (h *harness) counter(t *testing.T, name string) int64 {
	t.Helper()
	n, err := h.tags.Int(context.Background(), name)
	require.NoError(t, err)
	return n
}

func (h *harness) lastError(t *testing.T) string {
	t.Helper()
	s, err := h.tags.String(context.Background(), processor.TagLastError)
	require.NoError(t, err)
	return s
}

func floatPtr(v float64) *float64 { return &v }
