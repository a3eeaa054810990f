package processor_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ogulcanaydogan/slack-alert-processor/internal/config"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/processor"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/alerts"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thresholdConfig(rules ...config.ThresholdRule) *config.Config {
	cfg := baseConfig()
	cfg.ThresholdAlerts.Enabled = true
	cfg.ThresholdAlerts.Rules = rules
	return cfg
}

func TestThreshold_StrictUpperLimitAndCooldown(t *testing.T) {
	h := newHarness(t, thresholdConfig(config.ThresholdRule{
		TagName:         "temperature",
		UpperLimit:      floatPtr(100),
		CooldownMinutes: floatPtr(15),
	}))

	h.platform.SetTag(agentID, "temperature", 100.0)
	assert.Equal(t, processor.Result{}, h.tick(t))
	assert.Empty(t, h.notifier.Sent())

	h.platform.SetTag(agentID, "temperature", 101.0)
	assert.Equal(t, processor.Result{Sent: 1}, h.tick(t))

	sent := h.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "temperature is 101 (threshold: >100) on Pump 7", sent[0].Text)
	assert.Equal(t, "Threshold Alert: High Value", sent[0].Title)
	assert.Equal(t, alerts.ColorOrange, sent[0].Color)
	assert.Equal(t, alerts.KindThreshold, sent[0].Kind)

	h.clock.Advance(14 * time.Minute)
	assert.Equal(t, processor.Result{Suppressed: 1}, h.tick(t))

	h.clock.Advance(time.Minute)
	assert.Equal(t, processor.Result{Sent: 1}, h.tick(t))
	assert.Len(t, h.notifier.Sent(), 2)
	assert.Equal(t, int64(2), h.counter(t, processor.StatThresholdAlertsSent))
}

func TestThreshold_LowerLimit(t *testing.T) {
	h := newHarness(t, thresholdConfig(config.ThresholdRule{
		TagName:      "pressure",
		LowerLimit:   floatPtr(1.5),
		AlertMessage: "{tag} dropped to {value} ({limit}) on {device}",
	}))
	h.platform.SetTag(agentID, "pressure", 1.25)

	h.tick(t)

	sent := h.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "pressure dropped to 1.25 (<1.5) on Pump 7", sent[0].Text)
	assert.Equal(t, "Threshold Alert: Low Value", sent[0].Title)
	assert.Equal(t, alerts.ColorBlue, sent[0].Color)
}

func TestThreshold_BothLimits(t *testing.T) {
	h := newHarness(t, thresholdConfig(config.ThresholdRule{
		TagName:         "level",
		UpperLimit:      floatPtr(90),
		LowerLimit:      floatPtr(10),
		CooldownMinutes: floatPtr(0),
	}))

	for _, v := range []float64{50, 95, 5, 10, 90} {
		h.platform.SetTag(agentID, "level", v)
		h.tick(t)
	}

	sent := h.notifier.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "(threshold: >90)")
	assert.Contains(t, sent[1].Text, "(threshold: <10)")
}

func TestThreshold_InertRuleNeverFires(t *testing.T) {
	h := newHarness(t, thresholdConfig(config.ThresholdRule{TagName: "temperature"}))

	for _, v := range []float64{-1e9, 0, 1e9} {
		h.platform.SetTag(agentID, "temperature", v)
		res := h.tick(t)
		assert.Equal(t, processor.Result{Skipped: 1}, res)
	}

	assert.Empty(t, h.notifier.Sent())
	assert.Contains(t, h.lastError(t), "upper_limit or lower_limit")
}

func TestThreshold_MissingOrNonNumericTagIsSkipped(t *testing.T) {
	h := newHarness(t, thresholdConfig(
		config.ThresholdRule{TagName: "absent", UpperLimit: floatPtr(1)},
		config.ThresholdRule{TagName: "mode", UpperLimit: floatPtr(1)},
		config.ThresholdRule{TagName: "rpm", UpperLimit: floatPtr(100)},
	))
	h.platform.SetTag(agentID, "mode", "auto")
	h.platform.SetTag(agentID, "rpm", "150")

	res := h.tick(t)
	assert.Equal(t, processor.Result{Sent: 1, Skipped: 2}, res)
	assert.Equal(t, "rpm is 150 (threshold: >100) on Pump 7", h.notifier.Sent()[0].Text)
	assert.Empty(t, h.lastError(t))
}

func TestThreshold_FailureIsIsolatedPerRule(t *testing.T) {
	h := newHarness(t, thresholdConfig(
		config.ThresholdRule{TagName: "temperature", UpperLimit: floatPtr(100)},
		config.ThresholdRule{TagName: "pressure", UpperLimit: floatPtr(10)},
	))
	h.platform.SetTag(agentID, "temperature", 120.0)
	h.platform.SetTag(agentID, "pressure", 12.0)
	h.notifier.failFor = func(n alerts.Notification) bool {
		return strings.HasPrefix(n.Text, "temperature")
	}

	res := h.tick(t)
	assert.Equal(t, processor.Result{Sent: 1, Failed: 1}, res)
	require.Len(t, h.notifier.Sent(), 1)
	assert.True(t, strings.HasPrefix(h.notifier.Sent()[0].Text, "pressure"))
	assert.Equal(t, int64(1), h.counter(t, processor.StatThresholdAlertsSent))
	assert.Contains(t, h.lastError(t), "status 500")

	// The failed alert left no cooldown behind, so it is attempted again.
	h.notifier.failFor = nil
	h.clock.Advance(time.Minute)
	res = h.tick(t)
	assert.Equal(t, processor.Result{Sent: 1, Suppressed: 1}, res)
	assert.True(t, strings.HasPrefix(h.notifier.Sent()[1].Text, "temperature"))
}

func TestThreshold_CooldownIsRollingWindow(t *testing.T) {
	h := newHarness(t, thresholdConfig(config.ThresholdRule{
		TagName:         "temperature",
		UpperLimit:      floatPtr(100),
		CooldownMinutes: floatPtr(15),
	}))

	h.platform.SetTag(agentID, "temperature", 110.0)
	h.tick(t)

	h.clock.Advance(5 * time.Minute)
	h.platform.SetTag(agentID, "temperature", 50.0)
	h.tick(t)

	h.clock.Advance(5 * time.Minute)
	h.platform.SetTag(agentID, "temperature", 110.0)
	assert.Equal(t, processor.Result{Suppressed: 1}, h.tick(t))
	assert.Len(t, h.notifier.Sent(), 1)
}

func TestThreshold_RulesHaveIndependentCooldowns(t *testing.T) {
	h := newHarness(t, thresholdConfig(
		config.ThresholdRule{ID: "temp-high", TagName: "temperature", UpperLimit: floatPtr(100)},
		config.ThresholdRule{ID: "temp-critical", TagName: "temperature", UpperLimit: floatPtr(120)},
	))

	h.platform.SetTag(agentID, "temperature", 110.0)
	h.tick(t)
	h.platform.SetTag(agentID, "temperature", 130.0)
	res := h.tick(t)

	assert.Equal(t, processor.Result{Sent: 1, Suppressed: 1}, res)
	assert.Len(t, h.notifier.Sent(), 2)

	ts, err := h.tags.Time(context.Background(), processor.CooldownTagPrefix+"temp-critical")
	require.NoError(t, err)
	assert.True(t, t0.Equal(ts))
}

func TestThreshold_Idempotent(t *testing.T) {
	h := newHarness(t, thresholdConfig(
		config.ThresholdRule{TagName: "temperature", UpperLimit: floatPtr(100)},
		config.ThresholdRule{TagName: "pressure", LowerLimit: floatPtr(1)},
	))
	h.platform.SetTag(agentID, "temperature", 101.0)
	h.platform.SetTag(agentID, "pressure", 0.5)

	first := h.tick(t)
	assert.Equal(t, 2, first.Sent)

	h.clock.Advance(time.Minute)
	second := h.tick(t)
	assert.Equal(t, processor.Result{Suppressed: 2}, second)
	assert.Len(t, h.notifier.Sent(), 2)
}

func TestThreshold_UnknownDeviceTagsAreSkipped(t *testing.T) {
	cfg := thresholdConfig(
		config.ThresholdRule{TagName: "temperature", UpperLimit: floatPtr(1)},
		config.ThresholdRule{TagName: "pressure", UpperLimit: floatPtr(1)},
	)
	cfg.Device.AgentID = "ghost"
	h := newHarness(t, cfg)

	res := h.tick(t)
	assert.Equal(t, processor.Result{Skipped: 2}, res)
	assert.Empty(t, h.notifier.Sent())
}

func TestSchedule_NoWebhookSkipsEverything(t *testing.T) {
	cfg := thresholdConfig(config.ThresholdRule{TagName: "temperature", UpperLimit: floatPtr(1)})
	cfg.Slack.WebhookURL = ""
	cfg.OfflineAlerts.Enabled = true
	h := newHarness(t, cfg)
	h.platform.SetTag(agentID, "temperature", 50.0)
	h.platform.SetConnection(agentID, platform.Connection{Online: false, LastSeen: t0.Add(-time.Hour)})

	res := h.tick(t)
	assert.Equal(t, processor.Result{Skipped: 1}, res)
	assert.Empty(t, h.notifier.Sent())
}

func TestSchedule_OfflineAndThresholdInOneTick(t *testing.T) {
	cfg := thresholdConfig(config.ThresholdRule{TagName: "temperature", UpperLimit: floatPtr(100)})
	cfg.OfflineAlerts.Enabled = true
	h := newHarness(t, cfg)
	h.platform.SetTag(agentID, "temperature", 120.0)
	h.platform.SetConnection(agentID, platform.Connection{Online: false, LastSeen: t0.Add(-time.Hour)})

	res := h.tick(t)
	assert.Equal(t, processor.Result{Sent: 2}, res)

	sent := h.notifier.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, alerts.KindOffline, sent[0].Kind)
	assert.Equal(t, alerts.KindThreshold, sent[1].Kind)
}

func TestSchedule_ExplicitTime(t *testing.T) {
	h := newHarness(t, offlineConfig(60))
	h.platform.SetConnection(agentID, platform.Connection{Online: false, LastSeen: t0})

	res, err := h.proc.OnSchedule(context.Background(), processor.ScheduleEvent{At: t0.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, processor.Result{Sent: 1}, res)

	last, err := h.tags.Time(context.Background(), processor.TagLastOfflineReminder)
	require.NoError(t, err)
	assert.True(t, t0.Add(2*time.Hour).Equal(last))
}
