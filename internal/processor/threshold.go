package processor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ogulcanaydogan/slack-alert-processor/internal/config"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/alerts"
	"github.com/spf13/cast"
)

// CooldownTagPrefix prefixes the per-rule last-alert timestamp tag.
const CooldownTagPrefix = "threshold_cooldown_"

func (inv *invocation) thresholdAlerts(ctx context.Context) Result {
	inv.logger.Info("checking tag thresholds")

	rules := inv.cfg.ThresholdAlerts.Rules
	if len(rules) == 0 {
		inv.logger.Debug("no tag thresholds configured")
		return Result{}
	}

	values, err := inv.platform.TagValues(ctx, inv.cfg.Device.AgentID)
	if err != nil {
		inv.logger.Warn("could not fetch tag values", "error", err)
		return Result{Skipped: len(rules)}
	}

	problems := inv.cfg.RuleProblems()

	var res Result
	for i, rule := range rules {
		if problem := problems[i]; problem != nil {
			inv.logger.Warn("skipping invalid threshold rule", "rule", i, "tag", rule.TagName, "error", problem)
			inv.stats.RecordError(ctx, fmt.Sprintf("threshold rule %d (%s): %v", i, rule.TagName, problem), inv.now)
			res.Skipped++
			continue
		}
		res.add(inv.evaluateRule(ctx, rule, values))
	}
	return res
}

func (inv *invocation) evaluateRule(ctx context.Context, rule config.ThresholdRule, values map[string]any) Result {
	logger := inv.logger.With("tag", rule.TagName, "rule", rule.Key())

	raw, ok := values[rule.TagName]
	if !ok || raw == nil {
		logger.Debug("tag not found")
		return Result{Skipped: 1}
	}
	value, err := cast.ToFloat64E(raw)
	if err != nil {
		logger.Debug("tag value is not numeric", "value", raw)
		return Result{Skipped: 1}
	}

	var n alerts.Notification
	var limit string
	switch {
	case rule.UpperLimit != nil && value > *rule.UpperLimit:
		limit = ">" + formatNumber(*rule.UpperLimit)
		n = alerts.Notification{Title: "Threshold Alert: High Value", Color: alerts.ColorOrange}
	case rule.LowerLimit != nil && value < *rule.LowerLimit:
		limit = "<" + formatNumber(*rule.LowerLimit)
		n = alerts.Notification{Title: "Threshold Alert: Low Value", Color: alerts.ColorBlue}
	default:
		return Result{}
	}

	// Cooldown spaces alerts from the last alert; readings back within
	// limits in between do not reset it.
	key := CooldownTagPrefix + rule.Key()
	lastAlert, err := inv.tags.Time(ctx, key)
	if err != nil {
		logger.Warn("could not read cooldown", "error", err)
		inv.stats.RecordError(ctx, fmt.Sprintf("read cooldown for %s: %v", rule.Key(), err), inv.now)
		return Result{Skipped: 1}
	}
	if !lastAlert.IsZero() && inv.now.Sub(lastAlert) < rule.Cooldown() {
		logger.Debug("tag in cooldown period", "last_alert", lastAlert)
		inv.metrics.Suppressed(string(alerts.KindThreshold))
		return Result{Suppressed: 1}
	}

	n.Kind = alerts.KindThreshold
	n.Text = alerts.Render(rule.Message(), map[string]string{
		"tag":    rule.TagName,
		"value":  formatNumber(value),
		"limit":  limit,
		"device": inv.deviceName(ctx),
	})
	if !inv.deliver(ctx, n) {
		return Result{Failed: 1}
	}

	if err := inv.tags.SetTime(ctx, key, inv.now); err != nil {
		logger.Warn("could not record cooldown", "error", err)
	}
	inv.stats.Increment(ctx, StatThresholdAlertsSent, inv.now)
	return Result{Sent: 1}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
