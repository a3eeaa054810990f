package processor

import (
	"context"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/slack-alert-processor/pkg/alerts"
)

// Offline episode bookkeeping tags.
const (
	TagOfflineAlertSent    = "offline_alert_sent"
	TagLastOfflineReminder = "last_offline_reminder"
)

// offlineAlert alerts once when the device has been offline for the
// configured threshold, then reminds every reminder interval (if non-zero)
// until the host reports it online again.
func (inv *invocation) offlineAlert(ctx context.Context) Result {
	inv.logger.Info("checking device offline status")

	conn, err := inv.platform.Connection(ctx, inv.cfg.Device.AgentID)
	if err != nil {
		inv.logger.Warn("could not get connection info", "error", err)
		return Result{Skipped: 1}
	}

	if conn.Online {
		// Episode over; the next offline period starts fresh.
		if err := inv.tags.Clear(ctx, TagOfflineAlertSent, TagLastOfflineReminder); err != nil {
			inv.logger.Warn("could not clear offline tracking", "error", err)
		}
		return Result{}
	}

	threshold := time.Duration(inv.cfg.OfflineAlerts.ThresholdMinutes) * time.Minute
	duration := "unknown"
	if !conn.LastSeen.IsZero() {
		offlineFor := inv.now.Sub(conn.LastSeen)
		if offlineFor < threshold {
			inv.logger.Debug("device offline below threshold",
				"offline_minutes", offlineFor.Minutes(),
				"threshold_minutes", inv.cfg.OfflineAlerts.ThresholdMinutes,
			)
			return Result{}
		}
		duration = strconv.Itoa(int(offlineFor / time.Minute))
	}

	alertSent, err := inv.tags.Bool(ctx, TagOfflineAlertSent)
	if err != nil {
		inv.logger.Warn("could not read offline tracking", "error", err)
		return Result{Skipped: 1}
	}
	lastAlert, err := inv.tags.Time(ctx, TagLastOfflineReminder)
	if err != nil {
		inv.logger.Warn("could not read offline tracking", "error", err)
		return Result{Skipped: 1}
	}

	reminder := time.Duration(inv.cfg.OfflineAlerts.ReminderIntervalMinutes) * time.Minute
	var tmpl string
	switch {
	case !alertSent:
		tmpl = inv.cfg.OfflineAlerts.Message
	case reminder > 0 && (lastAlert.IsZero() || inv.now.Sub(lastAlert) >= reminder):
		// A missing timestamp means the last write was lost; remind now.
		tmpl = inv.cfg.OfflineAlerts.ReminderMessage
	default:
		inv.logger.Debug("offline alert already sent, within reminder window")
		inv.metrics.Suppressed(string(alerts.KindOffline))
		return Result{Suppressed: 1}
	}

	text := alerts.Render(tmpl, map[string]string{
		"device":   inv.deviceName(ctx),
		"duration": duration,
	})
	ok := inv.deliver(ctx, alerts.Notification{
		Kind:  alerts.KindOffline,
		Title: "Device Offline Alert",
		Text:  text,
		Color: alerts.ColorRed,
	})
	if !ok {
		return Result{Failed: 1}
	}

	if err := inv.tags.SetTime(ctx, TagLastOfflineReminder, inv.now); err != nil {
		inv.logger.Warn("could not record offline alert", "error", err)
	}
	if err := inv.tags.SetBool(ctx, TagOfflineAlertSent, true); err != nil {
		inv.logger.Warn("could not record offline alert", "error", err)
	}
	inv.stats.Increment(ctx, StatOfflineAlertsSent, inv.now)
	return Result{Sent: 1}
}
