package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/ogulcanaydogan/slack-alert-processor/pkg/alerts"
)

func (inv *invocation) channelAlert(ctx context.Context, ev MessageEvent) Result {
	if !inv.cfg.ChannelAlerts.Enabled {
		inv.logger.Debug("channel alerts disabled, skipping")
		return Result{Skipped: 1}
	}
	if subs := inv.cfg.Subscriptions; len(subs) > 0 && !slices.Contains(subs, ev.Channel) {
		inv.logger.Debug("channel not subscribed, skipping", "channel", ev.Channel)
		return Result{Skipped: 1}
	}
	if inv.cfg.Slack.WebhookURL == "" {
		inv.logger.Warn("slack webhook url not configured, skipping alert")
		return Result{Skipped: 1}
	}

	device := ev.Device
	if device == "" {
		device = inv.deviceName(ctx)
	}

	text := alerts.Render(inv.cfg.ChannelAlerts.Template, map[string]string{
		"channel": ev.Channel,
		"data":    formatData(ev.Data),
		"device":  device,
	})

	ok := inv.deliver(ctx, alerts.Notification{
		Kind:  alerts.KindChannel,
		Title: "Channel Alert: " + ev.Channel,
		Text:  text,
		Color: alerts.ColorGreen,
	})
	if !ok {
		return Result{Failed: 1}
	}
	inv.stats.Increment(ctx, StatChannelAlertsSent, inv.now)
	return Result{Sent: 1}
}

// formatData renders a message payload for {data}: strings verbatim,
// structured values as indented JSON, anything else with fmt.
func formatData(data any) string {
	switch v := data.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return string(v)
		}
		return formatData(decoded)
	}

	switch reflect.ValueOf(data).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.MarshalIndent(data, "", "  ")
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(data)
}
