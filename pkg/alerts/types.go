package alerts

import "context"

// Kind identifies which handler produced a notification.
type Kind string

const (
	KindChannel   Kind = "channel"   // Subscribed channel received a message
	KindOffline   Kind = "offline"   // Device offline or still offline
	KindThreshold Kind = "threshold" // Tag value crossed a configured limit
)

// Attachment colours, matching what operators are used to seeing in Slack.
const (
	ColorGreen  = "#36a64f"
	ColorRed    = "#ff0000"
	ColorOrange = "#ff9900"
	ColorBlue   = "#0066ff"
)

// Notification is a single rendered message, built per send and then discarded.
type Notification struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Color    string `json:"color"`
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
}

// Notifier sends notifications to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a notification. A non-nil error means it was not delivered.
	Send(ctx context.Context, n Notification) error
}
