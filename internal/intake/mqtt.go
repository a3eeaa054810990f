// Package intake feeds channel messages published over MQTT into the
// processor.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/config"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/processor"
)

// handleTimeout bounds one processor invocation triggered by a message.
const handleTimeout = 2 * time.Minute

// Handler receives decoded channel messages.
type Handler interface {
	OnMessage(ctx context.Context, ev processor.MessageEvent) (processor.Result, error)
}

// Subscriber maps MQTT topics <prefix>/<channel> onto channel messages.
type Subscriber struct {
	client  mqtt.Client
	prefix  string
	handler Handler
	logger  *slog.Logger
	topics  []string
}

// Connect dials the broker in cfg.
func Connect(cfg config.MQTTConfig, h Handler, logger *slog.Logger) (*Subscriber, error) {
	client := mqtt.NewClient(clientOptions(cfg, logger))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	return NewSubscriber(client, cfg.TopicPrefix, h, logger), nil
}

func clientOptions(cfg config.MQTTConfig, logger *slog.Logger) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	// Handlers run a full invocation; keep them off the client's comms loop.
	// The dispatcher serialises invocations.
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", cfg.Broker, "error", err)
	})
	return opts
}

// NewSubscriber wraps an already connected client.
func NewSubscriber(client mqtt.Client, prefix string, h Handler, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		client:  client,
		prefix:  strings.Trim(prefix, "/"),
		handler: h,
		logger:  logger,
	}
}

// Subscribe listens on one topic per channel, or on every channel under
// the prefix when channels is empty.
func (s *Subscriber) Subscribe(channels []string) error {
	topics := make([]string, 0, len(channels))
	for _, ch := range channels {
		topics = append(topics, s.topic(ch))
	}
	if len(topics) == 0 {
		topics = append(topics, s.topic("#"))
	}

	for _, topic := range topics {
		token := s.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			s.handle(msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
		}
		s.topics = append(s.topics, topic)
		s.logger.Info("subscribed to channel topic", "topic", topic)
	}
	return nil
}

// Close unsubscribes and disconnects.
func (s *Subscriber) Close() {
	if len(s.topics) > 0 {
		if token := s.client.Unsubscribe(s.topics...); token.Wait() && token.Error() != nil {
			s.logger.Warn("mqtt unsubscribe failed", "error", token.Error())
		}
	}
	s.client.Disconnect(250)
}

func (s *Subscriber) topic(channel string) string {
	if s.prefix == "" {
		return channel
	}
	return s.prefix + "/" + channel
}

func (s *Subscriber) handle(topic string, payload []byte) {
	ev, ok := Event(s.prefix, topic, payload)
	if !ok {
		s.logger.Debug("ignoring message outside channel prefix", "topic", topic)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	res, err := s.handler.OnMessage(ctx, ev)
	if err != nil {
		s.logger.Error("handle channel message", "topic", topic, "error", err)
		return
	}
	s.logger.Debug("channel message handled", "channel", ev.Channel, "sent", res.Sent, "failed", res.Failed)
}

// Event decodes an MQTT message into a channel message. The channel is the
// topic with prefix removed; the payload is decoded as JSON and kept as a
// plain string when it is not valid JSON.
func Event(prefix, topic string, payload []byte) (processor.MessageEvent, bool) {
	prefix = strings.Trim(prefix, "/")
	channel := topic
	if prefix != "" {
		var found bool
		channel, found = strings.CutPrefix(topic, prefix+"/")
		if !found {
			return processor.MessageEvent{}, false
		}
	}
	if channel == "" {
		return processor.MessageEvent{}, false
	}

	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		data = string(payload)
	}
	return processor.MessageEvent{Channel: channel, Data: data}, true
}
