package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ogulcanaydogan/slack-alert-processor/internal/config"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/metrics"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/processor"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/alerts"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/platform"
	"github.com/ogulcanaydogan/slack-alert-processor/pkg/tags"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "slackproc",
	Short: "Slack Alert Processor - device channel, offline and threshold alerts to Slack",
	Long: `Slack Alert Processor posts Slack notifications for a device on the host platform.
It reacts to messages on subscribed channels, alerts when the device has been
offline too long (with reminders), and alerts when tag values cross configured
limits (with per-rule cooldowns).`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.slackproc/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStore opens the configured tag storage backend.
func initStore(ctx context.Context, cfg *config.Config) (tags.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		store, err := tags.NewRedis(ctx, tags.RedisOptions{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := tags.NewSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// initPlatform returns the host platform client, or a static snapshot
// when statePath is set.
func initPlatform(cfg *config.Config, statePath string) (platform.Platform, error) {
	if statePath != "" {
		static, err := platform.LoadStatic(statePath)
		if err != nil {
			return nil, err
		}
		return static, nil
	}
	if cfg.Platform.BaseURL == "" {
		return nil, errors.New("platform.base_url is not configured (use --state for a local snapshot)")
	}
	timeout, _ := time.ParseDuration(cfg.Platform.Timeout)
	return platform.NewClient(cfg.Platform.BaseURL, cfg.Platform.Token, timeout), nil
}

// initNotifier creates the Slack notifier from config.
func initNotifier(cfg *config.Config) alerts.Notifier {
	return alerts.NewSlackNotifier(
		cfg.Slack.WebhookURL,
		alerts.WithTimeout(time.Duration(cfg.Slack.RequestTimeoutSeconds)*time.Second),
		alerts.WithAttachments(cfg.Slack.Attachments),
	)
}

// initDeps opens the platform and tag store for cfg's device. The caller
// closes the returned store.
func initDeps(ctx context.Context, cfg *config.Config, statePath string) (platform.Platform, tags.Store, error) {
	if cfg.Device.AgentID == "" {
		return nil, nil, errors.New("device.agent_id is not configured")
	}

	plat, err := initPlatform(cfg, statePath)
	if err != nil {
		return nil, nil, err
	}

	store, err := initStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open tag storage: %w", err)
	}
	return plat, store, nil
}

// initProcessor creates a fully wired processor. The caller closes the
// returned store.
func initProcessor(ctx context.Context, cfg *config.Config, statePath string, m *metrics.Metrics) (*processor.Processor, tags.Store, error) {
	plat, store, err := initDeps(ctx, cfg, statePath)
	if err != nil {
		return nil, nil, err
	}
	p := processor.New(cfg, initNotifier(cfg), plat, store, newLogger(cfg), processor.WithMetrics(m))
	return p, store, nil
}

// printResult writes an invocation summary to stdout.
func printResult(res processor.Result) {
	fmt.Printf("sent=%d suppressed=%d skipped=%d failed=%d\n", res.Sent, res.Suppressed, res.Skipped, res.Failed)
}
