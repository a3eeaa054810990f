package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ogulcanaydogan/slack-alert-processor/internal/config"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/intake"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/metrics"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/processor"
	"github.com/ogulcanaydogan/slack-alert-processor/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept host events over HTTP (and MQTT) and send alerts",
	Long: `Serve runs the event intake: the host posts channel messages and scheduled
ticks to the HTTP API, and subscribed channels can also arrive over MQTT.
The config file is watched and reloaded between invocations.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
	serveCmd.Flags().String("state", "", "Serve device state from a YAML snapshot instead of the platform API")
	serveCmd.Flags().Bool("watch", true, "Reload the config file when it changes")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
	}
	statePath, _ := cmd.Flags().GetString("state")
	watch, _ := cmd.Flags().GetBool("watch")

	logger := newLogger(cfg)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	plat, store, err := initDeps(ctx, cfg, statePath)
	if err != nil {
		return err
	}
	defer store.Close()

	dispatcher := processor.NewDispatcher(
		processor.New(cfg, initNotifier(cfg), plat, store, logger, processor.WithMetrics(m)),
	)

	if cfg.MQTT.Enabled {
		sub, err := intake.Connect(cfg.MQTT, dispatcher, logger)
		if err != nil {
			return err
		}
		defer sub.Close()
		if err := sub.Subscribe(cfg.Subscriptions); err != nil {
			return err
		}
	}

	if watch {
		if path := configPath(); path != "" {
			go func() {
				err := config.Watch(ctx, path, logger, func(next *config.Config) {
					// Storage, platform and intake settings apply on restart.
					p := processor.New(next, initNotifier(next), plat, store, newLogger(next), processor.WithMetrics(m))
					dispatcher.Swap(p)
				})
				if err != nil {
					logger.Error("config watch stopped", "path", path, "error", err)
				}
			}()
		}
	}

	apiServer := server.NewServer(dispatcher, m.Handler(), logger)
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "listen", cfg.Server.Listen, "agent", cfg.Device.AgentID)
		fmt.Fprintf(os.Stderr, "Slack Alert Processor listening on %s\n", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// configPath returns the file to watch: the --config flag, or the first
// default location that exists.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	candidates := []string{"config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append([]string{filepath.Join(home, ".slackproc", "config.yaml")}, candidates...)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
