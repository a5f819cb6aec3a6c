package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openroad/roadcall/alert"
	"github.com/openroad/roadcall/assign"
	"github.com/openroad/roadcall/config"
	"github.com/openroad/roadcall/db"
	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/logger"
	"github.com/openroad/roadcall/monitor"
	"github.com/openroad/roadcall/server"
	"github.com/openroad/roadcall/store"
)

// shutdownTimeout bounds how long we wait for in-flight work on SIGTERM.
const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring engine and admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		configFlag, _ := cmd.Flags().GetString("config")
		return runServe(config.ResolvePath(configFlag))
	},
}

func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	holder, err := config.NewHolder(cfg)
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	conn, err := db.Open(cfg.Database.Path, logger.Logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.Migrate(conn, logger.Logger); err != nil {
		return err
	}

	state := store.NewStateStore(conn)
	adapter := store.NewHTTPAdapter(cfg.Platform.BaseURL)

	registry := alert.NewRegistry()
	registerSenders(registry, holder)
	alerts := alert.NewDispatcher(registry, state)

	assigner := assign.NewDispatcher(adapter, state, alerts)
	stats := monitor.NewRecorder(state)
	scanner := monitor.NewScanner(adapter, state, alerts, assigner, stats)
	ticker := monitor.NewTicker(holder, scanner, alerts)

	watcher, err := config.NewWatcher(configPath, holder)
	if err != nil {
		logger.Warnw("Config file watching disabled", "error", err)
		watcher = nil
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	srv := server.New(cfg.Server.Port, holder, stats, ticker, watcher, configPath)
	ticker.SetBroadcaster(srv)
	alerts.SetEventSink(srv)
	assigner.SetEventSink(srv)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()
	ticker.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infow("Shutting down", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Errorw("Admin server exited", "error", err)
		}
	}

	ticker.Stop()
	alerts.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnw("Admin server shutdown incomplete", "error", err)
	}
	return nil
}

// loadConfig reads the file when it exists, falling back to defaults plus
// ROADCALL_* environment overrides for first runs.
func loadConfig(configPath string) (*config.Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		return config.LoadFromFile(configPath)
	}
	logger.Infow("No config file found, using defaults", "path", configPath)
	return config.Load()
}

// registerSenders wires the built-in channel senders. Email, SMS, push, and
// in-app delivery belong to the platform's notification service; here they
// log until that integration lands. The webhook sender is registered
// unconditionally and reads its URL from the active snapshot per send, so
// enabling the channel or changing the URL takes effect at the next tick.
func registerSenders(registry *alert.Registry, holder *config.Holder) {
	logSender := func(channel string) alert.Sender {
		return alert.SenderFunc(func(ctx context.Context, a alert.Alert) error {
			logger.Infow("Alert",
				"channel", channel, "job_id", a.JobID,
				"stage", a.StageName, "message", a.Message)
			return nil
		})
	}
	registry.Register(alert.ChannelEmail, logSender(alert.ChannelEmail))
	registry.Register(alert.ChannelSMS, logSender(alert.ChannelSMS))
	registry.Register(alert.ChannelPush, logSender(alert.ChannelPush))
	registry.Register(alert.ChannelInApp, logSender(alert.ChannelInApp))

	sendTimeout := time.Duration(holder.Snapshot().Config.Alerting.SendTimeoutSeconds) * time.Second
	webhookURL := func() string { return holder.Snapshot().Config.Alerting.WebhookURL }
	registry.Register(alert.ChannelWebhook, alert.NewWebhookSender(webhookURL, sendTimeout))
}
