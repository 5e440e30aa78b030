// Package app wires configuration, storage, collectors, alerting and the
// monitoring loop into one application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/JamesFincher/vllm-server-config/internal/alerts"
	"github.com/JamesFincher/vllm-server-config/internal/collector"
	"github.com/JamesFincher/vllm-server-config/internal/config"
	"github.com/JamesFincher/vllm-server-config/internal/evaluator"
	"github.com/JamesFincher/vllm-server-config/internal/monitor"
	"github.com/JamesFincher/vllm-server-config/internal/recorder"
	"github.com/JamesFincher/vllm-server-config/internal/server"
	"github.com/JamesFincher/vllm-server-config/internal/sqlite"
	"github.com/JamesFincher/vllm-server-config/pkg/logger"
)

// App holds the application's dependencies and lifecycle.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	SQLite  *sqlite.DB
	Monitor *monitor.Manager

	gpuProbe *collector.GPUProbe
	server   *server.Server
	Version  string
}

// Options contains what is needed to create a new App instance.
type Options struct {
	ConfigPath string
	Version    string
}

// New loads and validates configuration and builds the logger.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Options{
		Level: cfg.Logging.Level,
		Dir:   filepath.Join(cfg.Monitoring.Root, "logs"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return &App{
		Config:  cfg,
		Logger:  log,
		Version: opts.Version,
	}, nil
}

// Initialize sets up the audit store, probes, alert pipeline, recorder and
// monitor manager.
func (a *App) Initialize(ctx context.Context) error {
	db, err := sqlite.New(sqlite.Options{
		Config: a.Config.SQLite,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sqlite: %w", err)
	}
	a.SQLite = db

	a.gpuProbe = collector.NewGPUProbe(a.Logger)

	var channels []alerts.Channel
	if a.Config.Alerts.Webhook.Enabled {
		channels = append(channels, alerts.Channel{
			Name: "webhook",
			Sender: alerts.NewWebhookSender(alerts.WebhookSenderOptions{
				URL:           a.Config.Alerts.Webhook.URL,
				Timeout:       a.Config.Alerts.Webhook.Timeout,
				SkipTLSVerify: a.Config.Alerts.Webhook.SkipTLSVerify,
				Logger:        a.Logger,
			}),
		})
	}
	if a.Config.Alerts.Mail.Enabled {
		channels = append(channels, alerts.Channel{
			Name: "mail",
			Sender: alerts.NewMailSender(alerts.MailSenderOptions{
				Recipients: a.Config.Alerts.Mail.Recipients,
				Command:    a.Config.Alerts.Mail.Command,
				Timeout:    a.Config.Alerts.Mail.Timeout,
				Logger:     a.Logger,
			}),
		})
	}

	dispatcher := alerts.NewDispatcher(alerts.DispatcherOptions{
		Window:   a.Config.Alerts.SuppressionWindow,
		Channels: channels,
		History:  a.SQLite,
		Logger:   a.Logger,
	})

	a.Monitor = monitor.NewManager(monitor.Options{
		Interval:    a.Config.Monitoring.Interval,
		HistorySize: a.Config.Monitoring.HistorySize,
		Rules:       evaluator.BuildRules(a.Config.Thresholds),
		API:         collector.NewAPIProbe(a.Config.API, a.Logger),
		GPU:         a.gpuProbe,
		Resources:   collector.NewResourceProbe("/", a.Logger),
		Processes:   collector.NewProcessProbe(a.Config.Monitoring.ProcessName, a.Logger),
		Dispatcher:  dispatcher,
		Recorder:    recorder.New(filepath.Join(a.Config.Monitoring.Root, "data"), a.Logger),
		Logger:      a.Logger,
	})

	if a.Config.Server.Enabled {
		a.server = server.New(server.Options{
			Listen: a.Config.Server.Listen,
			Source: a.Monitor,
			Logger: a.Logger,
		})
	}

	if err := a.SQLite.PruneAlertHistory(ctx, a.Config.Alerts.HistoryLimit); err != nil {
		a.Logger.Warn("failed to prune alert history", "error", err)
	}
	return nil
}

// Start launches the monitoring loop and, when enabled, the status server.
// It returns once the loop is running.
func (a *App) Start(ctx context.Context) error {
	if a.Monitor == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Monitor.Start(ctx)
	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				a.Logger.Error("status server exited", "error", err)
			}
		}()
	}
	return nil
}

// Shutdown drains the in-flight cycle and stops all components with
// per-component timeouts.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if a.server != nil {
		serverCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := a.server.Shutdown(serverCtx); err != nil {
			a.Logger.Error("error shutting down status server", "error", err)
		}
		cancel()
	}

	if a.Monitor != nil {
		a.Monitor.Stop()
	}

	if a.gpuProbe != nil {
		a.gpuProbe.Close()
	}

	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			a.Logger.Error("error closing sqlite", "error", err)
		}
	}

	a.Logger.Info("shutdown complete")
	return nil
}
