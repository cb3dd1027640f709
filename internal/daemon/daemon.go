// Package daemon assembles and runs the carewatchd background process: the
// SQLite stores, the alert lifecycle manager, the inactivity monitor, the
// retention pruner, webhook delivery, and the HTTP API.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/carewatch/carewatch/internal/config"
	"github.com/carewatch/carewatch/internal/lifecycle"
	"github.com/carewatch/carewatch/internal/logger"
	"github.com/carewatch/carewatch/internal/monitor"
	"github.com/carewatch/carewatch/internal/notify"
	"github.com/carewatch/carewatch/internal/server"
	"github.com/carewatch/carewatch/internal/storage/sqlite"
)

// shutdownTimeout bounds how long graceful HTTP shutdown may take.
const shutdownTimeout = 10 * time.Second

// Daemon is the assembled carewatchd process.
type Daemon struct {
	cfg     *config.Config
	db      *sqlite.DB
	manager *lifecycle.Manager
	monitor *monitor.Monitor
	server  *server.Server
	webhook *notify.WebhookDelivery
	pruner  *Pruner

	stopOnce sync.Once
	serveErr chan error
}

// New builds the daemon from configuration. Nothing is started yet.
func New(cfg *config.Config) (*Daemon, error) {
	db, err := sqlite.Open(cfg.Storage.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	alertStore := sqlite.NewAlertStore(db)
	profileStore := sqlite.NewProfileStore(db)

	var (
		dispatcher notify.Dispatcher
		webhook    *notify.WebhookDelivery
	)
	if cfg.Webhook.URL != "" {
		webhook = notify.NewWebhookDelivery(notify.WebhookConfig{
			URL:            cfg.Webhook.URL,
			MaxRetries:     cfg.Webhook.MaxRetries,
			InitialBackoff: cfg.Webhook.InitialBackoff,
			MaxBackoff:     cfg.Webhook.MaxBackoff,
			Timeout:        cfg.Webhook.Timeout,
		})
		dispatcher = webhook
	} else {
		dispatcher = notify.LogDispatcher{}
	}

	manager := lifecycle.NewManager(alertStore, profileStore, notify.LogNotifier{}, dispatcher, lifecycle.DefaultConfig())

	mon := monitor.New(monitor.Config{
		Enabled:       cfg.Monitor.Enabled,
		CheckInterval: cfg.Monitor.CheckInterval,
		MaxInactivity: cfg.Monitor.MaxInactivity,
	}, manager)

	srv := server.New(cfg.Server.ListenAddr, manager, alertStore, profileStore, mon)

	return &Daemon{
		cfg:      cfg,
		db:       db,
		manager:  manager,
		monitor:  mon,
		server:   srv,
		webhook:  webhook,
		pruner:   NewPruner(alertStore, cfg.Storage.AlertRetention),
		serveErr: make(chan error, 1),
	}, nil
}

// Start claims the pidfile and brings up all daemon components.
func (d *Daemon) Start() error {
	if err := WritePIDFile(d.cfg.Storage.PIDPath()); err != nil {
		return err
	}

	if d.webhook != nil {
		d.webhook.Start()
	}
	d.pruner.Start()

	if d.cfg.Monitor.Enabled {
		if err := d.monitor.Start(); err != nil {
			logger.Warn("inactivity monitor did not start", "error", err)
		}
	}

	go func() {
		d.serveErr <- d.server.ListenAndServe()
	}()

	logger.Info("carewatchd started",
		"addr", d.cfg.Server.ListenAddr,
		"db", d.db.Path(),
		"monitor", d.cfg.Monitor.Enabled)
	return nil
}

// Stop shuts the daemon down in reverse start order. Safe to call more
// than once.
func (d *Daemon) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		logger.Info("carewatchd stopping")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := d.server.Shutdown(ctx); shutdownErr != nil {
			logger.Warn("http shutdown", "error", shutdownErr)
		}

		d.monitor.Stop()
		d.pruner.Stop()
		d.manager.Close()
		if d.webhook != nil {
			d.webhook.Stop()
		}

		if cpErr := d.db.Checkpoint(); cpErr != nil {
			logger.Warn("wal checkpoint", "error", cpErr)
		}
		err = d.db.Close()

		if rmErr := RemovePIDFile(d.cfg.Storage.PIDPath()); rmErr != nil {
			logger.Warn("pidfile removal", "error", rmErr)
		}
	})
	return err
}

// Run starts the daemon and blocks until SIGINT or SIGTERM arrives, or the
// HTTP server fails, then stops everything.
func (d *Daemon) Run() error {
	if err := d.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case err := <-d.serveErr:
		if err != nil {
			stopErr := d.Stop()
			if stopErr != nil {
				logger.Error("shutdown after serve failure", "error", stopErr)
			}
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	return d.Stop()
}
