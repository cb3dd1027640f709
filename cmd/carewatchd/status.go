package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/carewatch/carewatch/internal/config"
	"github.com/carewatch/carewatch/internal/daemon"
)

// printStatus renders the human-readable status output.
func printStatus(status *daemon.ServiceStatus, cfg *config.Config) {
	fmt.Printf("carewatchd: %s\n", status.State)
	if status.PID > 0 {
		fmt.Printf("  PID:      %d\n", status.PID)
	}

	if cfg == nil {
		return
	}

	fmt.Printf("  Data dir: %s\n", cfg.Storage.DataDir)
	if info, err := os.Stat(cfg.Storage.DBPath()); err == nil {
		fmt.Printf("  Database: %s (%s, modified %s)\n",
			cfg.Storage.DBPath(),
			humanize.Bytes(uint64(info.Size())),
			humanize.Time(info.ModTime()))
	}
	if cfg.Monitor.Enabled {
		fmt.Printf("  Monitor:  enabled (alert after %s without activity)\n", cfg.Monitor.MaxInactivity)
	} else {
		fmt.Printf("  Monitor:  disabled\n")
	}
	if cfg.Webhook.URL != "" {
		fmt.Printf("  Webhook:  %s\n", cfg.Webhook.URL)
	}
}
