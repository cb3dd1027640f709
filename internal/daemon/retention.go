package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/carewatch/carewatch/internal/logger"
	"github.com/carewatch/carewatch/internal/storage/sqlite"
)

// pruneInterval is how often terminal alerts are checked against retention.
const pruneInterval = 1 * time.Hour

// Pruner removes resolved and canceled alerts older than the configured
// retention period. Active alerts are never pruned. A zero retention keeps
// alert history forever.
type Pruner struct {
	alerts    *sqlite.AlertStore
	retention time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPruner creates a pruner over the alert store.
func NewPruner(alerts *sqlite.AlertStore, retention time.Duration) *Pruner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pruner{
		alerts:    alerts,
		retention: retention,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the hourly prune cycle, running an initial prune immediately.
// No-op when retention is zero.
func (p *Pruner) Start() {
	if p.retention <= 0 {
		logger.Debug("alert retention disabled, keeping history forever")
		return
	}

	logger.Info("starting alert retention pruner", "retention", p.retention.String())
	p.prune()

	p.wg.Add(1)
	go p.run()
}

// Stop gracefully shuts down the pruner.
func (p *Pruner) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pruner) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.prune()
		}
	}
}

func (p *Pruner) prune() {
	pruned, err := p.alerts.Prune(p.ctx, p.retention)
	if err != nil {
		logger.Error("alert retention prune failed", "error", err)
		return
	}
	if pruned > 0 {
		logger.Info("pruned old alerts", "count", pruned, "retention", p.retention.String())
	}
}

// PruneNow runs an immediate prune cycle. Useful for testing.
func (p *Pruner) PruneNow() {
	p.prune()
}
