// Package monitor watches user-activity pings and raises an automatic alert
// when nothing is heard for the configured inactivity window. It runs inside
// the daemon, independent of any foreground page lifetime.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carewatch/carewatch/internal/alerts"
	"github.com/carewatch/carewatch/internal/logger"
)

// Default monitoring cadence.
const (
	DefaultCheckInterval = 30 * time.Minute
	DefaultMaxInactivity = 24 * time.Hour
)

// Presets returns the inactivity windows the presentation surface offers.
func Presets() []time.Duration {
	return []time.Duration{3 * time.Hour, 6 * time.Hour, 12 * time.Hour, 24 * time.Hour}
}

// IsPreset reports whether d is one of the supported inactivity windows.
// Configuration boundaries only accept preset windows; the monitor itself
// runs with any positive duration so the check loop stays testable.
func IsPreset(d time.Duration) bool {
	for _, p := range Presets() {
		if d == p {
			return true
		}
	}
	return false
}

// ErrUnavailable indicates the hosting environment cannot run the background
// check loop. Non-fatal; the rest of the application keeps working.
var ErrUnavailable = errors.New("background monitoring unavailable")

// ErrDisabled indicates monitoring is switched off in configuration.
var ErrDisabled = errors.New("background monitoring disabled")

// Config tunes the inactivity monitor.
type Config struct {
	// Enabled is the master switch.
	Enabled bool `json:"enabled"`

	// CheckInterval is how often the inactivity window is evaluated.
	CheckInterval time.Duration `json:"checkInterval"`

	// MaxInactivity is how long without activity before an alert fires.
	MaxInactivity time.Duration `json:"maxInactivityPeriod"`
}

// Validate checks the configured durations.
func (c *Config) Validate() error {
	if c.CheckInterval <= 0 {
		return fmt.Errorf("checkInterval must be positive, got %v", c.CheckInterval)
	}
	if c.MaxInactivity <= 0 {
		return fmt.Errorf("maxInactivityPeriod must be positive, got %v", c.MaxInactivity)
	}
	return nil
}

// DefaultConfig returns the standard monitoring configuration, disabled.
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		CheckInterval: DefaultCheckInterval,
		MaxInactivity: DefaultMaxInactivity,
	}
}

// AlertTrigger raises alerts on behalf of the monitor.
type AlertTrigger interface {
	Trigger(ctx context.Context, draft alerts.Draft) (*alerts.Alert, error)
}

// ShouldFire is the inactivity policy: true when the gap between the last
// observed activity and now exceeds the configured window.
func ShouldFire(lastActivity, now time.Time, maxInactivity time.Duration) bool {
	return now.Sub(lastActivity) > maxInactivity
}

// Status is a snapshot of the monitor's state for the API.
type Status struct {
	Running       bool          `json:"running"`
	Config        Config        `json:"config"`
	LastActivity  time.Time     `json:"lastActivity"`
	SinceActivity time.Duration `json:"sinceActivity"`
	AlertsRaised  int           `json:"alertsRaised"`
}

// Monitor tracks the last activity timestamp and periodically checks it
// against the inactivity window. When the window is exceeded it raises one
// automatic alert and resets the activity clock to the firing instant, so a
// further full window of silence must elapse before the next alert.
type Monitor struct {
	mu           sync.Mutex
	config       Config
	lastActivity time.Time
	running      bool
	alertsRaised int

	trigger AlertTrigger
	now     func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a monitor. The trigger is the background runner's handle into
// the alert lifecycle; without one the monitor cannot start.
func New(cfg Config, trigger AlertTrigger) *Monitor {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.MaxInactivity == 0 {
		cfg.MaxInactivity = DefaultMaxInactivity
	}

	return &Monitor{
		config:  cfg,
		trigger: trigger,
		now:     time.Now,
	}
}

// Start launches the background check loop. Returns ErrDisabled when the
// config switch is off and ErrUnavailable when no alert trigger is wired.
// Starting an already-running monitor is a no-op.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.config.Enabled {
		return ErrDisabled
	}
	if m.trigger == nil {
		return ErrUnavailable
	}
	if m.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.lastActivity = m.now()

	m.wg.Add(1)
	go m.checkLoop(ctx, m.config.CheckInterval)

	logger.Info("inactivity monitoring started",
		"check_interval", m.config.CheckInterval.String(),
		"max_inactivity", m.config.MaxInactivity.String())
	return nil
}

// Stop halts future checks. An alert creation already dispatched is left to
// complete on its own.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	logger.Info("inactivity monitoring stopped")
}

// RecordActivity registers an activity ping, pushing the inactivity deadline
// forward. Safe to call whether or not the monitor is running.
func (m *Monitor) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.now()
}

// Configure replaces the monitor settings. A running monitor is restarted so
// the new cadence takes effect; a newly-disabled monitor is stopped.
func (m *Monitor) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	wasRunning := m.running
	m.config = cfg
	m.mu.Unlock()

	if wasRunning {
		m.Stop()
		if cfg.Enabled {
			return m.Start()
		}
		return nil
	}
	if cfg.Enabled {
		return m.Start()
	}
	return nil
}

// Status reports the monitor's current state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		Running:      m.running,
		Config:       m.config,
		LastActivity: m.lastActivity,
		AlertsRaised: m.alertsRaised,
	}
	if !m.lastActivity.IsZero() {
		s.SinceActivity = m.now().Sub(m.lastActivity)
	}
	return s
}

// checkLoop evaluates the inactivity window every interval until stopped.
func (m *Monitor) checkLoop(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// check fires at most one automatic alert per exceeded window.
func (m *Monitor) check(ctx context.Context) {
	m.mu.Lock()
	now := m.now()
	fire := ShouldFire(m.lastActivity, now, m.config.MaxInactivity)
	window := m.config.MaxInactivity
	if fire {
		// Reset the clock to the firing instant so the next alert needs a
		// full further window of silence.
		m.lastActivity = now
		m.alertsRaised++
	}
	trigger := m.trigger
	m.mu.Unlock()

	if !fire {
		return
	}

	logger.Warn("inactivity window exceeded, raising automatic alert",
		"max_inactivity", window.String())

	alert, err := trigger.Trigger(ctx, alerts.Draft{
		Type:        alerts.TypeFall,
		Description: fmt.Sprintf("No activity detected for over %s. Automatic emergency alert.", window),
	})
	if err != nil {
		logger.Error("automatic alert creation failed", "error", err.Error())
		return
	}
	logger.Info("automatic alert created", "alert_id", alert.ID)
}
