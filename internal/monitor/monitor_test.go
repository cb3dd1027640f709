package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carewatch/carewatch/internal/alerts"
)

// countingTrigger records automatic alert creations.
type countingTrigger struct {
	mu     sync.Mutex
	drafts []alerts.Draft
}

func (c *countingTrigger) Trigger(ctx context.Context, draft alerts.Draft) (*alerts.Alert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drafts = append(c.drafts, draft)
	return &alerts.Alert{ID: "auto", Type: draft.Type, Status: alerts.StatusActive}, nil
}

func (c *countingTrigger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.drafts)
}

func TestShouldFire(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		window  time.Duration
		want    bool
	}{
		{"just active", 0, time.Hour, false},
		{"within window", 30 * time.Minute, time.Hour, false},
		{"at boundary", time.Hour, time.Hour, false},
		{"past window", time.Hour + time.Second, time.Hour, true},
		{"long gone", 48 * time.Hour, 24 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldFire(base, base.Add(tt.elapsed), tt.window)
			if got != tt.want {
				t.Errorf("ShouldFire(elapsed=%v, window=%v) = %v, want %v", tt.elapsed, tt.window, got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Enabled: true, CheckInterval: 30 * time.Minute, MaxInactivity: 24 * time.Hour}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := Config{Enabled: true, CheckInterval: 0, MaxInactivity: time.Hour}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero checkInterval")
	}

	bad = Config{Enabled: true, CheckInterval: time.Minute, MaxInactivity: -time.Hour}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative maxInactivityPeriod")
	}
}

func TestStart_Disabled(t *testing.T) {
	m := New(Config{Enabled: false}, &countingTrigger{})
	if err := m.Start(); err != ErrDisabled {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestStart_NoTrigger(t *testing.T) {
	m := New(Config{Enabled: true}, nil)
	if err := m.Start(); err != ErrUnavailable {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

// fakeClock steps time manually for deterministic checks.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newCheckedMonitor(trigger AlertTrigger, window time.Duration) (*Monitor, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := New(Config{Enabled: true, CheckInterval: time.Minute, MaxInactivity: window}, trigger)
	m.now = clock.now
	m.lastActivity = clock.now()
	return m, clock
}

func TestCheck_FiresOncePerWindow(t *testing.T) {
	trigger := &countingTrigger{}
	m, clock := newCheckedMonitor(trigger, time.Hour)
	ctx := context.Background()

	// Within the window: nothing fires
	clock.advance(30 * time.Minute)
	m.check(ctx)
	if trigger.count() != 0 {
		t.Fatalf("fired within window: %d", trigger.count())
	}

	// Window exceeded: exactly one alert
	clock.advance(31 * time.Minute)
	m.check(ctx)
	if trigger.count() != 1 {
		t.Fatalf("expected 1 alert, got %d", trigger.count())
	}

	// Immediately after firing the clock was reset; no flood
	m.check(ctx)
	m.check(ctx)
	if trigger.count() != 1 {
		t.Fatalf("monitor re-fired without a new window: %d", trigger.count())
	}

	// A further full window of silence fires at most one more
	clock.advance(time.Hour + time.Minute)
	m.check(ctx)
	if trigger.count() != 2 {
		t.Fatalf("expected 2 alerts after second window, got %d", trigger.count())
	}
}

func TestCheck_ActivityResetsWindow(t *testing.T) {
	trigger := &countingTrigger{}
	m, clock := newCheckedMonitor(trigger, time.Hour)
	ctx := context.Background()

	clock.advance(50 * time.Minute)
	m.RecordActivity()

	clock.advance(30 * time.Minute)
	m.check(ctx)
	if trigger.count() != 0 {
		t.Fatalf("fired despite recent activity: %d", trigger.count())
	}
}

func TestCheck_AutoAlertShape(t *testing.T) {
	trigger := &countingTrigger{}
	m, clock := newCheckedMonitor(trigger, time.Hour)

	clock.advance(2 * time.Hour)
	m.check(context.Background())

	if len(trigger.drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(trigger.drafts))
	}
	draft := trigger.drafts[0]
	if draft.Type != alerts.TypeFall {
		t.Errorf("expected fall type, got %s", draft.Type)
	}
	if draft.Description == "" {
		t.Error("expected a generic description")
	}
	if draft.Contacts != nil {
		t.Error("auto alert must default to the full profile contact list")
	}
}

func TestStartStopLoop(t *testing.T) {
	trigger := &countingTrigger{}
	m := New(Config{
		Enabled:       true,
		CheckInterval: 10 * time.Millisecond,
		MaxInactivity: 25 * time.Millisecond,
	}, trigger)

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Errorf("second Start should be a no-op, got %v", err)
	}

	// Let at least one window elapse
	deadline := time.Now().Add(time.Second)
	for trigger.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if trigger.count() == 0 {
		t.Fatal("loop never fired")
	}

	m.Stop()
	after := trigger.count()
	time.Sleep(60 * time.Millisecond)
	if trigger.count() != after {
		t.Error("monitor fired after Stop")
	}

	st := m.Status()
	if st.Running {
		t.Error("status still running after Stop")
	}
	if st.AlertsRaised == 0 {
		t.Error("status lost the raised-alert count")
	}
}

func TestConfigure(t *testing.T) {
	trigger := &countingTrigger{}
	m := New(DefaultConfig(), trigger)

	if err := m.Configure(Config{Enabled: true, CheckInterval: 0, MaxInactivity: time.Hour}); err == nil {
		t.Error("expected validation error")
	}

	if err := m.Configure(Config{Enabled: true, CheckInterval: 10 * time.Millisecond, MaxInactivity: time.Hour}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if !m.Status().Running {
		t.Error("enabling via Configure should start the monitor")
	}

	if err := m.Configure(Config{Enabled: false, CheckInterval: 10 * time.Millisecond, MaxInactivity: time.Hour}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if m.Status().Running {
		t.Error("disabling via Configure should stop the monitor")
	}
}

func TestPresets(t *testing.T) {
	want := []time.Duration{3 * time.Hour, 6 * time.Hour, 12 * time.Hour, 24 * time.Hour}
	got := Presets()
	if len(got) != len(want) {
		t.Fatalf("expected %d presets, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("preset %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	for _, p := range want {
		if !IsPreset(p) {
			t.Errorf("IsPreset(%v) = false, want true", p)
		}
	}
	for _, d := range []time.Duration{0, time.Hour, 5 * time.Hour, 48 * time.Hour} {
		if IsPreset(d) {
			t.Errorf("IsPreset(%v) = true, want false", d)
		}
	}
}
