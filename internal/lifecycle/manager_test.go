package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carewatch/carewatch/internal/alerts"
	"github.com/carewatch/carewatch/internal/notify"
	"github.com/carewatch/carewatch/internal/profile"
)

// fakeStore is an in-memory Store implementation.
type fakeStore struct {
	mu     sync.Mutex
	alerts map[string]*alerts.Alert
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{alerts: make(map[string]*alerts.Alert)}
}

func (s *fakeStore) Create(ctx context.Context, draft alerts.Draft, contacts []string) (*alerts.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	if contacts == nil {
		contacts = []string{}
	}
	a := &alerts.Alert{
		ID:               string(rune('a' + s.nextID - 1)),
		Timestamp:        time.Now().UTC(),
		Type:             draft.Type,
		Status:           alerts.StatusActive,
		ContactsNotified: append([]string(nil), contacts...),
		Description:      draft.Description,
		Location:         draft.Location,
	}
	s.alerts[a.ID] = a
	copied := *a
	return &copied, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id string, status alerts.Status, resolvedAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return false, &alerts.NotFoundError{ID: id}
	}
	if a.Status == status {
		return false, nil
	}
	if !a.Status.CanTransitionTo(status) {
		return false, &alerts.InvalidTransitionError{ID: id, From: a.Status, To: status}
	}
	a.Status = status
	if status == alerts.StatusResolved {
		a.ResolvedAt = resolvedAt
	}
	return true, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*alerts.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, &alerts.NotFoundError{ID: id}
	}
	copied := *a
	return &copied, nil
}

// fakeProvider serves a mutable contact list.
type fakeProvider struct {
	mu       sync.Mutex
	contacts []profile.EmergencyContact
	address  string
}

func (p *fakeProvider) Contacts(ctx context.Context) ([]profile.EmergencyContact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]profile.EmergencyContact(nil), p.contacts...), nil
}

func (p *fakeProvider) Address(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address, nil
}

// recordingNotifier captures notifications in order.
type recordingNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (n *recordingNotifier) Notify(note notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.notes))
	for i, note := range n.notes {
		out[i] = note.Title
	}
	return out
}

// recordingDispatcher captures dispatched events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []string
}

func (d *recordingDispatcher) Dispatch(event string, alert *alerts.Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) all() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func newTestManager(provider *fakeProvider) (*Manager, *fakeStore, *recordingNotifier, *recordingDispatcher) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	dispatcher := &recordingDispatcher{}
	mgr := NewManager(store, provider, notifier, dispatcher, Config{
		ServicesAckDelay: 20 * time.Millisecond,
		ContactsAckDelay: 20 * time.Millisecond,
	})
	return mgr, store, notifier, dispatcher
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestTrigger_DefaultsToProfileContacts(t *testing.T) {
	provider := &fakeProvider{contacts: []profile.EmergencyContact{
		{Name: "John Johnson", Relationship: "Son", Phone: "555-0101"},
		{Name: "Jane Doe", Relationship: "Neighbor", Phone: "555-0102"},
	}}
	mgr, _, _, _ := newTestManager(provider)
	defer mgr.Close()

	alert, err := mgr.Trigger(context.Background(), alerts.Draft{Type: alerts.TypeEmergency})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	want := []string{"John Johnson", "Jane Doe"}
	if len(alert.ContactsNotified) != len(want) {
		t.Fatalf("expected %v, got %v", want, alert.ContactsNotified)
	}
	for i := range want {
		if alert.ContactsNotified[i] != want[i] {
			t.Errorf("contact %d: expected %s, got %s", i, want[i], alert.ContactsNotified[i])
		}
	}
}

func TestTrigger_SnapshotUnaffectedByLaterEdits(t *testing.T) {
	provider := &fakeProvider{contacts: []profile.EmergencyContact{
		{Name: "John Johnson", Relationship: "Son", Phone: "555-0101"},
	}}
	mgr, store, _, _ := newTestManager(provider)
	defer mgr.Close()

	alert, err := mgr.Trigger(context.Background(), alerts.Draft{Type: alerts.TypeMedical})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	// Remove the contact from the profile afterwards
	provider.mu.Lock()
	provider.contacts = nil
	provider.mu.Unlock()

	got, err := store.Get(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.ContactsNotified) != 1 || got.ContactsNotified[0] != "John Johnson" {
		t.Errorf("snapshot changed retroactively: %v", got.ContactsNotified)
	}
}

func TestTrigger_ExplicitContactsOverrideProfile(t *testing.T) {
	provider := &fakeProvider{contacts: []profile.EmergencyContact{
		{Name: "John Johnson", Relationship: "Son", Phone: "555-0101"},
	}}
	mgr, _, _, _ := newTestManager(provider)
	defer mgr.Close()

	alert, err := mgr.Trigger(context.Background(), alerts.Draft{
		Type:        alerts.TypeFall,
		Description: "detected fall",
		Contacts:    []string{"Jane Doe"},
	})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if len(alert.ContactsNotified) != 1 || alert.ContactsNotified[0] != "Jane Doe" {
		t.Errorf("explicit contacts ignored: %v", alert.ContactsNotified)
	}
	if alert.Status != alerts.StatusActive {
		t.Errorf("expected active, got %s", alert.Status)
	}
}

func TestTrigger_LocationDefaultsToProfileAddress(t *testing.T) {
	provider := &fakeProvider{address: "123 Maple Street"}
	mgr, _, _, _ := newTestManager(provider)
	defer mgr.Close()

	alert, err := mgr.Trigger(context.Background(), alerts.Draft{Type: alerts.TypeEmergency, Contacts: []string{}})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if alert.Location != "123 Maple Street" {
		t.Errorf("expected profile address, got %q", alert.Location)
	}
}

func TestTrigger_RejectsUnknownType(t *testing.T) {
	mgr, _, _, _ := newTestManager(&fakeProvider{})
	defer mgr.Close()

	if _, err := mgr.Trigger(context.Background(), alerts.Draft{Type: "flood"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAcknowledgmentSequence(t *testing.T) {
	provider := &fakeProvider{contacts: []profile.EmergencyContact{
		{Name: "Jane Doe", Relationship: "Daughter", Phone: "555-0101"},
	}}
	mgr, _, notifier, _ := newTestManager(provider)
	defer mgr.Close()

	if _, err := mgr.Trigger(context.Background(), alerts.Draft{Type: alerts.TypeEmergency}); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return len(notifier.titles()) == 3
	})

	titles := notifier.titles()
	want := []string{"Emergency Alert Triggered", "Emergency Services Notified", "Contacts Notified"}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("ack %d: expected %q, got %q", i, want[i], titles[i])
		}
	}
}

func TestAcknowledgments_ContactsAckSuppressedWhenEmpty(t *testing.T) {
	mgr, _, notifier, _ := newTestManager(&fakeProvider{})
	defer mgr.Close()

	if _, err := mgr.Trigger(context.Background(), alerts.Draft{Type: alerts.TypeEmergency, Contacts: []string{}}); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	// Let both delays elapse
	time.Sleep(120 * time.Millisecond)

	titles := notifier.titles()
	if len(titles) != 2 {
		t.Fatalf("expected 2 acknowledgments, got %v", titles)
	}
	for _, title := range titles {
		if title == "Contacts Notified" {
			t.Error("contacts acknowledgment must be suppressed for an empty snapshot")
		}
	}
}

func TestResolve(t *testing.T) {
	mgr, store, _, dispatcher := newTestManager(&fakeProvider{})
	defer mgr.Close()

	alert, _ := mgr.Trigger(context.Background(), alerts.Draft{Type: alerts.TypeFall, Contacts: []string{}})

	if err := mgr.Resolve(context.Background(), alert.ID); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, _ := store.Get(context.Background(), alert.ID)
	if got.Status != alerts.StatusResolved {
		t.Errorf("expected resolved, got %s", got.Status)
	}
	if got.ResolvedAt == nil {
		t.Fatal("resolvedAt not set")
	}
	if got.ResolvedAt.Before(got.Timestamp) {
		t.Error("resolvedAt precedes creation")
	}

	// Repeat resolve is a no-op
	first := *got.ResolvedAt
	if err := mgr.Resolve(context.Background(), alert.ID); err != nil {
		t.Fatalf("repeat resolve should be a no-op: %v", err)
	}
	got, _ = store.Get(context.Background(), alert.ID)
	if !got.ResolvedAt.Equal(first) {
		t.Error("resolvedAt moved on repeat resolve")
	}

	events := dispatcher.all()
	if len(events) < 2 || events[0] != notify.EventAlertTriggered || events[1] != notify.EventAlertResolved {
		t.Errorf("unexpected event sequence: %v", events)
	}
}

func TestCancel(t *testing.T) {
	mgr, store, _, dispatcher := newTestManager(&fakeProvider{})
	defer mgr.Close()

	alert, _ := mgr.Trigger(context.Background(), alerts.Draft{Type: alerts.TypeOther, Contacts: []string{}})

	if err := mgr.Cancel(context.Background(), alert.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	got, _ := store.Get(context.Background(), alert.ID)
	if got.Status != alerts.StatusCanceled {
		t.Errorf("expected canceled, got %s", got.Status)
	}
	if got.ResolvedAt != nil {
		t.Error("canceled alert must not have resolvedAt")
	}

	// canceled to resolved is rejected
	if err := mgr.Resolve(context.Background(), alert.ID); err == nil {
		t.Error("expected transition error resolving a canceled alert")
	}

	events := dispatcher.all()
	if events[len(events)-1] != notify.EventAlertCanceled {
		t.Errorf("expected cancel event last, got %v", events)
	}
}

func TestResolve_RepeatHasNoSideEffects(t *testing.T) {
	mgr, _, notifier, dispatcher := newTestManager(&fakeProvider{})
	defer mgr.Close()

	alert, _ := mgr.Trigger(context.Background(), alerts.Draft{Type: alerts.TypeMedical, Contacts: []string{}})

	for i := 0; i < 3; i++ {
		if err := mgr.Resolve(context.Background(), alert.ID); err != nil {
			t.Fatalf("resolve %d failed: %v", i, err)
		}
	}

	resolvedEvents := 0
	for _, event := range dispatcher.all() {
		if event == notify.EventAlertResolved {
			resolvedEvents++
		}
	}
	if resolvedEvents != 1 {
		t.Errorf("resolved dispatched %d times, want 1", resolvedEvents)
	}

	resolvedNotices := 0
	for _, title := range notifier.titles() {
		if title == "Alert Resolved" {
			resolvedNotices++
		}
	}
	if resolvedNotices != 1 {
		t.Errorf("resolved notice shown %d times, want 1", resolvedNotices)
	}
}

func TestResolve_CancelsPendingAcknowledgments(t *testing.T) {
	provider := &fakeProvider{contacts: []profile.EmergencyContact{
		{Name: "Jane Doe", Relationship: "Daughter", Phone: "555-0101"},
	}}
	store := newFakeStore()
	notifier := &recordingNotifier{}
	mgr := NewManager(store, provider, notifier, &recordingDispatcher{}, Config{
		ServicesAckDelay: 200 * time.Millisecond,
		ContactsAckDelay: 200 * time.Millisecond,
	})
	defer mgr.Close()

	alert, _ := mgr.Trigger(context.Background(), alerts.Draft{Type: alerts.TypeEmergency})
	if mgr.acks.pending(alert.ID) != 2 {
		t.Fatalf("expected 2 pending acks, got %d", mgr.acks.pending(alert.ID))
	}

	if err := mgr.Resolve(context.Background(), alert.ID); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if mgr.acks.pending(alert.ID) != 0 {
		t.Error("pending acknowledgments not cancelled on resolve")
	}
}
