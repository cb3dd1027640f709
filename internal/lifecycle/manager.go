// Package lifecycle is the single authoritative entry point for creating and
// closing emergency alerts. It wraps the alert store with domain policy:
// contact-list snapshotting, terminal transitions, notification dispatch, and
// the sequenced user acknowledgments.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/carewatch/carewatch/internal/alerts"
	"github.com/carewatch/carewatch/internal/logger"
	"github.com/carewatch/carewatch/internal/notify"
	"github.com/carewatch/carewatch/internal/profile"
)

// Store is the persistence surface the manager requires.
type Store interface {
	Create(ctx context.Context, draft alerts.Draft, contacts []string) (*alerts.Alert, error)
	UpdateStatus(ctx context.Context, id string, status alerts.Status, resolvedAt *time.Time) (changed bool, err error)
	Get(ctx context.Context, id string) (*alerts.Alert, error)
}

// Config tunes the acknowledgment sequence. The delays are UX pacing for the
// presentation surface, not delivery guarantees.
type Config struct {
	// ServicesAckDelay is how long after the trigger the "emergency services
	// notified" acknowledgment fires (default: 2s).
	ServicesAckDelay time.Duration

	// ContactsAckDelay is how long after the services acknowledgment the
	// "contacts notified" acknowledgment fires (default: 3s). Suppressed when
	// the contact snapshot is empty.
	ContactsAckDelay time.Duration
}

// DefaultConfig returns the standard acknowledgment pacing.
func DefaultConfig() Config {
	return Config{
		ServicesAckDelay: 2 * time.Second,
		ContactsAckDelay: 3 * time.Second,
	}
}

// Manager owns alert creation and status transitions.
type Manager struct {
	store      Store
	contacts   profile.Provider
	notifier   notify.Notifier
	dispatcher notify.Dispatcher
	config     Config

	acks *ackScheduler
}

// NewManager creates a lifecycle manager.
func NewManager(store Store, contacts profile.Provider, notifier notify.Notifier, dispatcher notify.Dispatcher, cfg Config) *Manager {
	if cfg.ServicesAckDelay == 0 {
		cfg.ServicesAckDelay = DefaultConfig().ServicesAckDelay
	}
	if cfg.ContactsAckDelay == 0 {
		cfg.ContactsAckDelay = DefaultConfig().ContactsAckDelay
	}

	return &Manager{
		store:      store,
		contacts:   contacts,
		notifier:   notifier,
		dispatcher: dispatcher,
		config:     cfg,
		acks:       newAckScheduler(),
	}
}

// Trigger creates a new alert. When the draft carries no explicit contact
// list, the full current profile contact list is snapshotted. On success the
// trigger event is dispatched and the acknowledgment sequence scheduled.
func (m *Manager) Trigger(ctx context.Context, draft alerts.Draft) (*alerts.Alert, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	snapshot := draft.Contacts
	if snapshot == nil {
		contacts, err := m.contacts.Contacts(ctx)
		if err != nil {
			// The alert matters more than the snapshot; create it with an
			// empty contact list rather than fail.
			logger.Warn("failed to load contacts for alert, proceeding without",
				"error", err.Error())
			snapshot = []string{}
		} else {
			snapshot = make([]string, 0, len(contacts))
			for _, c := range contacts {
				snapshot = append(snapshot, c.Name)
			}
		}
	}

	if draft.Location == "" {
		if addr, err := m.contacts.Address(ctx); err == nil {
			draft.Location = addr
		}
	}

	alert, err := m.store.Create(ctx, draft, snapshot)
	if err != nil {
		return nil, err
	}

	logger.Info("alert triggered",
		"alert_id", alert.ID,
		"type", alert.Type.String(),
		"contacts", len(alert.ContactsNotified))

	m.dispatcher.Dispatch(notify.EventAlertTriggered, alert)
	m.scheduleAcknowledgments(alert)

	return alert, nil
}

// Resolve transitions an alert to resolved, stamping the resolution time.
// Resolving an already-resolved alert is a no-op with no side effects.
func (m *Manager) Resolve(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return m.close(ctx, id, alerts.StatusResolved, &now, notify.Notification{
		Title: "Alert Resolved",
		Body:  "The emergency alert has been marked as resolved.",
	})
}

// Cancel transitions an alert to canceled. User action only. Canceling an
// already-canceled alert is a no-op with no side effects.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	return m.close(ctx, id, alerts.StatusCanceled, nil, notify.Notification{
		Title: "Alert Canceled",
		Body:  "The emergency alert has been canceled.",
	})
}

// close applies a terminal transition. Dispatch and the user notice fire
// only when the store reports an actual state change, so idempotent repeats
// stay silent.
func (m *Manager) close(ctx context.Context, id string, status alerts.Status, resolvedAt *time.Time, notice notify.Notification) error {
	changed, err := m.store.UpdateStatus(ctx, id, status, resolvedAt)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	m.acks.cancel(id)
	logger.Info("alert closed", "alert_id", id, "status", status.String())

	if alert, err := m.store.Get(ctx, id); err == nil {
		m.dispatcher.Dispatch(notify.EventForStatus(status), alert)
	}
	m.notifier.Notify(notice)
	return nil
}

// scheduleAcknowledgments emits the three sequenced user acknowledgments:
// the immediate trigger notice, the delayed services notice, and the further
// delayed contacts notice when the snapshot is non-empty. Pending
// acknowledgments are cancelled when the alert leaves the active state.
func (m *Manager) scheduleAcknowledgments(alert *alerts.Alert) {
	m.notifier.Notify(notify.Notification{
		Title:  "Emergency Alert Triggered",
		Body:   fmt.Sprintf("An emergency alert has been triggered. %d contacts will be notified.", len(alert.ContactsNotified)),
		Urgent: true,
	})

	m.acks.schedule(alert.ID, m.config.ServicesAckDelay, func() {
		m.notifier.Notify(notify.Notification{
			Title: "Emergency Services Notified",
			Body:  "Emergency services have been notified of the alert.",
		})
	})

	if len(alert.ContactsNotified) > 0 {
		contactsDelay := m.config.ServicesAckDelay + m.config.ContactsAckDelay
		m.acks.schedule(alert.ID, contactsDelay, func() {
			m.notifier.Notify(notify.Notification{
				Title: "Contacts Notified",
				Body:  fmt.Sprintf("%d emergency contacts have been notified.", len(alert.ContactsNotified)),
			})
		})
	}
}

// Close cancels all pending acknowledgments.
func (m *Manager) Close() {
	m.acks.cancelAll()
}
