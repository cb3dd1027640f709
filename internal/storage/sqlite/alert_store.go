package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carewatch/carewatch/internal/alerts"
	"github.com/google/uuid"
)

// AlertStore provides SQLite persistence for emergency alerts.
// All mutations are atomic with respect to a single record and signal the
// change notifier on success.
type AlertStore struct {
	db       *DB
	notifier *Notifier
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(db *DB) *AlertStore {
	return &AlertStore{db: db, notifier: NewNotifier()}
}

// Notifier returns the change notifier fired after every alert mutation.
func (s *AlertStore) Notifier() *Notifier {
	return s.notifier
}

// Create persists a new alert from the draft, assigning its id, creation
// timestamp, and active status. The contact snapshot is written in the same
// transaction as the alert row. Returns the created alert.
func (s *AlertStore) Create(ctx context.Context, draft alerts.Draft, contacts []string) (*alerts.Alert, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	alert := &alerts.Alert{
		ID:               uuid.NewString(),
		Timestamp:        time.Now().UTC(),
		Type:             draft.Type,
		Status:           alerts.StatusActive,
		ContactsNotified: contacts,
		Description:      draft.Description,
		Location:         draft.Location,
	}
	if alert.ContactsNotified == nil {
		alert.ContactsNotified = []string{}
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, &alerts.StorageError{Op: "create", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO emergency_alerts (id, timestamp, type, status, description, location)
		VALUES (?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.Timestamp, alert.Type.String(), alert.Status.String(), alert.Description, alert.Location)
	if err != nil {
		return nil, &alerts.StorageError{Op: "create", Err: err}
	}

	for i, name := range alert.ContactsNotified {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO alert_contacts_notified (alert_id, position, contact_name)
			VALUES (?, ?, ?)
		`, alert.ID, i, name)
		if err != nil {
			return nil, &alerts.StorageError{Op: "create", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &alerts.StorageError{Op: "create", Err: err}
	}

	s.notifier.Notify()
	return alert, nil
}

// UpdateStatus transitions an alert to a terminal status. The active-only
// origin rule is enforced in the UPDATE predicate itself, so a user action
// and a near-simultaneous auto-alert update cannot both win. Re-applying the
// same terminal status is an idempotent no-op; transitioning between
// different terminal statuses is rejected. Returns whether the alert
// actually changed, so callers can suppress side effects on repeats.
func (s *AlertStore) UpdateStatus(ctx context.Context, id string, status alerts.Status, resolvedAt *time.Time) (bool, error) {
	if !status.IsValid() {
		return false, &alerts.ValidationError{Field: "status", Reason: "unknown alert status: " + status.String()}
	}
	if !status.IsTerminal() {
		return false, &alerts.InvalidTransitionError{ID: id, From: alerts.StatusActive, To: status}
	}

	if status == alerts.StatusResolved && resolvedAt == nil {
		now := time.Now().UTC()
		resolvedAt = &now
	}
	if status == alerts.StatusCanceled {
		resolvedAt = nil
	}

	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE emergency_alerts
		SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`, status.String(), resolvedAt, id, alerts.StatusActive.String())
	if err != nil {
		return false, &alerts.StorageError{Op: "update", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, &alerts.StorageError{Op: "update", Err: err}
	}

	if affected == 0 {
		// Either missing or already terminal; distinguish for the caller.
		current, err := s.Get(ctx, id)
		if err != nil {
			return false, err
		}
		if current.Status == status {
			return false, nil // idempotent repeat
		}
		return false, &alerts.InvalidTransitionError{ID: id, From: current.Status, To: status}
	}

	s.notifier.Notify()
	return true, nil
}

// Get returns a single alert by id.
func (s *AlertStore) Get(ctx context.Context, id string) (*alerts.Alert, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		SELECT id, timestamp, type, status, description, location, resolved_at
		FROM emergency_alerts
		WHERE id = ?
	`, id)

	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &alerts.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, &alerts.StorageError{Op: "get", Err: err}
	}

	if err := s.loadContacts(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// ListActive returns all active alerts ordered by creation time descending.
func (s *AlertStore) ListActive(ctx context.Context) ([]*alerts.Alert, error) {
	return s.list(ctx, `
		SELECT id, timestamp, type, status, description, location, resolved_at
		FROM emergency_alerts
		WHERE status = ?
		ORDER BY timestamp DESC
	`, alerts.StatusActive.String())
}

// ListAll returns all alerts ordered by creation time descending.
func (s *AlertStore) ListAll(ctx context.Context) ([]*alerts.Alert, error) {
	return s.list(ctx, `
		SELECT id, timestamp, type, status, description, location, resolved_at
		FROM emergency_alerts
		ORDER BY timestamp DESC
	`)
}

// Prune removes terminal alerts older than the retention period.
// Active alerts are never pruned. Returns the number of deleted alerts.
func (s *AlertStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	res, err := s.db.conn.ExecContext(ctx, `
		DELETE FROM emergency_alerts
		WHERE status != ? AND timestamp < ?
	`, alerts.StatusActive.String(), cutoff)
	if err != nil {
		return 0, &alerts.StorageError{Op: "prune", Err: err}
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &alerts.StorageError{Op: "prune", Err: err}
	}
	if deleted > 0 {
		// Snapshot rows cascade with their alert
		s.notifier.Notify()
	}
	return deleted, nil
}

func (s *AlertStore) list(ctx context.Context, query string, args ...any) ([]*alerts.Alert, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &alerts.StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var result []*alerts.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, &alerts.StorageError{Op: "list", Err: err}
		}
		result = append(result, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, &alerts.StorageError{Op: "list", Err: err}
	}

	for _, alert := range result {
		if err := s.loadContacts(ctx, alert); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// loadContacts fills in the snapshotted contact names for an alert.
func (s *AlertStore) loadContacts(ctx context.Context, alert *alerts.Alert) error {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT contact_name
		FROM alert_contacts_notified
		WHERE alert_id = ?
		ORDER BY position
	`, alert.ID)
	if err != nil {
		return &alerts.StorageError{Op: "list contacts", Err: err}
	}
	defer rows.Close()

	alert.ContactsNotified = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return &alerts.StorageError{Op: "list contacts", Err: err}
		}
		alert.ContactsNotified = append(alert.ContactsNotified, name)
	}
	return rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanAlert.
type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(row scanner) (*alerts.Alert, error) {
	var (
		alert      alerts.Alert
		typ        string
		status     string
		resolvedAt sql.NullTime
	)

	err := row.Scan(&alert.ID, &alert.Timestamp, &typ, &status, &alert.Description, &alert.Location, &resolvedAt)
	if err != nil {
		return nil, err
	}

	alert.Type, err = alerts.ParseType(typ)
	if err != nil {
		return nil, fmt.Errorf("corrupt alert row %s: %w", alert.ID, err)
	}
	alert.Status, err = alerts.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("corrupt alert row %s: %w", alert.ID, err)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		alert.ResolvedAt = &t
	}

	return &alert, nil
}
