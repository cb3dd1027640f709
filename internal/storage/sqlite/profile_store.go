package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carewatch/carewatch/internal/profile"
	"github.com/google/uuid"
)

// ProfileStore provides SQLite persistence for the monitored person's
// profile and emergency contacts. It also implements profile.Provider for
// the alert core's read-only view.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// GetProfile returns the stored profile with its contact list.
// A never-saved profile comes back zero-valued with no contacts.
func (s *ProfileStore) GetProfile(ctx context.Context) (*profile.Profile, error) {
	var p profile.Profile
	err := s.db.conn.QueryRowContext(ctx, `
		SELECT name, age, address, medical_conditions, medications, allergies, doctor_info, notes
		FROM profile WHERE id = 1
	`).Scan(&p.Name, &p.Age, &p.Address, &p.MedicalConditions, &p.Medications, &p.Allergies, &p.DoctorInfo, &p.Notes)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	contacts, err := s.Contacts(ctx)
	if err != nil {
		return nil, err
	}
	p.Contacts = contacts
	return &p, nil
}

// SaveProfile upserts the profile fields and replaces the contact list.
// Contacts without an id are assigned one.
func (s *ProfileStore) SaveProfile(ctx context.Context, p *profile.Profile) error {
	for i := range p.Contacts {
		if err := p.Contacts[i].Validate(); err != nil {
			return err
		}
		if p.Contacts[i].ID == "" {
			p.Contacts[i].ID = uuid.NewString()
		}
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profile (id, name, age, address, medical_conditions, medications, allergies, doctor_info, notes)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			age = excluded.age,
			address = excluded.address,
			medical_conditions = excluded.medical_conditions,
			medications = excluded.medications,
			allergies = excluded.allergies,
			doctor_info = excluded.doctor_info,
			notes = excluded.notes
	`, p.Name, p.Age, p.Address, p.MedicalConditions, p.Medications, p.Allergies, p.DoctorInfo, p.Notes)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM emergency_contacts`); err != nil {
		return fmt.Errorf("failed to save contacts: %w", err)
	}
	for i, c := range p.Contacts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO emergency_contacts (id, position, name, relationship, phone, email)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.ID, i, c.Name, c.Relationship, c.Phone, c.Email)
		if err != nil {
			return fmt.Errorf("failed to save contacts: %w", err)
		}
	}

	return tx.Commit()
}

// AddContact appends a contact to the live contact list.
func (s *ProfileStore) AddContact(ctx context.Context, c profile.EmergencyContact) (*profile.EmergencyContact, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO emergency_contacts (id, position, name, relationship, phone, email)
		VALUES (?, COALESCE((SELECT MAX(position) + 1 FROM emergency_contacts), 0), ?, ?, ?, ?)
	`, c.ID, c.Name, c.Relationship, c.Phone, c.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to add contact: %w", err)
	}
	return &c, nil
}

// UpdateContact rewrites an existing contact's fields, keeping its position.
func (s *ProfileStore) UpdateContact(ctx context.Context, c profile.EmergencyContact) error {
	if err := c.Validate(); err != nil {
		return err
	}

	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE emergency_contacts
		SET name = ?, relationship = ?, phone = ?, email = ?
		WHERE id = ?
	`, c.Name, c.Relationship, c.Phone, c.Email, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	if affected == 0 {
		return ErrContactNotFound
	}
	return nil
}

// DeleteContact removes a contact from the live list. Alert snapshots are
// unaffected.
func (s *ProfileStore) DeleteContact(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if affected == 0 {
		return ErrContactNotFound
	}
	return nil
}

// Contacts returns the live contact list in position order.
// Part of the profile.Provider interface.
func (s *ProfileStore) Contacts(ctx context.Context) ([]profile.EmergencyContact, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, name, relationship, phone, email
		FROM emergency_contacts
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []profile.EmergencyContact{}
	for rows.Next() {
		var c profile.EmergencyContact
		if err := rows.Scan(&c.ID, &c.Name, &c.Relationship, &c.Phone, &c.Email); err != nil {
			return nil, fmt.Errorf("failed to list contacts: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Address returns the profile owner's address.
// Part of the profile.Provider interface.
func (s *ProfileStore) Address(ctx context.Context) (string, error) {
	var addr string
	err := s.db.conn.QueryRowContext(ctx, `SELECT address FROM profile WHERE id = 1`).Scan(&addr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load address: %w", err)
	}
	return addr, nil
}

// ErrContactNotFound is returned when the referenced contact does not exist.
var ErrContactNotFound = errors.New("contact not found")
