package alerts

import (
	"time"
)

// Alert is a recorded emergency event with a lifecycle status.
// ID, Timestamp, Type, ContactsNotified, Description, and Location are fixed
// at creation; only Status and ResolvedAt change, and only through the
// transitions permitted by Status.CanTransitionTo.
type Alert struct {
	// ID is the unique identifier assigned at creation.
	ID string `json:"id"`

	// Timestamp is when the alert was created.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the cause of the alert.
	Type Type `json:"type"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// ContactsNotified is the ordered list of contact names snapshotted at
	// creation. Later edits to the profile's contact list do not change it.
	ContactsNotified []string `json:"contactsNotified"`

	// Description is optional free text describing the event.
	Description string `json:"description,omitempty"`

	// Location is optional free text describing where the event occurred.
	Location string `json:"location,omitempty"`

	// ResolvedAt is set exactly once, on the transition to resolved.
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// IsActive returns true if the alert is still open.
func (a *Alert) IsActive() bool {
	return a.Status == StatusActive
}

// Draft is the caller-supplied input for creating an alert.
// Contacts left nil means "default to the full profile contact list";
// an explicit empty slice means "notify nobody".
type Draft struct {
	Type        Type     `json:"type"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Contacts    []string `json:"contacts,omitempty"`
}

// Validate checks the draft against the closed type enumeration.
func (d *Draft) Validate() error {
	if !d.Type.IsValid() {
		return &ValidationError{Field: "type", Reason: "unknown alert type: " + d.Type.String()}
	}
	return nil
}
