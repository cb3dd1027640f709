// Package profile holds the monitored person's profile and emergency contacts.
package profile

import "context"

// EmergencyContact is a person registered to be notified when an alert fires.
type EmergencyContact struct {
	// ID is a stable identifier that survives renames.
	ID string `json:"id"`

	// Name is the contact's display name. Required.
	Name string `json:"name"`

	// Relationship describes how the contact relates to the profile owner. Required.
	Relationship string `json:"relationship"`

	// Phone is the contact's phone number. Required.
	Phone string `json:"phone"`

	// Email is optional.
	Email string `json:"email,omitempty"`
}

// Validate checks the required contact fields.
func (c *EmergencyContact) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if c.Relationship == "" {
		return &ValidationError{Field: "relationship", Reason: "relationship is required"}
	}
	if c.Phone == "" {
		return &ValidationError{Field: "phone", Reason: "phone is required"}
	}
	return nil
}

// Profile is the monitored person's record. The alert core only ever reads it.
type Profile struct {
	Name              string             `json:"name"`
	Age               int                `json:"age,omitempty"`
	Address           string             `json:"address,omitempty"`
	MedicalConditions string             `json:"medicalConditions,omitempty"`
	Medications       string             `json:"medications,omitempty"`
	Allergies         string             `json:"allergies,omitempty"`
	DoctorInfo        string             `json:"doctorInfo,omitempty"`
	Notes             string             `json:"notes,omitempty"`
	Contacts          []EmergencyContact `json:"contacts"`
}

// ContactNames returns the contact display names in list order.
func (p *Profile) ContactNames() []string {
	names := make([]string, 0, len(p.Contacts))
	for _, c := range p.Contacts {
		names = append(names, c.Name)
	}
	return names
}

// Provider supplies the current profile state to the alert core.
// Implementations must treat this as a read-only view.
type Provider interface {
	// Contacts returns the current emergency contacts in list order.
	Contacts(ctx context.Context) ([]EmergencyContact, error)

	// Address returns the profile owner's address, or "" if unknown.
	Address(ctx context.Context) (string, error)
}

// ValidationError indicates a malformed profile or contact field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}
