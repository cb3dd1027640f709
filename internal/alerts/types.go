// Package alerts provides the emergency-alert domain model and lifecycle rules.
package alerts

// Type categorizes the cause of an alert.
type Type string

const (
	// TypeEmergency is a general emergency raised by the user.
	TypeEmergency Type = "emergency"
	// TypeMedical indicates a medical problem.
	TypeMedical Type = "medical"
	// TypeFall indicates a detected or suspected fall.
	TypeFall Type = "fall"
	// TypeOther covers everything else.
	TypeOther Type = "other"
)

// String returns the string representation of the alert type.
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the type is a recognized alert type.
func (t Type) IsValid() bool {
	switch t {
	case TypeEmergency, TypeMedical, TypeFall, TypeOther:
		return true
	default:
		return false
	}
}

// ParseType converts a string to a Type. Unknown values are rejected.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", &ValidationError{Field: "type", Reason: "unknown alert type: " + s}
	}
	return t, nil
}

// Status represents the lifecycle state of an alert.
type Status string

const (
	// StatusActive indicates the alert is open and awaiting handling.
	StatusActive Status = "active"
	// StatusResolved indicates the alert was handled. Terminal.
	StatusResolved Status = "resolved"
	// StatusCanceled indicates the alert was withdrawn. Terminal.
	StatusCanceled Status = "canceled"
)

// String returns the string representation of the alert status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusResolved, StatusCanceled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are permitted from s.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusCanceled
}

// CanTransitionTo reports whether a transition from s to next is permitted.
// The only legal transitions are active to resolved and active to canceled.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusActive && next.IsTerminal()
}

// ParseStatus converts a string to a Status. Unknown values are rejected.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", &ValidationError{Field: "status", Reason: "unknown alert status: " + s}
	}
	return st, nil
}
