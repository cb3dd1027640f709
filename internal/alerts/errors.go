package alerts

import "fmt"

// ValidationError indicates a malformed alert draft or field value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// NotFoundError indicates the referenced alert does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "alert not found: " + e.ID
}

// InvalidTransitionError indicates a forbidden status transition was requested.
type InvalidTransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("alert %s: invalid transition %s to %s", e.ID, e.From, e.To)
}

// StorageError wraps a failure of the backing medium.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "alert storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
