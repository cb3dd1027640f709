// Package notify delivers alert lifecycle notifications to the configured
// transport: a webhook endpoint when one is set, otherwise a log-backed
// fallback standing in for in-app toasts.
package notify

import (
	"time"

	"github.com/carewatch/carewatch/internal/alerts"
)

// Event names carried in dispatched payloads.
const (
	EventAlertTriggered = "alert_triggered"
	EventAlertResolved  = "alert_resolved"
	EventAlertCanceled  = "alert_canceled"
)

// Notification is a user-facing notice. Delivery is best-effort; it is a UX
// contract, not proof of third-party dispatch.
type Notification struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Urgent bool   `json:"urgent,omitempty"`
}

// Notifier shows user-facing notices.
type Notifier interface {
	Notify(n Notification)
}

// Dispatcher sends alert lifecycle events to the external notification
// transport.
type Dispatcher interface {
	Dispatch(event string, alert *alerts.Alert)
}

// Payload is the JSON body sent to the webhook endpoint.
type Payload struct {
	// Event is the lifecycle event name.
	Event string `json:"event"`

	// Alert is the affected alert record.
	Alert *alerts.Alert `json:"alert"`

	// Timestamp is when the payload was generated.
	Timestamp time.Time `json:"timestamp"`

	// Service identifies the sending daemon.
	Service ServiceInfo `json:"service"`
}

// ServiceInfo identifies the daemon in webhook payloads.
type ServiceInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// EventForStatus maps a terminal status to its lifecycle event name.
func EventForStatus(status alerts.Status) string {
	switch status {
	case alerts.StatusResolved:
		return EventAlertResolved
	case alerts.StatusCanceled:
		return EventAlertCanceled
	default:
		return EventAlertTriggered
	}
}
