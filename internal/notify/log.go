package notify

import (
	"github.com/carewatch/carewatch/internal/alerts"
	"github.com/carewatch/carewatch/internal/logger"
)

// LogNotifier writes notices to the structured log. It is the fallback when
// no platform notification surface is available.
type LogNotifier struct{}

// Notify logs the notification.
func (LogNotifier) Notify(n Notification) {
	if n.Urgent {
		logger.Warn("notification", "title", n.Title, "body", n.Body)
		return
	}
	logger.Info("notification", "title", n.Title, "body", n.Body)
}

// LogDispatcher logs lifecycle events instead of sending them anywhere.
// Used when no webhook endpoint is configured.
type LogDispatcher struct{}

// Dispatch logs the event.
func (LogDispatcher) Dispatch(event string, alert *alerts.Alert) {
	logger.Info("alert event",
		"event", event,
		"alert_id", alert.ID,
		"type", alert.Type.String(),
		"status", alert.Status.String())
}
