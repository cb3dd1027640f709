package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/carewatch/carewatch/internal/alerts"
	"github.com/carewatch/carewatch/internal/logger"
)

// Version is set by ldflags during build.
var Version = "dev"

// WebhookConfig holds configuration for webhook delivery.
type WebhookConfig struct {
	// URL is the webhook endpoint.
	URL string

	// MaxRetries is the maximum number of retry attempts (default: 3).
	MaxRetries int

	// InitialBackoff is the initial backoff duration (default: 1s).
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration (default: 30s).
	MaxBackoff time.Duration

	// Timeout is the HTTP request timeout (default: 10s).
	Timeout time.Duration
}

// DefaultWebhookConfig returns sensible defaults.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Timeout:        10 * time.Second,
	}
}

// WebhookDelivery sends alert lifecycle events to a webhook endpoint through
// a bounded queue with retrying delivery. It implements Dispatcher.
type WebhookDelivery struct {
	config WebhookConfig
	client *http.Client

	queue chan Payload
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWebhookDelivery creates a new webhook delivery handler.
func NewWebhookDelivery(config WebhookConfig) *WebhookDelivery {
	defaults := DefaultWebhookConfig()
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WebhookDelivery{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		queue:  make(chan Payload, 100), // Buffer up to 100 pending webhooks
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the webhook delivery worker.
func (wd *WebhookDelivery) Start() {
	wd.wg.Add(1)
	go wd.deliveryWorker()
}

// Stop gracefully shuts down the webhook delivery.
func (wd *WebhookDelivery) Stop() {
	wd.cancel()
	close(wd.queue)
	wd.wg.Wait()
}

// Dispatch queues an alert lifecycle event for async delivery.
func (wd *WebhookDelivery) Dispatch(event string, alert *alerts.Alert) {
	payload := Payload{
		Event:     event,
		Alert:     alert,
		Timestamp: time.Now(),
		Service: ServiceInfo{
			Name:    "carewatchd",
			Version: Version,
		},
	}

	select {
	case wd.queue <- payload:
		logger.Debug("webhook queued", "event", event, "alert_id", alert.ID)
	default:
		logger.Warn("webhook queue full, dropping", "event", event, "alert_id", alert.ID)
	}
}

// deliveryWorker processes queued webhooks.
func (wd *WebhookDelivery) deliveryWorker() {
	defer wd.wg.Done()

	for {
		select {
		case <-wd.ctx.Done():
			// Drain remaining queue items
			for len(wd.queue) > 0 {
				select {
				case payload := <-wd.queue:
					_ = wd.deliverWithRetry(payload)
				default:
					return
				}
			}
			return
		case payload, ok := <-wd.queue:
			if !ok {
				return
			}
			if err := wd.deliverWithRetry(payload); err != nil {
				logger.Error("webhook delivery failed after retries",
					"event", payload.Event,
					"alert_id", payload.Alert.ID,
					"error", err.Error())
			}
		}
	}
}

// deliverWithRetry attempts to deliver with exponential backoff.
func (wd *WebhookDelivery) deliverWithRetry(payload Payload) error {
	var lastErr error

	for attempt := 0; attempt <= wd.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := wd.calculateBackoff(attempt)
			logger.Debug("webhook retry",
				"attempt", attempt,
				"max", wd.config.MaxRetries,
				"backoff", backoff.String())

			select {
			case <-wd.ctx.Done():
				return wd.ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := wd.deliver(payload)
		if err == nil {
			if attempt > 0 {
				logger.Info("webhook delivery succeeded after retry",
					"attempt", attempt+1,
					"alert_id", payload.Alert.ID)
			}
			return nil
		}

		lastErr = err
		if !isRetryable(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// calculateBackoff returns the backoff duration for a retry attempt.
func (wd *WebhookDelivery) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: initialBackoff * 2^(attempt-1)
	multiplier := math.Pow(2, float64(attempt-1))
	backoff := time.Duration(float64(wd.config.InitialBackoff) * multiplier)

	if backoff > wd.config.MaxBackoff {
		backoff = wd.config.MaxBackoff
	}

	return backoff
}

// httpError carries the response status for retry classification.
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.body)
}

// isRetryable reports whether a delivery error is worth retrying.
// Server errors and throttling are; other client errors are not.
func isRetryable(err error) bool {
	if he, ok := err.(*httpError); ok {
		return he.status >= 500 || he.status == http.StatusTooManyRequests
	}
	// Transport-level errors (connection refused, timeout) are retryable
	return true
}

// deliver sends a single webhook request.
func (wd *WebhookDelivery) deliver(payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(wd.ctx, http.MethodPost, wd.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "carewatchd/"+Version)

	resp, err := wd.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return &httpError{status: resp.StatusCode, body: string(respBody)}
}
