package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/atlasos/atlas/internal/store"
)

// Delivery outcome classes. Only transient failures are retried.
const (
	deliveryTransient = "transient"
	deliveryPermanent = "permanent"
)

// Dispatcher drains the webhook delivery queue.
type Dispatcher struct {
	store         *store.Store
	client        *http.Client
	signingSecret string
	maxRetries    int
	logger        *slog.Logger
}

// NewDispatcher creates a dispatcher. signingSecret is the fallback for
// webhooks registered without their own secret.
func NewDispatcher(st *store.Store, timeout time.Duration, signingSecret string, maxRetries int, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:         st,
		client:        &http.Client{Timeout: timeout},
		signingSecret: signingSecret,
		maxRetries:    maxRetries,
		logger:        logger,
	}
}

// Run sweeps the delivery queue on a fixed interval until ctx is
// cancelled. The gateway runs this loop whenever the cron scheduler is
// not running the retry-sweep job; without one of the two, enqueued
// deliveries would never leave the machine.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.Sweep(ctx, 50); err != nil {
				d.logger.Warn("webhook sweep failed", "error", err)
			}
		}
	}
}

// Sweep attempts every due delivery once and returns how many were tried.
// Transient failures are rescheduled with backoff until maxRetries.
func (d *Dispatcher) Sweep(ctx context.Context, limit int) (int, error) {
	due, err := d.store.ListDueDeliveries(limit)
	if err != nil {
		return 0, fmt.Errorf("list due deliveries: %w", err)
	}

	for i := range due {
		d.attempt(ctx, &due[i])
	}
	return len(due), nil
}

func (d *Dispatcher) attempt(ctx context.Context, del *store.WebhookDelivery) {
	hook, err := d.store.GetWebhook(del.WebhookID)
	if err != nil {
		// Webhook was deleted after the delivery was queued.
		_ = d.store.UpdateDelivery(del.ID, store.DeliveryFailed, nil, "webhook gone")
		return
	}

	err = d.post(ctx, hook, del)
	if err == nil {
		_ = d.store.UpdateDelivery(del.ID, store.DeliverySent, nil, "")
		return
	}

	reason, cls := classifyDeliveryError(err)
	attempts := del.Attempts + 1
	if cls == deliveryTransient && attempts < d.maxRetries {
		next := time.Now().Add(backoff(attempts))
		_ = d.store.UpdateDelivery(del.ID, store.DeliveryPending, &next, reason)
		d.logger.Warn("webhook delivery deferred", "webhook_id", del.WebhookID, "attempts", attempts, "reason", reason)
		return
	}
	_ = d.store.UpdateDelivery(del.ID, store.DeliveryFailed, nil, reason)
	d.logger.Warn("webhook delivery failed", "webhook_id", del.WebhookID, "attempts", attempts, "reason", reason)
}

func (d *Dispatcher) post(ctx context.Context, hook *store.Webhook, del *store.WebhookDelivery) error {
	req, err := http.NewRequestWithContext(ctx, "POST", hook.URL, bytes.NewReader([]byte(del.Payload)))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Atlas-Event", del.Event)

	secret := hook.Secret
	if secret == "" {
		secret = d.signingSecret
	}
	if secret != "" {
		req.Header.Set("X-Atlas-Signature", "sha256="+sign(secret, []byte(del.Payload)))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
}

// Sign computes the hex HMAC-SHA256 of body. Receivers verify the
// X-Atlas-Signature header with the same function.
func Sign(secret string, body []byte) string {
	return sign(secret, body)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// backoff doubles the delay per attempt: 30s, 1m, 2m, 4m...
func backoff(attempts int) time.Duration {
	delay := 30 * time.Second
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay > 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return delay
}

// classifyDeliveryError decides whether a failed delivery is worth
// retrying. Timeouts, connection errors, 429 and 5xx responses are
// transient; everything else is permanent.
func classifyDeliveryError(err error) (reason, class string) {
	reason = err.Error()

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return reason, deliveryTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return reason, deliveryTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return reason, deliveryTransient
	}

	if code := statusFromReason(reason); code == 429 || code >= 500 {
		return reason, deliveryTransient
	}
	if strings.Contains(reason, "connection refused") || strings.Contains(reason, "connection reset") ||
		strings.Contains(reason, "no such host") || strings.Contains(reason, "EOF") {
		return reason, deliveryTransient
	}
	return reason, deliveryPermanent
}

// statusFromReason pulls the numeric code out of the "endpoint returned
// status NNN" error text. Returns 0 when absent.
func statusFromReason(reason string) int {
	idx := strings.LastIndex(reason, "status ")
	if idx < 0 {
		return 0
	}
	code := 0
	for _, c := range reason[idx+len("status "):] {
		if c < '0' || c > '9' {
			break
		}
		code = code*10 + int(c-'0')
	}
	return code
}
