package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// CreateWebhook registers an outbound event endpoint.
func (s *Store) CreateWebhook(w *Webhook) (*Webhook, error) {
	if w.WebhookID == "" {
		w.WebhookID = newID("hook")
	}
	if w.Hub == "" {
		w.Hub = HubPersonal
	}
	if w.Events == "" {
		w.Events = "*"
	}
	_, err := s.db.Exec(s.rebind(`
	INSERT INTO webhooks (webhook_id, hub, url, secret, events, active)
	VALUES (?, ?, ?, ?, ?, ?)`),
		w.WebhookID, w.Hub, w.URL, w.Secret, w.Events, true)
	if err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	return s.GetWebhook(w.WebhookID)
}

// GetWebhook returns a webhook by webhook_id.
func (s *Store) GetWebhook(webhookID string) (*Webhook, error) {
	var w Webhook
	err := s.db.QueryRow(s.rebind(`
		SELECT id, webhook_id, hub, url, COALESCE(secret,''), events, active, created_at
		FROM webhooks WHERE webhook_id = ?`), webhookID).Scan(
		&w.ID, &w.WebhookID, &w.Hub, &w.URL, &w.Secret, &w.Events, &w.Active, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("webhook not found: %s", webhookID)
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook: %w", err)
	}
	return &w, nil
}

// ListWebhooks returns webhooks, optionally filtered by hub. Inactive
// hooks are included; callers check Active.
func (s *Store) ListWebhooks(hub string) ([]Webhook, error) {
	query := `SELECT id, webhook_id, hub, url, COALESCE(secret,''), events, active, created_at
		FROM webhooks WHERE 1=1`
	args := []interface{}{}
	if hub != "" {
		query += " AND hub = ?"
		args = append(args, hub)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []Webhook
	for rows.Next() {
		var w Webhook
		if err := rows.Scan(&w.ID, &w.WebhookID, &w.Hub, &w.URL, &w.Secret,
			&w.Events, &w.Active, &w.CreatedAt); err != nil {
			return nil, err
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// Subscribed reports whether a webhook's event filter matches the topic.
func (w *Webhook) Subscribed(event string) bool {
	for _, e := range strings.Split(w.Events, ",") {
		e = strings.TrimSpace(e)
		if e == "*" || e == event {
			return true
		}
	}
	return false
}

// DeleteWebhook removes a webhook registration.
func (s *Store) DeleteWebhook(webhookID string) error {
	res, err := s.db.Exec(s.rebind(`DELETE FROM webhooks WHERE webhook_id = ?`), webhookID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("webhook not found: %s", webhookID)
	}
	return nil
}

// EnqueueDelivery inserts a pending delivery row for a webhook.
func (s *Store) EnqueueDelivery(webhookID, event, payload string) (int64, error) {
	res, err := s.db.Exec(s.rebind(`
	INSERT INTO webhook_deliveries (webhook_id, event, payload, status)
	VALUES (?, ?, ?, ?)`),
		webhookID, event, payload, DeliveryPending)
	if err != nil {
		return 0, fmt.Errorf("enqueue delivery: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		// Postgres does not support LastInsertId; the id is only used for
		// logging so 0 is acceptable there.
		return 0, nil
	}
	return id, nil
}

// UpdateDelivery records a delivery attempt outcome and optional retry time.
func (s *Store) UpdateDelivery(id int64, status string, nextAt *time.Time, lastError string) error {
	_, err := s.db.Exec(s.rebind(`
		UPDATE webhook_deliveries SET status = ?, attempts = attempts + 1,
			next_at = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`),
		status, nullTime(nextAt), lastError, id)
	return err
}

// ListDueDeliveries returns pending deliveries whose retry time has passed.
func (s *Store) ListDueDeliveries(limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(s.rebind(`
		SELECT id, webhook_id, event, payload, status, attempts, next_at, COALESCE(last_error,''), created_at, updated_at
		FROM webhook_deliveries
		WHERE status = 'pending' AND (next_at IS NULL OR next_at <= CURRENT_TIMESTAMP)
		ORDER BY created_at ASC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list due deliveries: %w", err)
	}
	defer rows.Close()

	var out []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		var nextAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.WebhookID, &d.Event, &d.Payload, &d.Status,
			&d.Attempts, &nextAt, &d.LastError, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if nextAt.Valid {
			d.NextAt = &nextAt.Time
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
