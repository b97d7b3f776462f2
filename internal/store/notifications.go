package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateNotification inserts an in-app notification.
func (s *Store) CreateNotification(n *Notification) (*Notification, error) {
	if n.NotifID == "" {
		n.NotifID = newID("notif")
	}
	if n.Hub == "" {
		n.Hub = HubPersonal
	}
	if n.Kind == "" {
		n.Kind = "info"
	}
	_, err := s.db.Exec(s.rebind(`
	INSERT INTO notifications (notif_id, hub, kind, title, body)
	VALUES (?, ?, ?, ?, ?)`),
		n.NotifID, n.Hub, n.Kind, n.Title, n.Body)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return s.GetNotification(n.NotifID)
}

// GetNotification returns a notification by notif_id.
func (s *Store) GetNotification(notifID string) (*Notification, error) {
	var n Notification
	err := s.db.QueryRow(s.rebind(`
		SELECT id, notif_id, hub, kind, title, COALESCE(body,''), read, created_at
		FROM notifications WHERE notif_id = ?`), notifID).Scan(
		&n.ID, &n.NotifID, &n.Hub, &n.Kind, &n.Title, &n.Body, &n.Read, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("notification not found: %s", notifID)
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// ListNotifications returns notifications, optionally unread-only and
// hub-filtered, newest first.
func (s *Store) ListNotifications(hub string, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, notif_id, hub, kind, title, COALESCE(body,''), read, created_at
		FROM notifications WHERE 1=1`
	args := []interface{}{}
	if hub != "" {
		query += " AND hub = ?"
		args = append(args, hub)
	}
	if unreadOnly {
		query += " AND read = ?"
		args = append(args, false)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.NotifID, &n.Hub, &n.Kind, &n.Title, &n.Body,
			&n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags a notification as read.
func (s *Store) MarkNotificationRead(notifID string) error {
	res, err := s.db.Exec(s.rebind(
		`UPDATE notifications SET read = ? WHERE notif_id = ?`), true, notifID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification not found: %s", notifID)
	}
	return nil
}

// PruneNotifications deletes read notifications older than the cutoff.
// Returns the number of rows removed.
func (s *Store) PruneNotifications(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(s.rebind(
		`DELETE FROM notifications WHERE read = ? AND created_at < ?`), true, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
