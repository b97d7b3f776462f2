package store

import (
	"database/sql"
	"fmt"
)

// CreateWidget inserts a widget and its initial version 1 snapshot.
func (s *Store) CreateWidget(w *Widget) (*Widget, error) {
	if w.WidgetID == "" {
		w.WidgetID = newID("widget")
	}
	if w.Hub == "" {
		w.Hub = HubPersonal
	}
	if w.Kind == "" {
		w.Kind = "custom"
	}
	if w.Config == "" {
		w.Config = "{}"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.rebind(`
	INSERT INTO widgets (widget_id, hub, name, kind, config, source, active_version)
	VALUES (?, ?, ?, ?, ?, ?, 1)`),
		w.WidgetID, w.Hub, w.Name, w.Kind, w.Config, w.Source); err != nil {
		return nil, fmt.Errorf("create widget: %w", err)
	}
	if _, err := tx.Exec(s.rebind(`
	INSERT INTO widget_versions (widget_id, version, config, source, origin, active)
	VALUES (?, 1, ?, ?, ?, ?)`),
		w.WidgetID, w.Config, w.Source, VersionOriginManual, true); err != nil {
		return nil, fmt.Errorf("create widget version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetWidget(w.WidgetID)
}

// GetWidget returns a widget by widget_id.
func (s *Store) GetWidget(widgetID string) (*Widget, error) {
	var w Widget
	var deletedAt sql.NullTime
	err := s.db.QueryRow(s.rebind(`
		SELECT id, widget_id, hub, name, kind, config, COALESCE(source,''), active_version,
			created_at, updated_at, deleted_at
		FROM widgets WHERE widget_id = ?`), widgetID).Scan(
		&w.ID, &w.WidgetID, &w.Hub, &w.Name, &w.Kind, &w.Config, &w.Source,
		&w.ActiveVersion, &w.CreatedAt, &w.UpdatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("widget not found: %s", widgetID)
	}
	if err != nil {
		return nil, fmt.Errorf("get widget: %w", err)
	}
	if deletedAt.Valid {
		w.DeletedAt = &deletedAt.Time
	}
	return &w, nil
}

// ListWidgets returns non-deleted widgets, optionally filtered by hub.
func (s *Store) ListWidgets(hub string) ([]Widget, error) {
	query := `SELECT id, widget_id, hub, name, kind, config, COALESCE(source,''), active_version,
		created_at, updated_at, deleted_at
	FROM widgets WHERE deleted_at IS NULL`
	args := []interface{}{}
	if hub != "" {
		query += " AND hub = ?"
		args = append(args, hub)
	}
	query += " ORDER BY name"

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}
	defer rows.Close()

	var widgets []Widget
	for rows.Next() {
		var w Widget
		var deletedAt sql.NullTime
		if err := rows.Scan(&w.ID, &w.WidgetID, &w.Hub, &w.Name, &w.Kind, &w.Config,
			&w.Source, &w.ActiveVersion, &w.CreatedAt, &w.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		if deletedAt.Valid {
			w.DeletedAt = &deletedAt.Time
		}
		widgets = append(widgets, w)
	}
	return widgets, rows.Err()
}

// SoftDeleteWidget marks a widget deleted without removing version history.
func (s *Store) SoftDeleteWidget(widgetID string) error {
	res, err := s.db.Exec(s.rebind(
		`UPDATE widgets SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE widget_id = ? AND deleted_at IS NULL`), widgetID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("widget not found: %s", widgetID)
	}
	return nil
}

// CreateWidgetVersion inserts a new version snapshot and, when activate is
// set, swaps the active flag and the widget's current columns in the same
// transaction. Returns the new version number.
func (s *Store) CreateWidgetVersion(widgetID, cfg, source, origin, notes string, activate bool) (int, error) {
	w, err := s.GetWidget(widgetID)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var maxVersion int
	if err := tx.QueryRow(s.rebind(
		`SELECT COALESCE(MAX(version), 0) FROM widget_versions WHERE widget_id = ?`),
		widgetID).Scan(&maxVersion); err != nil {
		return 0, err
	}
	next := maxVersion + 1

	if _, err := tx.Exec(s.rebind(`
	INSERT INTO widget_versions (widget_id, version, config, source, origin, notes, active)
	VALUES (?, ?, ?, ?, ?, ?, ?)`),
		widgetID, next, cfg, source, origin, notes, activate); err != nil {
		return 0, fmt.Errorf("insert widget version: %w", err)
	}

	if activate {
		if _, err := tx.Exec(s.rebind(
			`UPDATE widget_versions SET active = ? WHERE widget_id = ? AND version = ?`),
			false, widgetID, w.ActiveVersion); err != nil {
			return 0, err
		}
		if _, err := tx.Exec(s.rebind(`
		UPDATE widgets SET config = ?, source = ?, active_version = ?, updated_at = CURRENT_TIMESTAMP
		WHERE widget_id = ?`),
			cfg, source, next, widgetID); err != nil {
			return 0, fmt.Errorf("activate widget version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

// RollbackWidget restores the given version's column values onto the
// widget row and moves the active flag. The restored state is also
// recorded as a new version so history stays append-only.
func (s *Store) RollbackWidget(widgetID string, toVersion int) (int, error) {
	v, err := s.GetWidgetVersion(widgetID, toVersion)
	if err != nil {
		return 0, err
	}
	return s.CreateWidgetVersion(widgetID, v.Config, v.Source, VersionOriginRollback,
		fmt.Sprintf("rollback to version %d", toVersion), true)
}

// GetWidgetVersion returns one version snapshot.
func (s *Store) GetWidgetVersion(widgetID string, version int) (*WidgetVersion, error) {
	var v WidgetVersion
	err := s.db.QueryRow(s.rebind(`
		SELECT id, widget_id, version, config, COALESCE(source,''), origin, COALESCE(notes,''), active, created_at
		FROM widget_versions WHERE widget_id = ? AND version = ?`), widgetID, version).Scan(
		&v.ID, &v.WidgetID, &v.Version, &v.Config, &v.Source, &v.Origin, &v.Notes,
		&v.Active, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("widget version not found: %s v%d", widgetID, version)
	}
	if err != nil {
		return nil, fmt.Errorf("get widget version: %w", err)
	}
	return &v, nil
}

// ListWidgetVersions returns all versions for a widget, newest first.
func (s *Store) ListWidgetVersions(widgetID string) ([]WidgetVersion, error) {
	rows, err := s.db.Query(s.rebind(`
		SELECT id, widget_id, version, config, COALESCE(source,''), origin, COALESCE(notes,''), active, created_at
		FROM widget_versions WHERE widget_id = ? ORDER BY version DESC`), widgetID)
	if err != nil {
		return nil, fmt.Errorf("list widget versions: %w", err)
	}
	defer rows.Close()

	var versions []WidgetVersion
	for rows.Next() {
		var v WidgetVersion
		if err := rows.Scan(&v.ID, &v.WidgetID, &v.Version, &v.Config, &v.Source,
			&v.Origin, &v.Notes, &v.Active, &v.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
