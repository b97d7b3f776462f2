package store

import (
	"database/sql"
	"fmt"
)

// CreateEvolution inserts a proposed evolution. Generation is derived from
// the parent when ParentID is set, otherwise from the widget's evolution
// count.
func (s *Store) CreateEvolution(e *Evolution) (*Evolution, error) {
	if e.EvolutionID == "" {
		e.EvolutionID = newID("evo")
	}
	if e.Status == "" {
		e.Status = EvolutionProposed
	}

	if e.Generation == 0 {
		if e.ParentID != "" {
			parent, err := s.GetEvolution(e.ParentID)
			if err != nil {
				return nil, fmt.Errorf("resolve parent: %w", err)
			}
			e.Generation = parent.Generation + 1
		} else {
			var count int
			if err := s.db.QueryRow(s.rebind(
				`SELECT COUNT(*) FROM evolutions WHERE widget_id = ?`),
				e.WidgetID).Scan(&count); err != nil {
				return nil, err
			}
			e.Generation = count + 1
		}
	}

	_, err := s.db.Exec(s.rebind(`
	INSERT INTO evolutions (evolution_id, widget_id, parent_id, generation, directive, source, summary, model, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.EvolutionID, e.WidgetID, nullable(e.ParentID), e.Generation,
		e.Directive, e.Source, e.Summary, e.Model, e.Status)
	if err != nil {
		return nil, fmt.Errorf("create evolution: %w", err)
	}
	return s.GetEvolution(e.EvolutionID)
}

// GetEvolution returns an evolution by evolution_id.
func (s *Store) GetEvolution(evolutionID string) (*Evolution, error) {
	var e Evolution
	var parentID sql.NullString
	var decidedAt sql.NullTime
	err := s.db.QueryRow(s.rebind(`
		SELECT id, evolution_id, widget_id, parent_id, generation, directive, source,
			COALESCE(summary,''), COALESCE(model,''), status, created_at, decided_at
		FROM evolutions WHERE evolution_id = ?`), evolutionID).Scan(
		&e.ID, &e.EvolutionID, &e.WidgetID, &parentID, &e.Generation, &e.Directive,
		&e.Source, &e.Summary, &e.Model, &e.Status, &e.CreatedAt, &decidedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("evolution not found: %s", evolutionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get evolution: %w", err)
	}
	if parentID.Valid {
		e.ParentID = parentID.String
	}
	if decidedAt.Valid {
		e.DecidedAt = &decidedAt.Time
	}
	return &e, nil
}

// ListEvolutions returns evolutions newest first, optionally filtered to
// one widget. An empty widgetID lists across all widgets.
func (s *Store) ListEvolutions(widgetID string, limit int) ([]Evolution, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, evolution_id, widget_id, parent_id, generation, directive, source,
			COALESCE(summary,''), COALESCE(model,''), status, created_at, decided_at
		FROM evolutions`
	args := []interface{}{}
	if widgetID != "" {
		query += ` WHERE widget_id = ?`
		args = append(args, widgetID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list evolutions: %w", err)
	}
	defer rows.Close()

	var out []Evolution
	for rows.Next() {
		var e Evolution
		var parentID sql.NullString
		var decidedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.EvolutionID, &e.WidgetID, &parentID, &e.Generation,
			&e.Directive, &e.Source, &e.Summary, &e.Model, &e.Status,
			&e.CreatedAt, &decidedAt); err != nil {
			return nil, err
		}
		if parentID.Valid {
			e.ParentID = parentID.String
		}
		if decidedAt.Valid {
			e.DecidedAt = &decidedAt.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DecideEvolution marks a proposed evolution applied or rejected. Only
// proposed evolutions can be decided.
func (s *Store) DecideEvolution(evolutionID, status string) error {
	if status != EvolutionApplied && status != EvolutionRejected {
		return fmt.Errorf("invalid evolution decision: %s", status)
	}
	res, err := s.db.Exec(s.rebind(`
		UPDATE evolutions SET status = ?, decided_at = CURRENT_TIMESTAMP
		WHERE evolution_id = ? AND status = ?`),
		status, evolutionID, EvolutionProposed)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("evolution not pending: %s", evolutionID)
	}
	return nil
}
