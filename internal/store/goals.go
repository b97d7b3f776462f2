package store

import (
	"database/sql"
	"fmt"
)

// CreateGoal inserts a new goal.
func (s *Store) CreateGoal(g *Goal) (*Goal, error) {
	if g.GoalID == "" {
		g.GoalID = newID("goal")
	}
	if g.Hub == "" {
		g.Hub = HubPersonal
	}
	if g.Status == "" {
		g.Status = "active"
	}
	_, err := s.db.Exec(s.rebind(`
	INSERT INTO goals (goal_id, hub, title, description, status, progress, target_date)
	VALUES (?, ?, ?, ?, ?, ?, ?)`),
		g.GoalID, g.Hub, g.Title, g.Description, g.Status, g.Progress, nullTime(g.TargetDate))
	if err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return s.GetGoal(g.GoalID)
}

// GetGoal returns a goal by goal_id.
func (s *Store) GetGoal(goalID string) (*Goal, error) {
	var g Goal
	var target sql.NullTime
	err := s.db.QueryRow(s.rebind(`
		SELECT id, goal_id, hub, title, COALESCE(description,''), status, progress, target_date, created_at, updated_at
		FROM goals WHERE goal_id = ?`), goalID).Scan(
		&g.ID, &g.GoalID, &g.Hub, &g.Title, &g.Description, &g.Status, &g.Progress,
		&target, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("goal not found: %s", goalID)
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if target.Valid {
		g.TargetDate = &target.Time
	}
	return &g, nil
}

// ListGoals returns goals filtered by optional hub and status.
func (s *Store) ListGoals(hub, status string, limit int) ([]Goal, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, goal_id, hub, title, COALESCE(description,''), status, progress, target_date, created_at, updated_at
		FROM goals WHERE 1=1`
	args := []interface{}{}
	if hub != "" {
		query += " AND hub = ?"
		args = append(args, hub)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []Goal
	for rows.Next() {
		var g Goal
		var target sql.NullTime
		if err := rows.Scan(&g.ID, &g.GoalID, &g.Hub, &g.Title, &g.Description,
			&g.Status, &g.Progress, &target, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		if target.Valid {
			g.TargetDate = &target.Time
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// UpdateGoalProgress sets a goal's progress percentage, clamped to 0-100.
// Reaching 100 marks the goal completed.
func (s *Store) UpdateGoalProgress(goalID string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	status := "active"
	if progress == 100 {
		status = "completed"
	}
	res, err := s.db.Exec(s.rebind(
		`UPDATE goals SET progress = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE goal_id = ?`),
		progress, status, goalID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("goal not found: %s", goalID)
	}
	return nil
}

// ArchiveGoal marks a goal archived.
func (s *Store) ArchiveGoal(goalID string) error {
	res, err := s.db.Exec(s.rebind(
		`UPDATE goals SET status = 'archived', updated_at = CURRENT_TIMESTAMP WHERE goal_id = ?`), goalID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("goal not found: %s", goalID)
	}
	return nil
}
