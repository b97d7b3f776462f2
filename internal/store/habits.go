package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateHabit inserts a new habit.
func (s *Store) CreateHabit(h *Habit) (*Habit, error) {
	if h.HabitID == "" {
		h.HabitID = newID("habit")
	}
	if h.Hub == "" {
		h.Hub = HubPersonal
	}
	if h.Schedule == "" {
		h.Schedule = "0 9 * * *"
	}
	_, err := s.db.Exec(s.rebind(`
	INSERT INTO habits (habit_id, hub, name, schedule)
	VALUES (?, ?, ?, ?)`),
		h.HabitID, h.Hub, h.Name, h.Schedule)
	if err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return s.GetHabit(h.HabitID)
}

// GetHabit returns a habit by habit_id.
func (s *Store) GetHabit(habitID string) (*Habit, error) {
	var h Habit
	var lastDone sql.NullTime
	err := s.db.QueryRow(s.rebind(`
		SELECT id, habit_id, hub, name, schedule, streak, last_done, created_at, updated_at
		FROM habits WHERE habit_id = ?`), habitID).Scan(
		&h.ID, &h.HabitID, &h.Hub, &h.Name, &h.Schedule, &h.Streak,
		&lastDone, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("habit not found: %s", habitID)
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	if lastDone.Valid {
		h.LastDone = &lastDone.Time
	}
	return &h, nil
}

// ListHabits returns habits, optionally filtered by hub.
func (s *Store) ListHabits(hub string) ([]Habit, error) {
	query := `SELECT id, habit_id, hub, name, schedule, streak, last_done, created_at, updated_at
		FROM habits WHERE 1=1`
	args := []interface{}{}
	if hub != "" {
		query += " AND hub = ?"
		args = append(args, hub)
	}
	query += " ORDER BY name"

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []Habit
	for rows.Next() {
		var h Habit
		var lastDone sql.NullTime
		if err := rows.Scan(&h.ID, &h.HabitID, &h.Hub, &h.Name, &h.Schedule,
			&h.Streak, &lastDone, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		if lastDone.Valid {
			h.LastDone = &lastDone.Time
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// CompleteHabit records a completion and updates the streak. A completion
// within the same calendar day as the last one is idempotent; a gap of
// more than one day resets the streak to 1.
func (s *Store) CompleteHabit(habitID string, now time.Time) (*Habit, error) {
	h, err := s.GetHabit(habitID)
	if err != nil {
		return nil, err
	}

	today := now.Truncate(24 * time.Hour)
	streak := 1
	if h.LastDone != nil {
		last := h.LastDone.Truncate(24 * time.Hour)
		switch {
		case last.Equal(today):
			return h, nil // already completed today
		case today.Sub(last) <= 24*time.Hour:
			streak = h.Streak + 1
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.rebind(
		`INSERT INTO habit_completions (habit_id, completed_at) VALUES (?, ?)`),
		habitID, now); err != nil {
		return nil, fmt.Errorf("complete habit: %w", err)
	}
	if _, err := tx.Exec(s.rebind(
		`UPDATE habits SET streak = ?, last_done = ?, updated_at = CURRENT_TIMESTAMP WHERE habit_id = ?`),
		streak, now, habitID); err != nil {
		return nil, fmt.Errorf("update streak: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetHabit(habitID)
}

// ListHabitCompletions returns recent completions for a habit.
func (s *Store) ListHabitCompletions(habitID string, limit int) ([]HabitCompletion, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.Query(s.rebind(`
		SELECT id, habit_id, completed_at FROM habit_completions
		WHERE habit_id = ? ORDER BY completed_at DESC LIMIT ?`), habitID, limit)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var out []HabitCompletion
	for rows.Next() {
		var c HabitCompletion
		if err := rows.Scan(&c.ID, &c.HabitID, &c.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
