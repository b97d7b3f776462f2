package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const taskColumns = `id, task_id, hub, title, COALESCE(description,''), status, priority,
	COALESCE(output,''), COALESCE(error_text,''),
	prompt_tokens, completion_tokens, total_tokens,
	due_at, created_at, updated_at, completed_at, deleted_at`

// CreateTask inserts a new task. TaskID is generated if empty and status
// defaults to pending.
func (s *Store) CreateTask(task *Task) (*Task, error) {
	if task.TaskID == "" {
		task.TaskID = newID("task")
	}
	if task.Status == "" {
		task.Status = TaskStatusPending
	}
	if task.Hub == "" {
		task.Hub = HubPersonal
	}

	_, err := s.db.Exec(s.rebind(`
	INSERT INTO tasks (task_id, hub, title, description, status, priority, due_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`),
		task.TaskID, task.Hub, task.Title, task.Description, task.Status,
		task.Priority, nullTime(task.DueAt),
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return s.GetTask(task.TaskID)
}

// GetTask returns a task by task_id. Soft-deleted tasks are still
// returned; callers filter on DeletedAt when it matters.
func (s *Store) GetTask(taskID string) (*Task, error) {
	row := s.db.QueryRow(s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`), taskID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTaskStatus updates a task's status, output, and error text.
// Completed and failed tasks get completed_at stamped.
func (s *Store) UpdateTaskStatus(taskID, status, output, errorText string) error {
	query := `UPDATE tasks SET status = ?, output = ?, error_text = ?, updated_at = CURRENT_TIMESTAMP`
	if status == TaskStatusCompleted || status == TaskStatusFailed {
		query += `, completed_at = CURRENT_TIMESTAMP`
	}
	query += ` WHERE task_id = ?`
	_, err := s.db.Exec(s.rebind(query), status, output, errorText, taskID)
	return err
}

// UpdateTaskTokens adds token usage to a task.
func (s *Store) UpdateTaskTokens(taskID string, prompt, completion, total int) error {
	_, err := s.db.Exec(s.rebind(`UPDATE tasks SET
		prompt_tokens = prompt_tokens + ?,
		completion_tokens = completion_tokens + ?,
		total_tokens = total_tokens + ?,
		updated_at = CURRENT_TIMESTAMP
	WHERE task_id = ?`), prompt, completion, total, taskID)
	return err
}

// SoftDeleteTask marks a task deleted without removing the row.
func (s *Store) SoftDeleteTask(taskID string) error {
	res, err := s.db.Exec(s.rebind(
		`UPDATE tasks SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE task_id = ? AND deleted_at IS NULL`), taskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task not found: %s", taskID)
	}
	return nil
}

// ListTasks returns non-deleted tasks filtered by optional hub and status.
func (s *Store) ListTasks(hub, status string, limit, offset int) ([]Task, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE deleted_at IS NULL`
	args := []interface{}{}
	if hub != "" {
		query += " AND hub = ?"
		args = append(args, hub)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// DailyTokenUsage returns total tokens used today across all tasks.
func (s *Store) DailyTokenUsage() (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT SUM(total_tokens) FROM tasks WHERE created_at >= CURRENT_DATE`).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var dueAt, completedAt, deletedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.TaskID, &t.Hub, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.Output, &t.ErrorText,
		&t.PromptTokens, &t.CompletionTokens, &t.TotalTokens,
		&dueAt, &t.CreatedAt, &t.UpdatedAt, &completedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if dueAt.Valid {
		t.DueAt = &dueAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if deletedAt.Valid {
		t.DeletedAt = &deletedAt.Time
	}
	return &t, nil
}

// CreateAssignments inserts one queue row per agent for a task, inside a
// single transaction so a partial orchestrator result never half-assigns.
func (s *Store) CreateAssignments(taskID string, agentIDs []string, reasoning string) error {
	if len(agentIDs) == 0 {
		return fmt.Errorf("create assignments: no agents")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, agentID := range agentIDs {
		_, err := tx.Exec(s.rebind(`
		INSERT INTO task_assignments (task_id, agent_id, status, reasoning)
		VALUES (?, ?, ?, ?)`),
			taskID, agentID, AssignmentPending, reasoning)
		if err != nil {
			return fmt.Errorf("create assignment %s/%s: %w", taskID, agentID, err)
		}
	}
	if _, err := tx.Exec(s.rebind(
		`UPDATE tasks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE task_id = ?`),
		TaskStatusProcessing, taskID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateAssignment records an assignment outcome.
func (s *Store) UpdateAssignment(taskID, agentID, status, output, errorText string) error {
	query := `UPDATE task_assignments SET status = ?, output = ?, error_text = ?, updated_at = CURRENT_TIMESTAMP`
	if status == AssignmentCompleted || status == AssignmentFailed {
		query += `, done_at = CURRENT_TIMESTAMP`
	}
	query += ` WHERE task_id = ? AND agent_id = ?`
	_, err := s.db.Exec(s.rebind(query), status, output, errorText, taskID, agentID)
	return err
}

// ListAssignments returns assignments for a task.
func (s *Store) ListAssignments(taskID string) ([]Assignment, error) {
	rows, err := s.db.Query(s.rebind(`
		SELECT id, task_id, agent_id, status, COALESCE(reasoning,''),
			COALESCE(output,''), COALESCE(error_text,''),
			created_at, updated_at, done_at
		FROM task_assignments WHERE task_id = ? ORDER BY id`), taskID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		var doneAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.TaskID, &a.AgentID, &a.Status, &a.Reasoning,
			&a.Output, &a.ErrorText, &a.CreatedAt, &a.UpdatedAt, &doneAt); err != nil {
			return nil, err
		}
		if doneAt.Valid {
			a.DoneAt = &doneAt.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListPendingAssignments returns queued assignments across all tasks.
func (s *Store) ListPendingAssignments(limit int) ([]Assignment, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(s.rebind(`
		SELECT id, task_id, agent_id, status, COALESCE(reasoning,''),
			COALESCE(output,''), COALESCE(error_text,''),
			created_at, updated_at, done_at
		FROM task_assignments WHERE status = ? ORDER BY created_at ASC LIMIT ?`),
		AssignmentPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		var doneAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.TaskID, &a.AgentID, &a.Status, &a.Reasoning,
			&a.Output, &a.ErrorText, &a.CreatedAt, &a.UpdatedAt, &doneAt); err != nil {
			return nil, err
		}
		if doneAt.Valid {
			a.DoneAt = &doneAt.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ResolveTaskFromAssignments completes a task when all its assignments are
// done: failed if any assignment failed, completed otherwise. Returns the
// final status, or "" if assignments are still outstanding.
func (s *Store) ResolveTaskFromAssignments(taskID string) (string, error) {
	rows, err := s.db.Query(s.rebind(
		`SELECT status, COALESCE(output, '') FROM task_assignments WHERE task_id = ? ORDER BY id`), taskID)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	anyFailed := false
	total := 0
	var outputs []string
	for rows.Next() {
		var status, output string
		if err := rows.Scan(&status, &output); err != nil {
			return "", err
		}
		total++
		switch status {
		case AssignmentPending, AssignmentProcessing:
			return "", nil
		case AssignmentFailed:
			anyFailed = true
		}
		if output != "" {
			outputs = append(outputs, output)
		}
	}
	if total == 0 {
		return "", nil
	}

	final := TaskStatusCompleted
	var errText string
	if anyFailed {
		final = TaskStatusFailed
		errText = "one or more agent assignments failed"
	}
	if err := s.UpdateTaskStatus(taskID, final, strings.Join(outputs, "\n\n"), errText); err != nil {
		return "", err
	}
	return final, nil
}
