package store

import (
	"database/sql"
	"fmt"
)

// CreateAgent inserts a new agent persona.
func (s *Store) CreateAgent(a *Agent) (*Agent, error) {
	if a.AgentID == "" {
		a.AgentID = newID("agent")
	}
	if a.Hub == "" {
		a.Hub = HubPersonal
	}
	if a.Status == "" {
		a.Status = "active"
	}
	_, err := s.db.Exec(s.rebind(`
	INSERT INTO agents (agent_id, hub, name, persona, skills, status)
	VALUES (?, ?, ?, ?, ?, ?)`),
		a.AgentID, a.Hub, a.Name, a.Persona, a.Skills, a.Status)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return s.GetAgent(a.AgentID)
}

// GetAgent returns an agent by agent_id.
func (s *Store) GetAgent(agentID string) (*Agent, error) {
	var a Agent
	err := s.db.QueryRow(s.rebind(`
		SELECT id, agent_id, hub, name, COALESCE(persona,''), COALESCE(skills,''), status, created_at, updated_at
		FROM agents WHERE agent_id = ?`), agentID).Scan(
		&a.ID, &a.AgentID, &a.Hub, &a.Name, &a.Persona, &a.Skills, &a.Status,
		&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("agent not found: %s", agentID)
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return &a, nil
}

// ListAgents returns agents, optionally filtered by hub and status.
func (s *Store) ListAgents(hub, status string) ([]Agent, error) {
	query := `SELECT id, agent_id, hub, name, COALESCE(persona,''), COALESCE(skills,''), status, created_at, updated_at
		FROM agents WHERE 1=1`
	args := []interface{}{}
	if hub != "" {
		query += " AND hub = ?"
		args = append(args, hub)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY name"

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.AgentID, &a.Hub, &a.Name, &a.Persona,
			&a.Skills, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// UpdateAgentStatus sets an agent's status.
func (s *Store) UpdateAgentStatus(agentID, status string) error {
	res, err := s.db.Exec(s.rebind(
		`UPDATE agents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE agent_id = ?`),
		status, agentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("agent not found: %s", agentID)
	}
	return nil
}
