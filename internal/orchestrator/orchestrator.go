// Package orchestrator assigns tasks to synthetic agents. The assignment
// decision is delegated to the LLM: the task and the agent roster go into
// a prompt, and the reply's JSON object names the chosen agents.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atlasos/atlas/internal/bus"
	"github.com/atlasos/atlas/internal/provider"
	"github.com/atlasos/atlas/internal/store"
)

// Orchestrator turns pending tasks into agent assignments.
type Orchestrator struct {
	store  *store.Store
	prov   provider.LLMProvider
	events *bus.EventBus
	logger *slog.Logger
}

// New creates an orchestrator. events may be nil in tests.
func New(st *store.Store, prov provider.LLMProvider, events *bus.EventBus, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: st, prov: prov, events: events, logger: logger}
}

// Decision is the parsed assignment reply.
type Decision struct {
	Agents    []string `json:"agents"`
	Reasoning string   `json:"reasoning"`
}

// Assign picks agents for a task and inserts the assignment rows. The task
// moves to processing in the same transaction as the inserts. Agent IDs the
// model invents are dropped; an empty validated set is an error and the
// task stays pending.
func (o *Orchestrator) Assign(ctx context.Context, taskID string) (*Decision, error) {
	task, err := o.store.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task.Status != store.TaskStatusPending {
		return nil, fmt.Errorf("task %s is %s, only pending tasks can be assigned", taskID, task.Status)
	}

	roster, err := o.store.ListAgents(task.Hub, "active")
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("no active agents in hub %s", task.Hub)
	}

	resp, err := o.prov.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: assignmentSystemPrompt},
			{Role: "user", Content: buildAssignmentPrompt(task, roster)},
		},
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("assignment completion: %w", err)
	}

	decision, err := parseDecision(resp.Content)
	if err != nil {
		return nil, err
	}

	valid := validateAgents(decision.Agents, roster)
	if len(valid) == 0 {
		return nil, fmt.Errorf("model picked no known agents (raw: %v)", decision.Agents)
	}
	decision.Agents = valid

	if err := o.store.CreateAssignments(taskID, valid, decision.Reasoning); err != nil {
		return nil, fmt.Errorf("create assignments: %w", err)
	}

	if o.events != nil {
		o.events.Publish(&bus.Event{
			Topic:   bus.TopicTaskAssigned,
			Hub:     task.Hub,
			RefType: "task",
			RefID:   taskID,
			Payload: map[string]any{"agents": valid, "reasoning": decision.Reasoning},
		})
	}

	o.logger.Info("task assigned", "task_id", taskID, "agents", strings.Join(valid, ","))
	return decision, nil
}

// Complete records an agent's result for its assignment and settles the
// task when every assignment is done.
func (o *Orchestrator) Complete(ctx context.Context, taskID, agentID, output, errorText string) error {
	status := store.AssignmentCompleted
	if errorText != "" {
		status = store.AssignmentFailed
	}
	if err := o.store.UpdateAssignment(taskID, agentID, status, output, errorText); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}

	taskStatus, err := o.store.ResolveTaskFromAssignments(taskID)
	if err != nil {
		return fmt.Errorf("resolve task: %w", err)
	}
	if taskStatus == "" {
		return nil // assignments still outstanding
	}

	if o.events != nil {
		topic := bus.TopicTaskCompleted
		if taskStatus == store.TaskStatusFailed {
			topic = bus.TopicTaskFailed
		}
		task, err := o.store.GetTask(taskID)
		hub := ""
		if err == nil {
			hub = task.Hub
		}
		o.events.Publish(&bus.Event{Topic: topic, Hub: hub, RefType: "task", RefID: taskID})
	}
	return nil
}

const assignmentSystemPrompt = `You assign work to agents. Reply with a single JSON object:
{"agents": ["<agent_id>", ...], "reasoning": "<one sentence>"}
Pick only agent IDs from the roster. Pick the smallest set that covers the task.`

func buildAssignmentPrompt(task *store.Task, roster []store.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", task.Description)
	}
	if task.Priority != 0 {
		fmt.Fprintf(&b, "Priority: %d\n", task.Priority)
	}
	b.WriteString("\nRoster:\n")
	for _, a := range roster {
		fmt.Fprintf(&b, "- %s: %s", a.AgentID, a.Name)
		if a.Persona != "" {
			fmt.Fprintf(&b, " (%s)", a.Persona)
		}
		if a.Skills != "" {
			fmt.Fprintf(&b, " skills: %s", a.Skills)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func parseDecision(text string) (*Decision, error) {
	raw, err := provider.ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("assignment reply: %w", err)
	}
	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("parse assignment reply: %w", err)
	}
	return &d, nil
}

func validateAgents(picked []string, roster []store.Agent) []string {
	known := make(map[string]bool, len(roster))
	for _, a := range roster {
		known[a.AgentID] = true
	}
	var valid []string
	seen := make(map[string]bool)
	for _, id := range picked {
		id = strings.TrimSpace(id)
		if known[id] && !seen[id] {
			valid = append(valid, id)
			seen[id] = true
		}
	}
	return valid
}
