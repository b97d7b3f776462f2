package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atlasos/atlas/internal/assistant"
	"github.com/atlasos/atlas/internal/bus"
	"github.com/atlasos/atlas/internal/config"
	"github.com/atlasos/atlas/internal/evolve"
	"github.com/atlasos/atlas/internal/orchestrator"
	"github.com/atlasos/atlas/internal/store"
	"github.com/atlasos/atlas/internal/widget"
)

// apiServer bundles everything the HTTP API needs. All routes live under
// /api/v1; everything except status and auth/verify requires the bearer
// token when one is configured.
type apiServer struct {
	cfg       *config.Config
	store     *store.Store
	events    *bus.EventBus
	atlas     *assistant.Assistant
	orch      *orchestrator.Orchestrator
	widgets   *widget.Engine
	evolver   *evolve.Engine
	startTime time.Time
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// apiError keeps failure bodies uniform and vague. Store errors carry row
// IDs and SQL details that do not belong on the wire.
func apiError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func validHub(hub string) bool {
	switch hub {
	case store.HubPersonal, store.HubGroup, store.HubEnterprise:
		return true
	}
	return false
}

func (api *apiServer) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api.cfg.Gateway.AuthToken != "" {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token != api.cfg.Gateway.AuthToken {
				apiError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

func (api *apiServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Unauthenticated health check.
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		nodeID := api.cfg.Group.NodeID
		if nodeID == "" {
			hostname, _ := os.Hostname()
			nodeID = fmt.Sprintf("atlas-%s", hostname)
		}
		chunks, _ := api.store.CountChunks(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"version":           version,
			"node_id":           nodeID,
			"uptime_seconds":    int(time.Since(api.startTime).Seconds()),
			"store_driver":      api.store.Driver(),
			"memory_chunks":     chunks,
			"group_enabled":     api.cfg.Group.Enabled,
			"scheduler_enabled": api.cfg.Scheduler.Enabled,
		})
	})

	mux.HandleFunc("/api/v1/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		if api.cfg.Gateway.AuthToken == "" {
			writeJSON(w, http.StatusOK, map[string]any{"valid": true, "auth_required": false})
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		writeJSON(w, http.StatusOK, map[string]any{
			"valid":         token == api.cfg.Gateway.AuthToken,
			"auth_required": true,
		})
	})

	mux.HandleFunc("/api/v1/assistant/chat", api.requireAuth(api.handleAssistantChat))
	mux.HandleFunc("/api/v1/assistant/sessions", api.requireAuth(api.handleAssistantSessions))
	mux.HandleFunc("/api/v1/assistant/sessions/", api.requireAuth(api.handleAssistantSession))

	mux.HandleFunc("/api/v1/tasks", api.requireAuth(api.handleTasks))
	mux.HandleFunc("/api/v1/tasks/", api.requireAuth(api.handleTaskByID))
	mux.HandleFunc("/api/v1/assignments/pending", api.requireAuth(api.handlePendingAssignments))

	mux.HandleFunc("/api/v1/agents", api.requireAuth(api.handleAgents))
	mux.HandleFunc("/api/v1/agents/", api.requireAuth(api.handleAgentByID))

	mux.HandleFunc("/api/v1/goals", api.requireAuth(api.handleGoals))
	mux.HandleFunc("/api/v1/goals/", api.requireAuth(api.handleGoalByID))

	mux.HandleFunc("/api/v1/habits", api.requireAuth(api.handleHabits))
	mux.HandleFunc("/api/v1/habits/", api.requireAuth(api.handleHabitByID))

	mux.HandleFunc("/api/v1/widgets", api.requireAuth(api.handleWidgets))
	mux.HandleFunc("/api/v1/widgets/", api.requireAuth(api.handleWidgetByID))

	mux.HandleFunc("/api/v1/evolutions", api.requireAuth(api.handleEvolutions))
	mux.HandleFunc("/api/v1/evolutions/", api.requireAuth(api.handleEvolutionByID))

	mux.HandleFunc("/api/v1/webhooks", api.requireAuth(api.handleWebhooks))
	mux.HandleFunc("/api/v1/webhooks/", api.requireAuth(api.handleWebhookByID))

	mux.HandleFunc("/api/v1/notifications", api.requireAuth(api.handleNotifications))
	mux.HandleFunc("/api/v1/notifications/", api.requireAuth(api.handleNotificationByID))

	mux.HandleFunc("/api/v1/usage/tokens", api.requireAuth(api.handleTokenUsage))

	return mux
}

// subPath splits the remainder of an /api/v1/<collection>/ URL into the
// resource ID and an optional action segment.
func subPath(r *http.Request, prefix string) (id, action string) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.Trim(rest, "/")
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) > 1 {
		action = parts[1]
	}
	return id, action
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// --- Assistant -------------------------------------------------------------

func (api *apiServer) handleAssistantChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		SessionKey string `json:"session_key"`
		TaskID     string `json:"task_id"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := api.atlas.Chat(r.Context(), req.SessionKey, req.TaskID, req.Message)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyMessage) {
			apiError(w, http.StatusBadRequest, "message required")
			return
		}
		apiError(w, http.StatusBadGateway, "assistant request failed")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (api *apiServer) handleAssistantSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sessions := api.atlas.Sessions()
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func (api *apiServer) handleAssistantSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key, _ := subPath(r, "/api/v1/assistant/sessions/")
	if key == "" {
		apiError(w, http.StatusBadRequest, "session key required")
		return
	}
	if !api.atlas.DeleteSession(key) {
		apiError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// --- Tasks -----------------------------------------------------------------

func (api *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tasks, err := api.store.ListTasks(
			r.URL.Query().Get("hub"),
			r.URL.Query().Get("status"),
			queryInt(r, "limit", 50),
			queryInt(r, "offset", 0),
		)
		if err != nil {
			apiError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
	case http.MethodPost:
		var req struct {
			Hub         string     `json:"hub"`
			Title       string     `json:"title"`
			Description string     `json:"description"`
			Priority    int        `json:"priority"`
			DueAt       *time.Time `json:"due_at"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			apiError(w, http.StatusBadRequest, "title required")
			return
		}
		if req.Hub != "" && !validHub(req.Hub) {
			apiError(w, http.StatusBadRequest, "unknown hub")
			return
		}
		task, err := api.store.CreateTask(&store.Task{
			Hub:         req.Hub,
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Priority:    req.Priority,
			DueAt:       req.DueAt,
		})
		if err != nil {
			apiError(w, http.StatusInternalServerError, "create failed")
			return
		}
		api.events.Publish(&bus.Event{
			Topic:   bus.TopicTaskCreated,
			Hub:     task.Hub,
			RefType: "task",
			RefID:   task.TaskID,
			Payload: map[string]any{"title": task.Title},
		})
		writeJSON(w, http.StatusCreated, task)
	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (api *apiServer) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	id, action := subPath(r, "/api/v1/tasks/")
	if id == "" {
		apiError(w, http.StatusBadRequest, "task id required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		task, err := api.store.GetTask(id)
		if err != nil {
			apiError(w, http.StatusNotFound, "task not found")
			return
		}
		writeJSON(w, http.StatusOK, task)

	case action == "" && r.Method == http.MethodDelete:
		if err := api.store.SoftDeleteTask(id); err != nil {
			apiError(w, http.StatusNotFound, "task not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})

	case action == "assign" && r.Method == http.MethodPost:
		decision, err := api.orch.Assign(r.Context(), id)
		if err != nil {
			apiError(w, http.StatusUnprocessableEntity, "assignment failed")
			return
		}
		writeJSON(w, http.StatusOK, decision)

	case action == "complete" && r.Method == http.MethodPost:
		var req struct {
			AgentID string `json:"agent_id"`
			Output  string `json:"output"`
			Error   string `json:"error"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.AgentID == "" {
			apiError(w, http.StatusBadRequest, "agent_id required")
			return
		}
		if err := api.orch.Complete(r.Context(), id, req.AgentID, req.Output, req.Error); err != nil {
			apiError(w, http.StatusUnprocessableEntity, "completion failed")
			return
		}
		task, err := api.store.GetTask(id)
		if err != nil {
			apiError(w, http.StatusNotFound, "task not found")
			return
		}
		writeJSON(w, http.StatusOK, task)

	case action == "assignments" && r.Method == http.MethodGet:
		assignments, err := api.store.ListAssignments(id)
		if err != nil {
			apiError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments, "count": len(assignments)})

	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePendingAssignments exposes the queued-work view across all tasks,
// newest first. Agents poll it to pick up work the orchestrator handed out.
func (api *apiServer) handlePendingAssignments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	assignments, err := api.store.ListPendingAssignments(queryInt(r, "limit", 20))
	if err != nil {
		apiError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments, "count": len(assignments)})
}

// --- Agents ----------------------------------------------------------------

func (api *apiServer) handleAgents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		agents, err := api.store.ListAgents(r.URL.Query().Get("hub"), r.URL.Query().Get("status"))
		if err != nil {
			apiError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"agents": agents, "count": len(agents)})
	case http.MethodPost:
		var req struct {
			Hub     string `json:"hub"`
			Name    string `json:"name"`
			Persona string `json:"persona"`
			Skills  string `json:"skills"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			apiError(w, http.StatusBadRequest, "name required")
			return
		}
		agent, err := api.store.CreateAgent(&store.Agent{
			Hub:     req.Hub,
			Name:    strings.TrimSpace(req.Name),
			Persona: req.Persona,
			Skills:  req.Skills,
		})
		if err != nil {
			apiError(w, http.StatusInternalServerError, "create failed")
			return
		}
		writeJSON(w, http.StatusCreated, agent)
	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (api *apiServer) handleAgentByID(w http.ResponseWriter, r *http.Request) {
	id, action := subPath(r, "/api/v1/agents/")
	if id == "" {
		apiError(w, http.StatusBadRequest, "agent id required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		agent, err := api.store.GetAgent(id)
		if err != nil {
			apiError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeJSON(w, http.StatusOK, agent)

	case action == "status" && r.Method == http.MethodPost:
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		switch req.Status {
		case "active", "idle", "retired":
		default:
			apiError(w, http.StatusBadRequest, "unknown status")
			return
		}
		if err := api.store.UpdateAgentStatus(id, req.Status); err != nil {
			apiError(w, http.StatusNotFound, "agent not found")
			return
		}
		agent, err := api.store.GetAgent(id)
		if err != nil {
			apiError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeJSON(w, http.StatusOK, agent)

	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- Goals -----------------------------------------------------------------

func (api *apiServer) handleGoals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		goals, err := api.store.ListGoals(
			r.URL.Query().Get("hub"),
			r.URL.Query().Get("status"),
			queryInt(r, "limit", 50),
		)
		if err != nil {
			apiError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"goals": goals, "count": len(goals)})
	case http.MethodPost:
		var req struct {
			Hub         string     `json:"hub"`
			Title       string     `json:"title"`
			Description string     `json:"description"`
			TargetDate  *time.Time `json:"target_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			apiError(w, http.StatusBadRequest, "title required")
			return
		}
		goal, err := api.store.CreateGoal(&store.Goal{
			Hub:         req.Hub,
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			TargetDate:  req.TargetDate,
		})
		if err != nil {
			apiError(w, http.StatusInternalServerError, "create failed")
			return
		}
		writeJSON(w, http.StatusCreated, goal)
	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (api *apiServer) handleGoalByID(w http.ResponseWriter, r *http.Request) {
	id, action := subPath(r, "/api/v1/goals/")
	if id == "" {
		apiError(w, http.StatusBadRequest, "goal id required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		goal, err := api.store.GetGoal(id)
		if err != nil {
			apiError(w, http.StatusNotFound, "goal not found")
			return
		}
		writeJSON(w, http.StatusOK, goal)

	case action == "progress" && r.Method == http.MethodPost:
		var req struct {
			Progress int `json:"progress"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := api.store.UpdateGoalProgress(id, req.Progress); err != nil {
			apiError(w, http.StatusNotFound, "goal not found")
			return
		}
		goal, err := api.store.GetGoal(id)
		if err != nil {
			apiError(w, http.StatusNotFound, "goal not found")
			return
		}
		if goal.Status == "completed" {
			api.events.Publish(&bus.Event{
				Topic:   bus.TopicGoalCompleted,
				Hub:     goal.Hub,
				RefType: "goal",
				RefID:   goal.GoalID,
				Payload: map[string]any{"title": goal.Title},
			})
		}
		writeJSON(w, http.StatusOK, goal)

	case action == "archive" && r.Method == http.MethodPost:
		if err := api.store.ArchiveGoal(id); err != nil {
			apiError(w, http.StatusNotFound, "goal not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"archived": true})

	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- Habits ----------------------------------------------------------------

func (api *apiServer) handleHabits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		habits, err := api.store.ListHabits(r.URL.Query().Get("hub"))
		if err != nil {
			apiError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"habits": habits, "count": len(habits)})
	case http.MethodPost:
		var req struct {
			Hub      string `json:"hub"`
			Name     string `json:"name"`
			Schedule string `json:"schedule"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			apiError(w, http.StatusBadRequest, "name required")
			return
		}
		habit, err := api.store.CreateHabit(&store.Habit{
			Hub:      req.Hub,
			Name:     strings.TrimSpace(req.Name),
			Schedule: req.Schedule,
		})
		if err != nil {
			apiError(w, http.StatusInternalServerError, "create failed")
			return
		}
		writeJSON(w, http.StatusCreated, habit)
	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (api *apiServer) handleHabitByID(w http.ResponseWriter, r *http.Request) {
	id, action := subPath(r, "/api/v1/habits/")
	if id == "" {
		apiError(w, http.StatusBadRequest, "habit id required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		habit, err := api.store.GetHabit(id)
		if err != nil {
			apiError(w, http.StatusNotFound, "habit not found")
			return
		}
		writeJSON(w, http.StatusOK, habit)

	case action == "complete" && r.Method == http.MethodPost:
		habit, err := api.store.CompleteHabit(id, time.Now())
		if err != nil {
			apiError(w, http.StatusNotFound, "habit not found")
			return
		}
		api.events.Publish(&bus.Event{
			Topic:   bus.TopicHabitCompleted,
			Hub:     habit.Hub,
			RefType: "habit",
			RefID:   habit.HabitID,
			Payload: map[string]any{"name": habit.Name, "streak": habit.Streak},
		})
		writeJSON(w, http.StatusOK, habit)

	case action == "completions" && r.Method == http.MethodGet:
		completions, err := api.store.ListHabitCompletions(id, queryInt(r, "limit", 30))
		if err != nil {
			apiError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"completions": completions, "count": len(completions)})

	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- Widgets ---------------------------------------------------------------

func (api *apiServer) handleWidgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		widgets, err := api.store.ListWidgets(r.URL.Query().Get("hub"))
		if err != nil {
			apiError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"widgets": widgets, "count": len(widgets)})
	case http.MethodPost:
		var req struct {
			Hub    string          `json:"hub"`
			Name   string          `json:"name"`
			Kind   string          `json:"kind"`
			Config json.RawMessage `json:"config"`
			Source string          `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Kind) == "" {
			apiError(w, http.StatusBadRequest, "name and kind required")
			return
		}
		cfg := string(req.Config)
		if cfg == "" {
			cfg = "{}"
		}
		wg, err := api.store.CreateWidget(&store.Widget{
			Hub:    req.Hub,
			Name:   strings.TrimSpace(req.Name),
			Kind:   strings.TrimSpace(req.Kind),
			Config: cfg,
			Source: req.Source,
		})
		if err != nil {
			apiError(w, http.StatusInternalServerError, "create failed")
			return
		}
		writeJSON(w, http.StatusCreated, wg)
	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (api *apiServer) handleWidgetByID(w http.ResponseWriter, r *http.Request) {
	id, action := subPath(r, "/api/v1/widgets/")
	if id == "" {
		apiError(w, http.StatusBadRequest, "widget id required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		wg, err := api.store.GetWidget(id)
		if err != nil {
			apiError(w, http.StatusNotFound, "widget not found")
			return
		}
		writeJSON(w, http.StatusOK, wg)

	case action == "" && r.Method == http.MethodDelete:
		if err := api.store.SoftDeleteWidget(id); err != nil {
			apiError(w, http.StatusNotFound, "widget not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})

	case action == "versions" && r.Method == http.MethodGet:
		versions, err := api.store.ListWidgetVersions(id)
		if err != nil {
			apiError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"versions": versions, "count": len(versions)})

	case action == "versions" && r.Method == http.MethodPost:
		var req struct {
			Config   json.RawMessage `json:"config"`
			Source   string          `json:"source"`
			Notes    string          `json:"notes"`
			Activate bool            `json:"activate"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Config) == 0 || !json.Valid(req.Config) {
			apiError(w, http.StatusBadRequest, "config must be valid JSON")
			return
		}
		wg, err := api.store.GetWidget(id)
		if err != nil {
			apiError(w, http.StatusNotFound, "widget not found")
			return
		}
		n, err := api.store.CreateWidgetVersion(id, string(req.Config), req.Source,
			store.VersionOriginManual, req.Notes, req.Activate)
		if err != nil {
			apiError(w, http.StatusInternalServerError, "version failed")
			return
		}
		api.events.Publish(&bus.Event{
			Topic:   bus.TopicWidgetVersion,
			Hub:     wg.Hub,
			RefType: "widget",
			RefID:   id,
			Payload: map[string]any{"version": n, "origin": store.VersionOriginManual},
		})
		writeJSON(w, http.StatusCreated, map[string]any{"version": n, "active": req.Activate})

	case strings.HasPrefix(action, "versions/") && r.Method == http.MethodGet:
		n, err := strconv.Atoi(strings.TrimPrefix(action, "versions/"))
		if err != nil {
			apiError(w, http.StatusBadRequest, "invalid version")
			return
		}
		v, err := api.store.GetWidgetVersion(id, n)
		if err != nil {
			apiError(w, http.StatusNotFound, "version not found")
			return
		}
		writeJSON(w, http.StatusOK, v)

	case action == "rollback" && r.Method == http.MethodPost:
		var req struct {
			Version int `json:"version"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		n, err := api.widgets.Activate(r.Context(), id, req.Version)
		if err != nil {
			apiError(w, http.StatusUnprocessableEntity, "rollback failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"version": n})

	case action == "check-updates" && r.Method == http.MethodPost:
		n, sug, err := api.widgets.CheckUpdates(r.Context(), id)
		if err != nil {
			apiError(w, http.StatusBadGateway, "update check failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"has_update": sug.HasUpdate,
			"summary":    sug.Summary,
			"version":    n,
		})

	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- Evolutions ------------------------------------------------------------

func (api *apiServer) handleEvolutions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		evolutions, err := api.store.ListEvolutions(r.URL.Query().Get("widget_id"), queryInt(r, "limit", 50))
		if err != nil {
			apiError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"evolutions": evolutions, "count": len(evolutions)})
	case http.MethodPost:
		var req struct {
			WidgetID  string `json:"widget_id"`
			ParentID  string `json:"parent_id"`
			Directive string `json:"directive"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.WidgetID == "" || strings.TrimSpace(req.Directive) == "" {
			apiError(w, http.StatusBadRequest, "widget_id and directive required")
			return
		}
		ev, err := api.evolver.Propose(r.Context(), req.WidgetID, req.ParentID, req.Directive)
		if err != nil {
			apiError(w, http.StatusBadGateway, "proposal failed")
			return
		}
		writeJSON(w, http.StatusCreated, ev)
	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (api *apiServer) handleEvolutionByID(w http.ResponseWriter, r *http.Request) {
	id, action := subPath(r, "/api/v1/evolutions/")
	if id == "" {
		apiError(w, http.StatusBadRequest, "evolution id required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		ev, err := api.store.GetEvolution(id)
		if err != nil {
			apiError(w, http.StatusNotFound, "evolution not found")
			return
		}
		writeJSON(w, http.StatusOK, ev)

	case action == "apply" && r.Method == http.MethodPost:
		n, err := api.evolver.Apply(r.Context(), id)
		if err != nil {
			apiError(w, http.StatusUnprocessableEntity, "apply failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"version": n})

	case action == "reject" && r.Method == http.MethodPost:
		if err := api.evolver.Reject(r.Context(), id); err != nil {
			apiError(w, http.StatusUnprocessableEntity, "reject failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rejected": true})

	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- Webhooks --------------------------------------------------------------

func (api *apiServer) handleWebhooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		hooks, err := api.store.ListWebhooks(r.URL.Query().Get("hub"))
		if err != nil {
			apiError(w, http.StatusInternalServerError, "list failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"webhooks": hooks, "count": len(hooks)})
	case http.MethodPost:
		var req struct {
			Hub    string `json:"hub"`
			URL    string `json:"url"`
			Secret string `json:"secret"`
			Events string `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
			apiError(w, http.StatusBadRequest, "url must be http or https")
			return
		}
		hook, err := api.store.CreateWebhook(&store.Webhook{
			Hub:    req.Hub,
			URL:    req.URL,
			Secret: req.Secret,
			Events: req.Events,
		})
		if err != nil {
			apiError(w, http.StatusInternalServerError, "create failed")
			return
		}
		writeJSON(w, http.StatusCreated, hook)
	default:
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (api *apiServer) handleWebhookByID(w http.ResponseWriter, r *http.Request) {
	id, _ := subPath(r, "/api/v1/webhooks/")
	if id == "" {
		apiError(w, http.StatusBadRequest, "webhook id required")
		return
	}
	if r.Method != http.MethodDelete {
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := api.store.DeleteWebhook(id); err != nil {
		apiError(w, http.StatusNotFound, "webhook not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// --- Notifications ---------------------------------------------------------

func (api *apiServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	notifs, err := api.store.ListNotifications(
		r.URL.Query().Get("hub"),
		r.URL.Query().Get("unread") == "true",
		queryInt(r, "limit", 50),
	)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifs, "count": len(notifs)})
}

func (api *apiServer) handleNotificationByID(w http.ResponseWriter, r *http.Request) {
	id, action := subPath(r, "/api/v1/notifications/")
	if id == "" {
		apiError(w, http.StatusBadRequest, "notification id required")
		return
	}
	if action != "read" || r.Method != http.MethodPost {
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := api.store.MarkNotificationRead(id); err != nil {
		apiError(w, http.StatusNotFound, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"read": true})
}

// --- Usage -----------------------------------------------------------------

func (api *apiServer) handleTokenUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	total, err := api.store.DailyTokenUsage()
	if err != nil {
		apiError(w, http.StatusInternalServerError, "usage query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": time.Now().UTC().Format("2006-01-02"), "total_tokens": total})
}
