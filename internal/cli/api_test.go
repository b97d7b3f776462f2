package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/atlasos/atlas/internal/assistant"
	"github.com/atlasos/atlas/internal/bus"
	"github.com/atlasos/atlas/internal/config"
	"github.com/atlasos/atlas/internal/evolve"
	"github.com/atlasos/atlas/internal/orchestrator"
	"github.com/atlasos/atlas/internal/provider"
	"github.com/atlasos/atlas/internal/session"
	"github.com/atlasos/atlas/internal/store"
	"github.com/atlasos/atlas/internal/widget"
)

type scriptedProvider struct {
	reply string
}

func (p *scriptedProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	return &provider.ChatResponse{
		Content:      p.reply,
		FinishReason: "stop",
		Usage:        provider.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (p *scriptedProvider) DefaultModel() string { return "test-model" }

func newTestAPI(t *testing.T, reply, authToken string) *apiServer {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(store.Options{Driver: "sqlite", Path: filepath.Join(dir, "atlas.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	cfg.Gateway.AuthToken = authToken

	prov := &scriptedProvider{reply: reply}
	events := bus.NewEventBus()
	sessions := session.NewManager(filepath.Join(dir, "sessions"))

	return &apiServer{
		cfg:     cfg,
		store:   st,
		events:  events,
		atlas:   assistant.New(st, sessions, prov, nil, assistant.Options{}, nil),
		orch:    orchestrator.New(st, prov, events, nil),
		widgets: widget.NewEngine(st, prov, events, nil),
		evolver: evolve.NewEngine(st, prov, events, nil),
	}
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestStatusIsUnauthenticated(t *testing.T) {
	api := newTestAPI(t, "", "secret")
	mux := api.routes()

	rec := doRequest(t, mux, http.MethodGet, "/api/v1/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["version"] != version {
		t.Errorf("version = %v, want %s", body["version"], version)
	}
	if body["store_driver"] != "sqlite" {
		t.Errorf("store_driver = %v", body["store_driver"])
	}
	if _, ok := body["memory_chunks"]; !ok {
		t.Errorf("status missing memory_chunks: %v", body)
	}
}

func TestBearerAuth(t *testing.T) {
	api := newTestAPI(t, "", "secret")
	mux := api.routes()

	rec := doRequest(t, mux, http.MethodGet, "/api/v1/tasks", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}
	rec = doRequest(t, mux, http.MethodGet, "/api/v1/tasks", "wrong", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}
	rec = doRequest(t, mux, http.MethodGet, "/api/v1/tasks", "secret", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("good token: status = %d, want 200", rec.Code)
	}
}

func TestAuthVerify(t *testing.T) {
	api := newTestAPI(t, "", "")
	mux := api.routes()

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/auth/verify", "", nil)
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["valid"] != true || body["auth_required"] != false {
		t.Errorf("open gateway verify = %v", body)
	}
}

func TestTaskAssignmentFlow(t *testing.T) {
	api := newTestAPI(t, `{"agents": ["researcher"], "reasoning": "best fit"}`, "")
	mux := api.routes()

	if _, err := api.store.CreateAgent(&store.Agent{AgentID: "researcher", Name: "Researcher"}); err != nil {
		t.Fatalf("seed agent: %v", err)
	}

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/tasks", "", map[string]any{
		"title": "Summarize market trends",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: status = %d body %s", rec.Code, rec.Body.String())
	}
	var task store.Task
	decodeBody(t, rec, &task)
	if task.Status != store.TaskStatusPending {
		t.Fatalf("new task status = %s", task.Status)
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/tasks/"+task.TaskID+"/assign", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("assign: status = %d body %s", rec.Code, rec.Body.String())
	}
	var decision orchestrator.Decision
	decodeBody(t, rec, &decision)
	if len(decision.Agents) != 1 || decision.Agents[0] != "researcher" {
		t.Fatalf("decision agents = %v", decision.Agents)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/v1/assignments/pending", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pending: status = %d body %s", rec.Code, rec.Body.String())
	}
	var pending struct {
		Assignments []store.Assignment `json:"assignments"`
		Count       int                `json:"count"`
	}
	decodeBody(t, rec, &pending)
	if pending.Count != 1 || pending.Assignments[0].AgentID != "researcher" {
		t.Fatalf("pending assignments = %+v", pending)
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/tasks/"+task.TaskID+"/complete", "", map[string]any{
		"agent_id": "researcher",
		"output":   "Trends are up.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d body %s", rec.Code, rec.Body.String())
	}
	var done store.Task
	decodeBody(t, rec, &done)
	if done.Status != store.TaskStatusCompleted {
		t.Errorf("task status = %s, want completed", done.Status)
	}
	if done.Output != "Trends are up." {
		t.Errorf("task output = %q", done.Output)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/v1/assignments/pending", "", nil)
	decodeBody(t, rec, &pending)
	if pending.Count != 0 {
		t.Errorf("pending after completion = %d, want 0", pending.Count)
	}
}

func TestAssignRejectsNonPending(t *testing.T) {
	api := newTestAPI(t, `{"agents": ["a"], "reasoning": "x"}`, "")
	mux := api.routes()

	task, err := api.store.CreateTask(&store.Task{Title: "done already"})
	if err != nil {
		t.Fatal(err)
	}
	if err := api.store.UpdateTaskStatus(task.TaskID, store.TaskStatusCompleted, "", ""); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/tasks/"+task.TaskID+"/assign", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestWidgetVersionAndRollback(t *testing.T) {
	api := newTestAPI(t, "", "")
	mux := api.routes()

	wg, err := api.store.CreateWidget(&store.Widget{
		Name:   "Weather",
		Kind:   "chart",
		Config: `{"city":"Berlin"}`,
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/widgets/"+wg.WidgetID+"/versions", "", map[string]any{
		"config":   map[string]any{"city": "Paris"},
		"notes":    "switch city",
		"activate": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("version: status = %d body %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	decodeBody(t, rec, &created)
	if created["version"].(float64) != 2 {
		t.Fatalf("version = %v, want 2", created["version"])
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/widgets/"+wg.WidgetID+"/rollback", "", map[string]any{
		"version": 1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("rollback: status = %d body %s", rec.Code, rec.Body.String())
	}
	var rolled map[string]any
	decodeBody(t, rec, &rolled)
	if rolled["version"].(float64) != 3 {
		t.Fatalf("rollback version = %v, want 3", rolled["version"])
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/v1/widgets/"+wg.WidgetID, "", nil)
	var after store.Widget
	decodeBody(t, rec, &after)
	if after.ActiveVersion != 3 {
		t.Errorf("active_version = %d, want 3", after.ActiveVersion)
	}
	if after.Config != `{"city":"Berlin"}` {
		t.Errorf("config = %s, want original restored", after.Config)
	}
}

func TestGoalProgressCompletion(t *testing.T) {
	api := newTestAPI(t, "", "")
	mux := api.routes()

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/goals", "", map[string]any{
		"title": "Ship the dashboard",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal: status = %d", rec.Code)
	}
	var goal store.Goal
	decodeBody(t, rec, &goal)

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/goals/"+goal.GoalID+"/progress", "", map[string]any{
		"progress": 100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: status = %d body %s", rec.Code, rec.Body.String())
	}
	var updated store.Goal
	decodeBody(t, rec, &updated)
	if updated.Status != "completed" || updated.Progress != 100 {
		t.Errorf("goal = %s/%d, want completed/100", updated.Status, updated.Progress)
	}
}

func TestWebhookURLValidation(t *testing.T) {
	api := newTestAPI(t, "", "")
	mux := api.routes()

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/webhooks", "", map[string]any{
		"url": "ftp://example.com/hook",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAssistantChatRoute(t *testing.T) {
	api := newTestAPI(t, "Hello from Atlas.", "")
	mux := api.routes()

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/assistant/chat", "", map[string]any{
		"message": "hi",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: status = %d body %s", rec.Code, rec.Body.String())
	}
	var reply assistant.Reply
	decodeBody(t, rec, &reply)
	if reply.Content != "Hello from Atlas." {
		t.Errorf("content = %q", reply.Content)
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/assistant/chat", "", map[string]any{
		"message": "   ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank message: status = %d, want 400", rec.Code)
	}
}

func TestAssistantSessionLifecycle(t *testing.T) {
	api := newTestAPI(t, "On it.", "")
	mux := api.routes()

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/assistant/chat", "", map[string]any{
		"session_key": "atlas:weekly-review",
		"message":     "Review my open goals for this week",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/v1/assistant/sessions", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list sessions: status = %d", rec.Code)
	}
	var listing struct {
		Sessions []session.Info `json:"sessions"`
		Count    int            `json:"count"`
	}
	decodeBody(t, rec, &listing)
	if listing.Count != 1 || listing.Sessions[0].Key != "atlas:weekly-review" {
		t.Fatalf("sessions = %+v", listing)
	}
	if listing.Sessions[0].Title != "Review my open goals for this week" {
		t.Errorf("title = %q", listing.Sessions[0].Title)
	}

	rec = doRequest(t, mux, http.MethodDelete, "/api/v1/assistant/sessions/atlas:weekly-review", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete session: status = %d body %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, mux, http.MethodDelete, "/api/v1/assistant/sessions/atlas:weekly-review", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing session: status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/v1/assistant/sessions", "", nil)
	decodeBody(t, rec, &listing)
	if listing.Count != 0 {
		t.Errorf("sessions after delete = %d, want 0", listing.Count)
	}
}

func TestHabitCompleteRoute(t *testing.T) {
	api := newTestAPI(t, "", "")
	mux := api.routes()

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/habits", "", map[string]any{
		"name":     "Morning review",
		"schedule": "0 9 * * *",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create habit: status = %d", rec.Code)
	}
	var habit store.Habit
	decodeBody(t, rec, &habit)

	rec = doRequest(t, mux, http.MethodPost, "/api/v1/habits/"+habit.HabitID+"/complete", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d body %s", rec.Code, rec.Body.String())
	}
	var done store.Habit
	decodeBody(t, rec, &done)
	if done.Streak != 1 {
		t.Errorf("streak = %d, want 1", done.Streak)
	}

	rec = doRequest(t, mux, http.MethodGet, fmt.Sprintf("/api/v1/habits/%s/completions", habit.HabitID), "", nil)
	var listing map[string]any
	decodeBody(t, rec, &listing)
	if listing["count"].(float64) != 1 {
		t.Errorf("completions count = %v, want 1", listing["count"])
	}
}
