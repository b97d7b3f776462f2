package store

import (
	"testing"
)

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestStore(t)

	task, err := s.CreateTask(&Task{Title: "write report"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.TaskID == "" {
		t.Fatal("expected generated task_id")
	}
	if task.Status != TaskStatusPending {
		t.Fatalf("expected pending status, got %s", task.Status)
	}
	if task.Hub != HubPersonal {
		t.Fatalf("expected personal hub default, got %s", task.Hub)
	}
}

func TestUpdateTaskStatusStampsCompletion(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.CreateTask(&Task{Title: "t"})

	if err := s.UpdateTaskStatus(task.TaskID, TaskStatusProcessing, "", ""); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTask(task.TaskID)
	if got.CompletedAt != nil {
		t.Error("processing task should not have completed_at")
	}

	if err := s.UpdateTaskStatus(task.TaskID, TaskStatusCompleted, "done", ""); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetTask(task.TaskID)
	if got.Status != TaskStatusCompleted || got.Output != "done" {
		t.Fatalf("unexpected task after completion: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("completed task should have completed_at")
	}
}

func TestSoftDeleteTask(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.CreateTask(&Task{Title: "ephemeral"})

	if err := s.SoftDeleteTask(task.TaskID); err != nil {
		t.Fatal(err)
	}
	// Row still exists.
	got, err := s.GetTask(task.TaskID)
	if err != nil {
		t.Fatalf("soft-deleted task should still be fetchable: %v", err)
	}
	if got.DeletedAt == nil {
		t.Fatal("expected deleted_at to be set")
	}
	// But it disappears from listings.
	tasks, _ := s.ListTasks("", "", 10, 0)
	if len(tasks) != 0 {
		t.Fatalf("expected no listed tasks, got %d", len(tasks))
	}
	// Double-delete errors.
	if err := s.SoftDeleteTask(task.TaskID); err == nil {
		t.Error("expected error on second soft delete")
	}
}

func TestListTasksFilters(t *testing.T) {
	s := newTestStore(t)
	s.CreateTask(&Task{Title: "a", Hub: HubPersonal})
	s.CreateTask(&Task{Title: "b", Hub: HubEnterprise})
	task, _ := s.CreateTask(&Task{Title: "c", Hub: HubEnterprise})
	s.UpdateTaskStatus(task.TaskID, TaskStatusCompleted, "", "")

	ent, err := s.ListTasks(HubEnterprise, "", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ent) != 2 {
		t.Fatalf("expected 2 enterprise tasks, got %d", len(ent))
	}
	done, _ := s.ListTasks(HubEnterprise, TaskStatusCompleted, 10, 0)
	if len(done) != 1 || done[0].Title != "c" {
		t.Fatalf("expected one completed enterprise task, got %+v", done)
	}
}

func TestUpdateTaskTokens(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.CreateTask(&Task{Title: "t"})

	s.UpdateTaskTokens(task.TaskID, 100, 50, 150)
	s.UpdateTaskTokens(task.TaskID, 10, 5, 15)

	got, _ := s.GetTask(task.TaskID)
	if got.PromptTokens != 110 || got.CompletionTokens != 55 || got.TotalTokens != 165 {
		t.Fatalf("token accumulation wrong: %+v", got)
	}

	total, err := s.DailyTokenUsage()
	if err != nil {
		t.Fatal(err)
	}
	if total != 165 {
		t.Errorf("daily usage = %d, want 165", total)
	}
}

func TestAssignmentLifecycle(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.CreateTask(&Task{Title: "multi-agent"})

	err := s.CreateAssignments(task.TaskID, []string{"agent-1", "agent-2"}, "both have research skills")
	if err != nil {
		t.Fatalf("create assignments: %v", err)
	}

	// Task moved to processing in the same transaction.
	got, _ := s.GetTask(task.TaskID)
	if got.Status != TaskStatusProcessing {
		t.Fatalf("expected processing task, got %s", got.Status)
	}

	assigns, _ := s.ListAssignments(task.TaskID)
	if len(assigns) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assigns))
	}
	if assigns[0].Status != AssignmentPending {
		t.Fatalf("expected pending assignment, got %s", assigns[0].Status)
	}

	// One done: task stays processing.
	s.UpdateAssignment(task.TaskID, "agent-1", AssignmentCompleted, "report A", "")
	final, err := s.ResolveTaskFromAssignments(task.TaskID)
	if err != nil {
		t.Fatal(err)
	}
	if final != "" {
		t.Fatalf("task should not resolve with outstanding assignments, got %q", final)
	}

	// Second fails: task resolves failed.
	s.UpdateAssignment(task.TaskID, "agent-2", AssignmentFailed, "", "timeout")
	final, err = s.ResolveTaskFromAssignments(task.TaskID)
	if err != nil {
		t.Fatal(err)
	}
	if final != TaskStatusFailed {
		t.Fatalf("expected failed resolution, got %q", final)
	}
	got, _ = s.GetTask(task.TaskID)
	if got.Status != TaskStatusFailed {
		t.Fatalf("task status = %s, want failed", got.Status)
	}
}

func TestCreateAssignmentsEmptyRoster(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.CreateTask(&Task{Title: "t"})
	if err := s.CreateAssignments(task.TaskID, nil, ""); err == nil {
		t.Fatal("expected error for empty agent list")
	}
	// Task untouched.
	got, _ := s.GetTask(task.TaskID)
	if got.Status != TaskStatusPending {
		t.Fatalf("task should stay pending, got %s", got.Status)
	}
}

func TestListPendingAssignments(t *testing.T) {
	s := newTestStore(t)
	t1, _ := s.CreateTask(&Task{Title: "t1"})
	t2, _ := s.CreateTask(&Task{Title: "t2"})
	s.CreateAssignments(t1.TaskID, []string{"agent-1"}, "")
	s.CreateAssignments(t2.TaskID, []string{"agent-1"}, "")
	s.UpdateAssignment(t1.TaskID, "agent-1", AssignmentCompleted, "ok", "")

	pending, err := s.ListPendingAssignments(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].TaskID != t2.TaskID {
		t.Fatalf("expected one pending assignment for t2, got %+v", pending)
	}
}
