package store

import (
	"testing"
	"time"
)

func TestCompleteHabitStreaks(t *testing.T) {
	s := newTestStore(t)
	h, err := s.CreateHabit(&Habit{Name: "morning run"})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if h.Schedule == "" {
		t.Fatal("expected default schedule")
	}

	day1 := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)

	got, err := s.CompleteHabit(h.HabitID, day1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Streak != 1 {
		t.Fatalf("first completion streak = %d, want 1", got.Streak)
	}

	// Same day again: idempotent.
	got, _ = s.CompleteHabit(h.HabitID, day1.Add(3*time.Hour))
	if got.Streak != 1 {
		t.Fatalf("same-day completion should not bump streak, got %d", got.Streak)
	}
	comps, _ := s.ListHabitCompletions(h.HabitID, 10)
	if len(comps) != 1 {
		t.Fatalf("same-day completion should not add a row, got %d", len(comps))
	}

	// Next day: streak continues.
	got, _ = s.CompleteHabit(h.HabitID, day1.Add(24*time.Hour))
	if got.Streak != 2 {
		t.Fatalf("consecutive-day streak = %d, want 2", got.Streak)
	}

	// Gap of three days: streak resets.
	got, _ = s.CompleteHabit(h.HabitID, day1.Add(4*24*time.Hour))
	if got.Streak != 1 {
		t.Fatalf("streak after gap = %d, want 1", got.Streak)
	}
}

func TestGoalProgressClampAndComplete(t *testing.T) {
	s := newTestStore(t)
	g, err := s.CreateGoal(&Goal{Title: "ship v2", Hub: HubEnterprise})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if err := s.UpdateGoalProgress(g.GoalID, 150); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetGoal(g.GoalID)
	if got.Progress != 100 {
		t.Fatalf("progress should clamp to 100, got %d", got.Progress)
	}
	if got.Status != "completed" {
		t.Fatalf("goal at 100%% should be completed, got %s", got.Status)
	}

	if err := s.UpdateGoalProgress("goal-missing", 10); err == nil {
		t.Fatal("expected error for missing goal")
	}
}

func TestArchiveGoal(t *testing.T) {
	s := newTestStore(t)
	g, _ := s.CreateGoal(&Goal{Title: "old goal"})
	if err := s.ArchiveGoal(g.GoalID); err != nil {
		t.Fatal(err)
	}
	active, _ := s.ListGoals("", "active", 10)
	if len(active) != 0 {
		t.Fatalf("archived goal still listed as active: %+v", active)
	}
}
