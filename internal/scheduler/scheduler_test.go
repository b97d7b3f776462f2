package scheduler

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atlasos/atlas/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Options{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "atlas.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSchedulerDispatch(t *testing.T) {
	st := newTestStore(t)
	s := New(Config{
		TickInterval: 50 * time.Millisecond,
		LockPath:     filepath.Join(t.TempDir(), "test.lock"),
	}, st)

	var runs atomic.Int32
	cron, _ := ParseCron("* * * * *")
	s.Register(&Job{
		Name:     "test-job",
		Cron:     cron,
		Category: CategoryDefault,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx := context.Background()
	s.tick(ctx, time.Now())

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if runs.Load() != 1 {
		t.Fatalf("runs = %d, want 1", runs.Load())
	}

	// Run status lands in the scheduled_jobs table.
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := st.GetScheduledJob("test-job")
		if err == nil && job.Status == "completed" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("job run not recorded")
}

func TestSchedulerSemaphoreCapsConcurrency(t *testing.T) {
	s := New(Config{
		TickInterval:   50 * time.Millisecond,
		MaxConcDefault: 1,
		LockPath:       filepath.Join(t.TempDir(), "test.lock"),
	}, nil)

	block := make(chan struct{})
	var started atomic.Int32
	cron, _ := ParseCron("* * * * *")

	run := func(ctx context.Context) error {
		started.Add(1)
		<-block
		return nil
	}
	s.Register(&Job{Name: "a", Cron: cron, Category: CategoryDefault, Run: run})
	s.Register(&Job{Name: "b", Cron: cron, Category: CategoryDefault, Run: run})

	s.tick(context.Background(), time.Now())

	deadline := time.Now().Add(2 * time.Second)
	for started.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Only one of the two jobs may hold the single slot.
	if got := started.Load(); got != 1 {
		t.Errorf("started = %d, want 1", got)
	}
	close(block)
}

func TestSchedulerCronGate(t *testing.T) {
	s := New(Config{LockPath: filepath.Join(t.TempDir(), "test.lock")}, nil)

	var runs atomic.Int32
	cron, _ := ParseCron("30 4 * * *")
	s.Register(&Job{
		Name: "gated", Cron: cron, Category: CategoryDefault,
		Run: func(ctx context.Context) error { runs.Add(1); return nil },
	})

	notMatching := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	s.tick(context.Background(), notMatching)
	time.Sleep(50 * time.Millisecond)
	if runs.Load() != 0 {
		t.Errorf("job ran outside its schedule")
	}

	matching := time.Date(2026, 8, 30, 4, 30, 0, 0, time.UTC)
	s.tick(context.Background(), matching)
	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}
}

func TestRemindHabits(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.CreateHabit(&store.Habit{
		Hub: store.HubPersonal, Name: "Stretch", Schedule: "0 9 * * *",
	}); err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if _, err := st.CreateHabit(&store.Habit{
		Hub: store.HubPersonal, Name: "Read", Schedule: "0 21 * * *",
	}); err != nil {
		t.Fatalf("create habit: %v", err)
	}

	nineAM := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	if err := remindHabits(context.Background(), st, nineAM); err != nil {
		t.Fatalf("remind: %v", err)
	}

	notifs, err := st.ListNotifications(store.HubPersonal, false, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notifs) != 1 || notifs[0].Body != "Stretch" {
		t.Errorf("notifications = %+v", notifs)
	}
}
