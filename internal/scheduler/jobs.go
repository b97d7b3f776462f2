package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlasos/atlas/internal/notify"
	"github.com/atlasos/atlas/internal/store"
	"github.com/atlasos/atlas/internal/widget"
)

// RegisterStandardJobs wires the built-in maintenance jobs. widgets and
// dispatcher may be nil; their jobs are skipped then.
func RegisterStandardJobs(s *Scheduler, st *store.Store, widgets *widget.Engine, dispatcher *notify.Dispatcher) {
	everyMinute, _ := ParseCron("* * * * *")
	nightly, _ := ParseCron("0 3 * * *")
	morning, _ := ParseCron("0 8 * * *")

	s.Register(&Job{
		Name:     "habit-reminders",
		Cron:     everyMinute,
		Category: CategoryDefault,
		Run: func(ctx context.Context) error {
			return remindHabits(ctx, st, time.Now())
		},
	})

	if dispatcher != nil {
		s.Register(&Job{
			Name:     "webhook-retry-sweep",
			Cron:     everyMinute,
			Category: CategoryHTTP,
			Run: func(ctx context.Context) error {
				_, err := dispatcher.Sweep(ctx, 50)
				return err
			},
		})
	}

	if widgets != nil {
		s.Register(&Job{
			Name:     "widget-update-checks",
			Cron:     morning,
			Category: CategoryLLM,
			Run: func(ctx context.Context) error {
				return checkWidgetUpdates(ctx, st, widgets)
			},
		})
	}

	s.Register(&Job{
		Name:     "notification-prune",
		Cron:     nightly,
		Category: CategoryDefault,
		Run: func(ctx context.Context) error {
			n, err := st.PruneNotifications(time.Now().AddDate(0, 0, -30))
			if err != nil {
				return err
			}
			if n > 0 {
				slog.Info("pruned notifications", "count", n)
			}
			return nil
		},
	})
}

// remindHabits creates a reminder notification for every habit whose cron
// schedule matches now, across all hubs.
func remindHabits(ctx context.Context, st *store.Store, now time.Time) error {
	for _, hub := range []string{store.HubPersonal, store.HubGroup, store.HubEnterprise} {
		habits, err := st.ListHabits(hub)
		if err != nil {
			return fmt.Errorf("list habits: %w", err)
		}
		for i := range habits {
			cron, err := ParseCron(habits[i].Schedule)
			if err != nil || !cron.Matches(now) {
				continue
			}
			// Skip habits already done since the last scheduled slot.
			if habits[i].LastDone != nil && now.Sub(*habits[i].LastDone) < time.Minute {
				continue
			}
			_, err = st.CreateNotification(&store.Notification{
				Hub:   hub,
				Kind:  "habit.reminder",
				Title: "Habit reminder",
				Body:  habits[i].Name,
			})
			if err != nil {
				return fmt.Errorf("create reminder: %w", err)
			}
		}
	}
	return nil
}

// checkWidgetUpdates runs the update-check engine over every widget.
// Failures on one widget do not stop the rest.
func checkWidgetUpdates(ctx context.Context, st *store.Store, widgets *widget.Engine) error {
	for _, hub := range []string{store.HubPersonal, store.HubGroup, store.HubEnterprise} {
		list, err := st.ListWidgets(hub)
		if err != nil {
			return fmt.Errorf("list widgets: %w", err)
		}
		for i := range list {
			if _, _, err := widgets.CheckUpdates(ctx, list[i].WidgetID); err != nil {
				slog.Warn("widget update check failed", "widget_id", list[i].WidgetID, "error", err)
			}
		}
	}
	return nil
}
