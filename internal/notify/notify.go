// Package notify turns bus events into in-app notification rows, webhook
// deliveries, and the optional Slack mirror for enterprise hubs.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/atlasos/atlas/internal/bus"
	"github.com/atlasos/atlas/internal/store"
)

// Notifier fans events out to the notification table and the webhook
// delivery queue.
type Notifier struct {
	store  *store.Store
	mirror *SlackMirror // nil when disabled
	logger *slog.Logger
}

// NewNotifier creates a notifier. mirror may be nil.
func NewNotifier(st *store.Store, mirror *SlackMirror, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{store: st, mirror: mirror, logger: logger}
}

// BindBus subscribes the notifier to every event.
func (n *Notifier) BindBus(b *bus.EventBus) {
	b.Subscribe("*", n.onEvent)
}

func (n *Notifier) onEvent(ev *bus.Event) {
	ctx := context.Background()

	title, body := describeEvent(ev)
	if title != "" {
		notif := &store.Notification{
			Hub:   ev.Hub,
			Kind:  ev.Topic,
			Title: title,
			Body:  body,
		}
		if _, err := n.store.CreateNotification(notif); err != nil {
			n.logger.Warn("create notification failed", "topic", ev.Topic, "error", err)
		}
		if n.mirror != nil && ev.Hub == store.HubEnterprise {
			if err := n.mirror.Post(ctx, title, body); err != nil {
				n.logger.Warn("slack mirror failed", "topic", ev.Topic, "error", err)
			}
		}
	}

	n.enqueueWebhooks(ctx, ev)
}

// enqueueWebhooks queues one delivery per subscribed active webhook in the
// event's hub. Delivery itself happens on the dispatcher loop.
func (n *Notifier) enqueueWebhooks(ctx context.Context, ev *bus.Event) {
	hooks, err := n.store.ListWebhooks(ev.Hub)
	if err != nil {
		n.logger.Warn("list webhooks failed", "hub", ev.Hub, "error", err)
		return
	}

	var payload []byte
	for i := range hooks {
		if !hooks[i].Active || !hooks[i].Subscribed(ev.Topic) {
			continue
		}
		if payload == nil {
			payload, err = json.Marshal(ev)
			if err != nil {
				n.logger.Warn("marshal event failed", "topic", ev.Topic, "error", err)
				return
			}
		}
		if _, err := n.store.EnqueueDelivery(hooks[i].WebhookID, ev.Topic, string(payload)); err != nil {
			n.logger.Warn("enqueue delivery failed", "webhook_id", hooks[i].WebhookID, "error", err)
		}
	}
}

func describeEvent(ev *bus.Event) (title, body string) {
	switch ev.Topic {
	case bus.TopicTaskAssigned:
		title = "Task assigned"
		if r, ok := ev.Payload["reasoning"].(string); ok {
			body = r
		}
	case bus.TopicTaskCompleted:
		title = "Task completed"
	case bus.TopicTaskFailed:
		title = "Task failed"
	case bus.TopicGoalCompleted:
		title = "Goal completed"
	case bus.TopicHabitCompleted:
		title = "Habit checked off"
		if streak, ok := ev.Payload["streak"]; ok {
			body = fmt.Sprintf("Current streak: %v", streak)
		}
	case bus.TopicWidgetVersion:
		title = "Widget updated"
	case bus.TopicWidgetRollback:
		title = "Widget rolled back"
	case bus.TopicEvolutionCreated:
		title = "Evolution proposed"
	case bus.TopicEvolutionApplied:
		title = "Evolution applied"
	default:
		// Unknown topics still reach webhooks, just not the bell icon.
		return "", ""
	}
	if body == "" {
		body = ev.RefType + " " + ev.RefID
	}
	return title, body
}
