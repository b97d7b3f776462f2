package store

import (
	"testing"
	"time"
)

func TestWebhookSubscribed(t *testing.T) {
	w := &Webhook{Events: "task.completed, evolution.proposed"}
	if !w.Subscribed("task.completed") {
		t.Error("exact event should match")
	}
	if !w.Subscribed("evolution.proposed") {
		t.Error("second event should match after whitespace trim")
	}
	if w.Subscribed("task.created") {
		t.Error("unlisted event should not match")
	}

	all := &Webhook{Events: "*"}
	if !all.Subscribed("anything.at.all") {
		t.Error("wildcard should match everything")
	}
}

func TestDeliveryQueue(t *testing.T) {
	s := newTestStore(t)
	hook, err := s.CreateWebhook(&Webhook{URL: "https://example.com/hook", Events: "*"})
	if err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	id, err := s.EnqueueDelivery(hook.WebhookID, "task.completed", `{"task_id":"t1"}`)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	due, err := s.ListDueDeliveries(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].Event != "task.completed" {
		t.Fatalf("expected one due delivery, got %+v", due)
	}

	// Transient failure: retry scheduled in the future, so not due.
	next := time.Now().Add(time.Hour)
	if err := s.UpdateDelivery(id, DeliveryPending, &next, "connection refused"); err != nil {
		t.Fatal(err)
	}
	due, _ = s.ListDueDeliveries(10)
	if len(due) != 0 {
		t.Fatalf("future retry should not be due, got %+v", due)
	}

	// Permanent failure leaves the queue.
	if err := s.UpdateDelivery(id, DeliveryFailed, nil, "410 gone"); err != nil {
		t.Fatal(err)
	}
	due, _ = s.ListDueDeliveries(10)
	if len(due) != 0 {
		t.Fatalf("failed delivery should not be due, got %+v", due)
	}
}

func TestDeleteWebhook(t *testing.T) {
	s := newTestStore(t)
	hook, _ := s.CreateWebhook(&Webhook{URL: "https://example.com"})
	if err := s.DeleteWebhook(hook.WebhookID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteWebhook(hook.WebhookID); err == nil {
		t.Fatal("expected error deleting missing webhook")
	}
}

func TestNotificationsLifecycle(t *testing.T) {
	s := newTestStore(t)
	n, err := s.CreateNotification(&Notification{Title: "Task assigned", Hub: HubGroup})
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if n.Read {
		t.Fatal("new notification should be unread")
	}

	unread, _ := s.ListNotifications(HubGroup, true, 10)
	if len(unread) != 1 {
		t.Fatalf("expected 1 unread notification, got %d", len(unread))
	}

	if err := s.MarkNotificationRead(n.NotifID); err != nil {
		t.Fatal(err)
	}
	unread, _ = s.ListNotifications(HubGroup, true, 10)
	if len(unread) != 0 {
		t.Fatalf("expected 0 unread after mark, got %d", len(unread))
	}

	// Read notifications older than the cutoff get pruned.
	pruned, err := s.PruneNotifications(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned notification, got %d", pruned)
	}
}
