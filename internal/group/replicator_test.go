package group

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/atlasos/atlas/internal/bus"
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

func TestReplicatorBroadcastsGroupEvents(t *testing.T) {
	st := newTestStore(t)
	pub := NewChannelPublisher()
	r := NewReplicator("node-a", "design", st, pub, NewChannelConsumer(), nil)

	b := bus.NewEventBus()
	r.BindBus(b)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Dispatch(ctx)

	b.Publish(&bus.Event{Topic: bus.TopicTaskCompleted, Hub: store.HubGroup, RefType: "task", RefID: "task-1"})
	b.Publish(&bus.Event{Topic: bus.TopicTaskCompleted, Hub: store.HubPersonal, RefType: "task", RefID: "task-2"})

	select {
	case env := <-pub.Envelopes():
		if env.NodeID != "node-a" || env.Event.RefID != "task-1" {
			t.Errorf("envelope = %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("group event not published")
	}

	// The personal-hub event must not be broadcast.
	select {
	case env := <-pub.Envelopes():
		t.Fatalf("unexpected envelope: %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReplicatorStoresRemoteEvents(t *testing.T) {
	st := newTestStore(t)
	cons := NewChannelConsumer()
	r := NewReplicator("node-a", "design", st, NewChannelPublisher(), cons, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	remote, _ := json.Marshal(&Envelope{
		Type:      EnvelopeEvent,
		NodeID:    "node-b",
		GroupName: "design",
		Event:     &bus.Event{Topic: bus.TopicTaskCompleted, Hub: store.HubGroup, RefType: "task", RefID: "task-9"},
		Timestamp: time.Now(),
	})
	own, _ := json.Marshal(&Envelope{
		Type:      EnvelopeEvent,
		NodeID:    "node-a",
		GroupName: "design",
		Event:     &bus.Event{Topic: bus.TopicTaskCompleted, Hub: store.HubGroup, RefType: "task", RefID: "task-self"},
		Timestamp: time.Now(),
	})
	cons.Send(ConsumerMessage{Topic: EventsTopic("design"), Value: remote})
	cons.Send(ConsumerMessage{Topic: EventsTopic("design"), Value: own})

	deadline := time.Now().Add(2 * time.Second)
	for {
		notifs, err := st.ListNotifications(store.HubGroup, false, 10)
		if err != nil {
			t.Fatalf("list notifications: %v", err)
		}
		if len(notifs) == 1 {
			if notifs[0].Title != "Group task completed" {
				t.Errorf("notification = %+v", notifs[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("remote event not stored, notifications = %+v", notifs)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("replicator did not stop on cancel")
	}
}
