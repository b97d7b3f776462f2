package group

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/atlasos/atlas/internal/bus"
	"github.com/atlasos/atlas/internal/store"
)

// Replicator bridges the local event bus and the group topic. Local
// group-hub events go out; remote events come in as notification rows so
// every member's dashboard sees them.
type Replicator struct {
	nodeID    string
	groupName string
	store     *store.Store
	publisher Publisher
	consumer  Consumer
	logger    *slog.Logger
}

// NewReplicator creates a replicator for one group.
func NewReplicator(nodeID, groupName string, st *store.Store, pub Publisher, cons Consumer, logger *slog.Logger) *Replicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replicator{
		nodeID:    nodeID,
		groupName: groupName,
		store:     st,
		publisher: pub,
		consumer:  cons,
		logger:    logger,
	}
}

// BindBus starts broadcasting local group-hub events.
func (r *Replicator) BindBus(b *bus.EventBus) {
	b.Subscribe("*", r.onLocalEvent)
}

func (r *Replicator) onLocalEvent(ev *bus.Event) {
	if ev.Hub != store.HubGroup {
		return
	}
	env := &Envelope{
		Type:      EnvelopeEvent,
		NodeID:    r.nodeID,
		GroupName: r.groupName,
		Event:     ev,
	}
	if err := r.publisher.Publish(context.Background(), env); err != nil {
		r.logger.Warn("group publish failed", "topic", ev.Topic, "error", err)
	}
}

// Run consumes remote envelopes until the context is cancelled.
func (r *Replicator) Run(ctx context.Context) error {
	if err := r.consumer.Start(ctx); err != nil {
		return fmt.Errorf("start group consumer: %w", err)
	}
	defer r.consumer.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-r.consumer.Messages():
			if !ok {
				return nil
			}
			r.handleMessage(msg)
		}
	}
}

func (r *Replicator) handleMessage(msg ConsumerMessage) {
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		r.logger.Warn("group envelope unmarshal failed", "error", err)
		return
	}

	// Skip our own broadcasts
	if env.NodeID == r.nodeID {
		return
	}
	if env.Type != EnvelopeEvent || env.Event == nil {
		return
	}

	title := remoteTitle(env.Event.Topic)
	if title == "" {
		return
	}
	_, err := r.store.CreateNotification(&store.Notification{
		Hub:   store.HubGroup,
		Kind:  "group." + env.Event.Topic,
		Title: title,
		Body:  fmt.Sprintf("%s %s (from %s)", env.Event.RefType, env.Event.RefID, env.NodeID),
	})
	if err != nil {
		r.logger.Warn("store remote event failed", "topic", env.Event.Topic, "error", err)
		return
	}
	r.logger.Debug("remote event stored", "topic", env.Event.Topic, "node", env.NodeID)
}

func remoteTitle(topic string) string {
	switch topic {
	case bus.TopicTaskCreated:
		return "Group task created"
	case bus.TopicTaskAssigned:
		return "Group task assigned"
	case bus.TopicTaskCompleted:
		return "Group task completed"
	case bus.TopicTaskFailed:
		return "Group task failed"
	case bus.TopicGoalCompleted:
		return "Group goal completed"
	case bus.TopicWidgetVersion, bus.TopicWidgetRollback:
		return "Group widget changed"
	case bus.TopicEvolutionApplied:
		return "Group evolution applied"
	}
	return ""
}
