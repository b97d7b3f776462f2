// Package group replicates dashboard events between the nodes of a group
// hub over Kafka. Each node publishes its local task and notification
// events on the group's topic and folds remote events into its own store.
package group

import (
	"time"

	"github.com/atlasos/atlas/internal/bus"
)

// Envelope is the wire format for all group messages.
type Envelope struct {
	Type      string     `json:"type"`
	NodeID    string     `json:"node_id"`
	GroupName string     `json:"group_name"`
	Event     *bus.Event `json:"event,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Envelope type constants.
const (
	EnvelopeEvent     = "event"
	EnvelopeHeartbeat = "heartbeat"
)

// EventsTopic returns the Kafka topic carrying a group's events.
func EventsTopic(groupName string) string {
	return "atlas.group." + groupName + ".events"
}
