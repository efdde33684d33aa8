package events

import (
	"context"
	"time"
)

// Topics published for connection transitions.
const (
	TopicConnectionRequested = "stagelink.connection.requested"
	TopicConnectionAccepted  = "stagelink.connection.accepted"
	TopicConnectionRejected  = "stagelink.connection.rejected"
	TopicConnectionRemoved   = "stagelink.connection.removed"
)

// ConnectionChanged is the payload for every connection topic. Actor is the user
// whose call caused the transition.
type ConnectionChanged struct {
	EdgeID      string    `json:"edge_id"`
	Actor       string    `json:"actor"`
	Counterpart string    `json:"counterpart"`
	Initiator   string    `json:"initiator"`
	State       string    `json:"state,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
