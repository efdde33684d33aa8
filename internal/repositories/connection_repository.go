package repositories

import (
	"context"

	"github.com/stagelink/backend/internal/models"
)

// ConnectionRepository persists connection edges. Every method is a single
// atomic check-and-write against the unordered participant pair, and writes the
// notifications that belong to the transition in the same unit.
type ConnectionRepository interface {
	// CreatePending stores a new pending edge together with the request notice
	// for its recipient. It returns ErrConflict when the pair already has an edge
	// and ErrNotFound when a participant does not exist.
	CreatePending(ctx context.Context, edge models.ConnectionEdge, notice models.Notification) error
	FindByPair(ctx context.Context, a, b string) (models.ConnectionEdge, error)
	FindEdge(ctx context.Context, id string) (models.ConnectionEdge, error)
	// Accept moves a pending edge to accepted when responder is its
	// non-initiating participant, resolves the request notice and stores notice.
	Accept(ctx context.Context, edgeID, responder string, notice models.Notification) (models.ConnectionEdge, error)
	// Reject deletes a pending edge when responder is its non-initiating participant.
	Reject(ctx context.Context, edgeID, responder string) (models.ConnectionEdge, error)
	// DeleteByPair deletes the pair's edge in any state along with its notices.
	DeleteByPair(ctx context.Context, a, b string) (models.ConnectionEdge, error)
	ListConnected(ctx context.Context, userID string) ([]models.User, error)
}
