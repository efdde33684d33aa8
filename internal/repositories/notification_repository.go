package repositories

import (
	"context"

	"github.com/stagelink/backend/internal/models"
)

// NotificationRepository exposes the read side of user inboxes. Notices are
// written by ConnectionRepository as part of edge transitions.
type NotificationRepository interface {
	ListForRecipient(ctx context.Context, userID string) ([]models.NotificationRecord, error)
	MarkAllSeen(ctx context.Context, userID string) error
	HasUnseen(ctx context.Context, userID string) (bool, error)
}
