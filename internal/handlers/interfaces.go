package handlers

import (
	"context"
	"io"
	"time"

	"github.com/stagelink/backend/internal/models"
	"github.com/stagelink/backend/internal/notifications"
)

// UserStore captures the persistence operations required by the account handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindBySlug(ctx context.Context, slug string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatar string, updatedAt time.Time) error
	UpdateProfile(ctx context.Context, id string, profile models.Profile, updatedAt time.Time) error
}

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (models.SessionToken, error)
}

// ConnectionService drives the connection state machine on behalf of the caller.
type ConnectionService interface {
	Request(ctx context.Context, self, target string) (models.ConnectionStatus, error)
	Respond(ctx context.Context, self, edgeID string, accept bool) error
	RespondToUser(ctx context.Context, self, other string, accept bool) error
	Remove(ctx context.Context, self, other string) error
	Status(ctx context.Context, self, other string) (models.ConnectionStatus, error)
	Connections(ctx context.Context, self string) ([]models.User, error)
}

// NotificationService reads and acknowledges a user's inbox.
type NotificationService interface {
	List(ctx context.Context, userID string) (*notifications.Feed, error)
	MarkAllSeen(ctx context.Context, userID string) error
	HasUnseen(ctx context.Context, userID string) (bool, error)
}

// AvatarStorage persists uploaded avatar images and returns their public location.
type AvatarStorage interface {
	SaveAvatar(ctx context.Context, userID, contentType string, r io.Reader) (string, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
