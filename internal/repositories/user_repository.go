package repositories

import (
	"context"
	"time"

	"github.com/stagelink/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindBySlug(ctx context.Context, slug string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatar string, updatedAt time.Time) error
	UpdateProfile(ctx context.Context, id string, profile models.Profile, updatedAt time.Time) error
}
