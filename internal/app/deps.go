package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stagelink/backend/internal/auth"
	"github.com/stagelink/backend/internal/config"
	"github.com/stagelink/backend/internal/connections"
	"github.com/stagelink/backend/internal/db"
	"github.com/stagelink/backend/internal/events"
	"github.com/stagelink/backend/internal/handlers"
	"github.com/stagelink/backend/internal/middleware"
	"github.com/stagelink/backend/internal/notifications"
	"github.com/stagelink/backend/internal/repositories"
	"github.com/stagelink/backend/internal/storage"
)

// application holds the wired collaborators behind the HTTP API.
type application struct {
	deps    handlers.Dependencies
	tokens  *auth.Manager
	closers []func(context.Context) error
}

type store interface {
	repositories.UserRepository
	connections.Store
	notifications.Inbox
}

type postgresStore struct {
	*repositories.PostgresUserRepository
	*repositories.PostgresConnectionRepository
	*repositories.PostgresNotificationRepository
}

// buildApplication wires together concrete implementations used by the HTTP handlers.
func buildApplication(ctx context.Context, pool db.Pool, cfg config.Config) (*application, error) {
	var backing store
	switch cfg.Storage {
	case config.StorageMemory:
		backing = repositories.NewMemoryStore()
	case config.StoragePostgres:
		if pool == nil {
			return nil, errors.New("postgres storage requires a database pool")
		}
		backing = postgresStore{
			PostgresUserRepository:         repositories.NewPostgresUserRepository(pool),
			PostgresConnectionRepository:   repositories.NewPostgresConnectionRepository(pool),
			PostgresNotificationRepository: repositories.NewPostgresNotificationRepository(pool),
		}
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	app := &application{tokens: auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)}

	var publisher events.Publisher = &events.NoopPublisher{}
	if cfg.NATSURL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		publisher = nc
	}
	app.closers = append(app.closers, func(context.Context) error { return publisher.Close() })

	var avatars handlers.AvatarStorage
	if cfg.ObjectStore.Enabled() {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		avatars = s3Storage
	}

	var pinger handlers.Pinger
	if p, ok := pool.(handlers.Pinger); ok {
		pinger = p
	}

	app.deps = handlers.Dependencies{
		Users:  backing,
		Tokens: app.tokens,
		Connections: &connections.Service{
			Users:     backing,
			Store:     backing,
			Publisher: publisher,
		},
		Notifications:  notifications.Delivery{Inbox: backing},
		Avatars:        avatars,
		ConnectLimiter: middleware.NewKeyedLimiter(cfg.ConnectLimit.PerMinute, cfg.ConnectLimit.Burst, 0),
		DB:             pinger,
	}
	return app, nil
}

// Handler returns the routed API wrapped in request logging and authentication.
func (a *application) Handler(logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, a.deps)
	return middleware.RequestLogger(logger)(middleware.Authenticate(a.tokens)(mux))
}

// Close releases background resources in reverse order of creation.
func (a *application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
