package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stagelink/backend/internal/db"
	"github.com/stagelink/backend/internal/models"
)

const userColumns = `id, email, password_hash, slug, first_name, last_name, avatar, about, interests, education, skills, experiences, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, slug, first_name, last_name, avatar, about, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, user.ID, user.Email, user.Password, user.Slug, user.FirstName, user.LastName, user.Avatar, user.About, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if mapped, ok := classifyPgError(err); ok && errors.Is(mapped, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "email", email)
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "id", id)
}

// FindBySlug fetches a user by their public profile slug.
func (r *PostgresUserRepository) FindBySlug(ctx context.Context, slug string) (models.User, error) {
	return r.findOne(ctx, "slug", slug)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, column, value string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is one of a fixed set of identifiers chosen by this package.
	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by %s: %w", column, err)
	}

	return user, nil
}

// UpdateAvatar stores the location of a user's uploaded avatar.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, avatar string, updatedAt time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET avatar = $2, updated_at = $3
        WHERE id = $1
    `, id, avatar, updatedAt)
	if err != nil {
		return fmt.Errorf("update user avatar: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateProfile replaces the editable profile sections of a user.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id string, profile models.Profile, updatedAt time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	profile = profile.Normalized()
	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET about = $2, interests = $3, education = $4, skills = $5, experiences = $6, updated_at = $7
        WHERE id = $1
    `, id, profile.About, profile.Interests, profile.Education, profile.Skills, profile.Experiences, updatedAt)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Password, &user.Slug, &user.FirstName, &user.LastName, &user.Avatar,
		&user.About, &user.Interests, &user.Education, &user.Skills, &user.Experiences,
		&user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

var _ UserRepository = (*PostgresUserRepository)(nil)
