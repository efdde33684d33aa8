package repositories

import (
	"context"
	"errors"
	"fmt"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/stagelink/backend/internal/db"
	"github.com/stagelink/backend/internal/models"
)

const edgeColumns = `id, user_low, user_high, initiator_id, state, created_at, updated_at`

// PostgresConnectionRepository stores connection edges and the notices their
// transitions produce. Transitions run through crdbpgx.ExecuteTx so that
// serialization failures are retried inside the store.
type PostgresConnectionRepository struct {
	pool db.Pool
}

// NewPostgresConnectionRepository constructs a connection repository backed by PostgreSQL.
func NewPostgresConnectionRepository(pool db.Pool) *PostgresConnectionRepository {
	return &PostgresConnectionRepository{pool: pool}
}

// CreatePending inserts a pending edge and the recipient's request notice.
func (r *PostgresConnectionRepository) CreatePending(ctx context.Context, edge models.ConnectionEdge, notice models.Notification) error {
	err := crdbpgx.ExecuteTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            INSERT INTO connections (id, user_low, user_high, initiator_id, state, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `, edge.ID, edge.UserLow, edge.UserHigh, edge.Initiator, string(edge.State), edge.CreatedAt, edge.UpdatedAt); err != nil {
			return err
		}
		return insertNotification(ctx, tx, notice)
	})
	if err != nil {
		if mapped, ok := classifyPgError(err); ok {
			return mapped
		}
		return fmt.Errorf("insert connection request: %w", err)
	}
	return nil
}

// FindByPair returns the edge between a and b regardless of argument order.
func (r *PostgresConnectionRepository) FindByPair(ctx context.Context, a, b string) (models.ConnectionEdge, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ConnectionEdge{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	low, high := models.CanonicalPair(a, b)
	edge, err := scanEdge(conn.QueryRow(ctx, `
        SELECT `+edgeColumns+`
        FROM connections
        WHERE user_low = $1 AND user_high = $2
    `, low, high))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ConnectionEdge{}, ErrNotFound
		}
		return models.ConnectionEdge{}, fmt.Errorf("select connection by pair: %w", err)
	}
	return edge, nil
}

// FindEdge returns the edge with the provided identifier.
func (r *PostgresConnectionRepository) FindEdge(ctx context.Context, id string) (models.ConnectionEdge, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ConnectionEdge{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	edge, err := scanEdge(conn.QueryRow(ctx, `
        SELECT `+edgeColumns+`
        FROM connections
        WHERE id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ConnectionEdge{}, ErrNotFound
		}
		return models.ConnectionEdge{}, fmt.Errorf("select connection: %w", err)
	}
	return edge, nil
}

// Accept promotes a pending edge to accepted. The guard in the UPDATE is the
// serialization point: two concurrent accepts cannot both match.
func (r *PostgresConnectionRepository) Accept(ctx context.Context, edgeID, responder string, notice models.Notification) (models.ConnectionEdge, error) {
	var edge models.ConnectionEdge
	err := crdbpgx.ExecuteTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		edge, err = scanEdge(tx.QueryRow(ctx, `
            UPDATE connections
            SET state = $3, updated_at = $4
            WHERE id = $1
              AND state = $5
              AND initiator_id <> $2
              AND (user_low = $2 OR user_high = $2)
            RETURNING `+edgeColumns,
			edgeID, responder, string(models.EdgeAccepted), notice.CreatedAt, string(models.EdgePending)))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
            DELETE FROM notifications
            WHERE connection_id = $1 AND type = $2
        `, edgeID, string(models.NotificationConnectionRequest)); err != nil {
			return err
		}

		return insertNotification(ctx, tx, notice)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ConnectionEdge{}, ErrNotFound
		}
		return models.ConnectionEdge{}, fmt.Errorf("accept connection: %w", err)
	}
	return edge, nil
}

// Reject deletes a pending edge on behalf of its recipient.
func (r *PostgresConnectionRepository) Reject(ctx context.Context, edgeID, responder string) (models.ConnectionEdge, error) {
	var edge models.ConnectionEdge
	err := crdbpgx.ExecuteTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM notifications WHERE connection_id = $1`, edgeID); err != nil {
			return err
		}

		var err error
		edge, err = scanEdge(tx.QueryRow(ctx, `
            DELETE FROM connections
            WHERE id = $1
              AND state = $3
              AND initiator_id <> $2
              AND (user_low = $2 OR user_high = $2)
            RETURNING `+edgeColumns,
			edgeID, responder, string(models.EdgePending)))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ConnectionEdge{}, ErrNotFound
		}
		return models.ConnectionEdge{}, fmt.Errorf("reject connection: %w", err)
	}
	return edge, nil
}

// DeleteByPair removes the edge between a and b in any state.
func (r *PostgresConnectionRepository) DeleteByPair(ctx context.Context, a, b string) (models.ConnectionEdge, error) {
	low, high := models.CanonicalPair(a, b)

	var edge models.ConnectionEdge
	err := crdbpgx.ExecuteTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            DELETE FROM notifications
            WHERE connection_id IN (SELECT id FROM connections WHERE user_low = $1 AND user_high = $2)
        `, low, high); err != nil {
			return err
		}

		var err error
		edge, err = scanEdge(tx.QueryRow(ctx, `
            DELETE FROM connections
            WHERE user_low = $1 AND user_high = $2
            RETURNING `+edgeColumns, low, high))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ConnectionEdge{}, ErrNotFound
		}
		return models.ConnectionEdge{}, fmt.Errorf("delete connection: %w", err)
	}
	return edge, nil
}

// ListConnected returns the users holding an accepted edge with userID, most
// recently connected first.
func (r *PostgresConnectionRepository) ListConnected(ctx context.Context, userID string) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.email, u.password_hash, u.slug, u.first_name, u.last_name, u.avatar, u.about,
               u.interests, u.education, u.skills, u.experiences, u.created_at, u.updated_at
        FROM connections c
        JOIN users u ON u.id = CASE WHEN c.user_low = $1 THEN c.user_high ELSE c.user_low END
        WHERE c.state = $2
          AND (c.user_low = $1 OR c.user_high = $1)
        ORDER BY c.updated_at DESC
    `, userID, string(models.EdgeAccepted))
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connected user: %w", err)
		}
		user.Password = ""
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}

	return users, nil
}

func insertNotification(ctx context.Context, tx pgx.Tx, n models.Notification) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO notifications (id, recipient_id, type, subject_user_id, connection_id, title, seen, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, n.ID, n.Recipient, string(n.Type), n.SubjectUser, n.RelatedEdgeID, n.Title, n.Seen, n.CreatedAt)
	return err
}

func scanEdge(row pgx.Row) (models.ConnectionEdge, error) {
	var (
		edge  models.ConnectionEdge
		state string
	)
	if err := row.Scan(&edge.ID, &edge.UserLow, &edge.UserHigh, &edge.Initiator, &state, &edge.CreatedAt, &edge.UpdatedAt); err != nil {
		return models.ConnectionEdge{}, err
	}
	edge.State = models.EdgeState(state)
	return edge, nil
}

var _ ConnectionRepository = (*PostgresConnectionRepository)(nil)
