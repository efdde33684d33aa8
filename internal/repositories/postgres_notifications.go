package repositories

import (
	"context"
	"fmt"

	"github.com/stagelink/backend/internal/db"
	"github.com/stagelink/backend/internal/models"
)

// maxInboxSize bounds how many notices a single inbox read returns.
const maxInboxSize = 200

// PostgresNotificationRepository reads user inboxes from PostgreSQL.
type PostgresNotificationRepository struct {
	pool db.Pool
}

// NewPostgresNotificationRepository constructs a notification repository backed by PostgreSQL.
func NewPostgresNotificationRepository(pool db.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: pool}
}

// ListForRecipient returns the newest notices for userID joined with their subject
// user and the state of the referenced edge.
func (r *PostgresNotificationRepository) ListForRecipient(ctx context.Context, userID string) ([]models.NotificationRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT n.id, n.recipient_id, n.type, n.subject_user_id, n.connection_id, n.title, n.seen, n.created_at,
               u.id, u.email, u.slug, u.first_name, u.last_name, u.avatar, u.about, u.created_at, u.updated_at,
               c.state
        FROM notifications n
        JOIN users u ON u.id = n.subject_user_id
        LEFT JOIN connections c ON c.id = n.connection_id
        WHERE n.recipient_id = $1
        ORDER BY n.created_at DESC, n.id DESC
        LIMIT $2
    `, userID, maxInboxSize)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var (
			rec       models.NotificationRecord
			kind      string
			edgeState *string
		)
		if err := rows.Scan(
			&rec.ID, &rec.Recipient, &kind, &rec.SubjectUser, &rec.RelatedEdgeID, &rec.Title, &rec.Seen, &rec.CreatedAt,
			&rec.Subject.ID, &rec.Subject.Email, &rec.Subject.Slug, &rec.Subject.FirstName, &rec.Subject.LastName, &rec.Subject.Avatar, &rec.Subject.About, &rec.Subject.CreatedAt, &rec.Subject.UpdatedAt,
			&edgeState,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		rec.Type = models.NotificationType(kind)
		if edgeState != nil {
			state := models.EdgeState(*edgeState)
			rec.EdgeState = &state
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return records, nil
}

// MarkAllSeen flags every unseen notice for userID as seen.
func (r *PostgresNotificationRepository) MarkAllSeen(ctx context.Context, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        UPDATE notifications
        SET seen = true
        WHERE recipient_id = $1 AND seen = false
    `, userID); err != nil {
		return fmt.Errorf("mark notifications seen: %w", err)
	}
	return nil
}

// HasUnseen reports whether userID has any notice not yet seen.
func (r *PostgresNotificationRepository) HasUnseen(ctx context.Context, userID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM notifications WHERE recipient_id = $1 AND seen = false)
    `, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check unseen notifications: %w", err)
	}
	return exists, nil
}

var _ NotificationRepository = (*PostgresNotificationRepository)(nil)
