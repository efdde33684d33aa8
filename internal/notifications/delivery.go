package notifications

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/stagelink/backend/internal/logging"
	"github.com/stagelink/backend/internal/models"
)

// Inbox is the notification persistence Delivery reads from.
type Inbox interface {
	ListForRecipient(ctx context.Context, userID string) ([]models.NotificationRecord, error)
	MarkAllSeen(ctx context.Context, userID string) error
	HasUnseen(ctx context.Context, userID string) (bool, error)
}

// Subject is the identity a notice is about, rendered as avatar and name.
type Subject struct {
	ID        string  `json:"id"`
	Slug      string  `json:"slug"`
	FirstName string  `json:"firstName,omitempty"`
	LastName  string  `json:"lastName,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

// Display is a notice resolved for rendering.
type Display struct {
	ID           string                  `json:"id"`
	Type         models.NotificationType `json:"type"`
	Title        string                  `json:"title"`
	Subject      Subject                 `json:"connectionUser"`
	ConnectionID *string                 `json:"connectionId,omitempty"`
	Seen         bool                    `json:"seen"`
	CreatedAt    time.Time               `json:"createdAt"`
}

// Actionable reports whether the notice carries accept/reject actions.
func (d Display) Actionable() bool {
	return d.Type == models.NotificationConnectionRequest && d.ConnectionID != nil
}

// Feed is a single read of an inbox. It can be ranged over once.
type Feed struct {
	records  []models.NotificationRecord
	consumed atomic.Bool
}

// All yields the notices newest first. Only the first call yields anything.
func (f *Feed) All() iter.Seq[Display] {
	return func(yield func(Display) bool) {
		if f == nil || f.consumed.Swap(true) {
			return
		}
		for _, rec := range f.records {
			display, ok := resolve(rec)
			if !ok {
				continue
			}
			if !yield(display) {
				return
			}
		}
	}
}

// Collect drains the feed into a slice.
func (f *Feed) Collect() []Display {
	out := []Display{}
	for d := range f.All() {
		out = append(out, d)
	}
	return out
}

// Delivery resolves inboxes into display records.
type Delivery struct {
	Inbox Inbox
}

// List loads the inbox for userID. Request notices whose edge is no longer
// pending are dropped while the feed is ranged over.
func (d Delivery) List(ctx context.Context, userID string) (*Feed, error) {
	ctx, span := logging.StartSpan(ctx, "notifications.list")
	defer span.End()

	records, err := d.Inbox.ListForRecipient(ctx, userID)
	if err != nil {
		span.Fail(err)
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return &Feed{records: records}, nil
}

// MarkAllSeen clears the unseen flag on every notice for userID.
func (d Delivery) MarkAllSeen(ctx context.Context, userID string) error {
	if err := d.Inbox.MarkAllSeen(ctx, userID); err != nil {
		return fmt.Errorf("mark notifications seen: %w", err)
	}
	return nil
}

// HasUnseen reports whether the navigation badge should be shown for userID.
func (d Delivery) HasUnseen(ctx context.Context, userID string) (bool, error) {
	unseen, err := d.Inbox.HasUnseen(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check unseen notifications: %w", err)
	}
	return unseen, nil
}

func resolve(rec models.NotificationRecord) (Display, bool) {
	if rec.Type == models.NotificationConnectionRequest {
		if rec.RelatedEdgeID == nil || rec.EdgeState == nil || *rec.EdgeState != models.EdgePending {
			return Display{}, false
		}
	}

	return Display{
		ID:    rec.ID,
		Type:  rec.Type,
		Title: rec.Title,
		Subject: Subject{
			ID:        rec.Subject.ID,
			Slug:      rec.Subject.Slug,
			FirstName: rec.Subject.FirstName,
			LastName:  rec.Subject.LastName,
			Avatar:    rec.Subject.Avatar,
		},
		ConnectionID: rec.RelatedEdgeID,
		Seen:         rec.Seen,
		CreatedAt:    rec.CreatedAt,
	}, true
}
