package client

import (
	"context"
	"errors"
	"sync"

	"github.com/stagelink/backend/internal/notifications"
)

// ErrNotActionable is returned when accepting or rejecting a notice that does
// not carry a pending connection.
var ErrNotActionable = errors.New("notification has no pending connection")

// NotificationView is the notifications page of a session.
type NotificationView struct {
	mu      sync.Mutex
	session *Session
	items   []notifications.Display
}

// NewNotificationView binds a view to session.
func NewNotificationView(session *Session) *NotificationView {
	return &NotificationView{session: session}
}

// Open clears the badge and fetches the inbox.
func (v *NotificationView) Open(ctx context.Context) error {
	v.session.ClearBadge()
	return v.refresh(ctx)
}

// Items returns a copy of the notices currently shown.
func (v *NotificationView) Items() []notifications.Display {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]notifications.Display(nil), v.items...)
}

// Accept approves the request behind item and refetches.
func (v *NotificationView) Accept(ctx context.Context, item notifications.Display) error {
	return v.respond(ctx, item, true)
}

// Reject declines the request behind item and refetches.
func (v *NotificationView) Reject(ctx context.Context, item notifications.Display) error {
	return v.respond(ctx, item, false)
}

func (v *NotificationView) respond(ctx context.Context, item notifications.Display, accept bool) error {
	if !item.Actionable() {
		return ErrNotActionable
	}
	api, err := v.session.API()
	if err != nil {
		return err
	}
	if err := api.RespondToRequest(ctx, *item.ConnectionID, accept); err != nil {
		return err
	}
	return v.refresh(ctx)
}

func (v *NotificationView) refresh(ctx context.Context) error {
	api, err := v.session.API()
	if err != nil {
		return err
	}
	items, err := api.Notifications(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.items = items
	v.mu.Unlock()
	return nil
}
