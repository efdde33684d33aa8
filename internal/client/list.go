package client

import (
	"context"
	"sync"
)

// ConnectionListAPI is what a ConnectionList needs from the server.
type ConnectionListAPI interface {
	Connections(ctx context.Context) ([]User, error)
	RemoveConnection(ctx context.Context, userID string) error
}

// ConnectionList is the "my connections" view. It does not notify profile
// buttons of removals; they catch up on their next mount.
type ConnectionList struct {
	mu    sync.Mutex
	api   ConnectionListAPI
	users []User
}

// NewConnectionList returns an empty list bound to api. Call Load to fill it.
func NewConnectionList(api ConnectionListAPI) *ConnectionList {
	return &ConnectionList{api: api}
}

// Load replaces the list with the server's.
func (l *ConnectionList) Load(ctx context.Context) error {
	users, err := l.api.Connections(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.users = users
	l.mu.Unlock()
	return nil
}

// Users returns a copy of the current list.
func (l *ConnectionList) Users() []User {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]User(nil), l.users...)
}

// Remove deletes the connection with userID and refetches the list.
func (l *ConnectionList) Remove(ctx context.Context, userID string) error {
	if err := l.api.RemoveConnection(ctx, userID); err != nil {
		return err
	}
	return l.Load(ctx)
}
