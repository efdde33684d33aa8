package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLoggedOut is returned by a Session after Logout.
var ErrLoggedOut = errors.New("session logged out")

// Session is the signed-in state of one client: its bearer token, the current
// user and the notification badge. It exists from login until Logout.
type Session struct {
	mu        sync.Mutex
	api       *HTTP
	user      User
	expiresAt time.Time
	badge     bool
	closed    bool
}

// Login signs in and opens a session.
func Login(ctx context.Context, api *HTTP, email, password string) (*Session, error) {
	res, err := api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return open(ctx, api, res), nil
}

// SignUp creates an account and opens a session for it.
func SignUp(ctx context.Context, api *HTTP, in SignUpInput) (*Session, error) {
	res, err := api.SignUp(ctx, in)
	if err != nil {
		return nil, err
	}
	return open(ctx, api, res), nil
}

func open(ctx context.Context, api *HTTP, res AuthResult) *Session {
	s := &Session{api: api.WithToken(res.Token), user: res.User, expiresAt: res.ExpiresAt}
	// A failed badge probe leaves the badge off until the next refresh.
	_ = s.RefreshBadge(ctx)
	return s
}

// API returns the authenticated client.
func (s *Session) API() (*HTTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrLoggedOut
	}
	return s.api, nil
}

// User returns the signed-in user.
func (s *Session) User() User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// ExpiresAt returns when the bearer token stops being accepted.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Badge reports whether the navigation shows unseen notifications.
func (s *Session) Badge() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.badge
}

// ClearBadge hides the badge locally.
func (s *Session) ClearBadge() {
	s.mu.Lock()
	s.badge = false
	s.mu.Unlock()
}

// RefreshBadge asks the server whether unseen notifications exist.
func (s *Session) RefreshBadge(ctx context.Context) error {
	api, err := s.API()
	if err != nil {
		return err
	}
	unseen, err := api.HasUnseen(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.badge = unseen
	s.mu.Unlock()
	return nil
}

// Logout tears the session down. Later calls through it fail with ErrLoggedOut.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.api = nil
	s.user = User{}
	s.badge = false
}
