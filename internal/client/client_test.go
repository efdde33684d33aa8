package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stagelink/backend/internal/auth"
	"github.com/stagelink/backend/internal/connections"
	"github.com/stagelink/backend/internal/handlers"
	"github.com/stagelink/backend/internal/middleware"
	"github.com/stagelink/backend/internal/models"
	"github.com/stagelink/backend/internal/notifications"
	"github.com/stagelink/backend/internal/repositories"
)

func newTestServer(t *testing.T) *HTTP {
	t.Helper()

	store := repositories.NewMemoryStore()
	tokens := auth.NewManager("client-test-secret", time.Hour)

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, handlers.Dependencies{
		Users:         store,
		Tokens:        tokens,
		Connections:   &connections.Service{Users: store, Store: store},
		Notifications: notifications.Delivery{Inbox: store},
	})

	srv := httptest.NewServer(middleware.Authenticate(tokens)(mux))
	t.Cleanup(srv.Close)
	return NewHTTP(srv.URL, srv.Client())
}

func signUp(t *testing.T, api *HTTP, name string) *Session {
	t.Helper()

	session, err := SignUp(context.Background(), api, SignUpInput{
		Email:     name + "@example.com",
		Password:  "correct horse",
		FirstName: name,
	})
	if err != nil {
		t.Fatalf("sign up %s: %v", name, err)
	}
	return session
}

func mustAPI(t *testing.T, s *Session) *HTTP {
	t.Helper()

	api, err := s.API()
	if err != nil {
		t.Fatalf("session api: %v", err)
	}
	return api
}

func TestConnectionFlowAcrossViews(t *testing.T) {
	ctx := context.Background()
	api := newTestServer(t)
	alice := signUp(t, api, "alice")
	bob := signUp(t, api, "bob")

	aliceButton, err := MountButton(ctx, mustAPI(t, alice), bob.User().ID)
	if err != nil {
		t.Fatalf("mount alice button: %v", err)
	}
	if aliceButton.Label() != LabelConnect || !aliceButton.Interactive() {
		t.Fatalf("expected connect button, got %q", aliceButton.Label())
	}
	if err := aliceButton.Click(ctx); err != nil {
		t.Fatalf("request connection: %v", err)
	}
	if aliceButton.Label() != LabelRequested || aliceButton.Interactive() {
		t.Fatalf("expected requested button, got %q", aliceButton.Label())
	}

	if err := bob.RefreshBadge(ctx); err != nil {
		t.Fatalf("refresh badge: %v", err)
	}
	if !bob.Badge() {
		t.Fatal("expected bob to have a notification badge")
	}

	bobButton, err := MountButton(ctx, mustAPI(t, bob), alice.User().ID)
	if err != nil {
		t.Fatalf("mount bob button: %v", err)
	}
	if bobButton.Label() != LabelApprove {
		t.Fatalf("expected approve button, got %q", bobButton.Label())
	}

	view := NewNotificationView(bob)
	if err := view.Open(ctx); err != nil {
		t.Fatalf("open notifications: %v", err)
	}
	if bob.Badge() {
		t.Fatal("expected badge cleared on open")
	}
	items := view.Items()
	if len(items) != 1 || !items[0].Actionable() || items[0].Subject.ID != alice.User().ID {
		t.Fatalf("unexpected notifications: %+v", items)
	}
	if !strings.Contains(items[0].Title, "wants to connect") {
		t.Fatalf("unexpected title %q", items[0].Title)
	}

	if err := view.Accept(ctx, items[0]); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got := view.Items(); len(got) != 0 {
		t.Fatalf("expected request notice gone after accept, got %+v", got)
	}

	aliceView := NewNotificationView(alice)
	if err := aliceView.Open(ctx); err != nil {
		t.Fatalf("open alice notifications: %v", err)
	}
	if got := aliceView.Items(); len(got) != 1 || got[0].Type != models.NotificationConnectionAccepted || got[0].Actionable() {
		t.Fatalf("expected one accepted notice for alice, got %+v", got)
	}
	if err := aliceView.Accept(ctx, aliceView.Items()[0]); !errors.Is(err, ErrNotActionable) {
		t.Fatalf("expected ErrNotActionable, got %v", err)
	}

	list := NewConnectionList(mustAPI(t, alice))
	if err := list.Load(ctx); err != nil {
		t.Fatalf("load connections: %v", err)
	}
	if users := list.Users(); len(users) != 1 || users[0].ID != bob.User().ID {
		t.Fatalf("unexpected connections: %+v", users)
	}

	if err := list.Remove(ctx, bob.User().ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if users := list.Users(); len(users) != 0 {
		t.Fatalf("expected empty list after removal, got %+v", users)
	}

	// The profile button keeps its own state until it is mounted again.
	if aliceButton.Label() != LabelRequested {
		t.Fatalf("expected stale button label, got %q", aliceButton.Label())
	}
	remounted, err := MountButton(ctx, mustAPI(t, alice), bob.User().ID)
	if err != nil {
		t.Fatalf("remount: %v", err)
	}
	if remounted.Label() != LabelConnect {
		t.Fatalf("expected connect after removal, got %q", remounted.Label())
	}
}

func TestRejectFromNotificationView(t *testing.T) {
	ctx := context.Background()
	api := newTestServer(t)
	alice := signUp(t, api, "alice")
	bob := signUp(t, api, "bob")

	if _, err := mustAPI(t, alice).RequestConnection(ctx, bob.User().ID); err != nil {
		t.Fatalf("request: %v", err)
	}

	view := NewNotificationView(bob)
	if err := view.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := view.Reject(ctx, view.Items()[0]); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if len(view.Items()) != 0 {
		t.Fatalf("expected empty inbox after reject, got %+v", view.Items())
	}

	status, err := mustAPI(t, alice).ConnectionStatus(ctx, bob.User().ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != models.StatusNotConnected {
		t.Fatalf("expected not_connected, got %s", status)
	}
}

type failingConnectionAPI struct {
	status models.ConnectionStatus
	err    error
	calls  int
}

func (f *failingConnectionAPI) ConnectionStatus(context.Context, string) (models.ConnectionStatus, error) {
	return f.status, nil
}

func (f *failingConnectionAPI) RequestConnection(context.Context, string) (models.ConnectionStatus, error) {
	f.calls++
	return "", f.err
}

func (f *failingConnectionAPI) RespondToUser(context.Context, string, bool) error {
	f.calls++
	return f.err
}

func TestConnectionButtonStaysPutOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		status models.ConnectionStatus
		label  string
		calls  int
	}{
		{name: "request fails", status: models.StatusNotConnected, label: LabelConnect, calls: 1},
		{name: "approve fails", status: models.StatusPendingRequest, label: LabelApprove, calls: 1},
		{name: "requested is inert", status: models.StatusRequested, label: LabelRequested, calls: 0},
		{name: "connected is inert", status: models.StatusConnected, label: LabelConnected, calls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &failingConnectionAPI{status: tt.status, err: &APIError{Status: http.StatusConflict, Message: "connection already exists"}}
			button, err := MountButton(context.Background(), api, "other")
			if err != nil {
				t.Fatalf("mount: %v", err)
			}

			err = button.Click(context.Background())
			if tt.calls > 0 && !IsStatus(err, http.StatusConflict) {
				t.Fatalf("expected conflict error, got %v", err)
			}
			if tt.calls == 0 && err != nil {
				t.Fatalf("expected inert click, got %v", err)
			}
			if button.Label() != tt.label || button.Status() != tt.status {
				t.Fatalf("expected button to stay at %q, got %q", tt.label, button.Label())
			}
			if api.calls != tt.calls {
				t.Fatalf("expected %d calls, got %d", tt.calls, api.calls)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	api := newTestServer(t)
	signUp(t, api, "carol")

	_, err := Login(ctx, api, "carol@example.com", "wrong password")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "invalid credentials" {
		t.Fatalf("expected 401 invalid credentials, got %v", err)
	}

	session, err := Login(ctx, api, "carol@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.User().FirstName != "carol" || session.ExpiresAt().Before(time.Now()) {
		t.Fatalf("unexpected session state: %+v", session.User())
	}

	if _, err := mustAPI(t, session).Connections(ctx); err != nil {
		t.Fatalf("authenticated call: %v", err)
	}
	if _, err := api.Connections(ctx); !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected anonymous call to be rejected, got %v", err)
	}

	session.Logout()
	if _, err := session.API(); !errors.Is(err, ErrLoggedOut) {
		t.Fatalf("expected ErrLoggedOut, got %v", err)
	}
	if err := NewNotificationView(session).Open(ctx); !errors.Is(err, ErrLoggedOut) {
		t.Fatalf("expected view to fail after logout, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	api := newTestServer(t)
	dana := signUp(t, api, "dana")

	updated, err := mustAPI(t, dana).UpdateProfile(ctx, ProfileInput{
		About:  "Cellist.",
		Skills: []models.ProfileEntry{{Name: "Sight reading"}},
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.About != "Cellist." || len(updated.Skills) != 1 {
		t.Fatalf("unexpected updated profile: %+v", updated)
	}

	public, err := api.ProfileBySlug(ctx, dana.User().Slug)
	if err != nil {
		t.Fatalf("profile by slug: %v", err)
	}
	if public.About != "Cellist." || len(public.Skills) != 1 || public.Skills[0].Name != "Sight reading" {
		t.Fatalf("expected public profile to reflect update, got %+v", public)
	}

	if _, err := api.UpdateProfile(ctx, ProfileInput{About: "anon"}); !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected anonymous update to be rejected, got %v", err)
	}
}
