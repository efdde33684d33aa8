package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stagelink/backend/internal/auth"
	"github.com/stagelink/backend/internal/models"
)

func TestAuthHandlerSignUp(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/signup", "", signUpRequest{
		Email:     "Mia@Example.com",
		Password:  "supersafe",
		FirstName: "Mia",
		LastName:  "Strings",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	resp := decodeBody[authResponse](t, rec)
	if resp.Token == "" || resp.ExpiresAt.IsZero() {
		t.Fatalf("expected token to be issued, got %+v", resp)
	}
	if !strings.HasPrefix(resp.User.Slug, "mia-strings-") || len(resp.User.Slug) != len("mia-strings-")+slugSuffixLength {
		t.Fatalf("expected slug derived from name, got %q", resp.User.Slug)
	}

	userID, err := auth.NewManager("test-secret", time.Hour).Verify(resp.Token)
	if err != nil || userID != resp.User.ID {
		t.Fatalf("expected token for %s, got %s (%v)", resp.User.ID, userID, err)
	}

	stored, err := env.store.FindByEmail(context.Background(), "mia@example.com")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe")) != nil {
		t.Fatal("stored password is not hashed")
	}
}

func TestAuthHandlerSignUpValidation(t *testing.T) {
	env := newTestEnv(t, "taken")

	tests := []struct {
		name   string
		body   signUpRequest
		status int
	}{
		{name: "missing email", body: signUpRequest{Password: "supersafe"}, status: http.StatusBadRequest},
		{name: "bad email", body: signUpRequest{Email: "nope", Password: "supersafe"}, status: http.StatusBadRequest},
		{name: "short password", body: signUpRequest{Email: "a@example.com", Password: "short"}, status: http.StatusBadRequest},
		{name: "duplicate", body: signUpRequest{Email: "taken@example.com", Password: "supersafe"}, status: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/signup", "", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	env := newTestEnv(t)

	hashed, err := bcrypt.GenerateFromPassword([]byte("supersafe"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := env.store.Create(context.Background(), models.User{ID: "u1", Email: "login@example.com", Password: string(hashed), Slug: "login"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	tests := []struct {
		name   string
		body   loginRequest
		status int
	}{
		{name: "valid", body: loginRequest{Email: "LOGIN@example.com", Password: "supersafe"}, status: http.StatusOK},
		{name: "wrong password", body: loginRequest{Email: "login@example.com", Password: "nope"}, status: http.StatusUnauthorized},
		{name: "unknown email", body: loginRequest{Email: "ghost@example.com", Password: "supersafe"}, status: http.StatusUnauthorized},
		{name: "empty", body: loginRequest{}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/login", "", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d got %d", tt.status, rec.Code)
			}
			if tt.status == http.StatusOK {
				resp := decodeBody[authResponse](t, rec)
				if resp.User.ID != "u1" || resp.Token == "" {
					t.Fatalf("unexpected login response: %+v", resp)
				}
			}
		})
	}

	if rec := env.do(t, http.MethodGet, "/api/login", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}
}

func TestProfileSlug(t *testing.T) {
	tests := []struct {
		first, last, email string
		want               string
	}{
		{first: "Ada", last: "Lovelace", email: "ada@example.com", want: "ada-lovelace-abc123"},
		{first: "", last: "", email: "drum.kid@example.com", want: "drum-kid-abc123"},
		{first: "Zoë", last: "", email: "z@example.com", want: "zo-abc123"},
		{first: "!!", last: "", email: "@example.com", want: "musician-abc123"},
	}

	for _, tt := range tests {
		if got := profileSlug(tt.first, tt.last, tt.email, "abc123"); got != tt.want {
			t.Fatalf("profileSlug(%q, %q, %q) = %q want %q", tt.first, tt.last, tt.email, got, tt.want)
		}
	}
}
