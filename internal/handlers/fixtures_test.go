package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stagelink/backend/internal/auth"
	"github.com/stagelink/backend/internal/connections"
	"github.com/stagelink/backend/internal/models"
	"github.com/stagelink/backend/internal/notifications"
	"github.com/stagelink/backend/internal/repositories"
)

type testEnv struct {
	store *repositories.MemoryStore
	mux   *http.ServeMux
}

func newTestEnv(t *testing.T, users ...string) testEnv {
	t.Helper()

	store := repositories.NewMemoryStore()
	for _, id := range users {
		user := models.User{ID: id, Email: id + "@example.com", Password: "hash", Slug: id + "-slug", FirstName: id, CreatedAt: time.Now()}
		if err := store.Create(context.Background(), user); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}

	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Users:         store,
		Tokens:        auth.NewManager("test-secret", time.Hour),
		Connections:   &connections.Service{Users: store, Store: store},
		Notifications: notifications.Delivery{Inbox: store},
	})
	return testEnv{store: store, mux: mux}
}

func (e testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	reader := bytes.NewReader(nil)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req = withUser(req, userID)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}
