package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stagelink/backend/internal/config"
)

func TestAvatarKey(t *testing.T) {
	key, err := AvatarKey("user-1", "image/PNG")
	if err != nil {
		t.Fatalf("avatar key: %v", err)
	}
	if !strings.HasPrefix(key, "avatars/user-1/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}

	other, err := AvatarKey("user-1", "image/png")
	if err != nil {
		t.Fatalf("avatar key: %v", err)
	}
	if other == key {
		t.Fatal("expected each upload to get a fresh key")
	}

	if _, err := AvatarKey("user-1", "application/pdf"); err == nil {
		t.Fatal("expected error for unsupported content type")
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base string
		key  string
		want string
	}{
		{base: "", key: "avatars/a.png", want: "avatars/a.png"},
		{base: "https://cdn.example.com", key: "avatars/a.png", want: "https://cdn.example.com/avatars/a.png"},
		{base: "https://cdn.example.com", key: "/avatars/a.png", want: "https://cdn.example.com/avatars/a.png"},
	}
	for _, tt := range tests {
		if got := PublicURL(tt.base, tt.key); got != tt.want {
			t.Fatalf("PublicURL(%q, %q) = %q, want %q", tt.base, tt.key, got, tt.want)
		}
	}
}

func TestNewS3StorageRequiresBucket(t *testing.T) {
	if _, err := NewS3Storage(context.Background(), config.ObjectStoreConfig{Region: "us-east-1"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestNewS3StorageWithEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	store, err := NewS3Storage(context.Background(), config.ObjectStoreConfig{
		Bucket:        "avatars",
		Endpoint:      "http://localhost:9000",
		Region:        "us-east-1",
		PublicBaseURL: "http://localhost:9000/avatars/",
	})
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	if store.baseURL != "http://localhost:9000/avatars" {
		t.Fatalf("expected trailing slash trimmed, got %q", store.baseURL)
	}
}
