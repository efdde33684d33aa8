package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagelink/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		// The in-memory store tests still run; the Postgres tests skip.
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(m.Run())
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndUpdateAvatar(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := models.User{
		ID:        uuid.NewString(),
		Email:     "ada@example.com",
		Password:  "secret-hash",
		Slug:      "ada-bass",
		FirstName: "Ada",
		LastName:  "Marsh",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := user
	dup.ID = uuid.NewString()
	dup.Slug = "other-slug"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate email, got %v", err)
	}

	fetched, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if fetched.ID != user.ID || fetched.Password != user.Password || fetched.Avatar != nil {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}

	bySlug, err := repo.FindBySlug(ctx, user.Slug)
	if err != nil {
		t.Fatalf("find by slug: %v", err)
	}
	if bySlug.ID != user.ID {
		t.Fatalf("expected slug lookup to return %s, got %s", user.ID, bySlug.ID)
	}

	if err := repo.UpdateAvatar(ctx, user.ID, "https://cdn.example.com/ada.png", now.Add(time.Minute)); err != nil {
		t.Fatalf("update avatar: %v", err)
	}

	fetched, err = repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.Avatar == nil || *fetched.Avatar != "https://cdn.example.com/ada.png" {
		t.Fatalf("expected avatar to persist, got %+v", fetched.Avatar)
	}

	if err := repo.UpdateAvatar(ctx, uuid.NewString(), "x", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}

	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestPostgresUserRepository_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	now := time.Now().UTC().Truncate(time.Millisecond)
	user := models.User{ID: uuid.NewString(), Email: "ben@example.com", Password: "hash", Slug: "ben-drums", CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if len(fetched.Interests) != 0 || len(fetched.Experiences) != 0 {
		t.Fatalf("expected empty profile sections for a new user, got %+v", fetched.Profile)
	}

	profile := models.Profile{
		About:       "Jazz drummer.",
		Interests:   []models.ProfileEntry{{Name: "Bebop"}},
		Education:   []models.ProfileEntry{{Name: "Berklee", Date: "2012"}},
		Experiences: []models.ProfileEntry{{Name: "Touring drummer", Date: "2014-2019"}},
	}
	if err := repo.UpdateProfile(ctx, user.ID, profile, now.Add(time.Minute)); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	fetched, err = repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if !reflect.DeepEqual(fetched.Profile, profile.Normalized()) {
		t.Fatalf("expected profile %+v got %+v", profile.Normalized(), fetched.Profile)
	}

	if err := repo.UpdateProfile(ctx, uuid.NewString(), profile, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}
}

func TestPostgresConnectionRepository_RequestAcceptRemove(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	repo := NewPostgresConnectionRepository(testPool)
	inbox := NewPostgresNotificationRepository(testPool)

	alice := createTestUser(t, userRepo, "alice@example.com")
	bob := createTestUser(t, userRepo, "bob@example.com")

	now := time.Now().UTC().Truncate(time.Millisecond)
	edge := models.NewEdge(uuid.NewString(), alice.ID, bob.ID, now)
	if err := repo.CreatePending(ctx, edge, requestNotice(edge, now)); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	reverse := models.NewEdge(uuid.NewString(), bob.ID, alice.ID, now)
	if err := repo.CreatePending(ctx, reverse, requestNotice(reverse, now)); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for second edge on the pair, got %v", err)
	}

	found, err := repo.FindByPair(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("find by pair: %v", err)
	}
	if found.ID != edge.ID || found.State != models.EdgePending || found.Initiator != alice.ID {
		t.Fatalf("unexpected edge: %+v", found)
	}

	hasUnseen, err := inbox.HasUnseen(ctx, bob.ID)
	if err != nil {
		t.Fatalf("has unseen: %v", err)
	}
	if !hasUnseen {
		t.Fatal("expected bob to have an unseen request")
	}

	if _, err := repo.Accept(ctx, edge.ID, alice.ID, acceptedNotice(edge, now)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected initiator accept to match nothing, got %v", err)
	}

	accepted, err := repo.Accept(ctx, edge.ID, bob.ID, acceptedNotice(edge, now.Add(time.Second)))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.State != models.EdgeAccepted {
		t.Fatalf("expected accepted edge, got %s", accepted.State)
	}

	if _, err := repo.Accept(ctx, edge.ID, bob.ID, acceptedNotice(edge, now)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second accept to return ErrNotFound, got %v", err)
	}

	bobInbox, err := inbox.ListForRecipient(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list bob inbox: %v", err)
	}
	if len(bobInbox) != 0 {
		t.Fatalf("expected request notice to be resolved, got %d notices", len(bobInbox))
	}

	aliceInbox, err := inbox.ListForRecipient(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list alice inbox: %v", err)
	}
	if len(aliceInbox) != 1 || aliceInbox[0].Type != models.NotificationConnectionAccepted || aliceInbox[0].Subject.ID != bob.ID {
		t.Fatalf("unexpected alice inbox: %+v", aliceInbox)
	}

	connected, err := repo.ListConnected(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list connected: %v", err)
	}
	if len(connected) != 1 || connected[0].ID != bob.ID || connected[0].Password != "" {
		t.Fatalf("unexpected connections: %+v", connected)
	}

	if _, err := repo.DeleteByPair(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("delete by pair: %v", err)
	}
	if _, err := repo.DeleteByPair(ctx, bob.ID, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}

	aliceInbox, err = inbox.ListForRecipient(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list alice inbox after delete: %v", err)
	}
	if len(aliceInbox) != 0 {
		t.Fatalf("expected notices referencing the deleted edge to be gone, got %d", len(aliceInbox))
	}
}

func TestPostgresConnectionRepository_RejectDeletesEdgeAndNotice(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	repo := NewPostgresConnectionRepository(testPool)
	inbox := NewPostgresNotificationRepository(testPool)

	carol := createTestUser(t, userRepo, "carol@example.com")
	dave := createTestUser(t, userRepo, "dave@example.com")

	now := time.Now().UTC()
	edge := models.NewEdge(uuid.NewString(), carol.ID, dave.ID, now)
	if err := repo.CreatePending(ctx, edge, requestNotice(edge, now)); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	if _, err := repo.Reject(ctx, edge.ID, carol.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected initiator reject to match nothing, got %v", err)
	}

	if _, err := repo.Reject(ctx, edge.ID, dave.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := repo.FindEdge(ctx, edge.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected rejected edge to be gone, got %v", err)
	}

	notices, err := inbox.ListForRecipient(ctx, dave.ID)
	if err != nil {
		t.Fatalf("list inbox: %v", err)
	}
	if len(notices) != 0 {
		t.Fatalf("expected no notices after reject, got %d", len(notices))
	}
}

func TestPostgresNotificationRepository_MarkAllSeen(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	repo := NewPostgresConnectionRepository(testPool)
	inbox := NewPostgresNotificationRepository(testPool)

	target := createTestUser(t, userRepo, "target@example.com")
	first := createTestUser(t, userRepo, "first@example.com")
	second := createTestUser(t, userRepo, "second@example.com")

	base := time.Now().UTC().Add(-time.Hour)
	for i, requester := range []models.User{first, second} {
		at := base.Add(time.Duration(i) * time.Minute)
		edge := models.NewEdge(uuid.NewString(), requester.ID, target.ID, at)
		if err := repo.CreatePending(ctx, edge, requestNotice(edge, at)); err != nil {
			t.Fatalf("create pending %d: %v", i, err)
		}
	}

	notices, err := inbox.ListForRecipient(ctx, target.ID)
	if err != nil {
		t.Fatalf("list inbox: %v", err)
	}
	if len(notices) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(notices))
	}
	if notices[0].Subject.ID != second.ID {
		t.Fatalf("expected newest notice first, got subject %s", notices[0].Subject.ID)
	}
	if notices[0].EdgeState == nil || *notices[0].EdgeState != models.EdgePending {
		t.Fatalf("expected pending edge state on request notice, got %v", notices[0].EdgeState)
	}

	if err := inbox.MarkAllSeen(ctx, target.ID); err != nil {
		t.Fatalf("mark all seen: %v", err)
	}
	if err := inbox.MarkAllSeen(ctx, target.ID); err != nil {
		t.Fatalf("mark all seen twice: %v", err)
	}

	hasUnseen, err := inbox.HasUnseen(ctx, target.ID)
	if err != nil {
		t.Fatalf("has unseen: %v", err)
	}
	if hasUnseen {
		t.Fatal("expected no unseen notices after marking seen")
	}
}

func requestNotice(edge models.ConnectionEdge, at time.Time) models.Notification {
	id := edge.ID
	return models.Notification{
		ID:            uuid.NewString(),
		Recipient:     edge.Recipient(),
		Type:          models.NotificationConnectionRequest,
		SubjectUser:   edge.Initiator,
		RelatedEdgeID: &id,
		Title:         "wants to connect with you",
		CreatedAt:     at,
	}
}

func acceptedNotice(edge models.ConnectionEdge, at time.Time) models.Notification {
	id := edge.ID
	return models.Notification{
		ID:            uuid.NewString(),
		Recipient:     edge.Initiator,
		Type:          models.NotificationConnectionAccepted,
		SubjectUser:   edge.Recipient(),
		RelatedEdgeID: &id,
		Title:         "accepted your connection request",
		CreatedAt:     at,
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	if testPool == nil {
		t.Skip("cockroach test server unavailable")
	}
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE notifications, connections, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, email string) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  "password-hash",
		Slug:      email,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}
