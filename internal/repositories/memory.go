package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stagelink/backend/internal/models"
)

// MemoryStore implements the user, connection and notification repositories in
// process memory. A single mutex guards all three collections, which gives every
// transition the same atomicity the PostgreSQL store gets from transactions.
// It backs STAGELINK_STORAGE=memory and the service tests.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[string]models.User
	edges         map[string]models.ConnectionEdge
	pairs         map[[2]string]string
	notifications map[string]models.Notification
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]models.User),
		edges:         make(map[string]models.ConnectionEdge),
		pairs:         make(map[[2]string]string),
		notifications: make(map[string]models.Notification),
	}
}

// Create persists a new user; email and slug must be unique.
func (s *MemoryStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return ErrConflict
	}
	for _, existing := range s.users {
		if existing.Email == user.Email || (user.Slug != "" && existing.Slug == user.Slug) {
			return ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

// FindByEmail fetches a user by email address.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

// FindByID fetches a user by identifier.
func (s *MemoryStore) FindByID(_ context.Context, id string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.ID == id })
}

// FindBySlug fetches a user by profile slug.
func (s *MemoryStore) FindBySlug(_ context.Context, slug string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Slug == slug })
}

func (s *MemoryStore) findUser(match func(models.User) bool) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if match(user) {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

// UpdateAvatar stores the avatar location for a user.
func (s *MemoryStore) UpdateAvatar(_ context.Context, id, avatar string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Avatar = &avatar
	user.UpdatedAt = updatedAt
	s.users[id] = user
	return nil
}

// UpdateProfile replaces the editable profile sections of a user.
func (s *MemoryStore) UpdateProfile(_ context.Context, id string, profile models.Profile, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Profile = profile.Normalized()
	user.UpdatedAt = updatedAt
	s.users[id] = user
	return nil
}

// CreatePending stores a pending edge and its request notice.
func (s *MemoryStore) CreatePending(_ context.Context, edge models.ConnectionEdge, notice models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[edge.UserLow]; !ok {
		return ErrNotFound
	}
	if _, ok := s.users[edge.UserHigh]; !ok {
		return ErrNotFound
	}

	key := [2]string{edge.UserLow, edge.UserHigh}
	if _, exists := s.pairs[key]; exists {
		return ErrConflict
	}
	if s.hasRequestNoticeLocked(notice) {
		return ErrConflict
	}

	s.edges[edge.ID] = edge
	s.pairs[key] = edge.ID
	s.notifications[notice.ID] = notice
	return nil
}

// FindByPair returns the edge between a and b.
func (s *MemoryStore) FindByPair(_ context.Context, a, b string) (models.ConnectionEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	low, high := models.CanonicalPair(a, b)
	id, ok := s.pairs[[2]string{low, high}]
	if !ok {
		return models.ConnectionEdge{}, ErrNotFound
	}
	return s.edges[id], nil
}

// FindEdge returns the edge with the provided identifier.
func (s *MemoryStore) FindEdge(_ context.Context, id string) (models.ConnectionEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[id]
	if !ok {
		return models.ConnectionEdge{}, ErrNotFound
	}
	return edge, nil
}

// Accept promotes a pending edge when responder is its recipient.
func (s *MemoryStore) Accept(_ context.Context, edgeID, responder string, notice models.Notification) (models.ConnectionEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[edgeID]
	if !ok || !respondable(edge, responder) {
		return models.ConnectionEdge{}, ErrNotFound
	}

	edge.State = models.EdgeAccepted
	edge.UpdatedAt = notice.CreatedAt
	s.edges[edgeID] = edge

	for id, n := range s.notifications {
		if n.Type == models.NotificationConnectionRequest && refersTo(n, edgeID) {
			delete(s.notifications, id)
		}
	}
	s.notifications[notice.ID] = notice
	return edge, nil
}

// Reject deletes a pending edge when responder is its recipient.
func (s *MemoryStore) Reject(_ context.Context, edgeID, responder string) (models.ConnectionEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[edgeID]
	if !ok || !respondable(edge, responder) {
		return models.ConnectionEdge{}, ErrNotFound
	}
	s.deleteEdgeLocked(edge)
	return edge, nil
}

// DeleteByPair removes the edge between a and b in any state.
func (s *MemoryStore) DeleteByPair(_ context.Context, a, b string) (models.ConnectionEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	low, high := models.CanonicalPair(a, b)
	id, ok := s.pairs[[2]string{low, high}]
	if !ok {
		return models.ConnectionEdge{}, ErrNotFound
	}
	edge := s.edges[id]
	s.deleteEdgeLocked(edge)
	return edge, nil
}

// ListConnected returns users holding an accepted edge with userID, most
// recently connected first.
func (s *MemoryStore) ListConnected(_ context.Context, userID string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var edges []models.ConnectionEdge
	for _, edge := range s.edges {
		if edge.State == models.EdgeAccepted && edge.Involves(userID) {
			edges = append(edges, edge)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].UpdatedAt.After(edges[j].UpdatedAt) })

	users := make([]models.User, 0, len(edges))
	for _, edge := range edges {
		user, ok := s.users[edge.Other(userID)]
		if !ok {
			continue
		}
		user.Password = ""
		users = append(users, user)
	}
	return users, nil
}

// ListForRecipient returns the newest notices for userID.
func (s *MemoryStore) ListForRecipient(_ context.Context, userID string) ([]models.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.NotificationRecord
	for _, n := range s.notifications {
		if n.Recipient != userID {
			continue
		}
		subject, ok := s.users[n.SubjectUser]
		if !ok {
			continue
		}
		subject.Password = ""
		rec := models.NotificationRecord{Notification: n, Subject: subject}
		if n.RelatedEdgeID != nil {
			if edge, ok := s.edges[*n.RelatedEdgeID]; ok {
				state := edge.State
				rec.EdgeState = &state
			}
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if len(records) > maxInboxSize {
		records = records[:maxInboxSize]
	}
	return records, nil
}

// MarkAllSeen flags every notice for userID as seen.
func (s *MemoryStore) MarkAllSeen(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.notifications {
		if n.Recipient == userID && !n.Seen {
			n.Seen = true
			s.notifications[id] = n
		}
	}
	return nil
}

// HasUnseen reports whether userID has unseen notices.
func (s *MemoryStore) HasUnseen(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if n.Recipient == userID && !n.Seen {
			return true, nil
		}
	}
	return false, nil
}

// EdgeCount returns how many edges exist for the unordered pair. Useful for tests.
func (s *MemoryStore) EdgeCount(a, b string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	low, high := models.CanonicalPair(a, b)
	count := 0
	for _, edge := range s.edges {
		if edge.UserLow == low && edge.UserHigh == high {
			count++
		}
	}
	return count
}

// NotificationsReferencing returns how many notices point at edgeID. Useful for tests.
func (s *MemoryStore) NotificationsReferencing(edgeID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.notifications {
		if refersTo(n, edgeID) {
			count++
		}
	}
	return count
}

func (s *MemoryStore) deleteEdgeLocked(edge models.ConnectionEdge) {
	delete(s.edges, edge.ID)
	delete(s.pairs, [2]string{edge.UserLow, edge.UserHigh})
	for id, n := range s.notifications {
		if refersTo(n, edge.ID) {
			delete(s.notifications, id)
		}
	}
}

func (s *MemoryStore) hasRequestNoticeLocked(notice models.Notification) bool {
	if notice.Type != models.NotificationConnectionRequest || notice.RelatedEdgeID == nil {
		return false
	}
	for _, n := range s.notifications {
		if n.Type == notice.Type && n.Recipient == notice.Recipient && refersTo(n, *notice.RelatedEdgeID) {
			return true
		}
	}
	return false
}

func respondable(edge models.ConnectionEdge, responder string) bool {
	return edge.State == models.EdgePending && edge.Involves(responder) && edge.Initiator != responder
}

func refersTo(n models.Notification, edgeID string) bool {
	return n.RelatedEdgeID != nil && *n.RelatedEdgeID == edgeID
}

var (
	_ UserRepository         = (*MemoryStore)(nil)
	_ ConnectionRepository   = (*MemoryStore)(nil)
	_ NotificationRepository = (*MemoryStore)(nil)
)
