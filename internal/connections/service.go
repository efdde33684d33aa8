package connections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stagelink/backend/internal/events"
	"github.com/stagelink/backend/internal/logging"
	"github.com/stagelink/backend/internal/models"
	"github.com/stagelink/backend/internal/repositories"
)

// UserLookup resolves user identities.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Store is the persistence the service drives. Every method is a single atomic
// check-and-write against the pair's edge.
type Store interface {
	CreatePending(ctx context.Context, edge models.ConnectionEdge, notice models.Notification) error
	FindByPair(ctx context.Context, a, b string) (models.ConnectionEdge, error)
	FindEdge(ctx context.Context, id string) (models.ConnectionEdge, error)
	Accept(ctx context.Context, edgeID, responder string, notice models.Notification) (models.ConnectionEdge, error)
	Reject(ctx context.Context, edgeID, responder string) (models.ConnectionEdge, error)
	DeleteByPair(ctx context.Context, a, b string) (models.ConnectionEdge, error)
	ListConnected(ctx context.Context, userID string) ([]models.User, error)
}

// createAttempts bounds how often Request retries when the conflicting edge
// disappears between the failed insert and the follow-up read or accept.
const createAttempts = 3

// Service enforces the request/accept/reject/remove state machine for
// connections between two users.
type Service struct {
	Users     UserLookup
	Store     Store
	Publisher events.Publisher
	NowFunc   func() time.Time
}

// Request creates a pending edge from self to target and notifies target. When
// target already has a pending request out to self, the call accepts it instead.
// It returns the resulting status from self's point of view.
func (s *Service) Request(ctx context.Context, self, target string) (models.ConnectionStatus, error) {
	ctx, span := logging.StartSpan(ctx, "connections.request")
	defer span.End()

	if self == "" || target == "" || self == target {
		return "", ErrInvalidTarget
	}

	requester, err := s.Users.FindByID(ctx, self)
	if err != nil {
		span.Fail(err)
		return "", fmt.Errorf("load requester: %w", err)
	}
	if _, err := s.Users.FindByID(ctx, target); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrInvalidTarget
		}
		span.Fail(err)
		return "", fmt.Errorf("load target: %w", err)
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		now := s.now()
		edge := models.NewEdge(uuid.NewString(), self, target, now)
		notice := newNotice(target, models.NotificationConnectionRequest, requester, edge.ID, now)

		err := s.Store.CreatePending(ctx, edge, notice)
		switch {
		case err == nil:
			s.publish(ctx, events.TopicConnectionRequested, edge, self)
			return models.StatusRequested, nil
		case errors.Is(err, repositories.ErrNotFound):
			return "", ErrInvalidTarget
		case !errors.Is(err, repositories.ErrConflict):
			span.Fail(err)
			return "", fmt.Errorf("create connection request: %w", err)
		}

		existing, err := s.Store.FindByPair(ctx, self, target)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			span.Fail(err)
			return "", fmt.Errorf("load conflicting connection: %w", err)
		}

		if existing.State != models.EdgePending || existing.Initiator != target {
			return "", ErrAlreadyExists
		}

		logging.FromContext(ctx).Info("opposing request collapsed into accept", slog.String("edge_id", existing.ID))
		if err := s.accept(ctx, self, existing); err != nil {
			if errors.Is(err, ErrNotFound) {
				// The opposing request was withdrawn or answered meanwhile.
				continue
			}
			span.Fail(err)
			return "", err
		}
		return models.StatusConnected, nil
	}

	if _, err := s.Store.FindByPair(ctx, self, target); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrContended
		}
		span.Fail(err)
		return "", fmt.Errorf("load conflicting connection: %w", err)
	}
	return "", ErrAlreadyExists
}

// Respond accepts or rejects the pending edge edgeID on behalf of its recipient.
func (s *Service) Respond(ctx context.Context, self, edgeID string, accept bool) error {
	ctx, span := logging.StartSpan(ctx, "connections.respond")
	defer span.End()

	edge, err := s.Store.FindEdge(ctx, edgeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		span.Fail(err)
		return fmt.Errorf("load connection: %w", err)
	}

	if err := s.respond(ctx, self, edge, accept); err != nil {
		span.Fail(err)
		return err
	}
	return nil
}

// RespondToUser accepts or rejects the pending request other sent to self.
func (s *Service) RespondToUser(ctx context.Context, self, other string, accept bool) error {
	ctx, span := logging.StartSpan(ctx, "connections.respond_to_user")
	defer span.End()

	if self == other {
		return ErrInvalidTarget
	}

	edge, err := s.Store.FindByPair(ctx, self, other)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		span.Fail(err)
		return fmt.Errorf("load connection: %w", err)
	}

	if err := s.respond(ctx, self, edge, accept); err != nil {
		span.Fail(err)
		return err
	}
	return nil
}

// Remove deletes the edge between self and other in any state. It cancels an
// outgoing request, revokes an incoming one and severs an accepted connection.
func (s *Service) Remove(ctx context.Context, self, other string) error {
	ctx, span := logging.StartSpan(ctx, "connections.remove")
	defer span.End()

	if self == "" || other == "" || self == other {
		return ErrInvalidTarget
	}

	edge, err := s.Store.DeleteByPair(ctx, self, other)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		span.Fail(err)
		return fmt.Errorf("remove connection: %w", err)
	}

	s.publish(ctx, events.TopicConnectionRemoved, edge, self)
	return nil
}

// Status returns the relationship between self and other as seen by self.
func (s *Service) Status(ctx context.Context, self, other string) (models.ConnectionStatus, error) {
	if self == "" || other == "" || self == other {
		return "", ErrInvalidTarget
	}

	edge, err := s.Store.FindByPair(ctx, self, other)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.StatusNotConnected, nil
		}
		return "", fmt.Errorf("load connection: %w", err)
	}
	return models.StatusFor(&edge, self), nil
}

// Connections lists the users self is connected to.
func (s *Service) Connections(ctx context.Context, self string) ([]models.User, error) {
	users, err := s.Store.ListConnected(ctx, self)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return users, nil
}

func (s *Service) respond(ctx context.Context, self string, edge models.ConnectionEdge, accept bool) error {
	if !edge.Involves(self) || edge.Initiator == self {
		return ErrForbidden
	}
	if edge.State != models.EdgePending {
		return ErrNotFound
	}

	if accept {
		return s.accept(ctx, self, edge)
	}

	rejected, err := s.Store.Reject(ctx, edge.ID, self)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("reject connection: %w", err)
	}
	s.publish(ctx, events.TopicConnectionRejected, rejected, self)
	return nil
}

func (s *Service) accept(ctx context.Context, self string, edge models.ConnectionEdge) error {
	responder, err := s.Users.FindByID(ctx, self)
	if err != nil {
		return fmt.Errorf("load responder: %w", err)
	}

	notice := newNotice(edge.Initiator, models.NotificationConnectionAccepted, responder, edge.ID, s.now())
	accepted, err := s.Store.Accept(ctx, edge.ID, self, notice)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("accept connection: %w", err)
	}
	s.publish(ctx, events.TopicConnectionAccepted, accepted, self)
	return nil
}

// publish emits a transition event after the store has committed it. Failures
// are logged and never undo the transition.
func (s *Service) publish(ctx context.Context, topic string, edge models.ConnectionEdge, actor string) {
	if s.Publisher == nil {
		return
	}
	event := events.ConnectionChanged{
		EdgeID:      edge.ID,
		Actor:       actor,
		Counterpart: edge.Other(actor),
		Initiator:   edge.Initiator,
		State:       string(edge.State),
		OccurredAt:  s.now(),
	}
	if topic == events.TopicConnectionRejected || topic == events.TopicConnectionRemoved {
		event.State = ""
	}
	if err := s.Publisher.Publish(ctx, topic, event); err != nil {
		logging.FromContext(ctx).Warn("publish connection event failed",
			slog.String("topic", topic),
			slog.String("edge_id", edge.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func newNotice(recipient string, kind models.NotificationType, subject models.User, edgeID string, at time.Time) models.Notification {
	return models.Notification{
		ID:            uuid.NewString(),
		Recipient:     recipient,
		Type:          kind,
		SubjectUser:   subject.ID,
		RelatedEdgeID: &edgeID,
		Title:         noticeTitle(kind, subject),
		CreatedAt:     at,
	}
}

func noticeTitle(kind models.NotificationType, subject models.User) string {
	switch kind {
	case models.NotificationConnectionRequest:
		return subject.DisplayName() + " wants to connect with you"
	case models.NotificationConnectionAccepted:
		return subject.DisplayName() + " accepted your connection request"
	default:
		return subject.DisplayName()
	}
}
