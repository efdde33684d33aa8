package models

import (
	"strings"
	"time"
)

// User represents a musician account on StageLink.
type User struct {
	ID        string
	Email     string
	Password  string
	Slug      string
	FirstName string
	LastName  string
	Avatar    *string
	Profile
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileEntry is one line of a profile list. Date is only used by education
// and experience entries.
type ProfileEntry struct {
	Name string `json:"name"`
	Date string `json:"date,omitempty"`
}

// Profile holds the free-form sections a user edits on their own page.
type Profile struct {
	About       string
	Interests   []ProfileEntry
	Education   []ProfileEntry
	Skills      []ProfileEntry
	Experiences []ProfileEntry
}

// Normalized trims every field and replaces nil lists with empty ones.
func (p Profile) Normalized() Profile {
	return Profile{
		About:       strings.TrimSpace(p.About),
		Interests:   normalizeEntries(p.Interests),
		Education:   normalizeEntries(p.Education),
		Skills:      normalizeEntries(p.Skills),
		Experiences: normalizeEntries(p.Experiences),
	}
}

func normalizeEntries(entries []ProfileEntry) []ProfileEntry {
	out := make([]ProfileEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ProfileEntry{
			Name: strings.TrimSpace(entry.Name),
			Date: strings.TrimSpace(entry.Date),
		})
	}
	return out
}

// DisplayName renders the name shown next to a user's avatar.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Slug != "":
		return u.Slug
	default:
		return u.Email
	}
}

// EdgeState is the persisted state of a connection edge.
type EdgeState string

const (
	EdgePending  EdgeState = "PENDING"
	EdgeAccepted EdgeState = "ACCEPTED"
)

// ConnectionEdge is the single relationship record between two users.
// UserLow and UserHigh hold the participants in canonical order.
type ConnectionEdge struct {
	ID        string
	UserLow   string
	UserHigh  string
	Initiator string
	State     EdgeState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanonicalPair orders two user ids so that every unordered pair maps to one key.
func CanonicalPair(a, b string) (low, high string) {
	if a > b {
		return b, a
	}
	return a, b
}

// NewEdge builds a pending edge initiated by initiator towards target.
func NewEdge(id, initiator, target string, now time.Time) ConnectionEdge {
	low, high := CanonicalPair(initiator, target)
	return ConnectionEdge{
		ID:        id,
		UserLow:   low,
		UserHigh:  high,
		Initiator: initiator,
		State:     EdgePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Involves reports whether userID is one of the edge participants.
func (e ConnectionEdge) Involves(userID string) bool {
	return e.UserLow == userID || e.UserHigh == userID
}

// Other returns the participant that is not userID.
func (e ConnectionEdge) Other(userID string) string {
	if e.UserLow == userID {
		return e.UserHigh
	}
	return e.UserLow
}

// Recipient returns the participant that did not initiate the edge.
func (e ConnectionEdge) Recipient() string {
	return e.Other(e.Initiator)
}

// ConnectionStatus is the relationship between two users as seen by one of them.
type ConnectionStatus string

const (
	StatusNotConnected   ConnectionStatus = "not_connected"
	StatusRequested      ConnectionStatus = "requested"
	StatusPendingRequest ConnectionStatus = "pending_request"
	StatusConnected      ConnectionStatus = "connected"
)

// StatusFor derives the status of edge from the viewpoint of viewer. A nil edge
// means the pair has no relationship.
func StatusFor(edge *ConnectionEdge, viewer string) ConnectionStatus {
	if edge == nil {
		return StatusNotConnected
	}
	switch edge.State {
	case EdgeAccepted:
		return StatusConnected
	case EdgePending:
		if edge.Initiator == viewer {
			return StatusRequested
		}
		return StatusPendingRequest
	default:
		return StatusNotConnected
	}
}

// NotificationType tags the kind of notice shown in a user's inbox.
type NotificationType string

const (
	NotificationConnectionRequest  NotificationType = "connection_request"
	NotificationConnectionAccepted NotificationType = "connection_accepted"
)

// Notification is a notice in a user's inbox.
type Notification struct {
	ID            string
	Recipient     string
	Type          NotificationType
	SubjectUser   string
	RelatedEdgeID *string
	Title         string
	Seen          bool
	CreatedAt     time.Time
}

// NotificationRecord is a notification joined with its subject user and the
// current state of the edge it references, if any.
type NotificationRecord struct {
	Notification
	Subject   User
	EdgeState *EdgeState
}

// SessionToken is the bearer credential issued to an authenticated user.
type SessionToken struct {
	AccessToken string
	ExpiresAt   time.Time
}
