package client

import (
	"context"
	"sync"

	"github.com/stagelink/backend/internal/models"
)

// Button labels for each connection status.
const (
	LabelConnect   = "Make a connection"
	LabelRequested = "Requested"
	LabelApprove   = "Approve Connection Request"
	LabelConnected = "Connected"
)

// ConnectionAPI is what a ConnectionButton needs from the server.
type ConnectionAPI interface {
	ConnectionStatus(ctx context.Context, userID string) (models.ConnectionStatus, error)
	RequestConnection(ctx context.Context, userID string) (models.ConnectionStatus, error)
	RespondToUser(ctx context.Context, userID string, accept bool) error
}

// ConnectionButton is the profile page button towards one other user. Its
// status is local view state: seeded once on mount and advanced only by its own
// successful clicks.
type ConnectionButton struct {
	mu     sync.Mutex
	api    ConnectionAPI
	other  string
	status models.ConnectionStatus
}

// MountButton loads the current status towards other.
func MountButton(ctx context.Context, api ConnectionAPI, other string) (*ConnectionButton, error) {
	status, err := api.ConnectionStatus(ctx, other)
	if err != nil {
		return nil, err
	}
	return &ConnectionButton{api: api, other: other, status: status}, nil
}

// Status returns the locally held status.
func (b *ConnectionButton) Status() models.ConnectionStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Label returns the text shown on the button.
func (b *ConnectionButton) Label() string {
	switch b.Status() {
	case models.StatusRequested:
		return LabelRequested
	case models.StatusPendingRequest:
		return LabelApprove
	case models.StatusConnected:
		return LabelConnected
	default:
		return LabelConnect
	}
}

// Interactive reports whether Click does anything in the current status.
func (b *ConnectionButton) Interactive() bool {
	switch b.Status() {
	case models.StatusNotConnected, models.StatusPendingRequest:
		return true
	default:
		return false
	}
}

// Click performs the button's action. On failure the status is unchanged and
// the error is returned for the caller to display.
func (b *ConnectionButton) Click(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.status {
	case models.StatusNotConnected, "":
		status, err := b.api.RequestConnection(ctx, b.other)
		if err != nil {
			return err
		}
		b.status = status
	case models.StatusPendingRequest:
		if err := b.api.RespondToUser(ctx, b.other, true); err != nil {
			return err
		}
		b.status = models.StatusConnected
	}
	return nil
}
