package connections

import "errors"

var (
	// ErrInvalidTarget indicates a request aimed at oneself or at a user that does not exist.
	ErrInvalidTarget = errors.New("invalid connection target")
	// ErrAlreadyExists indicates the pair already has a pending or accepted edge.
	ErrAlreadyExists = errors.New("connection already exists")
	// ErrNotFound indicates there is no edge in the state the operation requires.
	ErrNotFound = errors.New("connection not found")
	// ErrForbidden indicates the caller may not perform the transition on this edge.
	ErrForbidden = errors.New("connection transition forbidden")
	// ErrContended indicates the pair kept changing underneath a request until
	// the retries ran out. The caller may try again.
	ErrContended = errors.New("connection changed concurrently")
)
