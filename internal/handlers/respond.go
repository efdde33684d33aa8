package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stagelink/backend/internal/auth"
	"github.com/stagelink/backend/internal/connections"
	"github.com/stagelink/backend/internal/logging"
	"github.com/stagelink/backend/internal/models"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type userView struct {
	ID          string                `json:"id"`
	Slug        string                `json:"slug"`
	FirstName   string                `json:"firstName,omitempty"`
	LastName    string                `json:"lastName,omitempty"`
	Avatar      *string               `json:"avatar,omitempty"`
	About       string                `json:"about,omitempty"`
	Interests   []models.ProfileEntry `json:"interests,omitempty"`
	Education   []models.ProfileEntry `json:"education,omitempty"`
	Skills      []models.ProfileEntry `json:"skills,omitempty"`
	Experiences []models.ProfileEntry `json:"experiences,omitempty"`
}

func newUserView(u models.User) userView {
	return userView{
		ID:          u.ID,
		Slug:        u.Slug,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Avatar:      u.Avatar,
		About:       u.About,
		Interests:   u.Interests,
		Education:   u.Education,
		Skills:      u.Skills,
		Experiences: u.Experiences,
	}
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	logger := logging.FromContext(ctx)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("encode response body", "status", status, "error", err)
		return
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	return dec.Decode(dst)
}

// requireUser returns the authenticated caller or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// respondConnectionError maps connection failures onto HTTP statuses.
func respondConnectionError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, connections.ErrInvalidTarget):
		respondError(ctx, w, http.StatusBadRequest, "invalid connection target")
	case errors.Is(err, connections.ErrAlreadyExists):
		respondError(ctx, w, http.StatusConflict, "connection already exists")
	case errors.Is(err, connections.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "connection not found")
	case errors.Is(err, connections.ErrForbidden):
		respondError(ctx, w, http.StatusForbidden, "not allowed to change this connection")
	case errors.Is(err, connections.ErrContended):
		respondError(ctx, w, http.StatusConflict, "connection changed, try again")
	default:
		logging.FromContext(ctx).Error("connection operation failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
	}
}
