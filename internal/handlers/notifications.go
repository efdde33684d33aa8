package handlers

import (
	"net/http"

	"github.com/stagelink/backend/internal/logging"
)

// NotificationHandler serves the caller's inbox.
type NotificationHandler struct {
	Notifications NotificationService
}

type unseenResponse struct {
	HasUnseen bool `json:"hasUnseen"`
}

// List handles GET /api/notifications. Opening the inbox marks every notice seen.
func (h NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	self, ok := requireUser(w, r)
	if !ok {
		return
	}

	feed, err := h.Notifications.List(ctx, self)
	if err != nil {
		logging.FromContext(ctx).Error("list notifications failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load notifications")
		return
	}
	items := feed.Collect()

	if err := h.Notifications.MarkAllSeen(ctx, self); err != nil {
		logging.FromContext(ctx).Warn("mark notifications seen failed", "error", err)
	}

	respondJSON(ctx, w, http.StatusOK, items)
}

// Unseen handles GET /api/notifications/unseen for the navigation badge.
func (h NotificationHandler) Unseen(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	self, ok := requireUser(w, r)
	if !ok {
		return
	}

	unseen, err := h.Notifications.HasUnseen(ctx, self)
	if err != nil {
		logging.FromContext(ctx).Error("check unseen notifications failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load notifications")
		return
	}

	respondJSON(ctx, w, http.StatusOK, unseenResponse{HasUnseen: unseen})
}

// MarkSeen handles POST /api/notifications/seen.
func (h NotificationHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	ctx := r.Context()
	self, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.Notifications.MarkAllSeen(ctx, self); err != nil {
		logging.FromContext(ctx).Error("mark notifications seen failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update notifications")
		return
	}

	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}
