package handlers

import (
	"net/http"
	"strings"

	"github.com/stagelink/backend/internal/logging"
	"github.com/stagelink/backend/internal/models"
)

const connectionWriteScope = "connections"

// ConnectionHandler exposes the connection request lifecycle.
type ConnectionHandler struct {
	Connections ConnectionService
	Limiter     RateLimiter
}

type connectionTargetRequest struct {
	UserID string `json:"userId"`
}

type changeStatusRequest struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	Status       *bool  `json:"status"`
}

type successResponse struct {
	Success bool                    `json:"success"`
	Status  models.ConnectionStatus `json:"status,omitempty"`
}

type removeResponse struct {
	Success struct {
		Message string `json:"message"`
	} `json:"success"`
}

type statusResponse struct {
	Success struct {
		Status models.ConnectionStatus `json:"status"`
	} `json:"success"`
}

// Collection handles POST (request a connection) and GET (list connections) on /api/connections.
func (h ConnectionHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h ConnectionHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	self, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r) {
		return
	}

	var req connectionTargetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid connection request payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := h.Connections.Request(ctx, self, strings.TrimSpace(req.UserID))
	if err != nil {
		respondConnectionError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true, Status: status})
}

func (h ConnectionHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	self, ok := requireUser(w, r)
	if !ok {
		return
	}

	users, err := h.Connections.Connections(ctx, self)
	if err != nil {
		respondConnectionError(ctx, w, err)
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	respondJSON(ctx, w, http.StatusOK, views)
}

// ChangeStatus handles POST /api/changeConnectionStatus. The edge is addressed by
// connectionId from the notification view or by the other user's id from a profile.
func (h ConnectionHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	ctx := r.Context()
	self, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r) {
		return
	}

	var req changeStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid change status payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.ConnectionID = strings.TrimSpace(req.ConnectionID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.Status == nil || (req.ConnectionID == "") == (req.UserID == "") {
		respondError(ctx, w, http.StatusBadRequest, "status and exactly one of connectionId or userId are required")
		return
	}

	var err error
	if req.ConnectionID != "" {
		err = h.Connections.Respond(ctx, self, req.ConnectionID, *req.Status)
	} else {
		err = h.Connections.RespondToUser(ctx, self, req.UserID, *req.Status)
	}
	if err != nil {
		respondConnectionError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// Remove handles POST /api/removeConnection.
func (h ConnectionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	ctx := r.Context()
	self, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r) {
		return
	}

	var req connectionTargetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid remove connection payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Connections.Remove(ctx, self, strings.TrimSpace(req.UserID)); err != nil {
		respondConnectionError(ctx, w, err)
		return
	}

	var resp removeResponse
	resp.Success.Message = "connection removed"
	respondJSON(ctx, w, http.StatusOK, resp)
}

// Status handles GET /api/connection?userId=.
func (h ConnectionHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	self, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := h.Connections.Status(ctx, self, strings.TrimSpace(r.URL.Query().Get("userId")))
	if err != nil {
		respondConnectionError(ctx, w, err)
		return
	}

	var resp statusResponse
	resp.Success.Status = status
	respondJSON(ctx, w, http.StatusOK, resp)
}

func (h ConnectionHandler) allow(w http.ResponseWriter, r *http.Request) bool {
	if allowRequest(h.Limiter, r, connectionWriteScope) {
		return true
	}
	respondError(r.Context(), w, http.StatusTooManyRequests, "too many connection changes, slow down")
	return false
}
