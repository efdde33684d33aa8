package handlers

import (
	"net/http"
	"time"

	"github.com/stagelink/backend/internal/logging"
	"github.com/stagelink/backend/internal/storage"
)

const maxAvatarBytes = 5 << 20

// AvatarHandler accepts avatar uploads.
type AvatarHandler struct {
	Users   UserStore
	Storage AvatarStorage
	NowFunc func() time.Time
}

type avatarResponse struct {
	Success struct {
		Avatar string `json:"avatar"`
	} `json:"success"`
}

// Upload handles POST /api/changeAvatar with a multipart "avatar" file.
func (h AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	ctx := r.Context()
	self, ok := requireUser(w, r)
	if !ok {
		return
	}

	if h.Storage == nil {
		respondError(ctx, w, http.StatusServiceUnavailable, "avatar uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+(1<<16))
	file, header, err := r.FormFile("avatar")
	if err != nil {
		logging.FromContext(ctx).Warn("invalid avatar upload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		respondError(ctx, w, http.StatusRequestEntityTooLarge, "avatar must be 5MB or smaller")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if _, ok := storage.AvatarExtension(contentType); !ok {
		respondError(ctx, w, http.StatusUnsupportedMediaType, "avatar must be a jpeg, png, gif or webp image")
		return
	}

	location, err := h.Storage.SaveAvatar(ctx, self, contentType, file)
	if err != nil {
		logging.FromContext(ctx).Error("avatar upload failed", "error", err)
		respondError(ctx, w, http.StatusBadGateway, "unable to store avatar")
		return
	}

	now := time.Now().UTC()
	if h.NowFunc != nil {
		now = h.NowFunc()
	}
	if err := h.Users.UpdateAvatar(ctx, self, location, now); err != nil {
		logging.FromContext(ctx).Error("avatar update failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update avatar")
		return
	}

	var resp avatarResponse
	resp.Success.Avatar = location
	respondJSON(ctx, w, http.StatusOK, resp)
}
