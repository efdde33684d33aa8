package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stagelink/backend/internal/logging"
	"github.com/stagelink/backend/internal/models"
	"github.com/stagelink/backend/internal/repositories"
)

const (
	maxAboutLength      = 2000
	maxProfileEntries   = 50
	maxProfileEntryName = 200
)

// UserHandler serves public profiles and lets users edit their own.
type UserHandler struct {
	Users   UserStore
	NowFunc func() time.Time
}

type updateProfileRequest struct {
	About       string                `json:"about"`
	Interests   []models.ProfileEntry `json:"interests"`
	Education   []models.ProfileEntry `json:"education"`
	Skills      []models.ProfileEntry `json:"skills"`
	Experiences []models.ProfileEntry `json:"experiences"`
}

type updateProfileResponse struct {
	Success struct {
		Message string   `json:"message"`
		User    userView `json:"user"`
	} `json:"success"`
}

// Profile handles GET /api/user?slug= or ?userId=. Without either it returns the caller.
func (h UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	query := r.URL.Query()
	slug := strings.TrimSpace(query.Get("slug"))
	userID := strings.TrimSpace(query.Get("userId"))

	var (
		user models.User
		err  error
	)
	switch {
	case slug != "":
		user, err = h.Users.FindBySlug(ctx, slug)
	case userID != "":
		user, err = h.Users.FindByID(ctx, userID)
	default:
		self, ok := requireUser(w, r)
		if !ok {
			return
		}
		user, err = h.Users.FindByID(ctx, self)
	}

	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logging.FromContext(ctx).Error("profile lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load profile")
		return
	}

	respondJSON(ctx, w, http.StatusOK, newUserView(user))
}

// UpdateProfile handles POST /api/updateUserData. The request replaces every
// editable section of the caller's profile.
func (h UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	ctx := r.Context()
	self, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	profile := models.Profile{
		About:       req.About,
		Interests:   req.Interests,
		Education:   req.Education,
		Skills:      req.Skills,
		Experiences: req.Experiences,
	}.Normalized()
	if err := validateProfile(profile); err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	if h.NowFunc != nil {
		now = h.NowFunc()
	}
	if err := h.Users.UpdateProfile(ctx, self, profile, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logging.FromContext(ctx).Error("profile update failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update profile")
		return
	}

	user, err := h.Users.FindByID(ctx, self)
	if err != nil {
		logging.FromContext(ctx).Error("reload profile failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load profile")
		return
	}

	var resp updateProfileResponse
	resp.Success.Message = "Profile updated"
	resp.Success.User = newUserView(user)
	respondJSON(ctx, w, http.StatusOK, resp)
}

func validateProfile(p models.Profile) error {
	if len([]rune(p.About)) > maxAboutLength {
		return fmt.Errorf("about must be at most %d characters", maxAboutLength)
	}

	sections := []struct {
		name    string
		entries []models.ProfileEntry
	}{
		{"interests", p.Interests},
		{"education", p.Education},
		{"skills", p.Skills},
		{"experiences", p.Experiences},
	}
	for _, section := range sections {
		if len(section.entries) > maxProfileEntries {
			return fmt.Errorf("%s may hold at most %d entries", section.name, maxProfileEntries)
		}
		for _, entry := range section.entries {
			if entry.Name == "" {
				return fmt.Errorf("%s entries need a name", section.name)
			}
			if len([]rune(entry.Name)) > maxProfileEntryName {
				return fmt.Errorf("%s entries must be at most %d characters", section.name, maxProfileEntryName)
			}
		}
	}
	return nil
}
