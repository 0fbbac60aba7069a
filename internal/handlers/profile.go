package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"duet-backend/internal/middleware"
	"duet-backend/internal/models"
	"duet-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ProfileHandler handles profile and dual-profile HTTP requests
type ProfileHandler struct {
	profileService *services.ProfileService
	pairingService *services.PairingService
	userService    *services.UserService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(
	profileService *services.ProfileService,
	pairingService *services.PairingService,
	userService *services.UserService,
) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		pairingService: pairingService,
		userService:    userService,
	}
}

// GetProfile handles GET /api/v1/profile. With ?code= it resolves the
// profile of the user with that invite code instead of the caller.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if code := r.URL.Query().Get("code"); code != "" {
		target, err := h.userService.GetUserByCode(ctx, code)
		if err != nil {
			respondAppError(w, err)
			return
		}
		userID = target.ID
	}

	profile, err := h.profileService.GetProfile(ctx, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// SetProfileRequest is the request body for setting a profile
type SetProfileRequest struct {
	Name string `json:"name"`
}

// SetProfile handles PUT /api/v1/profile
func (h *ProfileHandler) SetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SetProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		respondError(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := h.profileService.SetProfile(ctx, userID, req.Name); err != nil {
		respondAppError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("Profile updated")
	respondJSON(w, http.StatusOK, map[string]string{"msg": "Successfully set profile"})
}

// GetDualProfile handles GET /api/v1/dual-profile
func (h *ProfileHandler) GetDualProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	pairing, err := h.pairingService.PairingOf(ctx, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	dp, err := h.profileService.GetDualProfile(ctx, pairing.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dp)
}

// UpdateStartTimeRequest is the request body for updating the start time
type UpdateStartTimeRequest struct {
	StartedAt time.Time `json:"started_at"`
}

// UpdateStartTime handles PUT /api/v1/dual-profile/start-time
func (h *ProfileHandler) UpdateStartTime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UpdateStartTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.StartedAt.IsZero() {
		respondError(w, "started_at is required", http.StatusBadRequest)
		return
	}

	pairing, err := h.pairingService.PairingOf(ctx, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	if err := h.profileService.UpdateStartTime(ctx, pairing.ID, req.StartedAt); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"msg": "Successfully updated start time"})
}

// AppendScrapbookRequest is the request body for a scrapbook entry
type AppendScrapbookRequest struct {
	Image   string `json:"image"`
	Caption string `json:"caption"`
}

// AppendScrapbook handles POST /api/v1/dual-profile/scrapbook
func (h *ProfileHandler) AppendScrapbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req AppendScrapbookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Image == "" {
		respondError(w, "image is required", http.StatusBadRequest)
		return
	}

	pairing, err := h.pairingService.PairingOf(ctx, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	entry := models.ScrapbookEntry{
		Image:   req.Image,
		Caption: req.Caption,
		Date:    time.Now(),
	}
	dp, err := h.profileService.AppendScrapbookEntry(ctx, pairing.ID, entry)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dp)
}
