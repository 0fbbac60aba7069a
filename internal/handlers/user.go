package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"duet-backend/internal/apperr"
	"duet-backend/internal/middleware"
	"duet-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService    *services.UserService
	pairingService *services.PairingService
	postService    *services.PostService
	profileService *services.ProfileService
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	userService *services.UserService,
	pairingService *services.PairingService,
	postService *services.PostService,
	profileService *services.ProfileService,
) *UserHandler {
	return &UserHandler{
		userService:    userService,
		pairingService: pairingService,
		postService:    postService,
		profileService: profileService,
	}
}

// CreateUserRequest is the request body for creating a user
type CreateUserRequest struct {
	Name string `json:"name"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.CreateUser(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		respondError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	if req.Name != "" {
		if err := h.profileService.SetProfile(ctx, user.ID, req.Name); err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to set profile name")
		}
	}

	log.Info().Str("user_id", user.ID).Str("code", user.Code).Msg("User created")
	respondJSON(w, http.StatusOK, user)
}

// GetSession handles GET /api/v1/session
func (h *UserHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	user, err := h.userService.GetUser(ctx, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	user.Token = ""
	respondJSON(w, http.StatusOK, user)
}

// UpdatePushTokenRequest is the request body for updating a push token
type UpdatePushTokenRequest struct {
	PushToken *string `json:"push_token"`
}

// UpdatePushToken handles PUT /api/v1/users/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UpdatePushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(ctx, userID, req.PushToken); err != nil {
		respondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser handles DELETE /api/v1/users. The account's pairing
// artifacts go first: shared posts, the dual profile, the pairing
// itself, any outstanding requests, then the profile and the account.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	posts, err := h.postService.ListByAuthor(ctx, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}
	if len(ids) > 0 {
		if err := h.postService.Delete(ctx, ids, userID); err != nil {
			respondAppError(w, err)
			return
		}
	}

	if pairing, err := h.pairingService.RemoveExclusive(ctx, userID); err == nil {
		if err := h.profileService.DeleteDualProfile(ctx, pairing.ID); err != nil {
			log.Error().Err(err).Str("pairing_id", pairing.ID).Msg("Failed to delete dual profile")
		}
	} else {
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			respondAppError(w, err)
			return
		}
		// Not paired; nothing to dissolve.
	}

	if err := h.pairingService.RemoveAllForUser(ctx, userID); err != nil {
		respondAppError(w, err)
		return
	}
	if err := h.profileService.DeleteProfile(ctx, userID); err != nil {
		respondAppError(w, err)
		return
	}
	if err := h.userService.DeleteUser(ctx, userID); err != nil {
		respondAppError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("User deleted")
	w.WriteHeader(http.StatusNoContent)
}
