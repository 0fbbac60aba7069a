package handlers

import (
	"net/http"
	"time"

	"duet-backend/internal/middleware"
	"duet-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PairingHandler handles partner-related HTTP requests. It also runs
// the orchestration around pairing events: creating the shared dual
// profile when a pairing forms and tearing shared state down when it
// dissolves.
type PairingHandler struct {
	pairingService *services.PairingService
	userService    *services.UserService
	postService    *services.PostService
	profileService *services.ProfileService
	notifier       *services.Notifier
}

// NewPairingHandler creates a new pairing handler
func NewPairingHandler(
	pairingService *services.PairingService,
	userService *services.UserService,
	postService *services.PostService,
	profileService *services.ProfileService,
	notifier *services.Notifier,
) *PairingHandler {
	return &PairingHandler{
		pairingService: pairingService,
		userService:    userService,
		postService:    postService,
		profileService: profileService,
		notifier:       notifier,
	}
}

// RequestPartner handles POST /api/v1/partner/requests/{code}
func (h *PairingHandler) RequestPartner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")

	if code == "" {
		respondError(w, "code is required", http.StatusBadRequest)
		return
	}

	target, err := h.userService.GetUserByCode(ctx, code)
	if err != nil {
		respondAppError(w, err)
		return
	}

	pairing, err := h.pairingService.Request(ctx, userID, target.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	if pairing != nil {
		// The request was reciprocated: the pairing formed, so the
		// shared profile starts now.
		if _, err := h.profileService.CreateDualProfile(ctx, pairing.ID, time.Now()); err != nil {
			log.Error().Err(err).Str("pairing_id", pairing.ID).Msg("Failed to create dual profile")
		}
		h.notifier.PairCreated(ctx, userID, pairing)
		h.notifier.PairCreated(ctx, target.ID, pairing)
		log.Info().Str("user_id", userID).Str("partner_id", target.ID).Msg("Pairing formed")
	} else {
		h.notifier.RequestReceived(ctx, target.ID)
		log.Info().Str("user_id", userID).Str("to", target.ID).Msg("Pair request recorded")
	}

	respondJSON(w, http.StatusOK, map[string]string{"msg": "Request successfully recorded"})
}

// RemoveRequest handles DELETE /api/v1/partner/requests
func (h *PairingHandler) RemoveRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.pairingService.RemoveRequest(ctx, userID); err != nil {
		respondAppError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("Pair request removed")
	respondJSON(w, http.StatusOK, map[string]string{"msg": "Successfully removed request"})
}

// GetPartner handles GET /api/v1/partner
func (h *PairingHandler) GetPartner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	partnerID, err := h.pairingService.Partner(ctx, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	resp := map[string]string{"partner_id": partnerID}
	if profile, err := h.profileService.GetProfile(ctx, partnerID); err == nil {
		resp["partner_name"] = profile.Name
	}
	respondJSON(w, http.StatusOK, resp)
}

// RemovePartner handles DELETE /api/v1/partner. Dissolving a pairing
// removes everything the pair shares: their dual posts, their dual
// profile, then the pairing itself.
func (h *PairingHandler) RemovePartner(w http.ResponseWriter, r *http.Request) {
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

	pairing, err := h.pairingService.RemoveExclusive(ctx, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if err := h.profileService.DeleteDualProfile(ctx, pairing.ID); err != nil {
		log.Error().Err(err).Str("pairing_id", pairing.ID).Msg("Failed to delete dual profile")
	}

	partnerID := pairing.PartnerOf(userID)
	h.notifier.PairRemoved(ctx, partnerID)

	log.Info().Str("user_id", userID).Str("partner_id", partnerID).Msg("Pairing removed")
	respondJSON(w, http.StatusOK, map[string]string{"msg": "Successfully removed exclusive partner"})
}
