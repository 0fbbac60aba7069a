package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"duet-backend/internal/middleware"
	"duet-backend/internal/models"
	"duet-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const defaultPostLimit = 20

// PostHandler handles dual-post HTTP requests
type PostHandler struct {
	postService    *services.PostService
	pairingService *services.PairingService
	uploadService  *services.UploadService
	notifier       *services.Notifier
}

// NewPostHandler creates a new post handler
func NewPostHandler(
	postService *services.PostService,
	pairingService *services.PairingService,
	uploadService *services.UploadService,
	notifier *services.Notifier,
) *PostHandler {
	return &PostHandler{
		postService:    postService,
		pairingService: pairingService,
		uploadService:  uploadService,
		notifier:       notifier,
	}
}

// ProposeRequest is the request body for proposing a dual post
type ProposeRequest struct {
	Content string `json:"content"`
	Image   string `json:"image"`
}

// Propose handles POST /api/v1/posts. The caller's partner becomes the
// designated approver.
func (h *PostHandler) Propose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req ProposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		respondError(w, "content is required", http.StatusBadRequest)
		return
	}

	partnerID, err := h.pairingService.Partner(ctx, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	post, err := h.postService.Propose(ctx, userID, partnerID, req.Content, req.Image)
	if err != nil {
		respondAppError(w, err)
		return
	}

	h.notifier.PostProposed(ctx, partnerID, post)
	log.Info().Str("user_id", userID).Str("post_id", post.ID).Msg("Dual post proposed")
	respondJSON(w, http.StatusOK, post)
}

// ListApproved handles GET /api/v1/posts?limit=N
func (h *PostHandler) ListApproved(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultPostLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			respondError(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	posts, err := h.postService.ListApproved(ctx, limit)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// ListPersonal handles GET /api/v1/posts/personal
func (h *PostHandler) ListPersonal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	posts, err := h.postService.ListByAuthor(ctx, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// Modify handles PUT /api/v1/posts/{id}
func (h *PostHandler) Modify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "id")

	var update models.DualPostUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	post, err := h.postService.Modify(ctx, postID, userID, update)
	if err != nil {
		respondAppError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("post_id", postID).Msg("Dual post modified")
	respondJSON(w, http.StatusOK, post)
}

// Approve handles PUT /api/v1/posts/{id}/approve
func (h *PostHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "id")

	post, err := h.postService.Approve(ctx, postID, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	h.notifier.PostApproved(ctx, post.Proposer, post)

	log.Info().Str("user_id", userID).Str("post_id", postID).Msg("Dual post approved")
	respondJSON(w, http.StatusOK, map[string]string{"msg": "Dual post approved successfully"})
}

// Deny handles DELETE /api/v1/posts/{id}/deny
func (h *PostHandler) Deny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "id")

	post, err := h.postService.Deny(ctx, postID, userID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	h.notifier.PostDenied(ctx, post.Proposer)

	log.Info().Str("user_id", userID).Str("post_id", postID).Msg("Dual post denied")
	respondJSON(w, http.StatusOK, map[string]string{"msg": "Dual post denied successfully"})
}

// DeleteRequest is the request body for batch deletion
type DeleteRequest struct {
	IDs []string `json:"ids"`
}

// Delete handles DELETE /api/v1/posts. The batch is all-or-nothing:
// authorization fails anywhere, nothing is deleted.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, "ids is required", http.StatusBadRequest)
		return
	}

	if err := h.postService.Delete(ctx, req.IDs, userID); err != nil {
		respondAppError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Int("count", len(req.IDs)).Msg("Dual posts deleted")
	respondJSON(w, http.StatusOK, map[string]string{"msg": "Dual post(s) deleted successfully"})
}

// UploadRequest is the request body for requesting an image upload slot
type UploadRequest struct {
	ContentType string `json:"content_type"`
}

// NewUploadURL handles POST /api/v1/posts/upload-url
func (h *PostHandler) NewUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "image/jpeg"
	}

	// Only paired users author dual posts, so only they get upload slots.
	if _, err := h.pairingService.Partner(ctx, userID); err != nil {
		respondAppError(w, err)
		return
	}

	target, err := h.uploadService.NewUploadURL(ctx, userID, req.ContentType)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, target)
}
