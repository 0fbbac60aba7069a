package handlers

import (
	"net/http"

	"duet-backend/internal/middleware"
	"duet-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PromptHandler handles conversation prompt HTTP requests
type PromptHandler struct {
	promptService *services.PromptService
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(promptService *services.PromptService) *PromptHandler {
	return &PromptHandler{promptService: promptService}
}

// GetPrompt handles GET /api/v1/prompt. Prompt generation is
// best-effort: a provider outage fails this request only.
func (h *PromptHandler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	prompt, err := h.promptService.GetPrompt(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get prompt")
		respondError(w, "prompt generation is currently unavailable", http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}
