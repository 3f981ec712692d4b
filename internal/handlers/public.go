package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/platform/httpx"
	"github.com/NomanAhmed1999/vatika/internal/services"
)

// PublicHandlers exposes unauthenticated campaign metadata endpoints.
type PublicHandlers struct {
	compositions services.CompositionService
}

// NewPublicHandlers constructs handlers over the composition service.
func NewPublicHandlers(compositions services.CompositionService) *PublicHandlers {
	return &PublicHandlers{compositions: compositions}
}

// Routes wires the /public endpoints onto the provided router.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/concerns", h.listConcerns)
	r.Get("/share-targets", h.shareTargets)
}

func (h *PublicHandlers) listConcerns(w http.ResponseWriter, r *http.Request) {
	concerns := domain.HairConcerns()
	payload := make([]map[string]string, 0, len(concerns))
	for _, concern := range concerns {
		payload = append(payload, map[string]string{
			"tag":              string(concern),
			"background_color": concern.BackgroundColor(),
		})
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"concerns": payload})
}

func (h *PublicHandlers) shareTargets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.compositions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("composition_service_unavailable", "composition service is unavailable", http.StatusServiceUnavailable))
		return
	}

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session_id query parameter is required", http.StatusBadRequest))
		return
	}

	targets, err := h.compositions.ShareTargets(ctx, sessionID)
	if err != nil {
		writeWizardError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"targets": targets})
}
