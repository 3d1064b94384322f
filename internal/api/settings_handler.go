// Package api provides the HTTP surface of the notification service: the
// settings UI's read/write path and the permission consent endpoints. The
// wider application's CRUD API lives elsewhere; only what the pipeline
// owns is served here.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kanbanflow/herald/internal/api/shared"
	"github.com/kanbanflow/herald/internal/domain"
	"github.com/kanbanflow/herald/internal/platform/logger"
	"github.com/kanbanflow/herald/internal/settings"
)

// SettingsResponse is the settings read payload: every known category with
// its effective enabled state.
type SettingsResponse struct {
	Preferences map[string]bool `json:"preferences"`
}

// UpdateSettingsRequest is the settings write payload. Unknown categories
// are accepted and ignored, so an older server tolerates a newer UI.
type UpdateSettingsRequest struct {
	Preferences map[string]bool `json:"preferences" validate:"required,min=1"`
}

// SettingsHandler serves the notification-preferences endpoints.
type SettingsHandler struct {
	service  *settings.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(service *settings.Service, log *slog.Logger) *SettingsHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("service cannot be nil for SettingsHandler")
	}
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SettingsHandler")
	}

	return &SettingsHandler{
		service:  service,
		validate: validator.New(),
		logger:   log.With(slog.String("component", "settings_handler")),
	}
}

// Get handles GET /settings requests.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	prefs := h.service.Preferences()

	out := make(map[string]bool, len(prefs))
	for category, enabled := range prefs {
		out[string(category)] = enabled
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SettingsResponse{Preferences: out})
}

// Update handles PUT /settings requests, the settings UI's write path.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updates := make(map[domain.Category]bool, len(req.Preferences))
	for category, enabled := range req.Preferences {
		updates[domain.Category(category)] = enabled
	}

	if err := h.service.Update(r.Context(), updates); err != nil {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}

	log.Debug("notification preferences updated", slog.Int("count", len(updates)))
	h.Get(w, r)
}
