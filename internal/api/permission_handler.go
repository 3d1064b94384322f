package api

import (
	"log/slog"
	"net/http"

	"github.com/kanbanflow/herald/internal/api/shared"
	"github.com/kanbanflow/herald/internal/permission"
	"github.com/kanbanflow/herald/internal/platform/logger"
)

// PermissionResponse reports the platform's authorization state.
type PermissionResponse struct {
	State string `json:"state"`
}

// PermissionHandler serves the notification-permission endpoints.
type PermissionHandler struct {
	manager *permission.Manager
	logger  *slog.Logger
}

// NewPermissionHandler creates a PermissionHandler.
func NewPermissionHandler(manager *permission.Manager, log *slog.Logger) *PermissionHandler {
	if manager == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("manager cannot be nil for PermissionHandler")
	}
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for PermissionHandler")
	}

	return &PermissionHandler{
		manager: manager,
		logger:  log.With(slog.String("component", "permission_handler")),
	}
}

// Status handles GET /permission requests. Always a fresh read of the
// platform value.
func (h *PermissionHandler) Status(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, PermissionResponse{
		State: string(h.manager.Status()),
	})
}

// Request handles POST /permission/request, the explicit user consent
// action. Safe to call repeatedly: outside the default state it is a
// no-op returning the current state.
func (h *PermissionHandler) Request(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	state, err := h.manager.Request(r.Context())
	if err != nil {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Permission request failed", err)
		return
	}

	log.Debug("permission request handled", slog.String("state", string(state)))
	shared.RespondWithJSON(w, r, http.StatusOK, PermissionResponse{State: string(state)})
}
