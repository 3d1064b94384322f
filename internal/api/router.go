package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kanbanflow/herald/internal/api/middleware"
)

// NewRouter assembles the service's HTTP routes.
func NewRouter(settingsHandler *SettingsHandler, permissionHandler *PermissionHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Trace)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/settings", settingsHandler.Get)
	r.Put("/settings", settingsHandler.Update)

	r.Get("/permission", permissionHandler.Status)
	r.Post("/permission/request", permissionHandler.Request)

	return r
}
