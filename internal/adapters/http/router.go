package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whiskerauth/whisker-auth/internal/application"
)

// Handler is the HTTP adapter entrypoint for auth and licensing use-cases.
// Keeping only the application dependency here preserves clean adapter
// boundaries.
type Handler struct {
	service    *application.Service
	adminToken string
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, adminToken string) *Handler {
	return &Handler{service: service, adminToken: adminToken}
}

// NewRouter registers HTTP routes and the middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across
// endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/login", handler.login)
		r.Post("/sessions", handler.createSession)
		r.Get("/sessions/validate", handler.validateSession)

		r.Group(func(r chi.Router) {
			r.Use(handler.sessionMiddleware)
			r.Get("/sessions", handler.listSessions)
			r.Delete("/sessions/{session_id}", handler.endSession)
		})
	})

	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(handler.adminAuthMiddleware)
		r.Post("/users", handler.createUser)
		r.Get("/users/{user_id}/roles", handler.listUserRoles)
		r.Delete("/users/{user_id}", handler.deactivateUser)
		r.Post("/applications", handler.createApplication)
		r.Delete("/applications/{application_id}", handler.deactivateApplication)
		r.Post("/licenses", handler.issueLicenses)
		r.Post("/licenses/assign", handler.assignLicense)
		r.Post("/licenses/activate", handler.activateLicense)
		r.Post("/licenses/revoke", handler.revokeLicense)
		r.Post("/licenses/quota", handler.checkQuota)
		r.Post("/licenses/devices", handler.registerLicenseDevice)
		r.Get("/licenses/{key}/devices", handler.listLicenseDevices)
		r.Post("/roles", handler.grantApplicationRole)
		r.Get("/events", handler.listSecurityEvents)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}
