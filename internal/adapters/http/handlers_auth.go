package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/whiskerauth/whisker-auth/internal/application"
)

type loginRequest struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
	DeviceID string `json:"device_id"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}

	res, err := h.service.Authenticate(r.Context(), application.AuthenticateRequest{
		Username:  req.Username,
		Secret:    req.Secret,
		DeviceID:  req.DeviceID,
		IPAddress: readIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"user_id":      res.UserID,
		"user_uuid":    res.UserUUID,
		"username":     res.Username,
		"is_admin":     res.IsAdmin,
		"device_id":    res.DeviceID,
		"device_bound": res.DeviceBound,
	})
}

type createSessionRequest struct {
	Username      string `json:"username"`
	Secret        string `json:"secret"`
	ApplicationID uint   `json:"application_id"`
	DeviceID      string `json:"device_id"`
}

// createSession authenticates and opens an application session in one call,
// which is how client applications log in.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_session", err)
		return
	}

	ip := readIP(r)
	auth, err := h.service.Authenticate(r.Context(), application.AuthenticateRequest{
		Username:  req.Username,
		Secret:    req.Secret,
		DeviceID:  req.DeviceID,
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "create_session", err)
		return
	}

	res, err := h.service.CreateSession(r.Context(), application.CreateSessionRequest{
		UserID:        auth.UserID,
		ApplicationID: req.ApplicationID,
		DeviceID:      req.DeviceID,
		IPAddress:     ip,
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "create_session", err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{
		"session_id":   res.SessionID.String(),
		"access_token": res.AccessToken,
		"expires_at":   res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) validateSession(w http.ResponseWriter, r *http.Request) {
	token, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	res, err := h.service.ValidateSession(r.Context(), token)
	if err != nil {
		writeMappedError(r.Context(), w, "validate_session", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"session_id": res.SessionID.String(),
		"user_id":    res.UserID,
		"username":   res.Username,
		"expires_at": res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	items, err := h.service.ListActiveSessions(r.Context(), session.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}
	sessions := make([]map[string]any, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, map[string]any{
			"session_id":       item.SessionID.String(),
			"device_id":        item.DeviceID,
			"ip_address":       item.IPAddress,
			"created_at":       item.CreatedAt.UTC().Format(time.RFC3339),
			"expires_at":       item.ExpiresAt.UTC().Format(time.RFC3339),
			"last_activity_at": item.LastActivityAt.UTC().Format(time.RFC3339),
		})
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid session_id")
		return
	}
	// Callers may end their own session; any other session requires the
	// deployment admin token.
	if sessionID != session.SessionID && !h.isAdminRequest(r) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "cannot end another user's session")
		return
	}
	if err := h.service.EndSession(r.Context(), sessionID); err != nil {
		writeMappedError(r.Context(), w, "end_session", err)
		return
	}
	writeMessage(w, http.StatusOK, "Session ended successfully")
}
