package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whiskerauth/whisker-auth/internal/application"
	"github.com/whiskerauth/whisker-auth/internal/domain"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeySession   ctxKey = "session"
)

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware honours an inbound correlation id and mints one
// when the caller did not send any.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			cause := recover()
			if cause == nil {
				return
			}
			httpLogger().ErrorContext(r.Context(), "handler panicked",
				"operation", "http_panic_recovery",
				"outcome", "failure",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", requestIDFromContext(r.Context()),
				"cause", cause,
			)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// responseTrace captures the status and byte count flowing through a
// ResponseWriter so loggingMiddleware can report them afterwards.
type responseTrace struct {
	http.ResponseWriter
	status  int
	written int
}

func (t *responseTrace) WriteHeader(status int) {
	if t.status == 0 {
		t.status = status
	}
	t.ResponseWriter.WriteHeader(status)
}

func (t *responseTrace) Write(p []byte) (int, error) {
	n, err := t.ResponseWriter.Write(p)
	t.written += n
	return n, err
}

// statusOrDefault reports the recorded status, treating an untouched
// writer as an implicit 200 the way net/http does.
func (t *responseTrace) statusOrDefault() int {
	if t.status == 0 {
		return http.StatusOK
	}
	return t.status
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		trace := &responseTrace{ResponseWriter: w}
		next.ServeHTTP(trace, r)

		status := trace.statusOrDefault()
		outcome := "success"
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			outcome = "failure"
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			outcome = "failure"
			level = slog.LevelWarn
		}

		httpLogger().Log(r.Context(), level, "http request completed",
			"operation", "http_request",
			"outcome", outcome,
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", status,
			"bytes", trace.written,
			"duration_ms", time.Since(began).Milliseconds(),
			"request_id", requestIDFromContext(r.Context()),
		)
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

func bearerTokenFromHeader(header string) (string, error) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("missing bearer token")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// sessionMiddleware validates the bearer token and stashes the resolved
// session on the request context for downstream handlers.
func (h *Handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		session, err := h.service.ValidateSession(r.Context(), raw)
		if err != nil {
			status, code, msg := mapDomainError(err)
			writeError(w, status, code, msg)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySession, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminAuthMiddleware gates provisioning endpoints behind the static admin
// token configured for the deployment. Comparison is constant-time.
func (h *Handler) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" {
			writeError(w, http.StatusForbidden, "ADMIN_DISABLED", "admin API is not enabled")
			return
		}
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil || subtle.ConstantTimeCompare([]byte(raw), []byte(h.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFromContext(r *http.Request) (application.ValidateSessionResponse, bool) {
	v := r.Context().Value(ctxKeySession)
	session, ok := v.(application.ValidateSessionResponse)
	return session, ok
}

func (h *Handler) isAdminRequest(r *http.Request) bool {
	if h.adminToken == "" {
		return false
	}
	raw := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
	return raw != "" && subtle.ConstantTimeCompare([]byte(raw), []byte(h.adminToken)) == 1
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or secret"
	case errors.Is(err, domain.ErrLockedOut):
		return http.StatusTooManyRequests, "LOCKED_OUT", "account temporarily locked"
	case errors.Is(err, domain.ErrDeviceMismatch):
		return http.StatusForbidden, "DEVICE_MISMATCH", "account is bound to a different device"
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, "SESSION_EXPIRED", "session expired"
	case errors.Is(err, domain.ErrSessionRevoked):
		return http.StatusUnauthorized, "SESSION_REVOKED", "session revoked"
	case errors.Is(err, domain.ErrLicenseRequired):
		return http.StatusForbidden, "LICENSE_REQUIRED", "an active license is required"
	case errors.Is(err, domain.ErrLicenseExpired):
		return http.StatusForbidden, "LICENSE_EXPIRED", "license expired"
	case errors.Is(err, domain.ErrInsufficientLicenseTier):
		return http.StatusForbidden, "INSUFFICIENT_LICENSE_TIER", "license tier does not meet the application requirement"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusForbidden, "QUOTA_EXCEEDED", "application quota exhausted for this license"
	case errors.Is(err, domain.ErrDeviceLimitExceeded):
		return http.StatusForbidden, "DEVICE_LIMIT_EXCEEDED", "device limit reached for this license"
	case errors.Is(err, domain.ErrAlreadyAssigned):
		return http.StatusConflict, "ALREADY_ASSIGNED", err.Error()
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "INVALID_STATE", err.Error()
	case errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict, "DUPLICATE", "resource already exists"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
