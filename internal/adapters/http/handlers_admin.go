package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/whiskerauth/whisker-auth/internal/application"
	"github.com/whiskerauth/whisker-auth/internal/domain"
)

type createUserRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Secret        string `json:"secret"`
	IsAdmin       bool   `json:"is_admin"`
	SecurityLevel int    `json:"security_level"`
	DeviceLocked  bool   `json:"device_locked"`
	HardwareInfo  string `json:"hardware_info"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_user", err)
		return
	}

	res, err := h.service.CreateUser(r.Context(), application.CreateUserRequest{
		Username:      req.Username,
		Email:         req.Email,
		Secret:        req.Secret,
		IsAdmin:       req.IsAdmin,
		SecurityLevel: req.SecurityLevel,
		DeviceLocked:  req.DeviceLocked,
		HardwareInfo:  req.HardwareInfo,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "create_user", err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{
		"user_id":   res.UserID,
		"user_uuid": res.UserUUID,
	})
}

type createApplicationRequest struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	CurrentVersion      string `json:"current_version"`
	MinimumVersion      string `json:"minimum_version"`
	RequiresLicense     bool   `json:"requires_license"`
	RequiredLicenseType string `json:"required_license_type"`
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_application", err)
		return
	}

	res, err := h.service.CreateApplication(r.Context(), application.CreateApplicationRequest{
		Name:                req.Name,
		Description:         req.Description,
		CurrentVersion:      req.CurrentVersion,
		MinimumVersion:      req.MinimumVersion,
		RequiresLicense:     req.RequiresLicense,
		RequiredLicenseType: domain.LicenseTier(req.RequiredLicenseType),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "create_application", err)
		return
	}
	// The secret key appears in this response only; it is stored server-side
	// and never displayed again.
	writeSuccess(w, http.StatusCreated, map[string]any{
		"application_id": res.ApplicationID,
		"app_uuid":       res.AppUUID,
		"secret_key":     res.SecretKey,
	})
}

type issueLicensesRequest struct {
	Type            string     `json:"type"`
	Count           int        `json:"count"`
	MaxApplications int        `json:"max_applications"`
	MaxDevices      int        `json:"max_devices"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

func (h *Handler) issueLicenses(w http.ResponseWriter, r *http.Request) {
	var req issueLicensesRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "issue_licenses", err)
		return
	}

	issued, err := h.service.IssueLicenses(r.Context(), application.IssueLicensesRequest{
		Type:            domain.LicenseTier(req.Type),
		Count:           req.Count,
		MaxApplications: req.MaxApplications,
		MaxDevices:      req.MaxDevices,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "issue_licenses", err)
		return
	}
	licenses := make([]map[string]any, 0, len(issued))
	for _, lic := range issued {
		licenses = append(licenses, map[string]any{
			"key":              lic.Key,
			"type":             string(lic.Type),
			"max_applications": lic.MaxApplications,
			"max_devices":      lic.MaxDevices,
		})
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"licenses": licenses})
}

type assignLicenseRequest struct {
	Key    string `json:"key"`
	UserID uint   `json:"user_id"`
}

func (h *Handler) assignLicense(w http.ResponseWriter, r *http.Request) {
	var req assignLicenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "assign_license", err)
		return
	}
	lic, err := h.service.AssignLicense(r.Context(), req.Key, req.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "assign_license", err)
		return
	}
	writeSuccess(w, http.StatusOK, licensePayload(lic))
}

type licenseKeyRequest struct {
	Key string `json:"key"`
}

func (h *Handler) activateLicense(w http.ResponseWriter, r *http.Request) {
	var req licenseKeyRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "activate_license", err)
		return
	}
	lic, err := h.service.ActivateLicense(r.Context(), req.Key)
	if err != nil {
		writeMappedError(r.Context(), w, "activate_license", err)
		return
	}
	writeSuccess(w, http.StatusOK, licensePayload(lic))
}

func (h *Handler) revokeLicense(w http.ResponseWriter, r *http.Request) {
	var req licenseKeyRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "revoke_license", err)
		return
	}
	lic, err := h.service.RevokeLicense(r.Context(), req.Key)
	if err != nil {
		writeMappedError(r.Context(), w, "revoke_license", err)
		return
	}
	writeSuccess(w, http.StatusOK, licensePayload(lic))
}

func (h *Handler) listSecurityEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	items, err := h.service.ListSecurityEvents(r.Context(), limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_security_events", err)
		return
	}
	events := make([]map[string]any, 0, len(items))
	for _, item := range items {
		events = append(events, map[string]any{
			"event_id":    item.EventID.String(),
			"event_type":  item.EventType,
			"severity":    item.Severity,
			"description": item.Description,
			"created_at":  item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeSuccess(w, http.StatusOK, map[string]any{"events": events})
}

type grantRoleRequest struct {
	UserID        uint   `json:"user_id"`
	ApplicationID uint   `json:"application_id"`
	Role          string `json:"role"`
}

func (h *Handler) grantApplicationRole(w http.ResponseWriter, r *http.Request) {
	var req grantRoleRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "grant_application_role", err)
		return
	}
	if err := h.service.GrantApplicationRole(r.Context(), req.UserID, req.ApplicationID, req.Role); err != nil {
		writeMappedError(r.Context(), w, "grant_application_role", err)
		return
	}
	writeMessage(w, http.StatusOK, "role granted")
}

type quotaCheckRequest struct {
	Key           string `json:"key"`
	ApplicationID uint   `json:"application_id"`
}

func (h *Handler) checkQuota(w http.ResponseWriter, r *http.Request) {
	var req quotaCheckRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "check_quota", err)
		return
	}
	if err := h.service.CheckQuota(r.Context(), req.Key, req.ApplicationID); err != nil {
		writeMappedError(r.Context(), w, "check_quota", err)
		return
	}
	writeMessage(w, http.StatusOK, "quota ok")
}

type registerDeviceRequest struct {
	Key      string `json:"key"`
	DeviceID string `json:"device_id"`
}

func (h *Handler) registerLicenseDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register_license_device", err)
		return
	}
	if err := h.service.RegisterDevice(r.Context(), req.Key, req.DeviceID); err != nil {
		writeMappedError(r.Context(), w, "register_license_device", err)
		return
	}
	writeMessage(w, http.StatusOK, "device registered")
}

func (h *Handler) listLicenseDevices(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	devices, err := h.service.ListLicenseDevices(r.Context(), key)
	if err != nil {
		writeMappedError(r.Context(), w, "list_license_devices", err)
		return
	}
	if devices == nil {
		devices = []string{}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"devices": devices})
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUintParam(chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user_id")
		return
	}
	items, err := h.service.ListUserRoles(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_user_roles", err)
		return
	}
	roles := make([]map[string]any, 0, len(items))
	for _, item := range items {
		roles = append(roles, map[string]any{
			"application_id": item.ApplicationID,
			"role":           item.Role,
			"granted_at":     item.GrantedAt.UTC().Format(time.RFC3339),
		})
	}
	writeSuccess(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUintParam(chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user_id")
		return
	}
	if err := h.service.DeactivateUser(r.Context(), userID); err != nil {
		writeMappedError(r.Context(), w, "deactivate_user", err)
		return
	}
	writeMessage(w, http.StatusOK, "user deactivated")
}

func (h *Handler) deactivateApplication(w http.ResponseWriter, r *http.Request) {
	applicationID, err := parseUintParam(chi.URLParam(r, "application_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid application_id")
		return
	}
	if err := h.service.DeactivateApplication(r.Context(), applicationID); err != nil {
		writeMappedError(r.Context(), w, "deactivate_application", err)
		return
	}
	writeMessage(w, http.StatusOK, "application deactivated")
}

func licensePayload(lic domain.License) map[string]any {
	payload := map[string]any{
		"key":               lic.Key,
		"type":              string(lic.Type),
		"status":            string(lic.Status),
		"max_applications":  lic.MaxApplications,
		"used_applications": lic.UsedApplications,
		"max_devices":       lic.MaxDevices,
		"used_devices":      lic.UsedDevices,
	}
	if lic.ExpiresAt != nil {
		payload["expires_at"] = lic.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return payload
}
