package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kgbox/expiry-notifier/internal/application/registry"
	"github.com/kgbox/expiry-notifier/internal/domain"
	"github.com/kgbox/expiry-notifier/internal/transport/http/middleware"
)

// DeviceHandler serves device token registration for the caller's tenant.
type DeviceHandler struct {
	registry registry.Service
}

func NewDeviceHandler(reg registry.Service) *DeviceHandler {
	return &DeviceHandler{registry: reg}
}

type deviceListEnvelope struct {
	Devices []domain.DeviceToken `json:"devices"`
}

// Register stores or refreshes a device token under the caller's tenant.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req domain.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.TenantID = claims.TenantID

	t, err := h.registry.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Unregister removes a device token owned by the caller's tenant.
func (h *DeviceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if err := h.registry.Unregister(r.Context(), token, claims.TenantID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "token removed"})
}

// List returns the caller tenant's registered device tokens.
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	devices, err := h.registry.List(r.Context(), claims.TenantID)
	if err != nil {
		httpError(w, err)
		return
	}
	if devices == nil {
		devices = []domain.DeviceToken{}
	}
	writeJSON(w, http.StatusOK, deviceListEnvelope{Devices: devices})
}
