package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kgbox/expiry-notifier/internal/application/notification"
	"github.com/kgbox/expiry-notifier/internal/domain"
	"github.com/kgbox/expiry-notifier/internal/transport/http/middleware"
)

// NotificationHandler serves the authenticated notification read surface.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type notificationListEnvelope struct {
	Notifications []domain.Notification `json:"notifications"`
}

// ListUnread returns the caller tenant's unread notifications, newest first.
func (h *NotificationHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	items, err := h.svc.ListUnread(r.Context(), claims.TenantID)
	if err != nil {
		httpError(w, err)
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationListEnvelope{Notifications: items})
}

// MarkAsRead dismisses a single notification owned by the caller's tenant.
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := chi.URLParam(r, "notificationID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "notification id is required")
		return
	}
	n, err := h.svc.MarkAsRead(r.Context(), id, claims.TenantID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
