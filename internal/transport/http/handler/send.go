package handler

import (
	"encoding/json"
	"net/http"

	"github.com/kgbox/expiry-notifier/internal/application/notify"
	"github.com/kgbox/expiry-notifier/internal/transport/http/middleware"
)

// SendHandler serves the authenticated ad hoc send operation.
type SendHandler struct {
	sender notify.Sender
}

func NewSendHandler(sender notify.Sender) *SendHandler {
	return &SendHandler{sender: sender}
}

// Send pushes a message to a broadcast channel. Callers without an
// explicit channel or tenant fall back to their own tenant's channel.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req notify.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChannelID == "" && req.TenantID == "" {
		req.TenantID = claims.TenantID
	}

	messageID, err := h.sender.Send(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SendEnvelope{Success: true, MessageID: messageID})
}
