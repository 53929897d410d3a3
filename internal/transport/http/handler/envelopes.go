package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kgbox/expiry-notifier/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// SendEnvelope wraps the authenticated send response.
type SendEnvelope struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CountsEnvelope wraps a single tenant's counts.
type CountsEnvelope struct {
	TenantID string `json:"tenant_id"`
	Expired  int    `json:"expired"`
	Near     int    `json:"near"`
}

// TotalsEnvelope wraps the unfiltered counts response.
type TotalsEnvelope struct {
	Total     Counts            `json:"total"`
	PerTenant map[string]Counts `json:"per_tenant"`
}

type Counts struct {
	Expired int `json:"expired"`
	Near    int `json:"near"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to an HTTP status and a stable
// error code.
func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrRunInProgress):
		status, code = http.StatusConflict, "run_in_progress"
	case errors.Is(err, domain.ErrScanFailed), errors.Is(err, domain.ErrStoreUnavailable):
		status, code = http.StatusInternalServerError, "query_failed"
	case errors.Is(err, domain.ErrDispatchFailed):
		status, code = http.StatusBadGateway, "dispatch_failed"
	}
	writeJSON(w, status, MessageEnvelope{Error: err.Error(), ErrorCode: code})
}
