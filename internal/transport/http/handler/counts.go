package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kgbox/expiry-notifier/internal/domain"
)

type expiryScanner interface {
	Scan(ctx context.Context, tenantID string) (map[string]*domain.TenantAggregate, error)
}

// CountsHandler serves the public expiry counts endpoint.
type CountsHandler struct {
	scanner expiryScanner
}

func NewCountsHandler(scanner expiryScanner) *CountsHandler {
	return &CountsHandler{scanner: scanner}
}

// Counts returns expired/near-expiry product counts, either for a single
// tenant (tenant_id in the query string, or in the POST body) or aggregated
// across all tenants.
func (h *CountsHandler) Counts(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" && r.Method == http.MethodPost && r.Body != nil {
		var body struct {
			TenantID string `json:"tenant_id"`
		}
		// A missing or malformed body means no filter, same as an empty query.
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			tenantID = body.TenantID
		}
	}

	aggregates, err := h.scanner.Scan(r.Context(), tenantID)
	if err != nil {
		httpError(w, err)
		return
	}

	if tenantID != "" {
		resp := CountsEnvelope{TenantID: tenantID}
		if agg, ok := aggregates[tenantID]; ok {
			resp.Expired = agg.ExpiredCount
			resp.Near = agg.NearCount
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp := TotalsEnvelope{PerTenant: make(map[string]Counts, len(aggregates))}
	for id, agg := range aggregates {
		resp.PerTenant[id] = Counts{Expired: agg.ExpiredCount, Near: agg.NearCount}
		resp.Total.Expired += agg.ExpiredCount
		resp.Total.Near += agg.NearCount
	}
	writeJSON(w, http.StatusOK, resp)
}
