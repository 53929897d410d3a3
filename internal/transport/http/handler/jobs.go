package handler

import (
	"context"
	"net/http"

	"github.com/kgbox/expiry-notifier/internal/application/job"
	"github.com/kgbox/expiry-notifier/internal/transport/http/middleware"
)

type scanJob interface {
	Run(ctx context.Context) (*job.Summary, error)
}

// JobHandler exposes a manual trigger for the expiry scan job.
type JobHandler struct {
	job scanJob
}

func NewJobHandler(j scanJob) *JobHandler {
	return &JobHandler{job: j}
}

// TriggerScan runs the scan-and-notify job synchronously. A run already in
// progress is rejected with a conflict.
func (h *JobHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.ClaimsFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	summary, err := h.job.Run(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
