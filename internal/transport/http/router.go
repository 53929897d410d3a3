package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/kgbox/expiry-notifier/internal/application/notification"
	"github.com/kgbox/expiry-notifier/internal/application/registry"
	"github.com/kgbox/expiry-notifier/internal/config"
	"github.com/kgbox/expiry-notifier/internal/transport/http/handler"
	appmiddleware "github.com/kgbox/expiry-notifier/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(preflight204)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to the public counts endpoint.
	publicRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	registrySvc := registry.NewService(deps.TokenRepo)
	notifSvc := notification.NewService(deps.NotificationRepo)

	healthH := handler.Health
	countsH := handler.NewCountsHandler(deps.ScanService)
	sendH := handler.NewSendHandler(deps.Sender)
	deviceH := handler.NewDeviceHandler(registrySvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	jobH := handler.NewJobHandler(deps.Job)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/ping", healthH)
		r.With(publicRL.Limit).Get("/expiry/counts", countsH.Counts)
		r.With(publicRL.Limit).Post("/expiry/counts", countsH.Counts)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/notifications/send", sendH.Send)
			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{notificationID}/read", notifH.MarkAsRead)

			r.Get("/devices/tokens", deviceH.List)
			r.Post("/devices/tokens", deviceH.Register)
			r.Delete("/devices/tokens/{token}", deviceH.Unregister)

			r.Post("/jobs/expiry-scan", jobH.TriggerScan)
		})
	})

	return r
}

// preflight204 rewrites the status of a successful CORS pre-flight response
// to an empty 204 No Content. The cors middleware terminates pre-flights
// with 200; the contract for the public endpoints is 204.
func preflight204(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w = &preflightWriter{ResponseWriter: w}
		}
		next.ServeHTTP(w, r)
	})
}

type preflightWriter struct{ http.ResponseWriter }

func (w *preflightWriter) WriteHeader(status int) {
	if status == http.StatusOK {
		status = http.StatusNoContent
	}
	w.ResponseWriter.WriteHeader(status)
}
