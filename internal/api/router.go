package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const banner = "Twitch Sus User EventSub Webhook Endpoint"

// RouterConfig collects the handlers served by the router. Auth,
// Deliveries and LiveFeed are optional.
type RouterConfig struct {
	EventSub     http.Handler
	Auth         *AuthHandler
	Deliveries   DeliveryLog
	LiveFeed     http.Handler
	HealthChecks map[string]HealthCheck
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respondText(w, http.StatusOK, banner)
	})
	r.Post("/", cfg.EventSub.ServeHTTP)

	if cfg.Auth != nil {
		r.Get("/auth", cfg.Auth.Login)
		r.Get("/auth-callback", cfg.Auth.Callback)
	}

	r.Handle("/metrics", promhttp.Handler())

	// Live delivery feed
	if cfg.LiveFeed != nil {
		r.Get("/ws", cfg.LiveFeed.ServeHTTP)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler(cfg.HealthChecks))

		if cfg.Deliveries != nil {
			deliveryHandler := NewDeliveryHandler(cfg.Deliveries)
			r.Route("/deliveries", func(r chi.Router) {
				r.Get("/", deliveryHandler.List)
				r.Get("/{id}", deliveryHandler.Get)
			})
		}
	})

	return r
}

// requestLogger writes one line per request. Query strings and bodies are
// left out; OAuth callbacks carry codes in the query.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
