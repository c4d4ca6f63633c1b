package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jupiterclapton/nowshare/internal/core/ports"
)

const Version = "1.0.0"

// Instrumentation is the metrics side of the router. The Prometheus adapter
// implements it.
type Instrumentation interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

type RouterConfig struct {
	Env            string // "local", "dev", "prod"
	Mode           string // store driver, reported by the health endpoints
	AllowedOrigins []string
	Metrics        Instrumentation // optional
	Dev            ports.DevService
	Now            func() time.Time
}

// NewRouter builds the whole HTTP surface: the /api routes, the health checks and
// the middleware chain (request id, access log, recovery, CORS, tracing).
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Message: "NowShare API is running", Mode: cfg.Mode})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.listUsers)
			r.Post("/upsert", h.upsertUser)
			r.Get("/{uid}", h.getUser)
			r.Get("/{uid}/friends", h.listFriends)
			r.Post("/{uid}/friends", h.addFriend)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.listTimeline)
			r.Post("/", h.createPost)
			r.Get("/user/{uid}", h.listUserPosts)
			r.Post("/{id}/reaction", h.addReaction)
			r.Delete("/expired/cleanup", h.cleanupExpired)
			r.Delete("/{id}", h.deletePost)
		})

		if cfg.Env != "prod" && cfg.Dev != nil {
			d := &devHandler{dev: cfg.Dev, mode: cfg.Mode, version: Version, now: cfg.Now}
			r.Route("/test", func(r chi.Router) {
				r.Get("/", d.info)
				r.Post("/reset", d.reset)
				r.Post("/seed", d.seed)
				r.Get("/debug", d.debug)
			})
			slog.Info("🧪 Test endpoints enabled", "env", cfg.Env)
		}
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "traceparent", "baggage"},
	})

	return otelhttp.NewHandler(c.Handler(r), "nowshare-api", otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))
}

// accessLog writes one line per request with the chi request id.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.InfoContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
