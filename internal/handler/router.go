package handler

import (
	"net/http"
	"submission_service/internal/middleware"
	"submission_service/pkg/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	Logger       *logging.Logger
	MaxBodyBytes int64
	PublicDir    string
}

func NewRouter(h *SubmissionHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Trace-Id"},
	}))
	if cfg.MaxBodyBytes > 0 {
		r.Use(func(next http.Handler) http.Handler {
			return http.MaxBytesHandler(next, cfg.MaxBodyBytes)
		})
	}

	h.RegisterRoutes(r)

	if cfg.PublicDir != "" {
		r.Handle("/*", NewStaticHandler(cfg.PublicDir))
	}

	return r
}
