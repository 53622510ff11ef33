package middleware

import (
	"net/http"
	"submission_service/pkg/ctxdata"
	"submission_service/pkg/logging"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const traceHeader = "X-Trace-Id"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// NewLoggingMiddleware attaches the logger and a trace id to the request
// context and logs every completed request.
func NewLoggingMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get(traceHeader)
			if traceID == "" {
				id, err := uuid.NewV7()
				if err != nil {
					id = uuid.New()
				}
				traceID = id.String()
			}

			ctx := ctxdata.WithTraceID(r.Context(), traceID)
			ctx = logging.ContextWithLogger(ctx, logger)
			r = r.WithContext(ctx)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set(traceHeader, traceID)

			next.ServeHTTP(sw, r)

			logger.Info(ctx, "request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
