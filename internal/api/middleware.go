package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"delivery-tracking-service/pkg/logger"
)

type Middleware struct {
	logger *logger.Logger
}

func NewMiddleware(log *logger.Logger) *Middleware {
	return &Middleware{logger: log.Named("http")}
}

// Logger records end-to-end request duration, status and response size.
// Streaming endpoints log once, when the client disconnects.
func (m *Middleware) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			m.logger.Debug("http request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("request_id", middleware.GetReqID(r.Context())),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("duration", time.Since(start)),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func (m *Middleware) Recoverer(next http.Handler) http.Handler {
	return middleware.Recoverer(next)
}
