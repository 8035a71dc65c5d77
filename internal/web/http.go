package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HTTPLogger attaches a request-scoped logger to the context and logs every
// request once it is served.
func HTTPLogger(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		initialTime := time.Now()
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)

		logger := log.With().
			Str("request_id", rid).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		ctx := logger.WithContext(r.Context())

		wr := NewStatusCodeRecorderResponseWriter(w)
		handler.ServeHTTP(wr, r.WithContext(ctx))

		event := logger.Info()
		if wr.Status >= 500 {
			event = logger.Error()
		}
		event.Int("status", wr.Status).Dur("duration", time.Since(initialTime)).Msg("http: request served")
	})
}

type StatusCodeRecorderResponseWriter struct {
	http.ResponseWriter
	Status int
}

func (r *StatusCodeRecorderResponseWriter) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *StatusCodeRecorderResponseWriter) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func NewStatusCodeRecorderResponseWriter(w http.ResponseWriter) *StatusCodeRecorderResponseWriter {
	return &StatusCodeRecorderResponseWriter{ResponseWriter: w, Status: 200}
}
