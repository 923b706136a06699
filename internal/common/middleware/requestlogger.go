// Package middleware provides HTTP middleware for request logging, timeout
// handling, and panic recovery. It integrates with zerolog for structured
// logging and supports request tracing through unique request IDs.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/logtrace"
	"github.com/skymodel/skymodel/internal/common/uuid"
)

// RequestIDHeader carries the request id back to the client for tracing.
const RequestIDHeader = "X-GSM-Request-ID"

// RequestLogger logs incoming requests and adds a unique request ID to both
// the request context and response headers. The request id is bound into the
// context logger so all downstream log lines carry it.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		requestID := newRequestId()
		ctx = context.WithValue(ctx, logtrace.RequestIdKey, requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		requestFields := map[string]any{
			"requestURL":    fmt.Sprintf("%s://%s%s", scheme, r.Host, r.RequestURI),
			"requestMethod": r.Method,
			"requestPath":   r.URL.Path,
			"remoteIP":      r.RemoteAddr,
			"proto":         r.Proto,
		}
		log.Ctx(ctx).Info().Fields(requestFields).Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
				Msg("request completed")
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// newRequestId generates a unique request identifier. It attempts a UUID
// first, falling back to a timestamp-based ID if UUID generation fails.
func newRequestId() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
