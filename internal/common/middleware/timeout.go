package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/common/httpx"
)

// SetTimeout enforces a deadline on request handling. If the handler exceeds
// the given duration, a timeout error response is written unless headers were
// already sent. The timeout is echoed in a response header for debugging.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := httpx.NewResponseWriter(w)
			r = r.WithContext(ctx)

			rw.Header().Set("X-GSM-Timeout", timeout.String())

			done := make(chan struct{})
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						log.Ctx(ctx).Error().Msgf("panic in handler: %v", rec)
					}
					close(done)
				}()
				next.ServeHTTP(rw, r)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				if !rw.Written() {
					httpx.ErrRequestTimeout().Send(w)
				}
				log.Ctx(ctx).Error().Msgf("request timed out")
				return
			}
		})
	}
}
