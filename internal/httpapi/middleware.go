package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/pkwy-game-suite/internal/metrics"
)

// requestLogger logs each request and records its latency under the
// matched route pattern, so /api/games/{key} is one series. Upgraded
// WebSocket connections are logged but not observed: their duration is
// the connection lifetime.
func requestLogger(log *zap.Logger, m *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			d := time.Since(start)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status != http.StatusSwitchingProtocols {
				m.Request(r.Method, route, status, d)
			}
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", d),
				zap.String("remote", r.RemoteAddr),
			)
		})
	}
}
