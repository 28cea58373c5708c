package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// observe logs every request and feeds the HTTP metrics. Unmatched paths are
// folded into one route label.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)

		s.metrics.ObserveHTTP(route, r.Method, status, dur)
		s.logger.Info("http request",
			"route", route,
			"method", r.Method,
			"status", status,
			"duration", dur,
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}
