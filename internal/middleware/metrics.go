package middleware

import (
	"net/http"
	"time"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/metrics"
)

// Metrics records request counts and latency per route pattern.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			m.ObserveRequest(r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
		})
	}
}
