package api

import (
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"genq/internal/metrics"
)

// rateLimit chains a process-local burst guard with the shared
// fixed-window limiter. The guard sheds pathological bursts before they
// reach the store; the fixed-window check is the per-caller policy.
// Store failures deny the request (fail-closed).
func (s *Server) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.guard.Allow() {
			metrics.RateLimitedTotal.Inc()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		d, err := s.limiter.Allow(r.Context(), identity(r), s.cfg.RateLimitMax, s.cfg.RateLimitWindow)
		if err != nil {
			log.Error().Err(err).Msg("rate limit check failed")
		}
		if !d.Allowed {
			metrics.RateLimitedTotal.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.RateLimitWindow.Seconds())))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		next(w, r)
	}
}

// identity keys the rate limiter by authenticated user when the gateway
// forwards one, falling back to the client address.
func identity(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
