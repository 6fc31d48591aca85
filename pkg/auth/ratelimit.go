package auth

import (
	"fmt"
	"net/http"

	"github.com/Mindburn-Labs/retouch/pkg/ratelimit"
)

// RateLimitMiddleware enforces per-account rate limiting. The actor is the
// authenticated principal, falling back to the remote address for public
// paths. A nil store disables limiting, and limiter errors fail open so a
// degraded Redis cannot take down all traffic.
func RateLimitMiddleware(store ratelimit.Store, policy ratelimit.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			actorID := r.RemoteAddr
			if p, err := PrincipalFrom(r.Context()); err == nil {
				actorID = p.ID
			}

			allowed, err := store.Allow(r.Context(), actorID, policy, 1)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				retryAfter := 60 / policy.RPM
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded. Retry after the specified interval.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
