package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDHeader carries the correlation id on requests and responses, and
// surfaces in problem responses as trace_id.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds client-supplied ids; anything longer is replaced so
// a caller cannot stuff arbitrary payloads into logs and error bodies.
const maxRequestIDLen = 64

// RequestIDMiddleware injects a unique request id into every request context
// and response header. A well-formed client-supplied id is reused so callers
// can correlate retries across their own systems.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
