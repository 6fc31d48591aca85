// Package auth provides HTTP middleware: request IDs, CORS, bearer-token
// authentication and per-account rate limiting.
package auth

import (
	"context"
	"errors"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated account behind a request.
type Principal struct {
	ID    string
	Email string
	Name  string
}

// WithPrincipal attaches a Principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom retrieves the Principal from the context.
func PrincipalFrom(ctx context.Context) (*Principal, error) {
	p, ok := ctx.Value(principalKey).(*Principal)
	if !ok || p == nil {
		return nil, errors.New("no principal in context")
	}
	return p, nil
}

// AccountID returns the authenticated account id, or "" when unauthenticated.
func AccountID(ctx context.Context) string {
	p, err := PrincipalFrom(ctx)
	if err != nil {
		return ""
	}
	return p.ID
}
