package blog

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// SessionContextKey is the fiber locals key under which the authenticator
// stores the decoded session claims.
const SessionContextKey = "session"

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSession sets the session claims in the given context
func WithSession(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, sessionCtxKey, claims)
}

// SessionFromContext finds the session claims in the standard context.
func SessionFromContext(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*SessionClaims)
	return raw, ok
}

// SessionFromFiber extracts the session claims the authenticator stored in
// the request locals.
func SessionFromFiber(c *fiber.Ctx) (*SessionClaims, bool) {
	raw := c.Locals(SessionContextKey)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*SessionClaims)
	return claims, ok
}
