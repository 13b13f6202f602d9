package blog

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// IdentityStore is the account lookup the authenticator needs during token
// renewal.
type IdentityStore interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
}

// Authenticator gates routes behind the session cookie. Each request lands
// in one of five states:
//
//	no cookie                      -> redirect to the login page
//	signature or structure invalid -> 500
//	token not yet expired          -> pass through
//	expired, inside login window   -> re-mint, pass through, set-cookie
//	expired, outside login window  -> 401
//
// A renewed token preserves the original issued-at claim, so the total
// session lifetime is bounded by loginExpiry no matter how many renewals
// happen. Two concurrent renewals of the same token both succeed and yield
// independently valid tokens; that is redundant work, not a hazard.
type Authenticator struct {
	users       IdentityStore
	tokens      *TokenManager
	loginPath   string
	loginExpiry time.Duration
	logger      Logger
	now         func() time.Time
}

// NewAuthenticator wires the middleware against an identity store and a
// token manager.
func NewAuthenticator(users IdentityStore, tokens *TokenManager, cfg Config) *Authenticator {
	loginPath := cfg.GetLoginPath()
	if loginPath == "" {
		loginPath = "/login"
	}

	return &Authenticator{
		users:       users,
		tokens:      tokens,
		loginPath:   loginPath,
		loginExpiry: cfg.GetLoginExpiry(),
		logger:      defLogger{},
		now:         time.Now,
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	a.logger = logger
	return a
}

// WithClock overrides the time source. Test hook.
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	return a
}

// Protect returns the middleware. The wrapped handlers read the session via
// SessionFromFiber or SessionFromContext; a renewed cookie, if any, is
// attached to the response after the handler chain returns.
func (a *Authenticator) Protect() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		// An internal fault must never leak an unauthenticated path
		// through to the handler chain.
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("session authentication panicked: %v", r)
				err = c.SendStatus(fiber.StatusInternalServerError)
			}
		}()

		raw := c.Cookies(a.tokens.CookieName())
		if raw == "" {
			a.logger.Debug("no session cookie on %s, redirecting to %s", c.Path(), a.loginPath)
			return c.Redirect(a.loginPath, fiber.StatusFound)
		}

		claims, err := a.tokens.Decode(raw)
		if err != nil {
			a.logger.Error("session token rejected: %v", err)
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		now := a.now().UTC()

		var renewed *fiber.Cookie
		if !claims.Expires().After(now) {
			renewed, claims, err = a.renew(c.UserContext(), claims, now)
			if err != nil {
				a.logger.Error("session renewal failed: %v", err)
				return c.SendStatus(fiber.StatusInternalServerError)
			}
			if renewed == nil {
				return c.SendStatus(fiber.StatusUnauthorized)
			}
		}

		c.Locals(SessionContextKey, claims)
		c.SetUserContext(WithSession(c.UserContext(), claims))

		err = c.Next()

		if renewed != nil {
			c.Cookie(renewed)
		}
		return err
	}
}

// renew exchanges an expired token for a fresh one when the session is
// still inside its login window and the subject still resolves to a known
// account. A nil cookie with a nil error means the session is unrenewable.
func (a *Authenticator) renew(ctx context.Context, claims *SessionClaims, now time.Time) (*fiber.Cookie, *SessionClaims, error) {
	issuedAt := claims.Issued()
	a.logger.Debug("token renewal request: user=%s iat=%s", claims.Username(), issuedAt)

	if now.After(issuedAt.Add(a.loginExpiry)) {
		a.logger.Debug(
			"session for %q expired: authenticated %s, window closed %s",
			claims.Username(), issuedAt, issuedAt.Add(a.loginExpiry),
		)
		return nil, nil, nil
	}

	account, err := a.users.FindByUsername(ctx, claims.Username())
	if err != nil {
		return nil, nil, err
	}
	if account == nil || !account.Role.IsValid() {
		a.logger.Debug("subject %q no longer resolvable, refusing renewal", claims.Username())
		return nil, nil, nil
	}

	// Same subject and role, fresh expiry, original issued-at preserved.
	token, err := a.tokens.Encode(claims.Username(), now, issuedAt, claims.Role())
	if err != nil {
		return nil, nil, err
	}

	fresh, err := a.tokens.Decode(token)
	if err != nil {
		return nil, nil, err
	}

	a.logger.Debug("token renewed for %q", claims.Username())
	return a.tokens.Cookie(token), fresh, nil
}

// RequireRole rejects requests whose session role is below min. Layer it
// after Protect; the role check is per-route policy, not something the
// authenticator enforces globally.
func RequireRole(min Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := SessionFromFiber(c)
		if !ok || !claims.Role().IsAtLeast(min) {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.Next()
	}
}
