package blog

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionClaims is the token payload carried in the session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserRole string `json:"role,omitempty"`
}

// Username returns the authenticated subject.
func (c *SessionClaims) Username() string {
	return c.RegisteredClaims.Subject
}

// Role returns the role the token was minted with.
func (c *SessionClaims) Role() Role {
	return Role(c.UserRole)
}

// Expires returns the token expiry, or the zero time when absent.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the authentication anchor: the instant the subject last
// presented credentials. Renewal preserves it across re-mints.
func (c *SessionClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// TokenManager encodes, decodes, and wraps session tokens in cookies. All
// fields are read-only after construction so a single instance is shared
// across requests.
type TokenManager struct {
	secret      []byte
	tokenExpiry time.Duration
	issuer      string
	cookieName  string
	domain      string
	path        string
	maxAge      time.Duration
	logger      Logger
}

// NewTokenManager builds a token manager from configuration.
func NewTokenManager(cfg Config) *TokenManager {
	return &TokenManager{
		secret:      []byte(cfg.GetSecret()),
		tokenExpiry: cfg.GetTokenExpiry(),
		issuer:      cfg.GetIssuer(),
		cookieName:  cfg.GetCookieName(),
		domain:      cfg.GetCookieDomain(),
		path:        cfg.GetCookiePath(),
		maxAge:      cfg.GetCookieMaxAge(),
		logger:      defLogger{},
	}
}

func (tm *TokenManager) WithLogger(logger Logger) *TokenManager {
	tm.logger = logger
	return tm
}

// CookieName returns the name of the cookie tokens travel in.
func (tm *TokenManager) CookieName() string {
	return tm.cookieName
}

// Encode mints a signed token expiring at now + tokenExpiry. The issuedAt
// instant is passed separately from now so renewal can carry the original
// authentication anchor forward into the fresh token.
func (tm *TokenManager) Encode(subject string, now, issuedAt time.Time, role Role) (string, error) {
	expiry := now.Add(tm.tokenExpiry)
	tm.logger.Debug("minting token for %q, expires at %s", subject, expiry)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tm.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		UserRole: string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}
	return signed, nil
}

// Decode verifies the signature and deserializes the payload. Expiry is
// deliberately not validated here: the authenticator compares exp itself so
// an expired token can still be exchanged inside the renewal window. Do not
// use Decode as a validity check anywhere else.
func (tm *TokenManager) Decode(raw string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithoutClaimsValidation())

	if err != nil {
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// Cookie wraps an encoded token in the configured session cookie.
func (tm *TokenManager) Cookie(token string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     tm.cookieName,
		Value:    token,
		Domain:   tm.domain,
		Path:     tm.path,
		MaxAge:   int(tm.maxAge / time.Second),
		HTTPOnly: true,
	}
}

// GenerateCookie mints a token anchored at now and wraps it in a cookie.
// Used at login and registration, where credentials were just presented.
func (tm *TokenManager) GenerateCookie(subject string, role Role) (*fiber.Cookie, error) {
	now := time.Now().UTC()
	token, err := tm.Encode(subject, now, now, role)
	if err != nil {
		return nil, err
	}
	return tm.Cookie(token), nil
}
