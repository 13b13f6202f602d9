package blog

import "github.com/goliatone/go-errors"

// ErrNoSession is returned when the request carries no session cookie.
var ErrNoSession = errors.New("no session cookie present", errors.CategoryAuth).
	WithTextCode("NO_SESSION")

// ErrTokenMalformed is returned when a token fails signature or structure
// verification.
var ErrTokenMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED")

// ErrSessionExpired is returned when a token is past its renewal ceiling.
var ErrSessionExpired = errors.New("session is no longer renewable", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("SESSION_EXPIRED")

// ErrUnauthorized is returned when a valid identity lacks the required role.
var ErrUnauthorized = errors.New("insufficient role", errors.CategoryAuthz).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("INSUFFICIENT_ROLE")

// ErrNoEmptyString guards against hashing empty credentials.
var ErrNoEmptyString = errors.New("value should not be an empty string", errors.CategoryBadInput)
