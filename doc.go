// Package blog implements a small blog backend built around two pieces:
// a cookie-borne session token authenticator with transparent renewal, and
// entity stores layered on a generic single-table repository.
//
// Tokens are short lived HS256 JWTs. When one expires the authenticator
// silently re-mints it as long as the original authentication instant is
// still inside the configured login window; the issued-at claim is carried
// forward on every renewal so a session can never outlive that window
// without fresh credentials.
package blog
