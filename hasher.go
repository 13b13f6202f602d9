package blog

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
)

// 128 bit salts, argon2id parameters per the library recommendations.
const (
	saltLength   = 16
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// HashPassword generates a fresh random salt and derives the password
// digest from it. Digest and salt are stored as separate opaque strings.
func HashPassword(password string) (digest, salt string, err error) {
	if password == "" {
		return "", "", ErrNoEmptyString
	}

	raw := make([]byte, saltLength)
	if _, err := rand.Read(raw); err != nil {
		// Salt generation failing means the process has no usable entropy
		// source. Not recoverable per request.
		return "", "", errors.Wrap(err, errors.CategoryInternal, "salt generation failed")
	}

	salt = hex.EncodeToString(raw)
	return derive(password, salt), salt, nil
}

// ComparePasswordAndHash recomputes the digest for the given salt and
// compares it against the stored one in constant time.
func ComparePasswordAndHash(password, salt, digest string) bool {
	if password == "" || salt == "" || digest == "" {
		return false
	}
	computed := derive(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

func derive(password, salt string) string {
	sum := argon2.IDKey(
		[]byte(password),
		[]byte(salt),
		argonTime,
		argonMemory,
		argonThreads,
		argonKeyLen,
	)
	return hex.EncodeToString(sum)
}
