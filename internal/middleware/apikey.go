// Package middleware provides HTTP middleware for Logify.
// apikey.go authenticates API requests with a bearer key checked against a
// bcrypt hash from configuration. The host site is the only expected client,
// so a single shared key is sufficient; bcrypt keeps the key itself out of
// the environment.
package middleware

import (
	"crypto/sha256"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/logifywp/logify/internal/apperror"
)

// APIKey returns middleware that requires "Authorization: Bearer <key>" on
// every request and verifies the key against the configured bcrypt hash.
// An empty hash disables the check entirely (development mode).
//
// bcrypt comparison is deliberately slow, so the result for a given key is
// memoized after the first successful match. Only the match outcome is
// cached, keyed by a SHA-256 of the presented key -- the key itself is
// never stored.
func APIKey(keyHash string) echo.MiddlewareFunc {
	var mu sync.Mutex
	verified := make(map[[32]byte]bool)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if keyHash == "" {
				return next(c)
			}

			auth := c.Request().Header.Get("Authorization")
			key, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || key == "" {
				return apperror.NewUnauthorized("missing API key")
			}

			digest := sha256.Sum256([]byte(key))

			mu.Lock()
			good, seen := verified[digest]
			mu.Unlock()

			if !seen {
				good = bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) == nil
				if good {
					// Only cache successes; failures stay slow to resist
					// brute forcing.
					mu.Lock()
					verified[digest] = true
					mu.Unlock()
				}
			}

			if !good {
				return apperror.NewUnauthorized("invalid API key")
			}

			return next(c)
		}
	}
}
