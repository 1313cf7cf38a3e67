package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders returns middleware that sets security-related HTTP headers
// on every response. Logify serves JSON only, so the policy is stricter than
// a browser-facing app: nothing may be framed, sniffed, or loaded as a page.
//
// TLS termination happens at the reverse proxy in front of the service;
// these headers provide defense-in-depth at the application layer.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			// Content-Security-Policy: the API never serves active content.
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

			// Strict-Transport-Security: enforce HTTPS for 1 year including
			// subdomains. The proxy terminates TLS; this tells browsers to
			// always use HTTPS for subsequent requests.
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

			// X-Content-Type-Options: prevent MIME type sniffing.
			h.Set("X-Content-Type-Options", "nosniff")

			// X-Frame-Options: prevent clickjacking (redundant with CSP
			// frame-ancestors but some older browsers only support this header).
			h.Set("X-Frame-Options", "DENY")

			// Referrer-Policy: limit referrer information leaked to external sites.
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			return next(c)
		}
	}
}
