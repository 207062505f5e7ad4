package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware adds the baseline browser hardening headers.
// frontendAPI is the identity provider origin the pages talk to, if any.
func SecurityHeadersMiddleware(frontendAPI string) gin.HandlerFunc {
	connectSrc := "'self'"
	if frontendAPI != "" {
		connectSrc += " " + frontendAPI
	}
	csp := "default-src 'self'; " +
		"script-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data: https://img.clerk.com; " +
		"font-src 'self'; " +
		"connect-src " + connectSrc + "; " +
		"frame-ancestors 'none'; " +
		"base-uri 'self'; " +
		"form-action 'self' https://accounts.google.com"

	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")
		c.Header("Content-Security-Policy", csp)

		// Authenticated responses must not be cached.
		if c.GetHeader("Authorization") != "" || hasCookie(c, "__session") {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}

		c.Next()
	}
}

func hasCookie(c *gin.Context, name string) bool {
	v, err := c.Cookie(name)
	return err == nil && v != ""
}
