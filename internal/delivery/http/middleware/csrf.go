package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"identity-sync-backend/internal/delivery/http/response"

	"github.com/gin-gonic/gin"
)

const (
	CSRFTokenCookieName = "csrf_token"
	CSRFTokenHeaderName = "X-CSRF-Token"
	// CSRFTokenFormField carries the token in server-rendered forms.
	CSRFTokenFormField = "csrf_token"
	// CSRFContextKey exposes the current token to page handlers.
	CSRFContextKey  = "csrf_token"
	CSRFTokenLength = 32
	CSRFTokenExpiry = 24 * time.Hour
)

func generateCSRFToken() (string, error) {
	bytes := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CSRFMiddleware implements the double-submit cookie pattern. Every request
// gets a csrf_token cookie; state-changing requests must echo it either in
// the X-CSRF-Token header or in the csrf_token form field.
//
// Paths under exemptPrefixes skip validation: the webhook is authenticated by
// its signature and the RPC transport only serves GET.
func CSRFMiddleware(secure bool, exemptPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFTokenCookieName)
		if err != nil || token == "" {
			token, err = generateCSRFToken()
			if err != nil {
				response.Error(c, http.StatusInternalServerError, "Failed to generate security token", nil)
				c.Abort()
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CSRFTokenCookieName, token, int(CSRFTokenExpiry.Seconds()), "/", "", secure, false)
		}
		c.Set(CSRFContextKey, token)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range exemptPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		submitted := c.GetHeader(CSRFTokenHeaderName)
		if submitted == "" {
			submitted = c.PostForm(CSRFTokenFormField)
		}
		if submitted == "" {
			response.Error(c, http.StatusForbidden, "Missing CSRF token", nil)
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
			response.Error(c, http.StatusForbidden, "Invalid CSRF token", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
