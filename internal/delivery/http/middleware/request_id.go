package middleware

import (
	"context"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

// RequestID reuses an inbound X-Request-ID when it parses as a UUID and mints
// one otherwise. The id is echoed on the response and stored under
// "RequestID" for the response envelope.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set("RequestID", id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), domain.KeyRequestID, id))
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestMeta collects the request fields attached to security events.
func RequestMeta(c *gin.Context) security.RequestMeta {
	return security.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		RequestID: c.GetString("RequestID"),
		Path:      c.Request.URL.Path,
	}
}
