package middleware

import (
	"identity-sync-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

// SessionContext resolves the local user for the verified claims and stores
// the result under domain.KeySessionCtx. It never aborts the request.
func SessionContext(sessionUC domain.SessionUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := sessionUC.BuildContext(c.Request.Context(), SessionClaimsFrom(c), c.Request.Header.Clone())
		c.Set(string(domain.KeySessionCtx), sc)
		if sc.User != nil {
			c.Set(string(domain.KeyUserID), sc.User.ID)
			c.Set(string(domain.KeyAuthID), sc.User.AuthID)
			c.Set(string(domain.KeyUserRole), sc.User.Role)
		}
		c.Next()
	}
}

// SessionContextFrom returns the request's session context, or an anonymous
// one when the middleware did not run.
func SessionContextFrom(c *gin.Context) *domain.SessionContext {
	if v, ok := c.Get(string(domain.KeySessionCtx)); ok {
		if sc, ok := v.(*domain.SessionContext); ok && sc != nil {
			return sc
		}
	}
	return &domain.SessionContext{Claims: SessionClaimsFrom(c), Headers: c.Request.Header}
}
