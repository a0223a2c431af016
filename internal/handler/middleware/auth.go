package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "storefront/storebot/pkg/jwt"
	"storefront/storebot/pkg/response"
)

const (
	ContextKeyUserClaims = "user_claims"
	ContextKeyUserID     = "user_id"
)

// JWTAuth accepts bearer access tokens and exposes the subject as the
// storefront user id.
func JWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := jwtManager.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		if claims.TokenType != jwtpkg.TokenTypeAccess || claims.Subject == "" {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserClaims, claims)
		c.Set(ContextKeyUserID, claims.Subject)
		c.Next()
	}
}
