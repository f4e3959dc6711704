package middleware

import (
	"net/http"
	"strings"

	"Debate_Community/internal/handler"
	"Debate_Community/internal/pkg"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(verifier *pkg.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization format"})
			c.Abort()
			return
		}

		claims, err := verifier.ParseAccess(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid or expired token"})
			c.Abort()
			return
		}

		// 注入 username
		c.Set(handler.ContextUsernameKey, claims.Username)
		c.Set(handler.ContextUIDKey, claims.UID)
		c.Next()
	}
}
