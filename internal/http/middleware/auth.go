package middleware

import (
	"net/http"
	"strings"

	"taskhive/internal/service"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key the verified identity is stored under.
const UserIDKey = "user_id"

// RequireAuth gates a route behind a bearer access token.
//
// No credential offered -> 401; credential offered but rejected -> 403.
// Clients rely on this split: only a 403 means "my token went stale, refresh
// and retry"; a 401 means no token was sent at all.
func RequireAuth(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			AuthRejected.WithLabelValues("missing").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "access token required"})
			return
		}

		userID, err := tokens.VerifyAccess(token)
		if err != nil {
			AuthRejected.WithLabelValues("invalid").Inc()
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "invalid or expired token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
