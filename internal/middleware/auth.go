package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/labstock/labstock-golang/internal/auth"
	"github.com/labstock/labstock-golang/internal/session"
)

// AuthMiddleware validates the Bearer token AND checks that its session
// record still exists in Redis. A logged-out or revoked token fails here
// even if the JWT itself has not expired yet.
func AuthMiddleware(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			c.Abort()
			return
		}

		userID, sessionID, err := auth.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		if _, err := sessions.Get(c.Request.Context(), sessionID); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or revoked"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Set("sessionID", sessionID)
		c.Next()
	}
}
