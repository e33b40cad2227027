package middleware

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
)

//
// --- Role-Based Middleware ---
//
// These middleware functions are designed to be USED *AFTER*
// AuthMiddleware(). They read the 'userID' from the context, query the
// DB for that user's role, and enforce role permissions.
//

// queryUserRole is a helper to get the user's role from the DB.
func queryUserRole(db *sql.DB, userID int64) (string, error) {
	var role string
	err := db.QueryRow("SELECT role FROM users WHERE id = ? AND status = 'active'", userID).Scan(&role)
	if err != nil {
		return "", err
	}
	return role, nil
}

// AdminMiddleware restricts a route to admin users.
func AdminMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID_raw, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context (AuthMiddleware must run first)"})
			c.Abort()
			return
		}
		userID := userID_raw.(int64)

		role, err := queryUserRole(db, userID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusForbidden, gin.H{"error": "Invalid user"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error checking role"})
			}
			c.Abort()
			return
		}

		if role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied: Admin role required"})
			c.Abort()
			return
		}

		c.Set("userRole", role)
		c.Next()
	}
}
