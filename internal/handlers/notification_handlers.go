package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labstock/labstock-golang/internal/models"
)

//
// --- Notification Handlers ---
//

// AddNotification is an internal helper to create a notification for one
// user. It is not a handler itself; other handlers call it from inside
// their database transaction.
func (h *Handlers) AddNotification(tx *sql.Tx, userID int64, message string, link string) error {
	var nullLink sql.NullString
	if link != "" {
		nullLink = sql.NullString{String: link, Valid: true}
	}

	query := `
		INSERT INTO notifications
		(user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, 0, ?)`

	_, err := tx.Exec(query, userID, message, nullLink, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}

	return nil
}

// NotifyAdmins fans a notification out to every active admin. Like
// AddNotification, it must be called inside an open transaction so the
// fan-out commits or rolls back with the action that triggered it.
func (h *Handlers) NotifyAdmins(tx *sql.Tx, message string, link string) error {
	rows, err := tx.Query("SELECT id FROM users WHERE role = 'admin' AND status = 'active'")
	if err != nil {
		return fmt.Errorf("failed to look up admins: %w", err)
	}
	defer rows.Close()

	var adminIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan admin id: %w", err)
		}
		adminIDs = append(adminIDs, id)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating admin rows: %w", err)
	}

	for _, id := range adminIDs {
		if err := h.AddNotification(tx, id, message, link); err != nil {
			return err
		}
	}
	return nil
}

// GetMyNotifications is the handler for GET /v1/notifications.
// Unread first, then newest first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	query := `
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`

	rows, err := h.DB.Query(query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var notif models.Notification
		if err := rows.Scan(
			&notif.ID,
			&notif.UserID,
			&notif.Message,
			&notif.Link,
			&notif.IsRead,
			&notif.CreatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification row"})
			return
		}
		notifications = append(notifications, &notif)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating notification rows"})
		return
	}

	if notifications == nil {
		notifications = []*models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationAsRead is the handler for PATCH /v1/notifications/:id/read.
// The update only matches rows owned by the logged-in user, so nobody can
// mark someone else's notifications.
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)
	notificationID := c.Param("id")

	result, err := h.DB.Exec("UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?",
		notificationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check update result"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
