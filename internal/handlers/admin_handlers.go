package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labstock/labstock-golang/internal/models"
)

//
// --- Admin: Assistant Approval Handlers ---
//

// GetPendingAssistants is the handler for GET /v1/admin/assistants/pending.
// It retrieves all assistant accounts waiting for approval.
func (h *Handlers) GetPendingAssistants(c *gin.Context) {
	query := `
		SELECT id, role, status, email, full_name, created_at, updated_at
		FROM users
		WHERE role = 'assistant' AND status = 'pending'
		ORDER BY created_at ASC`

	rows, err := h.DB.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	var assistants []*models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID, &user.Role, &user.Status, &user.Email,
			&user.FullName, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan user row"})
			return
		}
		assistants = append(assistants, &user)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating user rows"})
		return
	}

	if assistants == nil {
		assistants = []*models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"assistants": assistants})
}

// ApproveAssistant is the handler for PATCH /v1/admin/assistants/:id/approve.
// It changes an assistant's status from "pending" to "active".
func (h *Handlers) ApproveAssistant(c *gin.Context) {
	assistantID := c.Param("id")

	query := `
		UPDATE users
		SET status = 'active', updated_at = ?
		WHERE id = ? AND role = 'assistant' AND status = 'pending'`

	result, err := h.DB.Exec(query, time.Now(), assistantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve assistant"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assistant not found or was not pending approval"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assistant approved"})
}

// RejectAssistant is the handler for PATCH /v1/admin/assistants/:id/reject.
// Besides flipping the status, it revokes any sessions the account may
// somehow hold so a rejected user is locked out immediately.
func (h *Handlers) RejectAssistant(c *gin.Context) {
	assistantID := c.Param("id")

	var userID int64
	err := h.DB.QueryRow("SELECT id FROM users WHERE id = ? AND role = 'assistant'", assistantID).Scan(&userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assistant not found"})
		return
	}

	query := `
		UPDATE users
		SET status = 'rejected', updated_at = ?
		WHERE id = ? AND status != 'rejected'`

	result, err := h.DB.Exec(query, time.Now(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject assistant"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assistant not found or already rejected"})
		return
	}

	if err := h.Sessions.RevokeAllForUser(c.Request.Context(), userID); err != nil {
		// The status flip already landed; the sessions will also die at TTL.
		c.JSON(http.StatusOK, gin.H{"message": "Assistant rejected (session revocation deferred)"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assistant rejected"})
}
