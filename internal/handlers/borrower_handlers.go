package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labstock/labstock-golang/internal/models"
)

// CreateBorrowerInput defines the JSON for registering a borrower.
type CreateBorrowerInput struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

// CreateBorrower is the handler for POST /v1/borrowers.
func (h *Handlers) CreateBorrower(c *gin.Context) {
	var input CreateBorrowerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := "INSERT INTO borrowers (name, email, phone, created_at) VALUES (?, ?, ?, ?)"
	result, err := h.DB.Exec(query, input.Name, input.Email, input.Phone, time.Now())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A borrower with this email may already exist"})
		return
	}

	id, _ := result.LastInsertId()
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Borrower registered",
		"borrowerId": id,
	})
}

// GetBorrowers is the handler for GET /v1/borrowers.
func (h *Handlers) GetBorrowers(c *gin.Context) {
	rows, err := h.DB.Query("SELECT id, name, email, phone, created_at FROM borrowers ORDER BY name ASC")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	var borrowers []*models.Borrower
	for rows.Next() {
		var b models.Borrower
		if err := rows.Scan(&b.ID, &b.Name, &b.Email, &b.Phone, &b.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan borrower row"})
			return
		}
		borrowers = append(borrowers, &b)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating borrower rows"})
		return
	}

	if borrowers == nil {
		borrowers = []*models.Borrower{}
	}
	c.JSON(http.StatusOK, gin.H{"borrowers": borrowers})
}

// UpdateBorrowerInput defines the JSON for updating a borrower. All
// fields are optional.
type UpdateBorrowerInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone"`
}

// UpdateBorrower is the handler for PUT /v1/borrowers/:id.
func (h *Handlers) UpdateBorrower(c *gin.Context) {
	borrowerID := c.Param("id")

	var input UpdateBorrowerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var b models.Borrower
	err := h.DB.QueryRow("SELECT id, name, email, phone, created_at FROM borrowers WHERE id = ?", borrowerID).
		Scan(&b.ID, &b.Name, &b.Email, &b.Phone, &b.CreatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Borrower not found"})
		return
	}

	if input.Name != nil {
		b.Name = *input.Name
	}
	if input.Email != nil {
		b.Email = *input.Email
	}
	if input.Phone != nil {
		b.Phone = *input.Phone
	}

	_, err = h.DB.Exec("UPDATE borrowers SET name = ?, email = ?, phone = ? WHERE id = ?",
		b.Name, b.Email, b.Phone, b.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update borrower"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Borrower updated", "borrower": b})
}

// DeleteBorrower is the handler for DELETE /v1/admin/borrowers/:id.
// A borrower with items still out cannot be deleted.
func (h *Handlers) DeleteBorrower(c *gin.Context) {
	borrowerID := c.Param("id")

	var activeBorrows int
	countQuery := "SELECT COUNT(*) FROM transactions WHERE borrower_id = ? AND status IN ('borrowed', 'overdue')"
	if err := h.DB.QueryRow(countQuery, borrowerID).Scan(&activeBorrows); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check active borrows"})
		return
	}
	if activeBorrows > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Borrower has active borrows and cannot be deleted"})
		return
	}

	result, err := h.DB.Exec("DELETE FROM borrowers WHERE id = ?", borrowerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete borrower"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Borrower not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Borrower deleted"})
}

// GetBorrowerHistory is the handler for GET /v1/borrowers/:id/history.
// Returns the borrower with their full transaction history, newest first.
func (h *Handlers) GetBorrowerHistory(c *gin.Context) {
	borrowerID := c.Param("id")

	var b models.Borrower
	err := h.DB.QueryRow("SELECT id, name, email, phone, created_at FROM borrowers WHERE id = ?", borrowerID).
		Scan(&b.ID, &b.Name, &b.Email, &b.Phone, &b.CreatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Borrower not found"})
		return
	}

	query := `
		SELECT t.id, t.borrower_id, t.inventory_id, i.name, t.quantity, t.borrow_date,
		       t.return_date, t.status, t.damaged_quantity, t.fine_amount, t.damage_image_url,
		       t.created_at, t.updated_at
		FROM transactions t
		JOIN inventory i ON t.inventory_id = i.id
		WHERE t.borrower_id = ?
		ORDER BY t.created_at DESC`

	rows, err := h.DB.Query(query, borrowerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	type historyEntry struct {
		models.Transaction
		ItemName string `json:"itemName"`
	}

	var history []*historyEntry
	for rows.Next() {
		var e historyEntry
		if err := rows.Scan(
			&e.ID, &e.BorrowerID, &e.InventoryID, &e.ItemName, &e.Quantity, &e.BorrowDate,
			&e.ReturnDate, &e.Status, &e.DamagedQuantity, &e.FineAmount, &e.DamageImageURL,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan transaction row"})
			return
		}
		history = append(history, &e)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating transaction rows"})
		return
	}

	if history == nil {
		history = []*historyEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"borrower": b, "history": history})
}
