package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labstock/labstock-golang/internal/ledger"
	"github.com/labstock/labstock-golang/internal/models"
)

//
// --- Inventory Handlers ---
//

// CreateInventoryInput defines the JSON for creating an item.
type CreateInventoryInput struct {
	Name           string `json:"name" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,gt=0"`
	Condition      string `json:"condition" binding:"omitempty,oneof=good fair poor"`
	WarrantyExpiry string `json:"warrantyExpiry"` // YYYY-MM-DD, optional
}

// CreateInventoryItem is the handler for POST /v1/inventory.
// A new item starts with everything on the shelf.
func (h *Handlers) CreateInventoryItem(c *gin.Context) {
	var input CreateInventoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	condition := input.Condition
	if condition == "" {
		condition = "good"
	}

	var warranty sql.NullTime
	if input.WarrantyExpiry != "" {
		t, err := time.Parse("2006-01-02", input.WarrantyExpiry)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "warrantyExpiry must be YYYY-MM-DD"})
			return
		}
		warranty = sql.NullTime{Time: t, Valid: true}
	}

	now := time.Now()
	query := "INSERT INTO inventory (name, quantity, remaining_quantity, status, `condition`, warranty_expiry, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

	result, err := h.DB.Exec(query,
		input.Name, input.Quantity, input.Quantity,
		ledger.StatusAvailable, condition, warranty, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create inventory item"})
		return
	}

	id, _ := result.LastInsertId()
	c.JSON(http.StatusCreated, gin.H{
		"message": "Inventory item created",
		"itemId":  id,
	})
}

// GetInventoryItems is the handler for GET /v1/inventory.
// Optional ?status= filter; ?available=true narrows to items with stock
// on the shelf, which is what the checkout screen lists.
func (h *Handlers) GetInventoryItems(c *gin.Context) {
	query := "SELECT id, name, quantity, remaining_quantity, status, `condition`, warranty_expiry, created_at, updated_at FROM inventory"
	var args []interface{}

	if status := c.Query("status"); status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	} else if c.Query("available") == "true" {
		query += " WHERE remaining_quantity > 0 AND status NOT IN ('maintenance', 'damaged')"
	}
	query += " ORDER BY name ASC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	var items []*models.InventoryItem
	for rows.Next() {
		var item models.InventoryItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Quantity, &item.RemainingQuantity,
			&item.Status, &item.Condition, &item.WarrantyExpiry,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan inventory row"})
			return
		}
		items = append(items, &item)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating inventory rows"})
		return
	}

	if items == nil {
		items = []*models.InventoryItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// UpdateInventoryInput defines the JSON for updating an item. All fields
// are optional; only the provided ones change.
type UpdateInventoryInput struct {
	Name      *string `json:"name"`
	Quantity  *int    `json:"quantity" binding:"omitempty,gte=0"`
	Condition *string `json:"condition" binding:"omitempty,oneof=good fair poor"`
	Status    *string `json:"status" binding:"omitempty,oneof=available borrowed maintenance damaged out_of_stock"`
}

// UpdateInventoryItem is the handler for PUT /v1/inventory/:id.
// Quantity changes move remaining_quantity by the same delta, so units
// currently out on loan stay accounted for. Setting a manual status
// (maintenance/damaged) freezes automatic derivation until staff sets the
// item back to an automatic state.
func (h *Handlers) UpdateInventoryItem(c *gin.Context) {
	itemID := c.Param("id")

	var input UpdateInventoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var item models.InventoryItem
	query := "SELECT id, name, quantity, remaining_quantity, status, `condition` FROM inventory WHERE id = ? FOR UPDATE"
	err = tx.QueryRow(query, itemID).Scan(
		&item.ID, &item.Name, &item.Quantity, &item.RemainingQuantity, &item.Status, &item.Condition)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory item"})
		return
	}

	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Condition != nil {
		item.Condition = *input.Condition
	}
	if input.Quantity != nil {
		borrowedOut := item.Quantity - item.RemainingQuantity
		if *input.Quantity < borrowedOut {
			c.JSON(http.StatusConflict, gin.H{"error": "New quantity is lower than the number of units currently borrowed"})
			return
		}
		item.RemainingQuantity = *input.Quantity - borrowedOut
		item.Quantity = *input.Quantity
	}
	if input.Status != nil {
		item.Status = *input.Status
	}
	item.Status = ledger.DeriveStatus(item.Status, item.RemainingQuantity, item.Quantity)

	updateQuery := "UPDATE inventory SET name = ?, quantity = ?, remaining_quantity = ?, status = ?, `condition` = ?, updated_at = ? WHERE id = ?"
	_, err = tx.Exec(updateQuery,
		item.Name, item.Quantity, item.RemainingQuantity,
		item.Status, item.Condition, time.Now(), item.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update inventory item"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Inventory item updated", "item": item})
}

// DeleteInventoryItem is the handler for DELETE /v1/inventory/:id.
// An item with an active borrow cannot be deleted.
func (h *Handlers) DeleteInventoryItem(c *gin.Context) {
	itemID := c.Param("id")

	var activeBorrows int
	countQuery := "SELECT COUNT(*) FROM transactions WHERE inventory_id = ? AND status IN ('borrowed', 'overdue')"
	if err := h.DB.QueryRow(countQuery, itemID).Scan(&activeBorrows); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check active borrows"})
		return
	}
	if activeBorrows > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Item has active borrows and cannot be deleted"})
		return
	}

	result, err := h.DB.Exec("DELETE FROM inventory WHERE id = ?", itemID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete inventory item"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Inventory item deleted"})
}
