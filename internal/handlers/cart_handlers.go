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
// --- Cart Request Handlers ---
//

// CartItemInput is one line of a cart request.
type CartItemInput struct {
	InventoryID int64 `json:"inventoryId" binding:"required"`
	Quantity    int   `json:"quantity" binding:"required,gt=0"`
}

// CreateCartInput defines the JSON for submitting a borrow request.
type CreateCartInput struct {
	BorrowerID int64           `json:"borrowerId" binding:"required"`
	Items      []CartItemInput `json:"items" binding:"required,min=1,dive"`
}

// CreateCartRequest is the handler for POST /v1/cart-requests. A request is just
// a wishlist at this point: no stock is touched until an admin accepts it.
// Active admins are notified so the request does not sit unseen.
func (h *Handlers) CreateCartRequest(c *gin.Context) {
	var input CreateCartInput
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

	var borrowerName string
	err = tx.QueryRow("SELECT name FROM borrowers WHERE id = ?", input.BorrowerID).Scan(&borrowerName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Borrower not found"})
		return
	}

	result, err := tx.Exec("INSERT INTO cart (borrower_id, status, created_at) VALUES (?, ?, ?)",
		input.BorrowerID, models.CartRequested, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create cart request"})
		return
	}
	cartID, _ := result.LastInsertId()

	for _, item := range input.Items {
		_, err = tx.Exec("INSERT INTO cart_items (cart_id, inventory_id, quantity) VALUES (?, ?, ?)",
			cartID, item.InventoryID, item.Quantity)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add cart item"})
			return
		}
	}

	if err := h.NotifyAdmins(tx, borrowerName+" submitted a borrow request", "/admin/cart-requests"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify admins"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Borrow request submitted", "cartId": cartID})
}

// GetCartRequests is the handler for GET /v1/cart-requests. Optional ?status=
// filter; each request comes back with its borrower and line items.
func (h *Handlers) GetCartRequests(c *gin.Context) {
	query := `
		SELECT ct.id, ct.borrower_id, b.name, ct.status, ct.admin_id, ct.reviewed_at, ct.created_at
		FROM cart ct
		JOIN borrowers b ON ct.borrower_id = b.id`
	var args []interface{}

	if status := c.Query("status"); status != "" {
		query += " WHERE ct.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY ct.created_at DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	type cartEntry struct {
		models.CartRequest
		BorrowerName string             `json:"borrowerName"`
		Items        []*models.CartItem `json:"items"`
	}

	var carts []*cartEntry
	for rows.Next() {
		var e cartEntry
		if err := rows.Scan(&e.ID, &e.BorrowerID, &e.BorrowerName, &e.Status, &e.AdminID, &e.ReviewedAt, &e.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cart row"})
			return
		}
		e.Items = []*models.CartItem{}
		carts = append(carts, &e)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating cart rows"})
		return
	}

	// Second pass for line items so we avoid N+1 queries per cart.
	byID := make(map[int64]*cartEntry, len(carts))
	ids := make([]interface{}, 0, len(carts))
	placeholders := ""
	for i, e := range carts {
		byID[e.ID] = e
		ids = append(ids, e.ID)
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
	}

	if len(carts) > 0 {
		itemRows, err := h.DB.Query(
			"SELECT id, cart_id, inventory_id, quantity FROM cart_items WHERE cart_id IN ("+placeholders+")", ids...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
			return
		}
		defer itemRows.Close()

		for itemRows.Next() {
			var item models.CartItem
			if err := itemRows.Scan(&item.ID, &item.CartID, &item.InventoryID, &item.Quantity); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cart item row"})
				return
			}
			if e, ok := byID[item.CartID]; ok {
				e.Items = append(e.Items, &item)
			}
		}
		if err = itemRows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating cart item rows"})
			return
		}
	}

	if carts == nil {
		carts = []*cartEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"carts": carts})
}

// AcceptCartRequest is the handler for PATCH /v1/admin/cart-requests/:id/accept. Every
// line item must be in stock; if any falls short the whole request is
// left untouched and the caller gets a 409 naming the item.
func (h *Handlers) AcceptCartRequest(c *gin.Context) {
	cartID := c.Param("id")
	adminID_raw, _ := c.Get("userID")
	adminID := adminID_raw.(int64)

	// 1. --- Start Transaction ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 2. --- Lock the Cart ---
	var status string
	var borrowerID int64
	err = tx.QueryRow("SELECT borrower_id, status FROM cart WHERE id = ? FOR UPDATE", cartID).
		Scan(&borrowerID, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart request"})
		return
	}
	if status != models.CartRequested {
		c.JSON(http.StatusConflict, gin.H{"error": "Cart request has already been reviewed"})
		return
	}

	// 3. --- Lock Every Line Item's Stock ---
	type lockedItem struct {
		inventoryID int64
		name        string
		requested   int
		total       int
		remaining   int
		status      string
	}

	itemQuery := `
		SELECT ci.inventory_id, i.name, ci.quantity, i.quantity, i.remaining_quantity, i.status
		FROM cart_items ci
		JOIN inventory i ON ci.inventory_id = i.id
		WHERE ci.cart_id = ?
		FOR UPDATE`
	rows, err := tx.Query(itemQuery, cartID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart items"})
		return
	}

	// Duplicate lines for the same item are folded together here, so the
	// stock check sees the cart's true total per item.
	var items []lockedItem
	byInventoryID := make(map[int64]int)
	for rows.Next() {
		var li lockedItem
		if err := rows.Scan(&li.inventoryID, &li.name, &li.requested, &li.total, &li.remaining, &li.status); err != nil {
			rows.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cart item row"})
			return
		}
		if idx, seen := byInventoryID[li.inventoryID]; seen {
			items[idx].requested += li.requested
			continue
		}
		byInventoryID[li.inventoryID] = len(items)
		items = append(items, li)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating cart item rows"})
		return
	}
	rows.Close()

	if len(items) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Cart request has no items"})
		return
	}

	// 4. --- Check All Before Touching Anything ---
	for _, li := range items {
		if li.status == ledger.StatusMaintenance || li.status == ledger.StatusDamaged {
			c.JSON(http.StatusConflict, gin.H{"error": li.name + " is not available for borrowing"})
			return
		}
		if li.remaining < li.requested {
			c.JSON(http.StatusConflict, gin.H{"error": "Insufficient stock for " + li.name})
			return
		}
	}

	// 5. --- Record Loans and Decrement Stock ---
	now := time.Now()
	returnDate := now.AddDate(0, 0, ledger.DefaultBorrowDays)
	for _, li := range items {
		_, err = tx.Exec(`
			INSERT INTO transactions (borrower_id, inventory_id, quantity, borrow_date, return_date, status, damaged_quantity, fine_amount, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
			borrowerID, li.inventoryID, li.requested, now, returnDate, ledger.TxBorrowed, now, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record transaction"})
			return
		}

		newStatus := ledger.DeriveStatus(li.status, li.remaining-li.requested, li.total)
		_, err = tx.Exec("UPDATE inventory SET remaining_quantity = remaining_quantity - ?, status = ?, updated_at = ? WHERE id = ?",
			li.requested, newStatus, now, li.inventoryID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stock"})
			return
		}
	}

	// 6. --- Stamp the Review and Commit ---
	_, err = tx.Exec("UPDATE cart SET status = ?, admin_id = ?, reviewed_at = ? WHERE id = ?",
		models.CartAccepted, adminID, now, cartID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart request"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Cart request accepted",
		"returnDate": returnDate.Format("2006-01-02"),
	})
}

// RejectCartRequest is the handler for PATCH /v1/admin/cart-requests/:id/reject. A
// rejection only stamps the review; stock is never touched.
func (h *Handlers) RejectCartRequest(c *gin.Context) {
	cartID := c.Param("id")
	adminID_raw, _ := c.Get("userID")
	adminID := adminID_raw.(int64)

	result, err := h.DB.Exec(
		"UPDATE cart SET status = ?, admin_id = ?, reviewed_at = ? WHERE id = ? AND status = ?",
		models.CartRejected, adminID, time.Now(), cartID, models.CartRequested)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart request"})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart request not found or already reviewed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart request rejected"})
}
