package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/labstock/labstock-golang/internal/ledger"
	"github.com/labstock/labstock-golang/internal/models"
)

//
// --- Transaction Handlers ---
//

// CheckoutInput defines the JSON for a direct checkout.
type CheckoutInput struct {
	BorrowerID  int64  `json:"borrowerId" binding:"required"`
	InventoryID int64  `json:"inventoryId" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	ReturnDate  string `json:"returnDate"` // YYYY-MM-DD, defaults to a week out
}

// Checkout is the handler for POST /v1/transactions/checkout. It lends
// units directly to a borrower: one transaction row plus the matching
// stock decrement, committed together.
func (h *Handlers) Checkout(c *gin.Context) {
	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	returnDate := now.AddDate(0, 0, ledger.DefaultBorrowDays)
	if input.ReturnDate != "" {
		t, err := time.Parse("2006-01-02", input.ReturnDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "returnDate must be YYYY-MM-DD"})
			return
		}
		// Compare calendar dates in server-local time; truncating the
		// instant would shift the boundary by the UTC offset.
		if t.Format("2006-01-02") < now.Format("2006-01-02") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "returnDate cannot be in the past"})
			return
		}
		returnDate = t
	}

	// 1. --- Start Transaction ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 2. --- Verify the Borrower Exists ---
	var borrowerExists int
	err = tx.QueryRow("SELECT COUNT(*) FROM borrowers WHERE id = ?", input.BorrowerID).Scan(&borrowerExists)
	if err != nil || borrowerExists == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Borrower not found"})
		return
	}

	// 3. --- Lock the Item and Check Stock ---
	var item models.InventoryItem
	query := "SELECT id, name, quantity, remaining_quantity, status FROM inventory WHERE id = ? FOR UPDATE"
	err = tx.QueryRow(query, input.InventoryID).Scan(
		&item.ID, &item.Name, &item.Quantity, &item.RemainingQuantity, &item.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory item"})
		return
	}

	if item.Status == ledger.StatusMaintenance || item.Status == ledger.StatusDamaged {
		c.JSON(http.StatusConflict, gin.H{"error": "Item is not available for borrowing"})
		return
	}
	if item.RemainingQuantity < input.Quantity {
		c.JSON(http.StatusConflict, gin.H{"error": "Insufficient stock for " + item.Name})
		return
	}

	// 4. --- Record the Loan and Decrement Stock ---
	insertQuery := `
		INSERT INTO transactions (borrower_id, inventory_id, quantity, borrow_date, return_date, status, damaged_quantity, fine_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`
	result, err := tx.Exec(insertQuery,
		input.BorrowerID, input.InventoryID, input.Quantity,
		now, returnDate, ledger.TxBorrowed, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record transaction"})
		return
	}

	item.RemainingQuantity -= input.Quantity
	newStatus := ledger.DeriveStatus(item.Status, item.RemainingQuantity, item.Quantity)
	_, err = tx.Exec("UPDATE inventory SET remaining_quantity = ?, status = ?, updated_at = ? WHERE id = ?",
		item.RemainingQuantity, newStatus, now, item.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stock"})
		return
	}

	// 5. --- Commit ---
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	txID, _ := result.LastInsertId()
	c.JSON(http.StatusCreated, gin.H{
		"message":       "Checkout recorded",
		"transactionId": txID,
		"returnDate":    returnDate.Format("2006-01-02"),
	})
}

// ReturnInput defines the JSON for processing a return.
type ReturnInput struct {
	DamagedQuantity int    `json:"damagedQuantity" binding:"gte=0"`
	DamageFine      string `json:"damageFine"`     // decimal string, e.g. "15.50"
	DamageImageURL  string `json:"damageImageUrl"` // required when damagedQuantity > 0
}

// ReturnTransaction is the handler for POST /v1/transactions/:id/return.
// It settles the loan: good units go back on the shelf, damaged units
// leave the total stock, and overdue plus damage fines are written to
// the transaction record. Everything happens in one database transaction.
func (h *Handlers) ReturnTransaction(c *gin.Context) {
	transactionID := c.Param("id")

	var input ReturnInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.DamagedQuantity > 0 && input.DamageImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A damage photo is required when returning damaged units"})
		return
	}

	damageFine := decimal.Zero
	if input.DamageFine != "" {
		var err error
		damageFine, err = decimal.NewFromString(input.DamageFine)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "damageFine must be a decimal number"})
			return
		}
	}

	// 1. --- Start Transaction ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 2. --- Lock the Loan Record ---
	var loan models.Transaction
	loanQuery := "SELECT id, borrower_id, inventory_id, quantity, return_date, status FROM transactions WHERE id = ? FOR UPDATE"
	err = tx.QueryRow(loanQuery, transactionID).Scan(
		&loan.ID, &loan.BorrowerID, &loan.InventoryID, &loan.Quantity, &loan.ReturnDate, &loan.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transaction"})
		return
	}

	if loan.Status != ledger.TxBorrowed && loan.Status != ledger.TxOverdue {
		c.JSON(http.StatusConflict, gin.H{"error": "Transaction has already been returned"})
		return
	}

	// 3. --- Lock the Item ---
	var item models.InventoryItem
	itemQuery := "SELECT id, quantity, remaining_quantity, status FROM inventory WHERE id = ? FOR UPDATE"
	err = tx.QueryRow(itemQuery, loan.InventoryID).Scan(
		&item.ID, &item.Quantity, &item.RemainingQuantity, &item.Status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory item"})
		return
	}

	// 4. --- Settle ---
	now := time.Now()
	expectedReturn := now
	if loan.ReturnDate.Valid {
		expectedReturn = loan.ReturnDate.Time
	}
	outcome, err := ledger.SettleReturn(loan.Quantity, input.DamagedQuantity, expectedReturn, now, damageFine)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Damaged units leave the stock entirely; good ones go back on the shelf.
	item.Quantity -= input.DamagedQuantity
	item.RemainingQuantity += outcome.GoodItems
	newStatus := ledger.DeriveStatus(item.Status, item.RemainingQuantity, item.Quantity)

	_, err = tx.Exec("UPDATE inventory SET quantity = ?, remaining_quantity = ?, status = ?, updated_at = ? WHERE id = ?",
		item.Quantity, item.RemainingQuantity, newStatus, now, item.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stock"})
		return
	}

	var damageURL sql.NullString
	if input.DamageImageURL != "" {
		damageURL = sql.NullString{String: input.DamageImageURL, Valid: true}
	}
	_, err = tx.Exec(
		"UPDATE transactions SET status = ?, return_date = ?, damaged_quantity = ?, fine_amount = ?, damage_image_url = ?, updated_at = ? WHERE id = ?",
		ledger.TxReturned, now, input.DamagedQuantity, outcome.TotalFine, damageURL, now, loan.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction"})
		return
	}

	// 5. --- Commit ---
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Return processed",
		"goodItems":   outcome.GoodItems,
		"overdueFine": outcome.OverdueFine,
		"totalFine":   outcome.TotalFine,
	})
}

// CheckOverdue is the handler for POST /v1/admin/transactions/overdue-sweep.
// It flips every active loan whose return date has passed to 'overdue'.
// Running it twice in a row is harmless: already-flipped rows no longer
// match.
func (h *Handlers) CheckOverdue(c *gin.Context) {
	now := time.Now()
	result, err := h.DB.Exec(
		"UPDATE transactions SET status = ?, updated_at = ? WHERE status = ? AND return_date < ?",
		ledger.TxOverdue, now, ledger.TxBorrowed, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run overdue check"})
		return
	}

	flagged, _ := result.RowsAffected()
	c.JSON(http.StatusOK, gin.H{
		"message":      "Overdue check complete",
		"flaggedCount": flagged,
	})
}

// GetTransactions is the handler for GET /v1/transactions. Supports an
// optional ?status= filter and joins borrower and item names so the
// dashboard can render rows without extra lookups.
func (h *Handlers) GetTransactions(c *gin.Context) {
	query := `
		SELECT t.id, t.borrower_id, b.name, t.inventory_id, i.name, t.quantity,
		       t.borrow_date, t.return_date, t.status, t.damaged_quantity,
		       t.fine_amount, t.damage_image_url, t.created_at, t.updated_at
		FROM transactions t
		JOIN borrowers b ON t.borrower_id = b.id
		JOIN inventory i ON t.inventory_id = i.id`
	var args []interface{}

	if status := c.Query("status"); status != "" {
		query += " WHERE t.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY t.created_at DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	type transactionEntry struct {
		models.Transaction
		BorrowerName string `json:"borrowerName"`
		ItemName     string `json:"itemName"`
	}

	var transactions []*transactionEntry
	for rows.Next() {
		var e transactionEntry
		if err := rows.Scan(
			&e.ID, &e.BorrowerID, &e.BorrowerName, &e.InventoryID, &e.ItemName, &e.Quantity,
			&e.BorrowDate, &e.ReturnDate, &e.Status, &e.DamagedQuantity,
			&e.FineAmount, &e.DamageImageURL, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan transaction row"})
			return
		}
		transactions = append(transactions, &e)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating transaction rows"})
		return
	}

	if transactions == nil {
		transactions = []*transactionEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
