package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labstock/labstock-golang/internal/ledger"
	"github.com/labstock/labstock-golang/internal/models"
)

//
// --- Dashboard & Report Handlers ---
//

type DashboardStats struct {
	TotalItems       int            `json:"totalItems"`
	TotalUnits       int            `json:"totalUnits"`
	UnitsOnLoan      int            `json:"unitsOnLoan"`
	ItemsByStatus    map[string]int `json:"itemsByStatus"`
	ActiveBorrows    int            `json:"activeBorrows"`
	OverdueBorrows   int            `json:"overdueBorrows"`
	PendingRequests  int            `json:"pendingRequests"`
	LowStockItems    int            `json:"lowStockItems"`
	RegisteredPeople int            `json:"registeredPeople"`
}

// GetDashboardStats returns KPI data for the dashboard.
// GET /v1/reports/dashboard
func (h *Handlers) GetDashboardStats(c *gin.Context) {
	stats := DashboardStats{}

	// 1. Inventory totals
	// COALESCE so an empty table yields 0 instead of NULL.
	err := h.DB.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(quantity), 0), COALESCE(SUM(quantity - remaining_quantity), 0)
		FROM inventory`).
		Scan(&stats.TotalItems, &stats.TotalUnits, &stats.UnitsOnLoan)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read inventory totals"})
		return
	}

	// 2. Item count per status. Statuses with no items stay at zero so the
	// dashboard always has every bucket to render.
	stats.ItemsByStatus = map[string]int{
		ledger.StatusAvailable:   0,
		ledger.StatusBorrowed:    0,
		ledger.StatusOutOfStock:  0,
		ledger.StatusMaintenance: 0,
		ledger.StatusDamaged:     0,
	}
	statusRows, err := h.DB.Query("SELECT status, COUNT(*) FROM inventory GROUP BY status")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count items by status"})
		return
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var itemStatus string
		var count int
		if err := statusRows.Scan(&itemStatus, &count); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan status count row"})
			return
		}
		stats.ItemsByStatus[itemStatus] = count
	}
	if err = statusRows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating status count rows"})
		return
	}

	// 3. Active and overdue loans
	err = h.DB.QueryRow("SELECT COUNT(*) FROM transactions WHERE status = ?", ledger.TxBorrowed).Scan(&stats.ActiveBorrows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count active borrows"})
		return
	}
	err = h.DB.QueryRow("SELECT COUNT(*) FROM transactions WHERE status = ?", ledger.TxOverdue).Scan(&stats.OverdueBorrows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count overdue borrows"})
		return
	}

	// 4. Pending cart requests
	err = h.DB.QueryRow("SELECT COUNT(*) FROM cart WHERE status = ?", models.CartRequested).Scan(&stats.PendingRequests)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count pending requests"})
		return
	}

	// 5. Low stock count
	err = h.DB.QueryRow("SELECT COUNT(*) FROM inventory WHERE quantity < ?", ledger.LowStockThreshold).Scan(&stats.LowStockItems)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count low stock"})
		return
	}

	// 6. Registered borrowers
	err = h.DB.QueryRow("SELECT COUNT(*) FROM borrowers").Scan(&stats.RegisteredPeople)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count borrowers"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetRecentActivity returns the five most recent transactions with
// borrower and item names, for the dashboard's activity feed.
// GET /v1/reports/recent-activity
func (h *Handlers) GetRecentActivity(c *gin.Context) {
	query := `
		SELECT t.id, b.name, i.name, t.quantity, t.status, t.created_at
		FROM transactions t
		JOIN borrowers b ON t.borrower_id = b.id
		JOIN inventory i ON t.inventory_id = i.id
		ORDER BY t.created_at DESC
		LIMIT 5`

	rows, err := h.DB.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	type activityEntry struct {
		ID           int64  `json:"id"`
		BorrowerName string `json:"borrowerName"`
		ItemName     string `json:"itemName"`
		Quantity     int    `json:"quantity"`
		Status       string `json:"status"`
		CreatedAt    string `json:"createdAt"`
	}

	var activity []*activityEntry
	for rows.Next() {
		var e activityEntry
		if err := rows.Scan(&e.ID, &e.BorrowerName, &e.ItemName, &e.Quantity, &e.Status, &e.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan activity row"})
			return
		}
		activity = append(activity, &e)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating activity rows"})
		return
	}

	if activity == nil {
		activity = []*activityEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"activity": activity})
}

// GetLowStockReport lists items whose total stock has fallen below the
// low-stock threshold, emptiest first. Total stock only shrinks when
// damaged units are written off, so this flags equipment wearing out.
// GET /v1/reports/low-stock
func (h *Handlers) GetLowStockReport(c *gin.Context) {
	query := "SELECT id, name, quantity, remaining_quantity, status, `condition`, warranty_expiry, created_at, updated_at FROM inventory WHERE quantity < ? ORDER BY quantity ASC"

	rows, err := h.DB.Query(query, ledger.LowStockThreshold)
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

// GetMostBorrowedReport ranks items by units lent out over the last 30
// days, top ten only.
// GET /v1/reports/most-borrowed
func (h *Handlers) GetMostBorrowedReport(c *gin.Context) {
	query := `
		SELECT i.id, i.name, COUNT(t.id), COALESCE(SUM(t.quantity), 0)
		FROM transactions t
		JOIN inventory i ON t.inventory_id = i.id
		WHERE t.created_at >= DATE_SUB(NOW(), INTERVAL 30 DAY)
		GROUP BY i.id, i.name
		ORDER BY SUM(t.quantity) DESC
		LIMIT 10`

	rows, err := h.DB.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	type rankedItem struct {
		InventoryID int64  `json:"inventoryId"`
		Name        string `json:"name"`
		BorrowCount int    `json:"borrowCount"`
		TotalUnits  int    `json:"totalUnits"`
	}

	var ranked []*rankedItem
	for rows.Next() {
		var r rankedItem
		if err := rows.Scan(&r.InventoryID, &r.Name, &r.BorrowCount, &r.TotalUnits); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan report row"})
			return
		}
		ranked = append(ranked, &r)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating report rows"})
		return
	}

	if ranked == nil {
		ranked = []*rankedItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": ranked})
}
