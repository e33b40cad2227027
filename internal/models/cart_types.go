package models

import (
	"database/sql"
	"time"
)

// Cart request review states.
const (
	CartRequested = "requested"
	CartAccepted  = "accepted"
	CartRejected  = "rejected"
)

// CartRequest defines the struct for the 'cart' table.
// A borrower's batch request for several items at once. It is terminal
// once an admin accepts or rejects it.
type CartRequest struct {
	ID         int64         `json:"id" db:"id"`
	BorrowerID int64         `json:"borrowerId" db:"borrower_id"`
	Status     string        `json:"status" db:"status"` // requested, accepted, rejected
	AdminID    sql.NullInt64 `json:"adminId,omitempty" db:"admin_id"`
	ReviewedAt sql.NullTime  `json:"reviewedAt,omitempty" db:"reviewed_at"`
	CreatedAt  time.Time     `json:"createdAt" db:"created_at"`
}

// CartItem defines the struct for the 'cart_items' table
type CartItem struct {
	ID          int64 `json:"id" db:"id"`
	CartID      int64 `json:"cartId" db:"cart_id"`
	InventoryID int64 `json:"inventoryId" db:"inventory_id"`
	Quantity    int   `json:"quantity" db:"quantity"`
}
