package models

import (
	"database/sql"
	"time"
)

// InventoryItem is the model for the 'inventory' table.
// 'Quantity' is the total units the lab owns; 'RemainingQuantity' is how
// many are on the shelf right now. Only checkout, cart approval and
// return processing are allowed to move these two numbers.
type InventoryItem struct {
	ID                int64        `json:"id" db:"id"`
	Name              string       `json:"name" db:"name"`
	Quantity          int          `json:"quantity" db:"quantity"`
	RemainingQuantity int          `json:"remainingQuantity" db:"remaining_quantity"`
	Status            string       `json:"status" db:"status"`       // available, borrowed, maintenance, damaged, out_of_stock
	Condition         string       `json:"condition" db:"condition"` // good, fair, poor
	WarrantyExpiry    sql.NullTime `json:"warrantyExpiry,omitempty" db:"warranty_expiry"`
	CreatedAt         time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time    `json:"updatedAt" db:"updated_at"`
}
