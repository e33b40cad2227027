package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the model for the 'transactions' table — one row per
// borrow event. While status is 'borrowed' or 'overdue', Quantity has
// been subtracted from the item's remaining_quantity. The transition to
// 'returned' is terminal and happens exactly once.
type Transaction struct {
	ID              int64           `json:"id" db:"id"`
	BorrowerID      int64           `json:"borrowerId" db:"borrower_id"`
	InventoryID     int64           `json:"inventoryId" db:"inventory_id"`
	Quantity        int             `json:"quantity" db:"quantity"`
	BorrowDate      time.Time       `json:"borrowDate" db:"borrow_date"`
	ReturnDate      sql.NullTime    `json:"returnDate,omitempty" db:"return_date"` // expected until returned, then actual
	Status          string          `json:"status" db:"status"`                    // borrowed, returned, overdue
	DamagedQuantity int             `json:"damagedQuantity" db:"damaged_quantity"`
	FineAmount      decimal.Decimal `json:"fineAmount" db:"fine_amount"`
	DamageImageURL  sql.NullString  `json:"damageImageUrl,omitempty" db:"damage_image_url"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}
