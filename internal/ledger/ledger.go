// Package ledger holds the stock-count and fine arithmetic shared by the
// checkout, cart-approval and return handlers. Keeping it free of SQL and
// HTTP lets us test the reconciliation rules directly.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Inventory statuses. The first three are "automatic": they are derived
// from the quantity pair. 'maintenance' and 'damaged' are set manually by
// staff and are sticky — derivation never overrides them.
const (
	StatusAvailable   = "available"
	StatusBorrowed    = "borrowed"
	StatusOutOfStock  = "out_of_stock"
	StatusMaintenance = "maintenance"
	StatusDamaged     = "damaged"
)

// Transaction statuses.
const (
	TxBorrowed = "borrowed"
	TxReturned = "returned"
	TxOverdue  = "overdue"
)

// DailyFineRate is the fine charged per day a return is late.
var DailyFineRate = decimal.NewFromInt(10)

// DefaultBorrowDays is the return window given to cart-approval
// transactions when the borrower did not name a date.
const DefaultBorrowDays = 7

// LowStockThreshold marks items the reports flag for re-purchase.
const LowStockThreshold = 5

// ManualStatus reports whether staff set this status by hand. Manual
// statuses suppress automatic derivation until staff clears them.
func ManualStatus(status string) bool {
	return status == StatusMaintenance || status == StatusDamaged
}

// DeriveStatus returns the status an item should carry after its quantity
// pair changed. out_of_stock wins whenever nothing is left on the shelf;
// otherwise the item is 'borrowed' while any unit is out, and 'available'
// when everything is home. Manual statuses pass through untouched.
func DeriveStatus(current string, remaining, quantity int) string {
	if ManualStatus(current) {
		return current
	}
	if remaining <= 0 {
		return StatusOutOfStock
	}
	if remaining < quantity {
		return StatusBorrowed
	}
	return StatusAvailable
}

// DaysLate reports how many whole-or-partial days 'now' is past the
// expected return date. Anything up to and including the expected moment
// is 0; after that every started 24h period counts as one day.
func DaysLate(expectedReturn, now time.Time) int {
	if !now.After(expectedReturn) {
		return 0
	}
	late := now.Sub(expectedReturn)
	days := int(late / (24 * time.Hour))
	if late%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// OverdueFine is DaysLate times the daily rate.
func OverdueFine(expectedReturn, now time.Time) decimal.Decimal {
	return DailyFineRate.Mul(decimal.NewFromInt(int64(DaysLate(expectedReturn, now))))
}

// ReturnOutcome is everything a return mutates, computed up front so the
// handler can apply it in one database transaction.
type ReturnOutcome struct {
	GoodItems   int             // units that go back on the shelf
	OverdueFine decimal.Decimal
	TotalFine   decimal.Decimal // overdue fine + declared damage fine
}

// SettleReturn computes the outcome of returning a transaction of
// 'quantity' units with 'damaged' of them declared damaged. Damaged units
// are written off: they do not rejoin remaining_quantity and they shrink
// the item's total quantity. GoodItems + damaged always equals quantity.
func SettleReturn(quantity, damaged int, expectedReturn, now time.Time, damageFine decimal.Decimal) (ReturnOutcome, error) {
	if quantity < 1 {
		return ReturnOutcome{}, fmt.Errorf("invalid transaction quantity %d", quantity)
	}
	if damaged < 0 || damaged > quantity {
		return ReturnOutcome{}, fmt.Errorf("damaged quantity %d out of range [0, %d]", damaged, quantity)
	}
	if damageFine.IsNegative() {
		return ReturnOutcome{}, fmt.Errorf("damage fine must not be negative")
	}

	overdue := OverdueFine(expectedReturn, now)
	return ReturnOutcome{
		GoodItems:   quantity - damaged,
		OverdueFine: overdue,
		TotalFine:   overdue.Add(damageFine),
	}, nil
}
