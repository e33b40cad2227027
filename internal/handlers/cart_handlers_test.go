package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// asAdmin registers the handler behind a stub that injects the reviewing
// admin's identity the way the auth middleware would.
func asAdmin(handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", int64(1))
		handler(c)
	}
}

func TestAcceptCartRequest_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT borrower_id, status FROM cart WHERE id = \? FOR UPDATE`).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"borrower_id", "status"}).AddRow(7, "requested"))
	mock.ExpectQuery(`SELECT ci.inventory_id, i.name, ci.quantity, i.quantity, i.remaining_quantity, i.status`).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"inventory_id", "name", "requested", "quantity", "remaining", "status"}).
			AddRow(10, "Oscilloscope", 2, 5, 5, "available").
			AddRow(11, "Multimeter", 1, 3, 1, "borrowed"))
	// First line: 5 -> 3 remaining, still partially out.
	mock.ExpectExec(`INSERT INTO transactions`).WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectExec(`UPDATE inventory SET remaining_quantity = remaining_quantity - \?, status = \?, updated_at = \? WHERE id = \?`).
		WithArgs(2, "borrowed", sqlmock.AnyArg(), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second line takes the last unit off the shelf.
	mock.ExpectExec(`INSERT INTO transactions`).WillReturnResult(sqlmock.NewResult(101, 1))
	mock.ExpectExec(`UPDATE inventory SET remaining_quantity = remaining_quantity - \?, status = \?, updated_at = \? WHERE id = \?`).
		WithArgs(1, "out_of_stock", sqlmock.AnyArg(), int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE cart SET status = \?, admin_id = \?, reviewed_at = \? WHERE id = \?`).
		WithArgs("accepted", int64(1), sqlmock.AnyArg(), "5").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.PATCH("/v1/admin/cart-requests/:id/accept", asAdmin(h.AcceptCartRequest))

	w := performJSON(router, http.MethodPatch, "/v1/admin/cart-requests/5/accept", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cart request accepted")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptCartRequest_InsufficientStockTouchesNothing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	// One of the two lines falls short, so no loans and no decrement:
	// the request stays 'requested' and the whole thing rolls back.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT borrower_id, status FROM cart WHERE id = \? FOR UPDATE`).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"borrower_id", "status"}).AddRow(7, "requested"))
	mock.ExpectQuery(`SELECT ci.inventory_id, i.name, ci.quantity, i.quantity, i.remaining_quantity, i.status`).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"inventory_id", "name", "requested", "quantity", "remaining", "status"}).
			AddRow(10, "Oscilloscope", 2, 5, 5, "available").
			AddRow(11, "Multimeter", 2, 3, 1, "borrowed"))
	mock.ExpectRollback()

	router := gin.New()
	router.PATCH("/v1/admin/cart-requests/:id/accept", asAdmin(h.AcceptCartRequest))

	w := performJSON(router, http.MethodPatch, "/v1/admin/cart-requests/5/accept", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient stock for Multimeter")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptCartRequest_DuplicateLinesCountedTogether(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	// Two lines of 3 for the same item add up to 6 against 5 on the
	// shelf. Each line passes in isolation; together they must not.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT borrower_id, status FROM cart WHERE id = \? FOR UPDATE`).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"borrower_id", "status"}).AddRow(7, "requested"))
	mock.ExpectQuery(`SELECT ci.inventory_id, i.name, ci.quantity, i.quantity, i.remaining_quantity, i.status`).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"inventory_id", "name", "requested", "quantity", "remaining", "status"}).
			AddRow(10, "Oscilloscope", 3, 5, 5, "available").
			AddRow(10, "Oscilloscope", 3, 5, 5, "available"))
	mock.ExpectRollback()

	router := gin.New()
	router.PATCH("/v1/admin/cart-requests/:id/accept", asAdmin(h.AcceptCartRequest))

	w := performJSON(router, http.MethodPatch, "/v1/admin/cart-requests/5/accept", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient stock for Oscilloscope")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptCartRequest_DuplicateLinesDecrementOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	// Lines of 2 and 2 for the same item fold into one loan of 4 with a
	// single stock decrement of 4, leaving 1 of 5 on the shelf.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT borrower_id, status FROM cart WHERE id = \? FOR UPDATE`).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"borrower_id", "status"}).AddRow(7, "requested"))
	mock.ExpectQuery(`SELECT ci.inventory_id, i.name, ci.quantity, i.quantity, i.remaining_quantity, i.status`).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"inventory_id", "name", "requested", "quantity", "remaining", "status"}).
			AddRow(10, "Oscilloscope", 2, 5, 5, "available").
			AddRow(10, "Oscilloscope", 2, 5, 5, "available"))
	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(int64(7), int64(10), 4, sqlmock.AnyArg(), sqlmock.AnyArg(), "borrowed", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectExec(`UPDATE inventory SET remaining_quantity = remaining_quantity - \?, status = \?, updated_at = \? WHERE id = \?`).
		WithArgs(4, "borrowed", sqlmock.AnyArg(), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE cart SET status = \?, admin_id = \?, reviewed_at = \? WHERE id = \?`).
		WithArgs("accepted", int64(1), sqlmock.AnyArg(), "5").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.PATCH("/v1/admin/cart-requests/:id/accept", asAdmin(h.AcceptCartRequest))

	w := performJSON(router, http.MethodPatch, "/v1/admin/cart-requests/5/accept", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptCartRequest_AlreadyReviewed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT borrower_id, status FROM cart WHERE id = \? FOR UPDATE`).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"borrower_id", "status"}).AddRow(7, "accepted"))
	mock.ExpectRollback()

	router := gin.New()
	router.PATCH("/v1/admin/cart-requests/:id/accept", asAdmin(h.AcceptCartRequest))

	w := performJSON(router, http.MethodPatch, "/v1/admin/cart-requests/5/accept", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectCartRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	mock.ExpectExec(`UPDATE cart SET status = \?, admin_id = \?, reviewed_at = \? WHERE id = \? AND status = \?`).
		WithArgs("rejected", int64(1), sqlmock.AnyArg(), "5", "requested").
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := gin.New()
	router.PATCH("/v1/admin/cart-requests/:id/reject", asAdmin(h.RejectCartRequest))

	w := performJSON(router, http.MethodPatch, "/v1/admin/cart-requests/5/reject", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cart request rejected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCartRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT name FROM borrowers WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Amina"))
	mock.ExpectExec(`INSERT INTO cart \(borrower_id, status, created_at\)`).
		WithArgs(int64(7), "requested", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(`INSERT INTO cart_items`).
		WithArgs(int64(5), int64(10), 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// Every active admin is told about the new request, inside the same tx.
	mock.ExpectQuery(`SELECT id FROM users WHERE role = 'admin' AND status = 'active'`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(int64(1), "Amina submitted a borrow request", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(int64(2), "Amina submitted a borrow request", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.POST("/v1/cart-requests", h.CreateCartRequest)

	w := performJSON(router, http.MethodPost, "/v1/cart-requests", gin.H{
		"borrowerId": 7,
		"items":      []gin.H{{"inventoryId": 10, "quantity": 2}},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"cartId":5`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
