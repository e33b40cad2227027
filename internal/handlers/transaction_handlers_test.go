package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockedHandlers wires a Handlers instance to a sqlmock database.
func newMockedHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Handlers{DB: db, DBReadOnly: db}, mock
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestReturnTransaction_DamageAndOverdue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	// Loan of 3 units, one comes back damaged, 47 hours late. Two days of
	// overdue fine (20) plus a 5 damage fine makes 25.
	expectedReturn := time.Now().Add(-47 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, borrower_id, inventory_id, quantity, return_date, status FROM transactions WHERE id = \? FOR UPDATE`).
		WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "borrower_id", "inventory_id", "quantity", "return_date", "status"}).
			AddRow(42, 7, 10, 3, expectedReturn, "borrowed"))
	mock.ExpectQuery(`SELECT id, quantity, remaining_quantity, status FROM inventory WHERE id = \? FOR UPDATE`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity", "remaining_quantity", "status"}).
			AddRow(10, 5, 1, "borrowed"))
	// Damaged unit leaves stock (5 -> 4); two good units go back (1 -> 3).
	mock.ExpectExec(`UPDATE inventory SET quantity = \?, remaining_quantity = \?, status = \?, updated_at = \? WHERE id = \?`).
		WithArgs(4, 3, "borrowed", sqlmock.AnyArg(), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE transactions SET status = \?`).
		WithArgs("returned", sqlmock.AnyArg(), 1, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.POST("/v1/transactions/:id/return", h.ReturnTransaction)

	w := performJSON(router, http.MethodPost, "/v1/transactions/42/return", gin.H{
		"damagedQuantity": 1,
		"damageFine":      "5",
		"damageImageUrl":  "http://localhost:8080/uploads/photo.jpg",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"goodItems":2`)
	assert.Contains(t, w.Body.String(), `"overdueFine":"20"`)
	assert.Contains(t, w.Body.String(), `"totalFine":"25"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnTransaction_DamagePhotoRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	router := gin.New()
	router.POST("/v1/transactions/:id/return", h.ReturnTransaction)

	// Damaged units without a photo never reach the database.
	w := performJSON(router, http.MethodPost, "/v1/transactions/42/return", gin.H{
		"damagedQuantity": 1,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "damage photo")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnTransaction_AlreadyReturned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, borrower_id, inventory_id, quantity, return_date, status FROM transactions WHERE id = \? FOR UPDATE`).
		WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "borrower_id", "inventory_id", "quantity", "return_date", "status"}).
			AddRow(42, 7, 10, 3, time.Now(), "returned"))
	mock.ExpectRollback()

	router := gin.New()
	router.POST("/v1/transactions/:id/return", h.ReturnTransaction)

	w := performJSON(router, http.MethodPost, "/v1/transactions/42/return", gin.H{
		"damagedQuantity": 0,
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_InsufficientStock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM borrowers WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT id, name, quantity, remaining_quantity, status FROM inventory WHERE id = \? FOR UPDATE`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "remaining_quantity", "status"}).
			AddRow(10, "Oscilloscope", 5, 1, "borrowed"))
	mock.ExpectRollback()

	router := gin.New()
	router.POST("/v1/transactions/checkout", h.Checkout)

	w := performJSON(router, http.MethodPost, "/v1/transactions/checkout", gin.H{
		"borrowerId":  7,
		"inventoryId": 10,
		"quantity":    2,
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient stock for Oscilloscope")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM borrowers WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT id, name, quantity, remaining_quantity, status FROM inventory WHERE id = \? FOR UPDATE`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "remaining_quantity", "status"}).
			AddRow(10, "Oscilloscope", 5, 5, "available"))
	mock.ExpectExec(`INSERT INTO transactions`).
		WillReturnResult(sqlmock.NewResult(42, 1))
	// Last unit-but-two stays out; 3 of 5 remaining means 'borrowed'.
	mock.ExpectExec(`UPDATE inventory SET remaining_quantity = \?, status = \?, updated_at = \? WHERE id = \?`).
		WithArgs(3, "borrowed", sqlmock.AnyArg(), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.POST("/v1/transactions/checkout", h.Checkout)

	w := performJSON(router, http.MethodPost, "/v1/transactions/checkout", gin.H{
		"borrowerId":  7,
		"inventoryId": 10,
		"quantity":    2,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"transactionId":42`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_PastReturnDateRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	router := gin.New()
	router.POST("/v1/transactions/checkout", h.Checkout)

	// Yesterday by calendar date, regardless of the server's timezone.
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	w := performJSON(router, http.MethodPost, "/v1/transactions/checkout", gin.H{
		"borrowerId":  7,
		"inventoryId": 10,
		"quantity":    1,
		"returnDate":  yesterday,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cannot be in the past")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckOverdue_FlagsMatchingLoans(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	mock.ExpectExec(`UPDATE transactions SET status = \?, updated_at = \? WHERE status = \? AND return_date < \?`).
		WithArgs("overdue", sqlmock.AnyArg(), "borrowed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	router := gin.New()
	router.POST("/v1/admin/transactions/overdue-sweep", h.CheckOverdue)

	w := performJSON(router, http.MethodPost, "/v1/admin/transactions/overdue-sweep", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"flaggedCount":3`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
