package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestUpdateInventoryItem_QuantityBelowBorrowed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	// 3 of 5 units are out on loan; shrinking the total below 3 is refused.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, name, quantity, remaining_quantity, status`).
		WithArgs("10").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "remaining_quantity", "status", "condition"}).
			AddRow(10, "Oscilloscope", 5, 2, "borrowed", "good"))
	mock.ExpectRollback()

	router := gin.New()
	router.PUT("/v1/inventory/:id", h.UpdateInventoryItem)

	w := performJSON(router, http.MethodPut, "/v1/inventory/10", gin.H{"quantity": 2})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateInventoryItem_QuantityAdjustsRemaining(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	// Growing the total from 5 to 8 puts the 3 new units straight on the
	// shelf: remaining goes from 2 to 5 and the 3 on loan stay accounted.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, name, quantity, remaining_quantity, status`).
		WithArgs("10").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "remaining_quantity", "status", "condition"}).
			AddRow(10, "Oscilloscope", 5, 2, "borrowed", "good"))
	mock.ExpectExec(`UPDATE inventory SET name = \?`).
		WithArgs("Oscilloscope", 8, 5, "borrowed", "good", sqlmock.AnyArg(), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.PUT("/v1/inventory/:id", h.UpdateInventoryItem)

	w := performJSON(router, http.MethodPut, "/v1/inventory/10", gin.H{"quantity": 8})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateInventoryItem_ManualStatusSticks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	// An item flagged for maintenance keeps that status even though all
	// of its units are on the shelf.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, name, quantity, remaining_quantity, status`).
		WithArgs("10").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "remaining_quantity", "status", "condition"}).
			AddRow(10, "Oscilloscope", 5, 5, "available", "good"))
	mock.ExpectExec(`UPDATE inventory SET name = \?`).
		WithArgs("Oscilloscope", 5, 5, "maintenance", "good", sqlmock.AnyArg(), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.PUT("/v1/inventory/:id", h.UpdateInventoryItem)

	w := performJSON(router, http.MethodPut, "/v1/inventory/10", gin.H{"status": "maintenance"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"maintenance"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInventoryItem_ActiveBorrowsBlockDeletion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions WHERE inventory_id = \?`).
		WithArgs("10").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	router := gin.New()
	router.DELETE("/v1/admin/inventory/:id", h.DeleteInventoryItem)

	req := performJSON(router, http.MethodDelete, "/v1/admin/inventory/10", nil)

	assert.Equal(t, http.StatusConflict, req.Code)
	assert.Contains(t, req.Body.String(), "active borrows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInventoryItem_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock := newMockedHandlers(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions WHERE inventory_id = \?`).
		WithArgs("10").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM inventory WHERE id = \?`).
		WithArgs("10").
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := gin.New()
	router.DELETE("/v1/admin/inventory/:id", h.DeleteInventoryItem)

	w := performJSON(router, http.MethodDelete, "/v1/admin/inventory/10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
