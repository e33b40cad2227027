package handlers

import (
	"database/sql"

	"github.com/labstock/labstock-golang/internal/ai"
	"github.com/labstock/labstock-golang/internal/session"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB         *sql.DB        // Primary Read/Write connection
	DBReadOnly *sql.DB        // Read-Only connection, used by the stock advisor
	Sessions   *session.Store // Redis-backed login sessions
	AIService  *ai.Service    // nil when GEMINI_API_KEY is not configured
}

// Querier defines a common interface for QueryRow, implemented by both
// *sql.DB and *sql.Tx. Helpers that read a single row accept it so they
// can run in or out of a transaction.
type Querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}
