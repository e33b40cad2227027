package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labstock/labstock-golang/internal/auth"
	"github.com/labstock/labstock-golang/internal/models"
)

//
// --- User Registration ---
//

// RegisterUserInput defines the expected JSON data for registration.
// The 'binding' tags are used by Gin for automatic validation.
type RegisterUserInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`

	// Required only when registering an admin account.
	RegistrationKey string `json:"registrationKey"`
}

// RegisterAssistant is the handler for POST /v1/register/assistant.
// New assistants land in 'pending' status and cannot log in until an
// admin approves them.
func (h *Handlers) RegisterAssistant(c *gin.Context) {
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.insertUser(input, "assistant", "pending")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	// Let every active admin know there is someone waiting. The account
	// itself is already saved, so a failed fan-out is logged, not fatal.
	if tx, err := h.DB.Begin(); err != nil {
		log.Printf("WARNING: Failed to start admin notification transaction: %v", err)
	} else {
		defer tx.Rollback()
		if err := h.NotifyAdmins(tx, user.FullName+" is requesting access as an assistant", "/admin/assistants"); err != nil {
			log.Printf("WARNING: Failed to notify admins about pending assistant: %v", err)
		} else if err := tx.Commit(); err != nil {
			log.Printf("WARNING: Failed to commit admin notifications: %v", err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Assistant registered successfully, pending approval.",
		"user":    user,
	})
}

// RegisterAdmin is the handler for POST /v1/register/admin.
// It is gated by a shared registration key so that the first admin can
// bootstrap the system without an existing account.
func (h *Handlers) RegisterAdmin(c *gin.Context) {
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := os.Getenv("ADMIN_REGISTRATION_KEY")
	if key == "" || input.RegistrationKey != key {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid registration key"})
		return
	}

	user, err := h.insertUser(input, "admin", "active")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Admin registered successfully.",
		"user":    user,
	})
}

// insertUser hashes the password and writes the row.
func (h *Handlers) insertUser(input RegisterUserInput, role, status string) (*models.User, error) {
	user := &models.User{
		Role:      role,
		Status:    status,
		Email:     input.Email,
		FullName:  input.FullName,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		return nil, err
	}
	user.PasswordHash = password.Hash

	query := `
		INSERT INTO users
		(role, status, email, password_hash, full_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := h.DB.Exec(query,
		user.Role, user.Status, user.Email, user.PasswordHash,
		user.FullName, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return user, nil
}

//
// --- Login / Logout ---
//

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/login.
// On success it issues a JWT and stores a matching server-side session
// in Redis; the token is only good while that session record lives.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	query := "SELECT id, password_hash, role, status FROM users WHERE email = ?"
	err := h.DB.QueryRow(query, input.Email).Scan(
		&user.ID, &user.PasswordHash, &user.Role, &user.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	switch user.Status {
	case "pending":
		c.JSON(http.StatusForbidden, gin.H{"error": "Your account is pending approval by an administrator."})
		return
	case "rejected":
		c.JSON(http.StatusForbidden, gin.H{"error": "Your access request was rejected. Please contact the lab administrator."})
		return
	case "active":
		// continue to password check
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unknown user status"})
		return
	}

	var password models.Password
	password.Hash = user.PasswordHash
	match, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	sessionID := uuid.NewString()
	token, err := auth.GenerateToken(user.ID, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	if err := h.Sessions.Create(c.Request.Context(), sessionID, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user": gin.H{
			"id":   user.ID,
			"role": user.Role,
		},
	})
}

// Logout is the handler for POST /v1/logout.
// Deleting the session record invalidates the token immediately.
func (h *Handlers) Logout(c *gin.Context) {
	sessionID := c.MustGet("sessionID").(string)
	if err := h.Sessions.Delete(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// getUserByID loads a user row through a Querier, so it works both on
// the pool and inside an open transaction.
func getUserByID(q Querier, userID int64) (*models.User, error) {
	var user models.User
	query := "SELECT id, role, status, email, full_name, created_at, updated_at FROM users WHERE id = ?"
	err := q.QueryRow(query, userID).Scan(
		&user.ID, &user.Role, &user.Status, &user.Email,
		&user.FullName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetMyProfile is the handler for GET /v1/profile/me.
func (h *Handlers) GetMyProfile(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	user, err := getUserByID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
