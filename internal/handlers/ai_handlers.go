package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdvisorInput defines the structure of the JSON request body.
type AdvisorInput struct {
	Message string `json:"message" binding:"required"`
}

// AskStockAdvisor handles POST /v1/advisor. It forwards a staff question
// to the Gemini-backed advisor, which can query the database read-only.
func (h *Handlers) AskStockAdvisor(c *gin.Context) {
	if h.AIService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stock advisor is not configured"})
		return
	}

	userRole := "assistant"
	if role, exists := c.Get("userRole"); exists {
		userRole = role.(string)
	}

	var input AdvisorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.AIService.GenerateResponse(c.Request.Context(), input.Message, userRole)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Advisor unavailable: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": response})
}
