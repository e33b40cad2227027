package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/labstock/labstock-golang/internal/handlers"
	"github.com/labstock/labstock-golang/internal/middleware"
)

func corsConfig() cors.Config {
	config := cors.DefaultConfig()

	// Comma-separated list of allowed frontends; defaults to the local dev server.
	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if origins == "" {
		origins = "http://localhost:5173"
	}
	config.AllowOrigins = strings.Split(origins, ",")
	config.AllowCredentials = true
	config.AllowHeaders = append(config.AllowHeaders, "Authorization")
	config.MaxAge = 12 * time.Hour
	return config
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(corsConfig()))

	// Uploaded damage photos are served straight off disk.
	router.Static("/uploads", "./uploads")

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register/assistant", h.RegisterAssistant)
		v1.POST("/register/admin", h.RegisterAdmin)
		v1.POST("/login", h.Login)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(h.Sessions))
		{
			auth.POST("/logout", h.Logout)
			auth.GET("/profile/me", h.GetMyProfile)

			// Inventory
			auth.GET("/inventory", h.GetInventoryItems)
			auth.POST("/inventory", h.CreateInventoryItem)
			auth.PUT("/inventory/:id", h.UpdateInventoryItem)

			// Borrowers
			auth.GET("/borrowers", h.GetBorrowers)
			auth.POST("/borrowers", h.CreateBorrower)
			auth.PUT("/borrowers/:id", h.UpdateBorrower)
			auth.GET("/borrowers/:id/history", h.GetBorrowerHistory)

			// Transactions
			auth.GET("/transactions", h.GetTransactions)
			auth.POST("/transactions/checkout", h.Checkout)
			auth.POST("/transactions/:id/return", h.ReturnTransaction)

			// Cart Requests
			auth.GET("/cart-requests", h.GetCartRequests)
			auth.POST("/cart-requests", h.CreateCartRequest)

			// Reports
			auth.GET("/reports/dashboard", h.GetDashboardStats)
			auth.GET("/reports/recent-activity", h.GetRecentActivity)
			auth.GET("/reports/low-stock", h.GetLowStockReport)
			auth.GET("/reports/most-borrowed", h.GetMostBorrowedReport)

			// Uploads
			auth.POST("/upload", h.UploadFile)

			// Notifications
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			// --- Admin-Only Routes ---
			admin := auth.Group("/admin")
			admin.Use(middleware.AdminMiddleware(h.DB))
			{
				admin.GET("/assistants/pending", h.GetPendingAssistants)
				admin.PATCH("/assistants/:id/approve", h.ApproveAssistant)
				admin.PATCH("/assistants/:id/reject", h.RejectAssistant)

				admin.DELETE("/inventory/:id", h.DeleteInventoryItem)
				admin.DELETE("/borrowers/:id", h.DeleteBorrower)

				admin.PATCH("/cart-requests/:id/accept", h.AcceptCartRequest)
				admin.PATCH("/cart-requests/:id/reject", h.RejectCartRequest)

				admin.POST("/transactions/overdue-sweep", h.CheckOverdue)

				admin.POST("/advisor", h.AskStockAdvisor)
			}
		}
	}

	return router
}
