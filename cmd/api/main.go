package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/labstock/labstock-golang/internal/ai"
	"github.com/labstock/labstock-golang/internal/auth"
	"github.com/labstock/labstock-golang/internal/database"
	"github.com/labstock/labstock-golang/internal/handlers"
	"github.com/labstock/labstock-golang/internal/routes"
	"github.com/labstock/labstock-golang/internal/session"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// 1. --- Main Database Connection (Read/Write) ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to primary database: %v", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(db); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}

	// 2. --- Read-Only Database Connection (Stock Advisor) ---
	// Falls back to the primary DSN in a dev setup without a replica.
	dbReadOnly := db
	if readOnlyDSN := os.Getenv("DB_DSN_READONLY"); readOnlyDSN != "" {
		dbReadOnly, err = database.OpenDBWithDSN(readOnlyDSN)
		if err != nil {
			log.Fatalf("Failed to connect to read-only database: %v", err)
		}
		defer dbReadOnly.Close()
	}

	// 3. --- Redis Session Store ---
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	sessions := session.NewStore(rdb, auth.TokenTTL)

	// 4. --- Stock Advisor Initialization (Optional) ---
	var aiService *ai.Service
	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		aiService, err = ai.NewService(geminiKey, dbReadOnly)
		if err != nil {
			log.Fatalf("Failed to initialize stock advisor: %v", err)
		}
		defer aiService.Client.Close()
	} else {
		log.Println("GEMINI_API_KEY not set; stock advisor disabled.")
	}

	// --- Application Setup ---
	app := &handlers.Handlers{
		DB:         db,
		DBReadOnly: dbReadOnly,
		Sessions:   sessions,
		AIService:  aiService,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting LabStock API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
