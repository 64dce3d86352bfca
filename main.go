package main

import (
	"log"
	"os"

	"payments-service/internal/database"
	"payments-service/internal/handlers"
	"payments-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found in current directory, trying parent")
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using system environment variables")
		}
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}

	// Initialize Database
	database.Connect()
	database.Migrate()
	db := database.DB

	// Redis/Asynq Client
	redisAddr := os.Getenv("REDIS_URL")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer asynqClient.Close()

	// Init Services
	tenantService := services.NewTenantService(db)
	registrar := services.NewWebhookRegistrar()
	settingsService := services.NewSettingsService(db, registrar)
	webhookService := services.NewWebhookService(db, tenantService, settingsService, asynqClient)
	webhookService.RegisterDefaults()

	// Handlers
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	eventsHandler := handlers.NewEventsHandler(db)

	// Initialize Gin
	r := gin.Default()

	// Ping endpoint
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Welcome To Tenant Payments service",
		})
	})

	r.POST("/api/payment-settings", settingsHandler.Save)
	r.GET("/api/payment-settings", settingsHandler.Get)
	r.GET("/api/payment-events", eventsHandler.List)
	r.POST("/api/webhooks/stripe/:subdomain", webhookHandler.HandleStripe)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start Cron Schedulers
	sweepService := services.NewSweepService(db, registrar)
	sweepService.StartScheduler()

	log.Printf("HTTP Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
