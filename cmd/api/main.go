package main

import (
	"log"
	"os"

	_ "skustack/api/swagger" // swagger docs
	"skustack/internal/database"
	"skustack/internal/handler"
	"skustack/internal/middleware"
	"skustack/internal/repository"
	"skustack/internal/service"
	"skustack/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           SKU Stack API
// @version         1.0
// @description     Multi-tenant SKU, BOM, and inventory ledger API.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	companyRepo := repository.NewCompanyRepository(db)
	userRepo := repository.NewUserRepository(db)
	componentRepo := repository.NewComponentRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	lotRepo := repository.NewLotRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	skuRepo := repository.NewSKURepository(db)
	bomRepo := repository.NewBOMVersionRepository(db)
	salesRepo := repository.NewSalesRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo, companyRepo, txManager)
	componentService := service.NewComponentService(componentRepo, txRepo, auditRepo, txManager)
	ledgerService := service.NewLedgerService(componentRepo, locationRepo, lotRepo, txRepo, auditRepo, txManager, wsHub)
	bomService := service.NewBOMService(componentRepo, bomRepo, txRepo)
	stockService := service.NewStockService(componentRepo, locationRepo, skuRepo, bomRepo, txRepo, companyRepo, auditRepo, txManager, wsHub)
	skuService := service.NewSKUService(skuRepo, bomRepo, componentRepo, auditRepo, txManager)
	attributionService := service.NewAttributionService(salesRepo, txManager)
	exportService := service.NewExportService(componentRepo, txRepo, auditRepo, ledgerService, txManager)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	componentHandler := handler.NewComponentHandler(componentService, exportService)
	transactionHandler := handler.NewTransactionHandler(ledgerService, stockService)
	skuHandler := handler.NewSKUHandler(skuService)
	analyticsHandler := handler.NewAnalyticsHandler(bomService, stockService, attributionService)
	auditHandler := handler.NewAuditHandler(auditRepo)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	componentHandler.RegisterRoutes(router.Group(""))
	transactionHandler.RegisterRoutes(router.Group(""))
	skuHandler.RegisterRoutes(router.Group(""))
	analyticsHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
