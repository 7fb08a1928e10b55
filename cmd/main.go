package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"carbon-broker/internal/auth"
	"carbon-broker/internal/cache"
	"carbon-broker/internal/config"
	"carbon-broker/internal/database"
	"carbon-broker/internal/handlers"
	"carbon-broker/internal/models"
	"carbon-broker/internal/pricing"
	"carbon-broker/internal/rpc"
	"carbon-broker/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Serverless RPC client (invitation fallback, email, PDF generation)
	var rpcClient *rpc.Client
	if cfg.RPC.BaseURL != "" {
		rpcClient = rpc.NewClient(cfg.RPC.BaseURL, cfg.RPC.APIKey)
	} else {
		log.Println("FUNCTIONS_BASE_URL not set; serverless procedures disabled")
	}

	// Shared price cache and pricing converter
	priceCache := cache.New(cfg.Pricing.PriceCacheTTL)
	converter := pricing.NewConverter(cfg.Pricing.YieldKWhPerKWp)

	// Initialize services
	userService := services.NewUserService(db)
	portfolioService := services.NewPortfolioService(db)
	priceService := services.NewCarbonPriceService(db, priceCache)
	proposalService := services.NewProposalService(db, portfolioService, priceService, converter, cfg.Pricing.MaxSizeKWp)
	invitationService := services.NewInvitationService(db, rpcClient, cfg.App.InvitationTTL)
	adminService := services.NewAdminService(db, proposalService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	proposalHandler := handlers.NewProposalHandler(proposalService, invitationService, portfolioService, rpcClient)
	invitationHandler := handlers.NewInvitationHandler(invitationService)
	adminHandler := handlers.NewAdminHandler(adminService, priceService)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public invitation validation (opened from emailed proposal links)
	router.GET("/api/invitations/validate", invitationHandler.ValidateInvitation)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Proposal endpoints
		api.POST("/proposals", auth.RequireRole(models.RoleAgent, models.RoleAdmin), proposalHandler.CreateProposal)
		api.GET("/proposals", proposalHandler.GetProposals)
		api.GET("/proposals/:id", proposalHandler.GetProposal)
		api.GET("/proposals/:id/revenue", proposalHandler.GetRevenuePreview)
		api.GET("/proposals/:id/pdf", proposalHandler.GetProposalPDF)
		api.POST("/proposals/:id/submit", auth.RequireRole(models.RoleAgent, models.RoleAdmin), proposalHandler.SubmitProposal)
		api.POST("/proposals/:id/decide", proposalHandler.DecideProposal)
		api.POST("/proposals/:id/sign", proposalHandler.SignProposal)
		api.POST("/proposals/:id/archive", proposalHandler.ArchiveProposal)

		// Portfolio endpoint
		api.GET("/portfolio", proposalHandler.GetPortfolio)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", adminHandler.GetUsers)
		admin.POST("/users/role", adminHandler.SetUserRole)

		admin.GET("/carbon-prices", adminHandler.GetCarbonPrices)
		admin.POST("/carbon-prices", adminHandler.UpsertCarbonPrice)

		admin.POST("/recalculate", adminHandler.RecalculatePercentages)
		admin.GET("/logs", adminHandler.GetAdminLogs)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
