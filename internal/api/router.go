package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecobalance/impact-balance/internal/api/handlers"
	"github.com/ecobalance/impact-balance/internal/api/middleware"
	"github.com/ecobalance/impact-balance/internal/config"
	"github.com/ecobalance/impact-balance/internal/factors"
	"github.com/ecobalance/impact-balance/internal/impact"
	"github.com/ecobalance/impact-balance/internal/ingest"
	"github.com/ecobalance/impact-balance/internal/models"
	"github.com/ecobalance/impact-balance/internal/quotation"
	"github.com/ecobalance/impact-balance/internal/repository"
	"github.com/ecobalance/impact-balance/pkg/auth"
)

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(pool *pgxpool.Pool, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.StructuredLogging())

	// Health check (no auth required)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "impact-balance",
		})
	})

	// Initialize repositories
	eventRepo := repository.NewEventRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	quotationRepo := repository.NewQuotationRepository(pool)
	idempotencyRepo := repository.NewIdempotencyRepository(pool)

	// Initialize services
	factorSvc := factors.NewService(settingsRepo)
	quotationSvc := quotation.NewService(quotationRepo, cfg.Quotation.CacheTTL)
	calculator := impact.NewCalculator(eventRepo, factorSvc, quotationSvc)
	normalizer := ingest.NewNormalizer(eventRepo, clientRepo)

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(eventRepo, idempotencyRepo, calculator)
	settingsHandler := handlers.NewSettingsHandler(factorSvc, quotationSvc)
	clientHandler := handlers.NewClientHandler(clientRepo)
	importHandler := handlers.NewImportHandler(normalizer, idempotencyRepo, cfg)

	// API v1 routes (authenticated)
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(&cfg.JWT))
	{
		// Calculations and event records
		v1.POST("/events/calculate",
			middleware.RequireRole("admin", "operator"),
			eventHandler.HandleCalculate,
		)
		v1.GET("/events",
			middleware.RequireRole("admin", "operator", "viewer"),
			eventHandler.HandleList,
		)
		v1.GET("/events/export",
			middleware.RequireRole("admin", "operator"),
			eventHandler.HandleExport,
		)
		v1.GET("/events/latest",
			middleware.RequireRole("admin", "operator", "viewer"),
			eventHandler.HandleLatest,
		)
		v1.GET("/events/:event_id",
			middleware.RequireRole("admin", "operator", "viewer"),
			eventHandler.HandleGet,
		)
		v1.PATCH("/events/:event_id/archive",
			middleware.RequireRole("admin", "operator"),
			eventHandler.HandleArchive,
		)
		v1.DELETE("/events/:event_id",
			middleware.RequireRole("admin"),
			eventHandler.HandleDelete,
		)

		// Factor settings and quotation
		v1.GET("/settings/factors",
			middleware.RequireRole("admin", "operator", "viewer"),
			settingsHandler.HandleGetFactors,
		)
		v1.PUT("/settings/factors",
			middleware.RequireRole("admin"),
			settingsHandler.HandlePutFactors,
		)
		v1.GET("/quotation",
			middleware.RequireRole("admin", "operator", "viewer"),
			settingsHandler.HandleGetQuotation,
		)

		// Clients
		v1.POST("/clients",
			middleware.RequireRole("admin", "operator"),
			clientHandler.HandleCreate,
		)
		v1.GET("/clients",
			middleware.RequireRole("admin", "operator", "viewer"),
			clientHandler.HandleList,
		)
		v1.GET("/clients/:client_id",
			middleware.RequireRole("admin", "operator", "viewer"),
			clientHandler.HandleGet,
		)
		v1.PUT("/clients/:client_id",
			middleware.RequireRole("admin", "operator"),
			clientHandler.HandleUpdate,
		)
		v1.DELETE("/clients/:client_id",
			middleware.RequireRole("admin"),
			clientHandler.HandleDelete,
		)

		// Legacy bulk import
		v1.POST("/imports",
			middleware.RequireRole("admin"),
			importHandler.HandleImport,
		)
	}

	// Development-only endpoints: test JWTs and quotation seeding.
	r.POST("/dev/token", devTokenHandler(cfg))
	r.POST("/dev/quotation", devQuotationHandler(quotationRepo))

	return r
}

// devTokenHandler returns a handler that generates test JWTs for development.
func devTokenHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id"`
			Email  string `json:"email"`
			Role   string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "invalid request"})
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid user_id"})
			return
		}
		if req.Role == "" {
			req.Role = "admin"
		}

		token, err := auth.GenerateToken(cfg.JWT.Secret, cfg.JWT.Issuer, userID, req.Email, req.Role, cfg.JWT.ExpiryHours)
		if err != nil {
			c.JSON(500, gin.H{"error": "failed to generate token"})
			return
		}

		c.JSON(200, gin.H{"token": token})
	}
}

// devQuotationHandler returns a handler that seeds a quotation row, standing
// in for the external price feed during development.
func devQuotationHandler(repo *repository.QuotationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Value    float64 `json:"value"`
			ValueUSD float64 `json:"value_usd"`
			ValueEUR float64 `json:"value_eur"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Value <= 0 {
			c.JSON(400, gin.H{"error": "a positive value is required"})
			return
		}

		q := &models.Quotation{
			ID:         uuid.New(),
			Value:      req.Value,
			ValueUSD:   req.ValueUSD,
			ValueEUR:   req.ValueEUR,
			CapturedAt: time.Now(),
		}
		if err := repo.Insert(c.Request.Context(), q); err != nil {
			c.JSON(500, gin.H{"error": "failed to store quotation"})
			return
		}

		c.JSON(201, q)
	}
}
