package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	handlers "github.com/verbatone/billing/internal/adapter/handler/http"
	"github.com/verbatone/billing/internal/config"
	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/domain/provider"
	"github.com/verbatone/billing/internal/infrastructure/database"
	"github.com/verbatone/billing/internal/middleware/auth"
	"github.com/verbatone/billing/internal/usecase"
)

type Server struct {
	config     *config.Config
	logger     *zap.Logger
	echo       *echo.Echo
	repos      *database.Repositories
	providers  map[model.Provider]provider.BillingProvider
	reconciler *usecase.ReconcilerService
	stats      *usecase.StatsService
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	repos *database.Repositories,
	providers map[model.Provider]provider.BillingProvider,
	reconciler *usecase.ReconcilerService,
	stats *usecase.StatsService,
) *Server {
	e := echo.New()

	// Initialize Stripe
	stripe.Key = cfg.Service.StripeSecretKey

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:     cfg,
		logger:     logger,
		echo:       e,
		repos:      repos,
		providers:  providers,
		reconciler: reconciler,
		stats:      stats,
	}
}

func (s *Server) Start() error {
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "billing",
		})
	})

	// Initialize handlers
	subscriptionService := usecase.NewSubscriptionService(s.providers, s.repos.Subscription, s.repos.PaymentHistory, s.logger)
	webhookService := usecase.NewWebhookService(s.repos.Webhook, s.repos.Subscription, s.repos.PaymentHistory, s.repos.User, s.logger)

	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService, s.logger)
	webhookHandler := handlers.NewWebhookHandler(webhookService, s.config.Service.StripeWebhookSecret, s.logger)
	statsHandler := handlers.NewStatsHandler(s.stats, s.logger)
	syncHandler := handlers.NewSyncHandler(s.reconciler, s.logger)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.Service.Supabase.JWTSecret,
		Logger: s.logger,
	}

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Protected routes (require JWT authentication)
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	subscriptions := protected.Group("/subscriptions")
	subscriptions.GET("/current", subscriptionHandler.GetCurrentSubscription)
	subscriptions.DELETE("/:id", subscriptionHandler.CancelSubscription)
	subscriptions.GET("/current/payments", subscriptionHandler.GetPaymentHistory)

	// Admin routes (require the admin role on top of JWT)
	admin := protected.Group("/admin", auth.RequireAdmin(s.logger))
	admin.GET("/stats/business", statsHandler.GetBusinessStats)
	admin.GET("/stats/historical", statsHandler.GetHistoricalStats)
	admin.POST("/reconcile", syncHandler.TriggerSync)

	// Webhook route (outside API versioning, verified by signature)
	s.echo.POST("/webhook", webhookHandler.HandleStripeWebhook)
}
