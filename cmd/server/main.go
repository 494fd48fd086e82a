package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/promptcraft/backend/docs"
	"github.com/promptcraft/backend/internal/config"
	"github.com/promptcraft/backend/internal/database"
	"github.com/promptcraft/backend/internal/generation"
	"github.com/promptcraft/backend/internal/handlers"
	"github.com/promptcraft/backend/internal/logging"
	"github.com/promptcraft/backend/internal/metrics"
	mW "github.com/promptcraft/backend/internal/middleware"
	"github.com/promptcraft/backend/internal/services"
	"github.com/promptcraft/backend/internal/store/postgres"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Credit Ledger API
// @version 1.0
// @description Credit accounting for metered AI generation
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := config.Init(".env"); err != nil {
		logrus.WithError(err).Info("Config file not found, using defaults and environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	log := logging.New(cfg.Log)

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Credit Ledger API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port

	ctx := context.Background()

	db, err := database.InitDB(ctx, database.GetConfig())
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	redisClient := database.InitRedis(ctx)
	if redisClient != nil {
		defer redisClient.Close()
	}

	ledgerStore := postgres.New(db)
	classifier := services.NewRiskClassifier(cfg.Audit.MediumThreshold, cfg.Audit.HighThreshold)

	auditService := services.NewAuditService(ledgerStore, classifier, services.AuditOptions{
		QueueSize: cfg.Audit.QueueSize,
		Workers:   cfg.Audit.Workers,
	}, log)
	auditService.Start()
	defer auditService.Stop()

	ledgerService := services.NewLedgerService(ledgerStore, classifier, auditService, services.LedgerOptions{
		HistoryDefaultLimit: cfg.Ledger.HistoryDefaultLimit,
		HistoryMaxLimit:     cfg.Ledger.HistoryMaxLimit,
	}, log)

	rechargeService := services.NewRechargeService(redisClient, ledgerStore, ledgerService, services.RechargeOptions{
		MinCredits:          cfg.Recharge.MinCredits,
		MaxCredits:          cfg.Recharge.MaxCredits,
		PricePerCreditCents: cfg.Recharge.PricePerCreditCents,
		Currency:            cfg.Recharge.Currency,
		OrderTTL:            cfg.Recharge.OrderTTL,
		PayURLBase:          cfg.Recharge.PayURLBase,
		MaxOrdersPerWindow:  cfg.Recharge.MaxOrdersPerWindow,
		OrderWindow:         cfg.Recharge.OrderWindow,
		WebhookSecret:       cfg.Payment.WebhookSecret,
	}, log)

	admission := services.NewAdmissionController(ledgerService, ledgerStore, log)
	generator := generation.New(generation.Config{
		URL:     cfg.Generation.UpstreamURL,
		APIKey:  cfg.Generation.APIKey,
		Timeout: cfg.Generation.Timeout,
	})

	userHandler := handlers.NewUserHandler(ledgerService, cfg.Ledger.RegistrationBonus, log)
	creditsHandler := handlers.NewCreditsHandler(ledgerService, rechargeService, log)
	paymentHandler := handlers.NewPaymentHandler(rechargeService, log)
	generationHandler := handlers.NewGenerationHandler(admission, generator, cfg.Generation.Cost, log)
	adminHandler := handlers.NewAdminHandler(ledgerService, auditService, log)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	limiter := mW.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	limiter.StartCleanup(time.Minute, stopCleanup)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(metrics.InstrumentHandler)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.SignatureHeader},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if err := ledgerStore.Ping(r.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	r.Handle("/metrics", metrics.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(cfg.Server.PublicURL+"/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (signature checked in the handler)
		r.Post("/payments/webhook", paymentHandler.Webhook)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)
			r.Use(limiter.Handler)

			r.Get("/user/profile", userHandler.GetProfile)
			r.Post("/user/logout", userHandler.Logout)

			r.Post("/credits/deduct", creditsHandler.Deduct)
			r.Get("/credits/balance", creditsHandler.GetBalance)
			r.Get("/credits/check", creditsHandler.CheckCredits)
			r.Get("/credits/history", creditsHandler.GetHistory)
			r.Post("/credits/recharge", creditsHandler.CreateRecharge)
			r.Get("/credits/recharge/{orderId}", creditsHandler.GetRechargeOrder)

			r.Post("/generations", generationHandler.Generate)

			// Admin endpoints
			r.Route("/admin/credits", func(r chi.Router) {
				r.Use(mW.RequireAdmin)

				r.Post("/adjust", adminHandler.AdjustCredits)
				r.Get("/alerts", adminHandler.ListAlerts)
				r.Get("/adjustments", adminHandler.ListAdjustments)
				r.Get("/reconciliation", adminHandler.ListReconciliation)
			})
		})
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}
