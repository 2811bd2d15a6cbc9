// File: main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"

	"github.com/Achutaiscool/Twenty44-WA-bot/config"
	"github.com/Achutaiscool/Twenty44-WA-bot/cron"
	"github.com/Achutaiscool/Twenty44-WA-bot/database"
	sessionRepo "github.com/Achutaiscool/Twenty44-WA-bot/database/repository/session"
	"github.com/Achutaiscool/Twenty44-WA-bot/handlers"
	"github.com/Achutaiscool/Twenty44-WA-bot/middleware"
	"github.com/Achutaiscool/Twenty44-WA-bot/routes"
	calendarSvc "github.com/Achutaiscool/Twenty44-WA-bot/services/calendar"
	"github.com/Achutaiscool/Twenty44-WA-bot/services/conversation"
	"github.com/Achutaiscool/Twenty44-WA-bot/services/payments"
	"github.com/Achutaiscool/Twenty44-WA-bot/services/tasks"
	"github.com/Achutaiscool/Twenty44-WA-bot/services/whatsapp"
	"github.com/Achutaiscool/Twenty44-WA-bot/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitLockCache()
	stripe.Key = config.AppConfig.StripeKey

	loc, err := time.LoadLocation(config.AppConfig.CalendarTimezone)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid timezone %q: %v", config.AppConfig.CalendarTimezone, err)
	}

	// Collaborators.
	calSvc, err := calendarSvc.NewGoogleCalendarService()
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize calendar service: %v", err)
	}
	sender := whatsapp.NewCloudAPISender(logger)
	linkIssuer := payments.NewStripeLinkIssuer(logger)
	taskQueue := tasks.NewAsynqQueue()

	// Core.
	sessions := sessionRepo.NewMongoSessionRepo()
	engine := &conversation.Engine{
		Sessions:     sessions,
		Calendar:     calSvc,
		Payments:     linkIssuer,
		Messenger:    sender,
		Tasks:        taskQueue,
		Locks:        conversation.NewRedisLocker(utils.GetLockClient()),
		Pricing:      conversation.PricingFromConfig(),
		Logger:       logger,
		ReminderLead: time.Duration(config.AppConfig.ReminderLeadMin) * time.Minute,
		Location:     loc,
	}

	// Background worker for reminders and reconciliation.
	cron.InitWorker(sender, calSvc, sessions)

	utils.StartHealthMonitor(
		map[string]*redis.Client{
			"cache": utils.GetCacheClient(),
			"locks": utils.GetLockClient(),
		},
		database.MongoClient,
	)

	// HTTP surface.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	webhookHandler := handlers.NewWebhookHandler(engine, logger)
	paymentHandler := handlers.NewPaymentWebhookHandler(engine, logger)
	routes.RegisterRoutes(router, webhookHandler, paymentHandler)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
