package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"

	"club-system/config"
	"club-system/internal/billing"
	"club-system/internal/handlers"
	"club-system/internal/notify"
	"club-system/internal/services"
	"club-system/monitoring"
	"club-system/security"
	"club-system/utils"
)

func Start() error {
	app := pocketbase.New()
	cfg := config.LoadConfig()
	logger := slog.Default()

	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	monitor := monitoring.NewMonitor(redisClient)

	var publisher notify.Publisher
	if cfg.PubNubPublishKey != "" {
		publisher = notify.NewPubNub(cfg)
	}
	notifier := notify.NewService(publisher, monitor, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := billing.New(ctx, billing.ProviderName(cfg.BillingProvider), cfg)
	if err != nil {
		return err
	}

	// Services
	waitlistService := services.NewWaitlistService(app, redisClient, notifier, monitor, cfg, logger)
	manager := services.NewPromotionManager(waitlistService, redisClient, monitor, cfg.PromotionInterval, logger)
	rsvpService := services.NewRSVPService(app, manager, notifier, monitor, logger)
	approvalService := services.NewApprovalService(app, notifier, monitor, logger)
	paymentService := services.NewPaymentService(app, provider, notifier, monitor, cfg, logger)
	eventService := services.NewEventService(app, logger)

	// Handlers
	rsvpHandler := handlers.NewRSVPHandler(app, rsvpService, waitlistService)
	calendarHandler := handlers.NewCalendarHandler(app, eventService)
	approvalHandler := handlers.NewApprovalHandler(app, approvalService)
	paymentHandler := handlers.NewPaymentHandler(app, paymentService, cfg)
	adminHandler := handlers.NewAdminHandler(app, waitlistService)

	limiter := security.NewRateLimiter(redisClient)

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	registerAccountHooks(app, approvalService)
	registerAttendeeHooks(app)
	registerEventHooks(app, notifier, redisClient)

	// Ops listener stays off the member port so scrapes never compete with
	// member traffic.
	var opsServer *monitoring.Server
	if cfg.EnableMetrics {
		opsServer = monitoring.NewServer(cfg.MetricsPort, redisClient, logger)
		go opsServer.Start()
	}

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		paymentService.Start()
		manager.Start()

		go func() {
			if err := waitlistService.RestoreState(context.Background()); err != nil {
				logger.Warn("waitlist restore failed", "error", err)
			}
		}()

		e.Router.BindFunc(limiter.AntiBotFilter())
		writeGuard := limiter.WriteRateLimit(cfg.WriteRatePerMinute, time.Minute)

		// Calendar endpoints
		e.Router.GET("/api/v1/calendar", calendarHandler.GetCalendar)
		e.Router.GET("/api/v1/events/{eventId}/occurrences", calendarHandler.GetEventOccurrences)

		// RSVP endpoints
		e.Router.POST("/api/v1/rsvp", rsvpHandler.SubmitRSVP).BindFunc(writeGuard)
		e.Router.DELETE("/api/v1/rsvp", rsvpHandler.WithdrawRSVP).BindFunc(writeGuard)
		e.Router.GET("/api/v1/events/{eventId}/attendees", rsvpHandler.GetRoster)
		e.Router.GET("/api/v1/events/{eventId}/waitlist", rsvpHandler.GetWaitlistPosition)
		e.Router.GET("/api/v1/my/rsvps", rsvpHandler.GetMyRSVPs)

		// Approval endpoints
		e.Router.GET("/api/v1/my/approval", approvalHandler.GetMyRequest)
		e.Router.POST("/api/v1/my/approval/messages", approvalHandler.PostMyMessage).BindFunc(writeGuard)
		e.Router.GET("/api/v1/admin/approvals", approvalHandler.ListRequests)
		e.Router.GET("/api/v1/admin/approvals/{requestId}/thread", approvalHandler.GetThread)
		e.Router.POST("/api/v1/admin/approvals/{requestId}/messages", approvalHandler.PostAdminMessage)
		e.Router.POST("/api/v1/admin/approvals/{requestId}/decide", approvalHandler.Decide)

		// Payment endpoints
		e.Router.GET("/api/v1/events/{eventId}/payment-summary", paymentHandler.GetPaymentSummary)
		e.Router.POST("/api/v1/payments", paymentHandler.OpenPayment).BindFunc(writeGuard)
		e.Router.GET("/api/v1/payments/{paymentId}", paymentHandler.GetPayment)
		e.Router.GET("/api/v1/payments/{paymentId}/status", paymentHandler.CheckPaymentStatus)
		e.Router.POST("/api/v1/payments/{paymentId}/cancel", paymentHandler.CancelPayment)

		// Admin waitlist endpoints
		e.Router.GET("/api/v1/admin/waitlist-dashboard", adminHandler.GetWaitlistDashboard)
		e.Router.GET("/api/v1/admin/waitlist-details", adminHandler.GetWaitlistDetails)
		e.Router.GET("/api/v1/admin/events/{eventId}/stats", adminHandler.GetEventStats)
		e.Router.POST("/api/v1/admin/force-promote", adminHandler.ForcePromote)
		e.Router.POST("/api/v1/admin/remove-from-waitlist", adminHandler.RemoveFromWaitlist)

		// Settlement simulation for local development
		if cfg.Environment == "development" {
			e.Router.POST("/api/v1/test/simulate-payment", paymentHandler.SimulatePayment)
		}

		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		logger.Info("routes registered",
			"environment", cfg.Environment, "billing", provider.Name())

		return e.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		manager.Shutdown()
		paymentService.Shutdown(shutdownCtx)
		if opsServer != nil {
			opsServer.Shutdown(shutdownCtx)
		}
		cancel()

		return e.Next()
	})

	return app.Start()
}
