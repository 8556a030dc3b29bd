package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nextstop/booking-backend/internal/config"
	"github.com/nextstop/booking-backend/internal/database"
	"github.com/nextstop/booking-backend/internal/events"
	"github.com/nextstop/booking-backend/internal/handlers"
	"github.com/nextstop/booking-backend/internal/middleware"
	"github.com/nextstop/booking-backend/internal/services"
	"github.com/nextstop/booking-backend/pkg/jwt"
	"github.com/nextstop/booking-backend/pkg/sms"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// pinger is implemented by both stores
type pinger interface {
	Ping(ctx context.Context) error
}

// store is everything the server needs from a storage backend
type store interface {
	services.BookingStore
	services.ReminderLedger
	pinger
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Infof("Starting NextStop booking backend, version: %s, build time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Storage
	var (
		db        *database.PostgresDB
		bookingDB store
		catalog   services.CatalogLookup
		reminders services.ReminderLog
	)

	switch cfg.Server.StoreBackend {
	case "postgres":
		logger.Info("Connecting to database...")
		db, err = database.NewConnection(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = database.EnsureSchema(schemaCtx, db)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to prepare schema: %v", err)
		}
		logger.Info("Database connection established")

		bookingDB = database.NewPostgresStore(db)
		catalog = database.NewCatalogRepository(db)
		reminders = database.NewReminderRepository(db)
	case "memory":
		memCatalog := database.NewMemoryCatalog()
		if cfg.Server.CatalogSeed != "" {
			memCatalog, err = database.LoadCatalogSeed(cfg.Server.CatalogSeed)
			if err != nil {
				logger.Fatalf("Failed to load catalog: %v", err)
			}
		}
		logger.Warn("Using in-memory store; bookings are lost on restart")

		bookingDB = database.NewMemoryStore()
		catalog = memCatalog
		reminders = database.NewMemoryReminderRepository()
	}

	// Seat lock
	var locker services.SeatLocker
	switch cfg.Booking.LockBackend {
	case "redis":
		client, err := services.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		locker = services.NewRedisSeatLocker(client, cfg.Booking.LockTTL, cfg.Booking.LockWait, logger)
		logger.WithField("addr", cfg.Redis.Addr).Info("Using Redis seat lock")
	default:
		locker = services.NewKeyedMutex()
		logger.Info("Using in-process seat lock")
	}

	// Booking events
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		publisher = events.NewRabbitPublisher(cfg.RabbitMQ.URL, logger)
		logger.Info("Booking events enabled")
	}
	defer publisher.Close()

	// SMS gateway
	var smsGateway sms.Gateway
	if cfg.SMS.Mode == "production" {
		smsGateway = sms.NewDialogURLGateway(cfg.SMS.ESMSQK, cfg.SMS.Mask)
	} else {
		smsGateway = sms.NewLogGateway(logger)
	}
	logger.WithField("gateway", smsGateway.Name()).Info("SMS gateway initialized")

	// Services
	bookingConfig := services.DefaultBookingConfig()
	bookingConfig.MaxAttempts = cfg.Booking.MaxAttempts
	bookingConfig.RetryBackoff = cfg.Booking.RetryBackoff
	bookingConfig.Location = cfg.Booking.Location()

	bookingService := services.NewBookingService(bookingDB, catalog, locker, publisher, bookingConfig, logger)

	var auditDB database.DB
	if db != nil {
		auditDB = db
	}
	auditService := services.NewAuditService(auditDB, logger)

	reminderConfig := services.DefaultReminderConfig()
	reminderConfig.Schedule = cfg.Reminder.Schedule
	reminderConfig.Window = cfg.Reminder.Window
	reminderService := services.NewReminderService(bookingDB, reminders, catalog, smsGateway, reminderConfig, logger)

	if cfg.Reminder.Enabled {
		if err := reminderService.Start(); err != nil {
			logger.Fatalf("Failed to start reminder scheduler: %v", err)
		}
		defer reminderService.Stop()
	}

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)

	// Handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, auditService, logger)
	seatHandler := handlers.NewSeatHandler(bookingService, logger)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthCheckHandler(bookingDB))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/seats/availability", seatHandler.GetAvailability)

		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService, logger))
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.GetMyBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			bookings.GET("/:id/ticket", bookingHandler.DownloadTicket)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService, logger), middleware.RequireRole("admin"))
		{
			admin.POST("/reminders/run", runRemindersHandler(reminderService, logger))
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"query":      c.Request.URL.RawQuery,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}
		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["username"] = userCtx.Username
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		if status >= 500 {
			entry.Error("Request completed with server error")
		} else if status >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(store pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}

// runRemindersHandler triggers the reminder job immediately
func runRemindersHandler(reminderService *services.ReminderService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := reminderService.RunOnce(c.Request.Context(), time.Now())
		if err != nil {
			logger.WithError(err).Error("Manual reminder run failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Reminder run failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":  "Reminder run completed",
			"due":      result.Due,
			"reminded": result.Reminded,
			"skipped":  result.Skipped,
			"failed":   result.Failed,
		})
	}
}
