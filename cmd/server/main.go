package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata" // embedded zone database for ATTENDANCE_TIMEZONE

	"github.com/autoattend/autoattend-backend/internal/config"
	"github.com/autoattend/autoattend-backend/internal/database"
	"github.com/autoattend/autoattend-backend/internal/handlers"
	"github.com/autoattend/autoattend-backend/internal/middleware"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/autoattend/autoattend-backend/pkg/jwt"
	"github.com/autoattend/autoattend-backend/pkg/messaging"
	"github.com/autoattend/autoattend-backend/pkg/storage"
	"github.com/autoattend/autoattend-backend/pkg/telemetry"
	"github.com/autoattend/autoattend-backend/pkg/validator"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting AutoAttend attendance backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Tracing
	shutdownTracer, err := telemetry.InitTracer(context.Background(), telemetry.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	if cfg.Tracing.Enabled {
		logger.WithField("exporter", cfg.Tracing.Exporter).Info("Tracing enabled")
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Register custom binding tags
	if err := validator.RegisterBindings(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	// Initialize repositories
	employeeRepository := database.NewEmployeeRepository(db)
	attendanceRepository := database.NewAttendanceRepository(db)
	userRepository := database.NewUserRepository(db)
	sessionRepository := database.NewSessionRepository(db)

	// Attendance event queue (optional)
	var publisher services.EventPublisher
	if cfg.Queue.AttendanceQueueURL != "" {
		sqsClient, err := messaging.NewSQSClient(context.Background(), cfg.Queue.Region, cfg.Queue.Endpoint, logger)
		if err != nil {
			logger.Fatalf("Failed to create SQS client: %v", err)
		}
		publisher = messaging.NewSQSProducer(sqsClient, cfg.Queue.AttendanceQueueURL)
		logger.WithField("queue_url", cfg.Queue.AttendanceQueueURL).Info("✓ Attendance events enabled")
	} else {
		logger.Info("Attendance events disabled (ATTENDANCE_EVENTS_QUEUE_URL not set)")
	}

	// OTA object storage (optional)
	var firmwareBucket services.ObjectStore
	if cfg.Storage.OTAEnabled() {
		s3Client, err := storage.NewS3Client(context.Background(), storage.Config{
			Bucket:       cfg.Storage.Bucket,
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.Endpoint,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})
		if err != nil {
			logger.Fatalf("Failed to create S3 client: %v", err)
		}
		firmwareBucket = storage.NewObjectStore(s3Client, cfg.Storage.Bucket)
		logger.WithField("bucket", cfg.Storage.Bucket).Info("✓ OTA firmware storage enabled")
	} else {
		logger.Info("OTA disabled (OTA_BUCKET not set)")
	}

	// Initialize services
	logger.Info("Initializing services...")
	calendar := services.NewCalendar(cfg.Attendance.Location())
	attendanceService := services.NewAttendanceService(
		services.NewBadgeResolver(employeeRepository),
		services.NewDuplicateGuard(cfg.Attendance.DedupeWindow),
		calendar,
		attendanceRepository,
		publisher,
		cfg.Attendance.CompanyUUID,
		logger,
	)
	reportService := services.NewReportService(attendanceRepository, employeeRepository, calendar)
	employeeService := services.NewEmployeeService(employeeRepository, logger)
	authService := services.NewAuthService(
		userRepository,
		sessionRepository,
		cfg.Session.TTL,
		cfg.Security.BcryptCost,
		cfg.Security.MinPasswordLen,
		logger,
	)
	rateLimitService := services.NewRateLimitService(db, services.RateLimitConfig{
		MaxIdentifierFailures: cfg.RateLimit.MaxIdentifierFailures,
		IdentifierWindow:      cfg.RateLimit.IdentifierWindow,
		MaxIPFailures:         cfg.RateLimit.MaxIPFailures,
		IPWindow:              cfg.RateLimit.IPWindow,
	})
	auditService := services.NewAuditService(db, cfg.Security.EnableAuditLog)
	otaService := services.NewOTAService(firmwareBucket, logger)
	deviceTokens := jwt.NewService(cfg.Device.JWTSecret, cfg.Device.TokenExpiry)

	// Initialize and start cron service
	cronService := services.NewCronService(sessionRepository, rateLimitService, auditService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started - session and login attempt cleanup enabled")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, rateLimitService, auditService, cfg.Session.CookieName, logger)
	employeeHandler := handlers.NewEmployeeHandler(employeeService, reportService, auditService, logger)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceService, reportService, logger)
	otaHandler := handlers.NewOTAHandler(otaService, auditService, logger)
	deviceHandler := handlers.NewDeviceHandler(deviceTokens, auditService, logger)
	systemHandler := handlers.NewSystemHandler(db, cronService, version)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger, cfg.Session.CookieName))
	}

	// CORS for the dashboard and scanners; credentials carry the session cookie
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", systemHandler.Health)

	requireSession := middleware.SessionAuth(authService, cfg.Session.CookieName, logger)
	if cfg.Device.RequireAuth {
		logger.Info("✓ Scanner device authentication required")
	}
	deviceAuth := middleware.DeviceAuth(deviceTokens, cfg.Device.RequireAuth)

	api := router.Group("/api")
	{
		// Scanner endpoint
		api.POST("/esp32/detect", deviceAuth, attendanceHandler.Detect)

		// Auth routes
		api.POST("/login", authHandler.Login)
		api.GET("/logout", authHandler.Logout)
		api.GET("/auth/me", requireSession, authHandler.Me)
		api.POST("/account/password", requireSession, authHandler.ChangePassword)

		// Employee routes (protected)
		employees := api.Group("/employees")
		employees.Use(requireSession)
		{
			employees.GET("", employeeHandler.ListEmployees)
			employees.POST("", employeeHandler.CreateEmployee)
			employees.PATCH("/:id", employeeHandler.UpdateEmployee)
			employees.DELETE("/:id", employeeHandler.DeactivateEmployee)
			employees.DELETE("/:id/hard", employeeHandler.HardDeleteEmployee)
			employees.GET("/:id/attendance", employeeHandler.GetEmployeeAttendance)
		}

		// Attendance report routes (protected)
		attendance := api.Group("/attendance")
		attendance.Use(requireSession)
		{
			attendance.GET("", attendanceHandler.ListAttendance)
			attendance.GET("/stats", attendanceHandler.GetStats)
			attendance.GET("/export", attendanceHandler.ExportAttendance)
		}

		// OTA routes: scanners poll manifest and download without a session
		ota := api.Group("/ota")
		{
			ota.GET("/manifest", otaHandler.GetManifest)
			ota.GET("/download", otaHandler.Download)
			ota.POST("/upload", requireSession, otaHandler.Upload)
		}

		// Device provisioning (protected)
		api.POST("/devices/token", requireSession, deviceHandler.IssueToken)

		// Admin routes (protected)
		api.GET("/admin/jobs", requireSession, systemHandler.JobStatus)
	}

	// Optional admin UI build
	if cfg.Server.StaticDir != "" {
		router.Static("/assets", cfg.Server.StaticDir+"/assets")
		router.StaticFile("/", cfg.Server.StaticDir+"/index.html")
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "Not found"})
				return
			}
			c.File(cfg.Server.StaticDir + "/index.html")
		})
		logger.WithField("dir", cfg.Server.StaticDir).Info("Serving admin UI")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, cfg.Tracing.ServiceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
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

	// Stop cron service
	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		logger.Errorf("Failed to flush traces: %v", err)
	}

	logger.Info("Server exited successfully")
}
