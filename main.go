package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/boswellbenjamin/migrainauts/internal/audit"
	"github.com/boswellbenjamin/migrainauts/internal/azure"
	"github.com/boswellbenjamin/migrainauts/internal/config"
	"github.com/boswellbenjamin/migrainauts/internal/delivery"
	"github.com/boswellbenjamin/migrainauts/internal/handler"
	"github.com/boswellbenjamin/migrainauts/internal/metrics"
	"github.com/boswellbenjamin/migrainauts/internal/middleware"
	"github.com/boswellbenjamin/migrainauts/internal/repository"
	"github.com/boswellbenjamin/migrainauts/internal/security"
	"github.com/boswellbenjamin/migrainauts/internal/service"
	"github.com/boswellbenjamin/migrainauts/pkg/api"
	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("delivery", cfg.Delivery.Mode),
	)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("failed to resolve timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres backs history and audit unless everything runs in memory
	var pool *pgxpool.Pool
	if cfg.Storage.Backend != "memory" {
		pool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")

		if err := repository.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	store, err := newKeyValueStore(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal("failed to initialize key-value store", zap.Error(err))
	}

	var historyRepo service.HistoryRepositoryInterface
	if pool != nil {
		historyRepo = repository.NewHistoryRepository(pool, logger)
	} else {
		historyRepo = repository.NewMemoryHistoryRepository()
	}

	sink, err := newDeliverySink(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize delivery sink", zap.Error(err))
	}

	m := metrics.New()
	auditLogger := audit.NewLogger(pool, logger)

	// Initialize services
	notificationService := service.NewNotificationService(
		repository.NewNotificationRepository(store, logger),
		repository.NewSettingsRepository(store, logger),
		sink,
		auditLogger,
		m,
		loc,
		logger,
	)
	if err := notificationService.LoadSettings(ctx); err != nil {
		logger.Warn("continuing with default notification settings", zap.Error(err))
	}

	historyService := service.NewHistoryService(historyRepo, auditLogger, logger)
	detector := service.NewPatternDetectionService(notificationService, patternThresholds(cfg.Patterns), loc, logger)
	checker := service.NewPatternChecker(historyService, detector, m, cfg.Scheduler.CheckInHour, loc, logger)

	go checker.Run(ctx, cfg.Scheduler.CheckInterval)

	// Initialize handlers
	var pinger handler.Pinger
	if pool != nil {
		pinger = pool
	}

	apiHandler := &APIHandler{
		history:       handler.NewHistoryHandler(historyService, logger),
		patterns:      handler.NewPatternHandler(historyService, detector, checker, logger),
		notifications: handler.NewNotificationHandler(notificationService, logger),
		health:        handler.NewHealthHandler(cfg.Storage.Backend, pinger, logger),
	}

	swagger, err := api.GetSwagger()
	if err != nil {
		logger.Fatal("failed to load API description", zap.Error(err))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Recovery must run first
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.AuditContextMiddleware())
	r.Use(middleware.MetricsMiddleware(m))
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(middleware.OpenAPIValidationMiddleware(swagger, logger))

	r.GET("/metrics", gin.WrapH(m.Handler()))

	api.RegisterHandlers(r, apiHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// newLogger builds the zap logger for the configured environment, level and format
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Server.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	if cfg.Logging.Format != "" {
		zcfg.Encoding = cfg.Logging.Format
	}

	return zcfg.Build()
}

// newKeyValueStore selects the notification and settings backend, wrapping it
// in an encrypting store when a key is configured
func newKeyValueStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (repository.KeyValueStore, error) {
	var store repository.KeyValueStore

	switch cfg.Storage.Backend {
	case "postgres":
		store = repository.NewPostgresKeyValueStore(pool, logger)
	case "azblob":
		var (
			blobStore *azure.BlobKeyValueStore
			err       error
		)
		if cfg.Azure.Storage.ConnectionString != "" {
			blobStore, err = azure.NewBlobKeyValueStoreFromConnectionString(cfg.Azure.Storage.ConnectionString, cfg.Azure.Storage.Container, logger)
		} else {
			blobStore, err = azure.NewBlobKeyValueStore(cfg.Azure.Storage.AccountName, cfg.Azure.Storage.AccountKey, cfg.Azure.Storage.Container, logger)
		}
		if err != nil {
			return nil, err
		}
		if err := blobStore.EnsureContainer(ctx); err != nil {
			return nil, err
		}
		store = blobStore
	default:
		store = repository.NewMemoryKeyValueStore(logger)
	}

	if key := cfg.EncryptionKey(); key != nil {
		enc, err := security.NewEncryptor(key)
		if err != nil {
			return nil, err
		}
		logger.Info("stored notifications are encrypted at rest")
		store = security.NewEncryptedStore(store, enc)
	}

	return store, nil
}

func newDeliverySink(cfg *config.Config, logger *zap.Logger) (service.DeliverySink, error) {
	if cfg.Delivery.Mode == "webhook" {
		return delivery.NewWebhookSink(delivery.WebhookConfig{
			URL:        cfg.Delivery.WebhookURL,
			Token:      cfg.Delivery.Token,
			Timeout:    cfg.Delivery.Timeout,
			RateLimit:  cfg.Delivery.RateLimit,
			Burst:      cfg.Delivery.Burst,
			MaxRetries: cfg.Delivery.MaxRetries,
		}, logger)
	}
	return delivery.NewLogSink(logger), nil
}

func patternThresholds(c config.PatternsConfig) service.PatternThresholds {
	return service.PatternThresholds{
		MinConfidence:        c.MinConfidence,
		ConditionMatchRatio:  c.ConditionMatchRatio,
		OccurrenceSaturation: c.OccurrenceSaturation,
		OccurrenceWeight:     c.OccurrenceWeight,
		ConditionWeight:      c.ConditionWeight,
		WarningWindowHours:   c.WarningWindowHours,
		EarlyWindowHours:     c.EarlyWindowHours,
		Anchors: map[model.TimeOfDay]int{
			model.Morning:   c.MorningAnchor,
			model.Afternoon: c.AfternoonAnchor,
			model.Evening:   c.EveningAnchor,
			model.Night:     c.NightAnchor,
		},
	}
}

// APIHandler implements the ServerInterface by delegating to individual handlers
type APIHandler struct {
	history       *handler.HistoryHandler
	patterns      *handler.PatternHandler
	notifications *handler.NotificationHandler
	health        *handler.HealthHandler
}

func (h *APIHandler) GetHealth(c *gin.Context) {
	h.health.GetHealth(c)
}

// Pattern endpoints
func (h *APIHandler) GetApiV1Patterns(c *gin.Context) {
	h.patterns.GetApiV1Patterns(c)
}

func (h *APIHandler) PostApiV1PatternsCheck(c *gin.Context) {
	h.patterns.PostApiV1PatternsCheck(c)
}

// History endpoints
func (h *APIHandler) GetApiV1History(c *gin.Context) {
	h.history.GetApiV1History(c)
}

func (h *APIHandler) DeleteApiV1History(c *gin.Context) {
	h.history.DeleteApiV1History(c)
}

func (h *APIHandler) PostApiV1Migraines(c *gin.Context) {
	h.history.PostApiV1Migraines(c)
}

func (h *APIHandler) PostApiV1Tracking(c *gin.Context) {
	h.history.PostApiV1Tracking(c)
}

// Notification center endpoints
func (h *APIHandler) GetApiV1Notifications(c *gin.Context) {
	h.notifications.GetApiV1Notifications(c)
}

func (h *APIHandler) DeleteApiV1Notifications(c *gin.Context) {
	h.notifications.DeleteApiV1Notifications(c)
}

func (h *APIHandler) GetApiV1NotificationsUnreadCount(c *gin.Context) {
	h.notifications.GetApiV1NotificationsUnreadCount(c)
}

func (h *APIHandler) PostApiV1NotificationsReadAll(c *gin.Context) {
	h.notifications.PostApiV1NotificationsReadAll(c)
}

func (h *APIHandler) PostApiV1NotificationsDelivered(c *gin.Context) {
	h.notifications.PostApiV1NotificationsDelivered(c)
}

func (h *APIHandler) GetApiV1NotificationsId(c *gin.Context, id string) {
	h.notifications.GetApiV1NotificationsId(c, id)
}

func (h *APIHandler) DeleteApiV1NotificationsId(c *gin.Context, id string) {
	h.notifications.DeleteApiV1NotificationsId(c, id)
}

func (h *APIHandler) PostApiV1NotificationsIdRead(c *gin.Context, id string) {
	h.notifications.PostApiV1NotificationsIdRead(c, id)
}

// Settings endpoints
func (h *APIHandler) GetApiV1SettingsNotifications(c *gin.Context) {
	h.notifications.GetApiV1SettingsNotifications(c)
}

func (h *APIHandler) PutApiV1SettingsNotifications(c *gin.Context) {
	h.notifications.PutApiV1SettingsNotifications(c)
}

var _ api.ServerInterface = (*APIHandler)(nil)
