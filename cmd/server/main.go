package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/user-directory/adapters/event"
	httpAdapter "github.com/khoahotran/user-directory/adapters/http"
	"github.com/khoahotran/user-directory/adapters/media_storage"
	"github.com/khoahotran/user-directory/adapters/persistence"
	"github.com/khoahotran/user-directory/internal/application/service"
	userUC "github.com/khoahotran/user-directory/internal/application/usecase/user"
	"github.com/khoahotran/user-directory/internal/config"
	"github.com/khoahotran/user-directory/internal/domain/user"
	"github.com/khoahotran/user-directory/pkg/logger"
	"github.com/khoahotran/user-directory/pkg/password"
	"github.com/khoahotran/user-directory/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewZapLogger("development").Fatal("cannot load config", err)
	}

	var logOpts []logger.Option
	if cfg.Log.File != "" {
		logOpts = append(logOpts, logger.WithFile(cfg.Log.File))
	}
	appLogger := logger.NewZapLogger(cfg.App.Env, logOpts...)
	appLogger.Info("Start User Directory API Server...")

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "user-directory-api")
	if err != nil {
		appLogger.Fatal("cannot init tracer", err)
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// Repositories
	userRepo, closeStore := newUserRepository(cfg, appLogger)
	defer closeStore()

	var cache service.UserListCache
	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("cannot connect Redis", err)
		}
		defer redisClient.Close()
		cache = persistence.NewRedisUserListCache(redisClient, cfg.Redis.CacheTTL)
	} else {
		appLogger.Warn("Redis address not configured, user list cache disabled")
	}

	var publisher service.UserEventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("cannot init Kafka", err)
		}
		defer kafkaClient.Close()
		publisher = kafkaClient
	} else {
		appLogger.Warn("Kafka brokers not configured, user events disabled")
	}

	// Services
	uploader, err := media_storage.NewCloudinaryAdapter(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize uploader", err)
	}
	hasher := password.NewBcryptHasher(cfg.Password.BcryptCost)

	// Use Cases
	registerUserUseCase := userUC.NewRegisterUserUseCase(userRepo, uploader, hasher, cache, publisher, appLogger)
	listUsersUseCase := userUC.NewListUsersUseCase(userRepo, cache, appLogger)

	// HTTP
	userHandler := httpAdapter.NewUserHandler(registerUserUseCase, listUsersUseCase, appLogger)
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Env:         cfg.App.Env,
		CORSOrigins: cfg.App.CORSOrigins,
	}, userHandler, appLogger)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
	appLogger.Info("Server exited properly")
}

// newUserRepository picks the store from db.driver and returns its closer.
func newUserRepository(cfg config.Config, log logger.Logger) (user.Repository, func()) {
	switch cfg.DB.Driver {
	case config.DriverMongo:
		client, err := persistence.NewMongoClient(cfg, log)
		if err != nil {
			log.Fatal("cannot connect MongoDB", err)
		}
		repo, err := persistence.NewMongoUserRepo(context.Background(), client.Database(cfg.Mongo.Database), cfg.Mongo.Collection, log)
		if err != nil {
			log.Fatal("cannot init mongo user repository", err)
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }

	case config.DriverPostgres:
		if err := persistence.RunMigrations(cfg.DB.DSN, cfg.DB.MigrationsDir, log); err != nil {
			log.Fatal("migration failed", err)
		}
		dbPool, err := persistence.NewPostgresPool(cfg, log)
		if err != nil {
			log.Fatal("cannot connect Postgres", err)
		}
		return persistence.NewPostgresUserRepo(dbPool, log), dbPool.Close

	default:
		log.Fatal("unknown db driver", nil, zap.String("driver", cfg.DB.Driver))
		return nil, func() {}
	}
}
