package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"cabdispatch/internal/app"
	"cabdispatch/internal/auth"
	"cabdispatch/internal/config"
	"cabdispatch/internal/handler"
	"cabdispatch/internal/hooks"
	"cabdispatch/internal/logging"
	internalRedis "cabdispatch/internal/redis"
	"cabdispatch/internal/repository"
	"cabdispatch/internal/repository/memory"
	"cabdispatch/internal/repository/postgres"
	"cabdispatch/internal/service"
)

func main() {
	cfg := config.Load()

	logging.Configure(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logging.WithComponent("main")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize New Relic")
		} else {
			log.Info().Str("app", cfg.NewRelic.AppName).Msg("New Relic enabled")
		}
	}

	var store repository.Store
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store = memory.NewStore()
		log.Warn().Msg("using in-memory store; data is lost on restart")
	default:
		db, err := app.NewDatabase(ctx, cfg.Database, cfg.Store.Migrate, nrApp)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		store = postgres.NewStore(db)
		log.Info().Str("host", cfg.Database.Host).Msg("connected to PostgreSQL")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
	}

	resolver, err := auth.NewResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token resolver")
	}

	dispatcher, err := app.NewHookDispatcher(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start lifecycle hooks")
	}

	server := wireServer(store, redisClient, dispatcher, resolver, nrApp, cfg)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("lifecycle hooks did not drain")
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info().Msg("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	store repository.Store,
	redisClient *redis.Client,
	dispatcher *hooks.Dispatcher,
	resolver *auth.Resolver,
	nrApp *newrelic.Application,
	cfg *config.Config,
) *http.Server {
	// The Redis-backed helpers stay nil interfaces when Redis is disabled.
	var (
		locker    internalRedis.VehicleLocker
		cache     internalRedis.BookingCache
		locations internalRedis.LocationIndex
	)
	if redisClient != nil {
		locker = internalRedis.NewLockStore(redisClient)
		cache = internalRedis.NewCacheStore(redisClient)
		locations = internalRedis.NewLocationStore(redisClient)
	}

	bookingStore := service.NewBookingStore(store, service.StoreConfig{
		MaxRetries:       cfg.Dispatch.MaxRetries,
		OperationTimeout: cfg.Dispatch.OperationTimeout,
	})
	registry := service.NewVehicleRegistry()
	dispatch := service.NewDispatch(registry, locker, cfg.Dispatch.LockTTL)

	bookingService := service.NewBookingService(bookingStore, dispatch, registry, dispatcher, cache)
	vehicleService := service.NewVehicleService(bookingStore, registry, locations)
	userService := service.NewUserService(bookingStore)

	router := app.NewRouter(app.RouterDeps{
		BookingHandler: handler.NewBookingHandler(bookingService),
		VehicleHandler: handler.NewVehicleHandler(vehicleService),
		UserHandler:    handler.NewUserHandler(userService),
		Resolver:       resolver,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
