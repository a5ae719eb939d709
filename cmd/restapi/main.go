package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"vet-clinic/internal/auth"
	"vet-clinic/internal/calendar"
	"vet-clinic/internal/configs"
	"vet-clinic/internal/database"
	"vet-clinic/internal/logging"
	"vet-clinic/internal/metrics"
	"vet-clinic/internal/shifts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var configPath = flag.String("config", "", "Config file path")

// loadConfigurations loads system configurations based on the given config file.
func loadConfigurations() configs.Config {
	if *configPath == "" {
		log.Fatal().Msg("no config file path was given")
	}
	config, err := configs.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load configurations")
	}
	return config
}

// createDBConnection creates a new database connection based on the given configuration.
func createDBConnection(config configs.Config, logger zerolog.Logger) database.Connection {
	dbConn, err := database.NewConnection(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not connect to the database")
	}
	return dbConn
}

// createRedisClient creates the availability cache client. Without an address, or if Redis is not
// reachable, the server runs without the cache.
func createRedisClient(config configs.Config, logger zerolog.Logger) *redis.Client {
	if config.RedisAddr() == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: config.RedisAddr()})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logging.PrintlnWarn(logger, fmt.Sprint("redis not available, availability cache disabled: ", err))
		_ = client.Close()
		return nil
	}
	return client
}

func main() {
	// Load dependencies
	flag.Parse()
	config := loadConfigurations()
	logger := logging.New(config.LogLevel(), os.Stdout)
	log.Logger = logger
	dbConn := createDBConnection(config, logger)
	redisClient := createRedisClient(config, logger)

	// Init services shared between contexts
	authorizer := auth.NewService(config, dbConn)
	availability := shifts.NewService(config, dbConn, redisClient, logger)

	// Setup the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.Heartbeat("/health"))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logging.StdLogger(logger), NoColor: true}))
	router.Use(middleware.Recoverer)
	router.Use(metrics.PrometheusMiddleware)
	router.Use(middleware.SetHeader("Content-type", "application/json"))
	router.Handle("/metrics", metrics.Handler())

	// Setup Auth routes
	auth.Setup(router, logger, config, dbConn)

	// Setup Shifts routes
	shifts.Setup(router, logger, authorizer, availability)

	// Setup Calendar routes
	calendar.Setup(router, logger, authorizer, config, dbConn, availability)

	// Creates the HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.ServerPort()),
		Handler:      router,
		ErrorLog:     logging.StdLogger(logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// Channel to listen OS signalling in order to gracefully shutdown the HTTP server and other resources
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	// Starts the server
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	logging.PrintlnInfo(logger, fmt.Sprint("server started listening at ", config.ServerPort()))

	// Listens until server stop
	<-exit
	logging.PrintlnWarn(logger, "server stopped")

	// Creates a timeout to handle resources release
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer func() {
		dbConn.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		cancel()
	}()

	if err := srv.Shutdown(ctx); err != nil {
		logging.PrintlnError(logger, fmt.Errorf("an error occurred while server is shutting down: %w", err))
		return
	}

	logging.PrintlnInfo(logger, "server shutdown successfully")
}
