package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	redisDriver "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"friendnet/internal/auth"
	"friendnet/internal/config"
	"friendnet/internal/handlers/apiserver"
	appKafka "friendnet/internal/kafka"
	"friendnet/internal/logger"
	"friendnet/internal/middleware"
	appRedis "friendnet/internal/redis"
	"friendnet/internal/services"
	"friendnet/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default ./config/config.yaml)")
	flag.Parse()

	// 1. Configuration and logging
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load config")
	}
	log := logger.InitLogger(cfg.LogLevel, cfg.LogFormat)
	log.WithFields(logrus.Fields{"app": cfg.AppName, "version": cfg.AppVersion}).Info("config loaded")

	// 2. Repositories
	var (
		userRepo      storage.UserRepository
		friendReqRepo storage.FriendRequestRepository
	)
	if cfg.Database.Type == "memory" {
		store := storage.NewMemoryStore()
		userRepo, friendReqRepo = store.Users(), store.FriendRequests()
		log.Warn("using in-memory storage, data is lost on exit")
	} else {
		db, err := storage.InitDB(cfg.Database)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize database")
		}
		if err := storage.AutoMigrateTables(db); err != nil {
			log.WithError(err).Fatal("failed to migrate database")
		}
		log.Info("database ready")
		userRepo = storage.NewGormUserRepository(db)
		friendReqRepo = storage.NewGormFriendRequestRepository(db)
	}

	// 3. Redis: token blacklist and request throttle
	var (
		blacklist auth.TokenBlacklist
		limiter   middleware.Limiter
	)
	if cfg.Redis.Addr != "" {
		redisClient := redisDriver.NewClient(&redisDriver.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).WithField("addr", cfg.Redis.Addr).Fatal("failed to connect to redis")
		}
		log.WithField("addr", cfg.Redis.Addr).Info("connected to redis")

		blacklist = appRedis.NewRedisTokenBlacklist(redisClient)
		if cfg.RateLimit.Enabled {
			limiter = appRedis.NewRateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		}
	} else {
		log.Warn("redis not configured, logout revocation and throttling are disabled")
	}

	// 4. Kafka event stream
	var publisher services.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
		if err != nil {
			log.WithError(err).Fatal("failed to create kafka producer")
		}
		defer producer.Close()
		publisher = appKafka.NewFriendRequestEventPublisher(producer, cfg.Kafka.FriendRequestTopic)
		log.WithField("topic", cfg.Kafka.FriendRequestTopic).Info("publishing friend request events")
	}

	// 5. Services and handlers
	tokens := auth.NewTokenIssuer(cfg.Auth, blacklist)
	authService := services.NewAuthService(userRepo, tokens, cfg.Auth)
	userService := services.NewUserService(userRepo)
	friendReqService := services.NewFriendRequestService(userRepo, friendReqRepo, publisher)

	router := apiserver.NewRouter(apiserver.RouterDeps{
		Auth:           apiserver.NewAuthHandler(authService),
		Users:          apiserver.NewUserHandler(userService),
		FriendRequests: apiserver.NewFriendRequestHandler(friendReqService),
		Tokens:         tokens,
		Limiter:        limiter,
	})

	// 6. CORS and panic recovery
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	handler := handlers.CORS(corsOptions...)(router)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(log.WithField("component", "recovery")),
		handlers.PrintRecoveryStack(true),
	)(handler)

	// 7. Serve with graceful shutdown
	srv := &http.Server{
		Addr:         cfg.APIServer.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.APIServer.ReadTimeout,
		WriteTimeout: cfg.APIServer.WriteTimeout,
		IdleTimeout:  cfg.APIServer.IdleTimeout,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down API server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.APIServer.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("API server forced to shut down")
		return
	}
	log.Info("API server stopped")
}
