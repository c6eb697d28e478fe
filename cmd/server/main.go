package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	authconfig "github.com/jobpulse/jobpulse-api/services/auth-service/config"
	"github.com/jobpulse/jobpulse-api/services/auth-service/handler"
	"github.com/jobpulse/jobpulse-api/services/auth-service/repository"
	"github.com/jobpulse/jobpulse-api/services/auth-service/usecase"
	notificationconfig "github.com/jobpulse/jobpulse-api/services/notification-service/config"
	"github.com/jobpulse/jobpulse-api/services/notification-service/consumer"
	"github.com/jobpulse/jobpulse-api/shared/auth"
	"github.com/jobpulse/jobpulse-api/shared/discovery"
	"github.com/jobpulse/jobpulse-api/shared/event"
	"github.com/jobpulse/jobpulse-api/shared/logger"
	"github.com/jobpulse/jobpulse-api/shared/mailer"
	"github.com/jobpulse/jobpulse-api/shared/utilities"
	"github.com/jobpulse/jobpulse-api/shared/validation"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New("jobpulse", os.Getenv("ENVIRONMENT"), os.Getenv("LOG_LEVEL"))

	authCfg := authconfig.NewAuthServiceConfig(log)
	notificationCfg := notificationconfig.NewNotificationServiceConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(authCfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	if err := mongoClient.Ping(ctx, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mongodb")
	}

	db := mongoClient.Database(authCfg.MongoDatabase)

	codec := auth.NewTokenCodec([]byte(authCfg.Token.Secret), authCfg.Token.Issuer)
	broker := event.NewBroker(log)

	// Auth service.
	accountRepo := repository.NewAccountMongoRepository(ctx, log, db)
	accountUsecase := usecase.NewAccountUsecase(accountRepo, codec, broker, authCfg, log)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(accountRepo, codec, broker, authCfg, log)

	validator, err := validation.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create validator")
	}

	authHandler := handler.NewAuthHTTPHandler(accountUsecase, passwordResetUsecase, codec, validator, log)

	router := chi.NewRouter()
	router.Mount("/api/auth", authHandler.Router())

	httpServer := &http.Server{
		Addr:    authCfg.HTTPAddr,
		Handler: router,
	}

	// Notification service: consumes lifecycle events independently of the
	// request path.
	emailConsumer := consumer.NewEmailConsumer(mailer.NewMailer(log), notificationCfg, log)
	emailConsumer.Start(broker)

	authHealth := utilities.ServeHealth(log, authCfg.HealthAddr)
	notificationHealth := utilities.ServeHealth(log, notificationCfg.HealthAddr)

	registry, serviceIDs := registerServices(log, authCfg, notificationCfg)

	go func() {
		log.Info().Str("addr", authCfg.HTTPAddr).Msg("auth service listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	// Let subscribers drain queued events before the process exits.
	broker.Close()

	// Deregister before stopping the health servers so Consul drops the
	// instances immediately instead of waiting out the critical window.
	if registry != nil {
		for _, serviceID := range serviceIDs {
			registry.Deregister(serviceID)
		}
	}

	authHealth.GracefulStop()
	notificationHealth.GracefulStop()
}

// registerServices announces both services to Consul and returns the
// registered service ids for deregistration on shutdown. Local development
// may run without an agent, in which case registration is skipped with a
// warning and a nil registry is returned.
func registerServices(
	log *zerolog.Logger,
	authCfg *authconfig.AuthServiceConfig,
	notificationCfg *notificationconfig.NotificationServiceConfig,
) (*discovery.Registry, []string) {
	registry, err := discovery.NewRegistry(log)
	if err != nil {
		log.Warn().Err(err).Msg("consul agent unavailable, skipping service registration")
		return nil, nil
	}

	var serviceIDs []string

	if id, err := registry.Register("auth-service", authCfg.HealthHost, healthPort(authCfg.HealthAddr)); err != nil {
		log.Warn().Err(err).Msg("failed to register auth-service with consul")
	} else {
		serviceIDs = append(serviceIDs, id)
	}

	if id, err := registry.Register("notification-service", notificationCfg.HealthHost, healthPort(notificationCfg.HealthAddr)); err != nil {
		log.Warn().Err(err).Msg("failed to register notification-service with consul")
	} else {
		serviceIDs = append(serviceIDs, id)
	}

	return registry, serviceIDs
}

func healthPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}

	return port
}
