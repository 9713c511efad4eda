// main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"service-booking/cmd"
	"service-booking/internal/data/repository"
	"service-booking/internal/usecase"
	"service-booking/internal/wire"
	"service-booking/pkg/database"
	"service-booking/pkg/events"
	"service-booking/pkg/gateway"
	"service-booking/pkg/lock"
	"service-booking/pkg/secrets"
	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	if err := resolveSecrets(ctx, config, logger); err != nil {
		logger.Fatal("Failed to resolve secrets", zap.Error(err))
	}

	// Repositories
	var repos *repository.Repository
	switch config.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory storage; data is lost on restart")
		repos = repository.NewMemoryRepository(logger, config.Database.TxMaxRetries)
	default:
		if config.Database.Migrate {
			if err := database.Migrate(database.DSN(config.Database), logger); err != nil {
				logger.Fatal("Failed to run migrations", zap.Error(err))
			}
		}

		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		logger.Info("Database connected successfully")
		repos = repository.NewRepository(db, logger, config.Database.TxMaxRetries)
	}

	// Collaborators
	gw, err := gateway.New(config.Gateway, logger)
	if err != nil {
		logger.Fatal("Failed to init payment gateway", zap.Error(err))
	}
	locker, err := lock.New(config.Lock, config.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to init order lock", zap.Error(err))
	}
	tokens, err := utils.NewTokenIssuer(config.JWT)
	if err != nil {
		logger.Fatal("Failed to init token issuer", zap.Error(err))
	}
	publisher, err := events.New(config.Events, logger)
	if err != nil {
		logger.Fatal("Failed to init event publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Outbox relay runs beside the HTTP server
	relay := usecase.NewRelay(repos, publisher, config.Events, logger)
	go relay.Run(ctx)

	// Wire all dependencies
	app := wire.Wiring(repos, config, usecase.Deps{
		Gateway: gw,
		Locker:  locker,
		Tokens:  tokens,
	}, logger)

	// Start server
	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// resolveSecrets swaps sm:// references in config for their Secret Manager values.
func resolveSecrets(ctx context.Context, config *utils.Config, logger *zap.Logger) error {
	if !secrets.IsReference(config.Gateway.KeySecret) && !secrets.IsReference(config.JWT.Secret) &&
		!secrets.IsReference(config.Database.Password) {
		return nil
	}

	resolver, err := secrets.NewResolver(ctx, config.Secrets.Project, logger)
	if err != nil {
		return err
	}
	defer resolver.Close()

	return resolver.ResolveAll(ctx, &config.Gateway.KeySecret, &config.JWT.Secret, &config.Database.Password)
}
