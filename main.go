package main

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/fabricaconecta/parceria-api/config"
	"github.com/fabricaconecta/parceria-api/middleware"
	"github.com/fabricaconecta/parceria-api/models"
	"github.com/fabricaconecta/parceria-api/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()
	config.SetLogger(logger)
	logger.Info("Starting Parceria API server...", zap.String("env", cfg.GoEnv))

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := models.Migrate(config.GetDB()); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migration completed successfully")

	initServices(cfg, logger)

	router := setupRouter(cfg, middleware.EnsureValidToken(cfg))

	port := ":" + cfg.Port
	logger.Info("Server is running", zap.String("address", "http://localhost"+port))
	if err := router.Run(port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// initServices sets up the optional integrations. Each one that is not configured is
// left unset and the operations depending on it answer with a precondition error.
func initServices(cfg *config.Config, logger *zap.Logger) {
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.InitS3Service(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize S3", zap.Error(err))
		}
		services.InitProofStorage(s3Service)
		logger.Info("Proof storage initialized", zap.String("bucket", cfg.AWSS3Bucket))
	} else {
		logger.Warn("AWS_S3_BUCKET not set, payment proof uploads are disabled")
	}

	var cache services.AddressCache
	if cfg.RedisAddress != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, address lookups are not cached", zap.Error(err))
		} else {
			cache = services.NewRedisAddressCache(client)
		}
	}
	services.InitAddressService(cfg.AddressLookupURL, cache, cfg.AddressCacheTTL, logger)

	gateway, err := services.NewMercadoPagoGateway(cfg.MercadoPagoToken, logger)
	switch {
	case err == nil:
		services.SetPaymentGateway(gateway)
	case errors.Is(err, services.ErrMissingMercadoPagoAccessToken):
		logger.Warn("MERCADOPAGO_ACCESS_TOKEN not set, card payments cannot be confirmed")
	default:
		logger.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}
}
