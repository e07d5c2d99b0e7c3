package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"meddispense/m/domain"
	"meddispense/m/internal/api"
	"meddispense/m/internal/config"
	"meddispense/m/internal/database"
	"meddispense/m/internal/events"
	"meddispense/m/internal/inventory"
	"meddispense/m/internal/logger"
	"meddispense/m/internal/migrations"
	"meddispense/m/internal/seed"
	"meddispense/m/internal/storage"
)

func main() {
	cfg := config.Load()
	zl, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, closeGateway, err := openGateway(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("unable to open catalog storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer closeGateway()

	catalog, err := loadCatalog(ctx, gateway, cfg.SeedCSV, zl)
	if err != nil {
		zl.Fatal("unable to load catalog", zap.Error(err))
	}

	publisher := openPublisher(cfg, zl)
	defer publisher.Close()

	store, err := inventory.New(catalog, gateway, publisher, zl.Named("inventory"))
	if err != nil {
		zl.Fatal("invalid catalog", zap.Error(err))
	}

	handler := api.New(store, zl.Named("http"))
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	zl.Info("MedDispense server starting",
		zap.String("addr", server.Addr),
		zap.String("storage", cfg.StorageDriver),
		zap.Int("medicines", len(catalog)),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("server error", zap.Error(err))
	}
	zl.Info("server stopped",
		zap.Int("pending_dispense", store.QueueLen(inventory.DispenseQueue)),
		zap.Int("pending_restock", store.QueueLen(inventory.RestockQueue)),
	)
}

func openGateway(ctx context.Context, cfg config.Config, zl *zap.Logger) (storage.Gateway, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		db, err := database.Connect(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Run(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return storage.NewSQLGateway(db), func() { db.Close() }, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			MaxRetries:   3,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return storage.NewRedisGateway(client, cfg.RedisKey), func() { client.Close() }, nil

	default:
		zl.Debug("using JSON catalog file", zap.String("path", cfg.CatalogPath))
		return storage.NewFileGateway(cfg.CatalogPath), func() {}, nil
	}
}

// loadCatalog reads the stored catalog and, on first start, seeds it from CSV.
// A catalog that was saved empty stays empty.
func loadCatalog(ctx context.Context, gateway storage.Gateway, seedPath string, zl *zap.Logger) ([]domain.Medicine, error) {
	catalog, err := gateway.Load(ctx)
	if err == nil {
		return catalog, nil
	}
	if !errors.Is(err, storage.ErrNotExist) {
		return nil, err
	}
	if seedPath == "" {
		return []domain.Medicine{}, nil
	}

	seeded, err := seed.LoadCatalog(seedPath, zl)
	if errors.Is(err, fs.ErrNotExist) {
		zl.Info("no stored catalog and no seed file found", zap.String("seed", seedPath))
		return []domain.Medicine{}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := gateway.Save(ctx, seeded); err != nil {
		return nil, err
	}
	zl.Info("seeded medicine catalog", zap.Int("rows", len(seeded)), zap.String("seed", seedPath))
	return seeded, nil
}

func openPublisher(cfg config.Config, zl *zap.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}
	}
	pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaClientID, events.Topics{
		Dispense: cfg.KafkaTopicDispense,
		Restock:  cfg.KafkaTopicRestock,
	}, zl.Named("events"))
	if err != nil {
		// The mirror is optional; the hardware queues work without it.
		zl.Warn("Kafka mirror disabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.Error(err))
		return events.NopPublisher{}
	}
	return pub
}
