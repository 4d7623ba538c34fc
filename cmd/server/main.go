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

	"election-engine/internal/api"
	"election-engine/internal/custody"
	"election-engine/internal/database"
	"election-engine/internal/database/repositories"
	"election-engine/internal/keys"
	"election-engine/internal/service"
	"election-engine/internal/tally"
	"election-engine/pkg/config"
	"election-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "configs/server.yaml", "path to the configuration file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	if cfg.IsDevelopment() {
		log.WithField("config", cfg.SanitizeForLogging()).Info("configuration loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Server stopped: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("Database ready", "type", cfg.Database.Type)

	store := repositories.NewStore(db)

	scheme, err := custody.SchemeByName(cfg.Encryption.Scheme)
	if err != nil {
		db.Close()
		return err
	}
	vault, err := custody.NewSealedVault(store, []byte(cfg.Encryption.MasterKey), []byte(cfg.Encryption.VaultSalt))
	if err != nil {
		db.Close()
		return fmt.Errorf("open key vault: %w", err)
	}

	opts := service.Options{
		Store:             store,
		Custodian:         custody.New(scheme, vault),
		Logger:            log,
		OnsiteGracePeriod: cfg.Election.OnsiteGracePeriod,
		TallyWorkers:      cfg.Election.TallyWorkers,
	}

	var rdb redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := database.NewRedisClient(&cfg.Redis)
		if err != nil {
			db.Close()
			return fmt.Errorf("connect redis: %w", err)
		}
		rdb = client
		opts.Locker = keys.NewRedisLocker(rdb, cfg.Redis.LockTTL)
		opts.ResultCache = tally.NewRedisCache(rdb, cfg.Redis.ResultTTL)
		log.Info("Redis enabled", "addr", cfg.Redis.Addr)
	}

	services := api.NewServices(db, rdb, service.New(opts), log, cfg)
	defer services.Stop()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	api.SetupRoutes(ctx, router, services, cfg.Server)

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting election server", "addr", srv.Addr, "scheme", scheme.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server exited")
	return nil
}
