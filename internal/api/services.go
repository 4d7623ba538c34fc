package api

import (
	"context"
	"database/sql"

	"election-engine/internal/service"
	"election-engine/pkg/config"
	"election-engine/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Services contains all the dependencies for API handlers
type Services struct {
	DB     *sql.DB
	Redis  redis.UniversalClient // nil when redis is disabled
	Logger *logger.Logger
	Config *config.Config

	engine *service.Service
}

// NewServices creates a new services container
func NewServices(db *sql.DB, rdb redis.UniversalClient, engine *service.Service, log *logger.Logger, cfg *config.Config) *Services {
	return &Services{
		DB:     db,
		Redis:  rdb,
		Logger: log,
		Config: cfg,
		engine: engine,
	}
}

// Stop releases the connections owned by the container
func (s *Services) Stop() {
	s.Logger.Info("Stopping API services...")

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.Logger.Error("Error closing redis client: %v", err)
		}
	}
	if err := s.DB.Close(); err != nil {
		s.Logger.Error("Error closing database: %v", err)
	}

	s.Logger.Info("All API services stopped")
}

func (s *Services) GetLogger() *logger.Logger {
	return s.Logger
}

func (s *Services) Engine() *service.Service {
	return s.engine
}

// Health pings the database and, when configured, redis
func (s *Services) Health(ctx context.Context) map[string]error {
	checks := map[string]error{
		"database": s.DB.PingContext(ctx),
	}
	if s.Redis != nil {
		checks["redis"] = s.Redis.Ping(ctx).Err()
	}
	return checks
}
