package interfaces

import (
	"context"

	"election-engine/internal/service"
	"election-engine/pkg/logger"
)

// Services defines what API handlers depend on
type Services interface {
	GetLogger() *logger.Logger
	Engine() *service.Service
	// Health reports the state of each backing store by name, nil meaning healthy
	Health(ctx context.Context) map[string]error
}
