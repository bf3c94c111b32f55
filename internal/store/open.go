package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/config"
)

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Open creates the store selected by cfg
func Open(cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case "", BackendMemory:
		logger.Info("using in-memory store")
		return NewMemory(), nil
	case BackendBadger:
		logger.Info("opening badger store", zap.String("path", cfg.Path))
		return OpenBadger(BadgerConfig{
			Path:       cfg.Path,
			GCInterval: 10 * time.Minute,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
