package main

import (
	"fmt"

	"github.com/goodtune/frms/internal/config"
	"github.com/goodtune/frms/internal/storage"
	"github.com/goodtune/frms/internal/storage/recordfile"
	"github.com/goodtune/frms/internal/storage/redis"
	"github.com/rs/zerolog"
)

func openStorage(cfg *config.Config, logger zerolog.Logger) (storage.Store, error) {
	storageType := cfg.Storage.Type
	if storageType == "" {
		storageType = "redis"
	}

	switch storageType {
	case "redis":
		return redis.Open(cfg.Storage.Redis, logger)
	case "file":
		return recordfile.Open(cfg.Storage.Path, cfg.Pilot.ID, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (must be 'redis' or 'file')", storageType)
	}
}
