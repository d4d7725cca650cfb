package storage

import (
	"github.com/smallbiznis/invoicer/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.storage",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) (ObjectStorage, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return NewS3Storage(cfg.Storage, log)
	default:
		base := cfg.Storage.PublicBaseURL
		if base == "" {
			base = "memory://" + cfg.Storage.Bucket
		}
		return NewMemoryStorage(base), nil
	}
}
