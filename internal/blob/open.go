package blob

import (
	"context"
	"fmt"

	"programhub/internal/infra/blob/fs"
	"programhub/internal/infra/blob/memory"
	"programhub/internal/infra/blob/s3"
)

// S3Config configures the s3 driver.
type S3Config = s3.Config

// Config selects and configures a backend. The filesystem driver is the default.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
