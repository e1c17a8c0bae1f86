package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/focusboard/apiserver/config"
)

// ErrDisabled is returned by Open when no backend is configured.
var ErrDisabled = errors.New("object storage is not configured")

// Backend stores backup documents in a single bucket.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
	Close() error
}

// Open connects to the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "minio":
		return NewMinioClient(cfg.Minio)
	case "gcs":
		return NewGCSClient(ctx, cfg.GCS)
	case "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
