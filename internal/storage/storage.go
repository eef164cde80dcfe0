package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/hermes-soc/filesorter/internal/config"
	"github.com/hermes-soc/filesorter/internal/core"
)

// Store is an object store that can also check its buckets up front.
type Store interface {
	core.ObjectStore

	// Info returns the unique identifier of the store.
	Info() string

	// Type returns the backend type, TypeS3 or TypeLocalDir.
	Type() string

	// EnsureBuckets verifies that buckets exist, creating the missing ones when create is true.
	EnsureBuckets(ctx context.Context, create bool, buckets ...string) error
}

// New creates the store selected by cfg.Type.
func New(id string, cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", config.StorageTypeS3:
		return NewS3(id, cfg)
	case config.StorageTypeLocal:
		return NewLocalDir(id, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
