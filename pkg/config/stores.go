package config

import (
	"context"
	"fmt"
	"os"

	"github.com/marcomacias410/ferry/pkg/metrics"
	"github.com/marcomacias410/ferry/pkg/store"
	badgerstore "github.com/marcomacias410/ferry/pkg/store/badger"
	fsstore "github.com/marcomacias410/ferry/pkg/store/fs"
	memorystore "github.com/marcomacias410/ferry/pkg/store/memory"
	s3store "github.com/marcomacias410/ferry/pkg/store/s3"
)

// CreateStore creates a storage backend instance from configuration.
func CreateStore(ctx context.Context, cfg StorageConfig) (store.Store, error) {
	switch cfg.Backend {
	case "fs":
		return createFSStore(ctx, cfg.FS)
	case "memory":
		return memorystore.New(), nil
	case "s3":
		return createS3Store(ctx, cfg.S3)
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}

// createFSStore creates a filesystem-backed store.
func createFSStore(_ context.Context, cfg FSStorageConfig) (store.Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("fs storage backend requires root to be set")
	}

	// Build config - fs.New() applies defaults for zero modes
	fsCfg := fsstore.Config{
		Root:      cfg.Root,
		CreateDir: cfg.CreateDir,
		DirMode:   os.FileMode(cfg.DirMode),
		FileMode:  os.FileMode(cfg.FileMode),
	}

	return fsstore.New(fsCfg)
}

// createS3Store creates an S3-backed store.
func createS3Store(ctx context.Context, cfg S3StorageConfig) (store.Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage backend requires bucket to be set")
	}

	s3Cfg := s3store.Config{
		Bucket:         cfg.Bucket,
		Region:         cfg.Region,
		Endpoint:       cfg.Endpoint,
		KeyPrefix:      cfg.KeyPrefix,
		MaxRetries:     cfg.MaxRetries,
		ForcePathStyle: cfg.ForcePathStyle,
		Metrics:        metrics.NewS3Metrics(),
	}

	return s3store.NewFromConfig(ctx, s3Cfg)
}

// createBadgerStore creates a BadgerDB-backed store.
func createBadgerStore(_ context.Context, cfg BadgerStorageConfig) (store.Store, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger storage backend requires dir to be set (or in_memory: true)")
	}

	badgerCfg := badgerstore.Config{
		Dir:      cfg.Dir,
		InMemory: cfg.InMemory,
	}

	return badgerstore.New(badgerCfg)
}
