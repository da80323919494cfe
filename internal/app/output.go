package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/stratoscan/stratoscan/pkg/credentials"
	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/storage"
)

// saveInventory persists the inventory snapshot and returns a
// human-readable location: a local path, or an s3:// URL when an S3 bucket
// is configured.
func saveInventory(ctx context.Context, cfg Config, creds credentials.Provider, inv *inventory.InfrastructureInventory) (string, error) {
	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = DefaultOutputDir
	}

	var backend storage.BlobStore
	if cfg.S3Bucket != "" {
		backend = storage.NewS3Store(creds.Config(), cfg.S3Bucket)
	} else {
		backend = storage.NewLocalStore(outDir)
	}

	store := storage.NewSnapshotStore(backend, cfg.Format)
	key, err := store.Save(ctx, inv)
	if err != nil {
		return "", err
	}

	if cfg.S3Bucket != "" {
		return fmt.Sprintf("s3://%s/%s", cfg.S3Bucket, key), nil
	}
	return filepath.Join(outDir, filepath.FromSlash(key)), nil
}
