// Package blobstore keeps synthesized audio files. The locator returned by
// Put is what gets recorded on the artifact and later handed to Delete.
package blobstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/voxbot/internal/server/config"
)

type Store interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Delete removes the blob at locator. A blob that is already gone is
	// not an error.
	Delete(ctx context.Context, locator string) error
}

// New builds the store selected by cfg.BlobDriver.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.BlobDriver {
	case config.BlobLocal:
		return NewLocalStore(cfg.VoicesDir)
	case config.BlobS3:
		return NewS3Store(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3BaseEndpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.BlobDriver)
	}
}
