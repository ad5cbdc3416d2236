// Package blob selects and constructs the raw-object store backend.
package blob

import (
	"context"
	"fmt"

	"tcgapipe/internal/blob/core"
	"tcgapipe/internal/config"
	infraFS "tcgapipe/internal/infra/blob/fs"
	infraMem "tcgapipe/internal/infra/blob/memory"
	infraS3 "tcgapipe/internal/infra/blob/s3"
)

// Store is the object-store interface used by the pipeline stages.
type Store = core.Store

// Info describes a stored object.
type Info = core.Info

// PutOptions carries optional Put parameters.
type PutOptions = core.PutOptions

// ErrNotFound is returned for absent keys.
var ErrNotFound = core.ErrNotFound

// Open constructs the store selected by cfg.BlobDriver:
// s3 (MinIO, default), fs, or memory.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch core.Driver(cfg.BlobDriver) {
	case core.DriverS3:
		return infraS3.New(ctx, infraS3.Config{
			Endpoint:  cfg.Minio.EndpointURL(),
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.Bucket,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
		})
	case core.DriverFilesystem:
		return infraFS.New(cfg.DownloadDir + "/objects")
	case core.DriverMemory:
		return infraMem.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.BlobDriver)
	}
}
