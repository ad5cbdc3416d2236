// Package core defines the abstractions shared by the raw-object storage
// backends (MinIO/S3 for deployments, filesystem and memory for dev/tests).
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete object storage backend.
type Driver string

const (
	// DriverS3 is an S3 / MinIO compatible backend.
	DriverS3 Driver = "s3"
	// DriverFilesystem stores objects under a local directory.
	DriverFilesystem Driver = "fs"
	// DriverMemory keeps objects in process memory (tests).
	DriverMemory Driver = "memory"
)

// PutOptions carries optional parameters for Put.
type PutOptions struct {
	ContentType string // MIME type, optional
}

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the minimal object-store surface the pipeline stages need:
// idempotent raw uploads keyed by `tcga/<cohort>/raw/<file>`, prefix
// listing for the transform stage, and streaming reads.
type Store interface {
	// Put stores the object at key, replacing any existing content.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get streams the object contents. Returns ErrNotFound when absent.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only. Returns ErrNotFound when absent.
	Head(ctx context.Context, key string) (Info, error)
	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the object, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns objects under prefix, ordered by key ascending.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Driver identifies the backend.
	Driver() Driver
}

// ErrNotFound is returned by Get and Head for absent keys.
var ErrNotFound = errors.New("object not found")
