// Package filestore archives truncation reports in an object store.
//
// Usage:
//
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := filestore.PutYAML(ctx, store, cfg.Bucket, cfg.Key(report.RunID), report)
package filestore

import (
	"bytes"
	"context"

	"github.com/koustreak/tablewipe/internal/errs"
	"go.yaml.in/yaml/v3"
)

// Store is the write side of an object storage backend.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// EnsureBucket creates bucket if it does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutObject stores data at key inside bucket, replacing any previous
	// object.
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) (*ObjectInfo, error)

	// Close releases any held resources.
	Close() error
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// PutYAML encodes v as YAML and stores it at key inside bucket.
func PutYAML(ctx context.Context, s Store, bucket, key string, v any) (*ObjectInfo, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode report", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode report", err)
	}

	if err := s.EnsureBucket(ctx, bucket); err != nil {
		return nil, err
	}
	return s.PutObject(ctx, bucket, key, buf.Bytes(), "application/yaml")
}
