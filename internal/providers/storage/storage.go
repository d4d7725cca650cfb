// Package storage keeps binary assets such as company logos.
package storage

import (
	"context"
	"errors"
)

var ErrObjectNotFound = errors.New("object_not_found")

// ObjectStorage stores objects in a single bucket.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// URL returns the public address of key.
	URL(key string) string
}
