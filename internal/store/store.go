// Package store persists explainer artifacts to the local filesystem
// or S3, addressed by plain paths or s3:// URLs.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by all backends.
var (
	// ErrExists indicates a destination that already holds an
	// artifact and overwrite was not requested.
	ErrExists = errors.New("store: artifact already exists")

	// ErrNotFound indicates a missing artifact.
	ErrNotFound = errors.New("store: artifact not found")
)

// Store reads and writes artifact blobs.
type Store interface {
	// Exists reports whether the key already holds an artifact.
	Exists(ctx context.Context, key string) (bool, error)

	// Put writes the blob. Without overwrite it fails with ErrExists
	// when the key is taken.
	Put(ctx context.Context, key string, data []byte, overwrite bool) error

	// Get reads the blob, failing with ErrNotFound when absent.
	Get(ctx context.Context, key string) ([]byte, error)
}

// ForURL picks a backend for a destination: "s3://bucket/key" routes
// to S3, everything else is a local file path. The returned key is
// what the backend expects for that destination.
func ForURL(ctx context.Context, url string) (Store, string, error) {
	if bucket, key, ok := splitS3(url); ok {
		s, err := NewS3(ctx, bucket)
		if err != nil {
			return nil, "", err
		}
		return s, key, nil
	}
	return Local{}, url, nil
}

func splitS3(url string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(url, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// ParseS3URL splits an s3:// URL into bucket and key.
func ParseS3URL(url string) (bucket, key string, err error) {
	bucket, key, ok := splitS3(url)
	if !ok {
		return "", "", fmt.Errorf("store: not an s3://bucket/key url: %q", url)
	}
	return bucket, key, nil
}
