// Package storage resolves a document's storage locator to a local file.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/graceskyliz/ocr3/internal/common"
)

// Fetched is a local copy of a stored document. Cleanup is always safe to call.
type Fetched struct {
	Path    string
	Cleanup func()
}

// Fetcher retrieves one locator scheme.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (Fetched, error)
}

// Resolver dispatches locators by scheme: "s3://" to S3, "file://" and bare
// paths to the local store.
type Resolver struct {
	Local Fetcher
	S3    Fetcher
}

func (r Resolver) Fetch(ctx context.Context, locator string) (Fetched, error) {
	scheme := "file"
	if i := strings.Index(locator, "://"); i > 0 {
		scheme = strings.ToLower(locator[:i])
	}
	var f Fetcher
	switch scheme {
	case "file":
		f = r.Local
	case "s3":
		f = r.S3
	}
	if f == nil {
		return Fetched{}, common.Unsupported("no storage backend for %q", scheme)
	}
	return f.Fetch(ctx, locator)
}

func noop() {}

func splitS3(locator, defaultBucket string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(locator, "s3://")
	bucket, key, found := strings.Cut(rest, "/")
	if !found || key == "" {
		if defaultBucket == "" {
			return "", "", fmt.Errorf("malformed s3 locator %q", locator)
		}
		return defaultBucket, rest, nil
	}
	if bucket == "" {
		bucket = defaultBucket
	}
	return bucket, key, nil
}
