// Package ingest registers source files as documents ready for processing.
package ingest

import (
	"context"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	DocumentID   string
	Deduplicated bool
	HashHex      string
	Mime         string
	DeclaredKind string
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the batch binary depends on.
type Ingestor interface {
	// IngestPath registers a single file for tenantID.
	IngestPath(ctx context.Context, tenantID, path string) (IngestionResult, error)
	// IngestDirectory registers all matching files under root.
	IngestDirectory(ctx context.Context, tenantID, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
