package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/entity"
	"github.com/graceskyliz/ocr3/internal/repository"
)

// FSIngestor registers files from the local filesystem. The storage key is the
// absolute path, which the local store resolves as-is.
type FSIngestor struct {
	Documents repository.DocumentRepository
	logger    *slog.Logger
}

func NewFSIngestor(docs repository.DocumentRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Documents: docs, logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, tenantID, path string) (IngestionResult, error) {
	var out IngestionResult
	if strings.TrimSpace(tenantID) == "" {
		return out, common.InvalidInput("tenant id is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("ingest.abs_path.failed", "path", path, "error", err)
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Warn("ingest.unsupported_extension", "path", abs, "ext", ext)
		return out, common.Unsupported("unsupported or missing extension %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		i.logger.Error("ingest.open.failed", "path", abs, "error", err)
		return out, err
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.logger.Warn("ingest.close.failed", "path", abs, "error", err)
		}
	}(f)

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		i.logger.Error("ingest.hash.failed", "path", abs, "error", err)
		return out, fmt.Errorf("hash: %w", err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	mime := ""
	if mt, err := mimetype.DetectFile(abs); err == nil {
		mime = mt.String()
	}

	doc := &entity.Document{
		TenantID:     tenantID,
		Filename:     filepath.Base(abs),
		StorageKey:   abs,
		Mime:         mime,
		SizeBytes:    size,
		SHA256:       sum,
		DeclaredKind: kindFromFolder(abs),
	}
	row, dedup, err := i.Documents.UpsertByHash(ctx, doc)
	if err != nil {
		return out, err
	}

	out = IngestionResult{
		SourcePath:   abs,
		DocumentID:   row.ID.String(),
		Deduplicated: dedup,
		HashHex:      sum,
		Mime:         row.Mime,
		DeclaredKind: row.DeclaredKind,
	}
	i.logger.Debug("ingest.path.ok", "path", abs, "document_id", out.DocumentID, "deduplicated", dedup)
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(
	ctx context.Context,
	tenantID string,
	root string,
	skipHidden bool,
) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.InvalidInput("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, tenantID, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	i.logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
