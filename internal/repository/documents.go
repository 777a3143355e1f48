package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/entity"
)

type DocumentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByTenantAndHash(ctx context.Context, tenantID, sha256 string) (*entity.Document, error)
	Create(ctx context.Context, doc *entity.Document) error
	UpsertByHash(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error
	ListByStatus(ctx context.Context, tenantID string, status constants.DocumentStatus, limit int) ([]*entity.Document, error)
}

type documentRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db.SQL, logger: logger}
}

const documentColumns = `id, tenant_id, filename, storage_key, mime, size_bytes, sha256, declared_kind, declared_format, status, created_at`

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		d                         entity.Document
		mime, sha, dkind, dformat sql.NullString
		status                    string
	)
	if err := row.Scan(&d.ID, &d.TenantID, &d.Filename, &d.StorageKey, &mime, &d.SizeBytes, &sha, &dkind, &dformat, &status, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Mime, d.SHA256, d.DeclaredKind, d.DeclaredFormat = mime.String, sha.String, dkind.String, dformat.String
	d.Status = constants.DocumentStatus(status)
	return &d, nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	doc, err := scanDocument(r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("document %s", id)
	}
	if err != nil {
		r.logger.Error("failed to get document", "document_id", id, "error", err)
		return nil, common.Database("get document", err)
	}
	return doc, nil
}

func (r *documentRepo) GetByTenantAndHash(ctx context.Context, tenantID, sha256 string) (*entity.Document, error) {
	doc, err := scanDocument(r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE tenant_id = $1 AND sha256 = $2`, tenantID, sha256))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("document with hash %s", sha256)
	}
	if err != nil {
		r.logger.Error("failed to get document by hash", "tenant_id", tenantID, "error", err)
		return nil, common.Database("get document by hash", err)
	}
	return doc, nil
}

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.DocumentStatusUploaded
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		doc.ID, doc.TenantID, doc.Filename, doc.StorageKey, emptyAsNull(doc.Mime), doc.SizeBytes,
		emptyAsNull(doc.SHA256), emptyAsNull(doc.DeclaredKind), emptyAsNull(doc.DeclaredFormat),
		string(doc.Status), doc.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create document", "tenant_id", doc.TenantID, "filename", doc.Filename, "error", err)
		if isUniqueViolation(err) {
			return common.NewAppError(common.CodeConflict, "document already registered", errors.Join(common.ErrConflict, err))
		}
		return common.Database("create document", err)
	}
	return nil
}

// UpsertByHash returns the existing document for (tenant, sha256) or creates it.
// The bool reports whether it already existed.
func (r *documentRepo) UpsertByHash(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error) {
	if doc.SHA256 != "" {
		if existing, err := r.GetByTenantAndHash(ctx, doc.TenantID, doc.SHA256); err == nil {
			return existing, true, nil
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, false, err
		}
	}
	if err := r.Create(ctx, doc); err != nil {
		if errors.Is(err, common.ErrConflict) {
			existing, gerr := r.GetByTenantAndHash(ctx, doc.TenantID, doc.SHA256)
			if gerr == nil {
				return existing, true, nil
			}
		}
		r.logger.Error("failed to upsert document by hash", "tenant_id", doc.TenantID, "filename", doc.Filename, "error", err)
		return nil, false, err
	}
	return doc, false, nil
}

func (r *documentRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE documents SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		r.logger.Error("failed to set document status", "document_id", id, "status", status, "error", err)
		return common.Database("set document status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NotFound("document %s", id)
	}
	return nil
}

func (r *documentRepo) ListByStatus(ctx context.Context, tenantID string, status constants.DocumentStatus, limit int) ([]*entity.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE tenant_id = $1 AND status = $2
		ORDER BY created_at, id
		LIMIT $3`, tenantID, string(status), limit)
	if err != nil {
		r.logger.Error("failed to list documents", "tenant_id", tenantID, "status", status, "error", err)
		return nil, common.Database("list documents", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, common.Database("scan document", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Database("list documents", err)
	}
	return out, nil
}
