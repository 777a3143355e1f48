package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/entity"
)

// ExtractionRepository stores one audit row per processing attempt.
type ExtractionRepository interface {
	Create(ctx context.Context, e *entity.Extraction) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Extraction, error)
}

type extractionRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExtractionRepository(db *DB, logger *slog.Logger) ExtractionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &extractionRepo{db: db.SQL, logger: logger}
}

func (r *extractionRepo) Create(ctx context.Context, e *entity.Extraction) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var payload, invoiceID any
	if len(e.Payload) > 0 {
		payload = string(e.Payload)
	}
	if e.InvoiceID != nil {
		invoiceID = *e.InvoiceID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO extractions (id, document_id, engine, status, confidence, payload, error_message, invoice_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.DocumentID, e.Engine, e.Status, nullFloat(e.Confidence), payload,
		emptyAsNull(e.ErrorMessage), invoiceID, e.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create extraction", "document_id", e.DocumentID, "engine", e.Engine, "error", err)
		return common.Database("create extraction", err)
	}
	return nil
}

func (r *extractionRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Extraction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, document_id, engine, status, confidence, payload, error_message, invoice_id, created_at
		FROM extractions WHERE document_id = $1 ORDER BY created_at, id`, documentID)
	if err != nil {
		r.logger.Error("failed to list extractions", "document_id", documentID, "error", err)
		return nil, common.Database("list extractions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Extraction
	for rows.Next() {
		var (
			e         entity.Extraction
			conf      sql.NullFloat64
			payload   []byte
			errMsg    sql.NullString
			invoiceID uuid.NullUUID
		)
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Engine, &e.Status, &conf, &payload, &errMsg, &invoiceID, &e.CreatedAt); err != nil {
			return nil, common.Database("scan extraction", err)
		}
		e.Confidence, e.Payload, e.ErrorMessage = floatPtr(conf), payload, errMsg.String
		if invoiceID.Valid {
			id := invoiceID.UUID
			e.InvoiceID = &id
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Database("list extractions", err)
	}
	return out, nil
}
