package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/graceskyliz/ocr3/constants"
)

// Document is an uploaded source file awaiting or after processing.
type Document struct {
	ID             uuid.UUID                `json:"id"`
	TenantID       string                   `json:"tenant_id"`
	Filename       string                   `json:"filename"`
	StorageKey     string                   `json:"storage_key"`
	Mime           string                   `json:"mime,omitempty"`
	SizeBytes      int64                    `json:"size_bytes"`
	SHA256         string                   `json:"sha256,omitempty"`
	DeclaredKind   string                   `json:"declared_kind,omitempty"`
	DeclaredFormat string                   `json:"declared_format,omitempty"`
	Status         constants.DocumentStatus `json:"status"`
	CreatedAt      time.Time                `json:"created_at"`
}
