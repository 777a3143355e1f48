package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider is a tenant-scoped issuer, unique per (tenant, tax id).
type Provider struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	TaxID     *string   `json:"tax_id,omitempty"`
	LegalName *string   `json:"legal_name,omitempty"`
	Address   *string   `json:"address,omitempty"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Invoice is one materialized document; never updated by the pipeline.
type Invoice struct {
	ID           uuid.UUID        `json:"id"`
	TenantID     string           `json:"tenant_id"`
	ProviderID   *uuid.UUID       `json:"provider_id,omitempty"`
	DocumentID   uuid.UUID        `json:"document_id"`
	DocumentKind string           `json:"document_kind,omitempty"`
	Series       *string          `json:"series,omitempty"`
	Number       *string          `json:"number,omitempty"`
	IssueDate    *time.Time       `json:"issue_date,omitempty"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	Currency     *string          `json:"currency,omitempty"`
	Subtotal     *decimal.Decimal `json:"subtotal,omitempty"`
	Tax          *decimal.Decimal `json:"tax,omitempty"`
	Total        *decimal.Decimal `json:"total,omitempty"`
	Status       string           `json:"status"`
	Metadata     InvoiceMetadata  `json:"metadata"`
	CreatedAt    time.Time        `json:"created_at"`

	// Joined for exports.
	ProviderTaxID     *string `json:"provider_tax_id,omitempty"`
	ProviderLegalName *string `json:"provider_legal_name,omitempty"`
}

// InvoiceMetadata is the provenance stored with every invoice.
type InvoiceMetadata struct {
	Engine     string   `json:"engine"`
	Confidence *float64 `json:"confidence"`
}

type InvoiceItem struct {
	ID          uuid.UUID        `json:"id"`
	InvoiceID   uuid.UUID        `json:"invoice_id"`
	Position    int              `json:"position"`
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Tax         *decimal.Decimal `json:"tax,omitempty"`
	Total       *decimal.Decimal `json:"total,omitempty"`
}

// Extraction is the audit row written for every process call.
type Extraction struct {
	ID           uuid.UUID  `json:"id"`
	DocumentID   uuid.UUID  `json:"document_id"`
	Engine       string     `json:"engine"`
	Status       string     `json:"status"`
	Confidence   *float64   `json:"confidence,omitempty"`
	Payload      []byte     `json:"payload,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	InvoiceID    *uuid.UUID `json:"invoice_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
