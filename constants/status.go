package constants

// DocumentStatus is the lifecycle of a row in documents.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusUploaded  DocumentStatus = "uploaded"
	DocumentStatusProcessed DocumentStatus = "processed"
	DocumentStatusFailed    DocumentStatus = "failed"
)

// InvoiceStatus is the status of a materialized invoice.
type InvoiceStatus string

const InvoiceStatusRegistered InvoiceStatus = "registered"

// ProviderState is the state a provider is created with.
type ProviderState string

const ProviderStateActive ProviderState = "active"

// ExtractionStatus marks the outcome of one process call in the extractions audit table.
type ExtractionStatus string

const (
	ExtractionStatusOK     ExtractionStatus = "ok"
	ExtractionStatusFailed ExtractionStatus = "failed"
)
