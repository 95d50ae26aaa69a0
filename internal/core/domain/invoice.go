package domain

import (
	"strings"
	"time"
)

type DocumentType string

const (
	DocumentTypeInvoice  DocumentType = "invoice"
	DocumentTypeProforma DocumentType = "proforma"
	DocumentTypeQuote    DocumentType = "quote"
	DocumentTypeReceipt  DocumentType = "receipt"
	DocumentTypeTicket   DocumentType = "ticket"
	DocumentTypeOther    DocumentType = "other"
)

// ParseDocumentType maps free-form model output onto the closed set of
// document types. Anything unknown becomes DocumentTypeOther.
func ParseDocumentType(raw string) DocumentType {
	switch t := DocumentType(strings.ToLower(strings.TrimSpace(raw))); t {
	case DocumentTypeInvoice, DocumentTypeProforma, DocumentTypeQuote,
		DocumentTypeReceipt, DocumentTypeTicket, DocumentTypeOther:
		return t
	default:
		return DocumentTypeOther
	}
}

type DispatchStatus string

const (
	DispatchStatusNone    DispatchStatus = ""
	DispatchStatusPending DispatchStatus = "pending"
	DispatchStatusSent    DispatchStatus = "sent"
	DispatchStatusFailed  DispatchStatus = "failed"
)

type InvoiceSource string

const (
	SourceUpload InvoiceSource = "upload"
	SourceEmail  InvoiceSource = "email"
)

// ExtractedInvoice is the normalized result of one classification attempt.
type ExtractedInvoice struct {
	Supplier               string       `json:"supplier"`
	Category               string       `json:"category"`
	Date                   string       `json:"date"`
	TotalAmount            *float64     `json:"totalAmount"`
	Currency               string       `json:"currency"`
	InvoiceNumber          string       `json:"invoiceNumber"`
	DocumentType           DocumentType `json:"documentType"`
	DocumentTypeConfidence float64      `json:"documentTypeConfidence"`
}

type Invoice struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	Supplier               string       `json:"supplier,omitempty"`
	Category               string       `json:"category,omitempty"`
	Date                   string       `json:"date,omitempty"`
	TotalAmount            *float64     `json:"total_amount,omitempty"`
	Currency               string       `json:"currency,omitempty"`
	InvoiceNumber          string       `json:"invoice_number,omitempty"`
	DocumentType           DocumentType `json:"document_type,omitempty"`
	DocumentTypeConfidence float64      `json:"document_type_confidence,omitempty"`
	Classified             bool         `json:"classified"`

	PeriodType PeriodMode `json:"period_type"`
	PeriodKey  string     `json:"period_key,omitempty"`
	FolderPath string     `json:"folder_path"`

	FilePath string        `json:"file_path,omitempty"`
	FileName string        `json:"file_name,omitempty"`
	MimeType string        `json:"mime_type,omitempty"`
	FileSize int64         `json:"file_size"`
	Source   InvoiceSource `json:"source"`

	SentToGestoriaAt        *time.Time     `json:"sent_to_gestoria_at,omitempty"`
	SentToGestoriaStatus    DispatchStatus `json:"sent_to_gestoria_status,omitempty"`
	SentToGestoriaMessageID string         `json:"sent_to_gestoria_message_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Period returns the stored period fields as a PeriodInfo.
func (i *Invoice) Period() PeriodInfo {
	return PeriodInfo{PeriodType: i.PeriodType, PeriodKey: i.PeriodKey, FolderPath: i.FolderPath}
}

func (i *Invoice) ApplyPeriod(info PeriodInfo) {
	i.PeriodType = info.PeriodType
	i.PeriodKey = info.PeriodKey
	i.FolderPath = info.FolderPath
}

func (i *Invoice) ApplyExtraction(ex *ExtractedInvoice) {
	if ex == nil {
		return
	}
	i.Supplier = ex.Supplier
	i.Category = ex.Category
	i.Date = ex.Date
	i.TotalAmount = ex.TotalAmount
	i.Currency = ex.Currency
	i.InvoiceNumber = ex.InvoiceNumber
	i.DocumentType = ex.DocumentType
	i.DocumentTypeConfidence = ex.DocumentTypeConfidence
	i.Classified = true
}

// UploadRequest is one document entering the pipeline.
type UploadRequest struct {
	UserID      string
	Filename    string
	ContentType string
	Source      InvoiceSource
	Lang        string
}

type IngestResult struct {
	Invoice    *Invoice          `json:"invoice"`
	Extraction *ExtractedInvoice `json:"extraction,omitempty"`
}

type PDFText struct {
	Text     string
	NumPages int
	Metadata map[string]string
}

type InvoiceEventType string

const (
	EventInvoiceIngested   InvoiceEventType = "invoice.ingested"
	EventInvoiceDispatched InvoiceEventType = "invoice.dispatched"
)

type InvoiceEvent struct {
	Type       InvoiceEventType `json:"type"`
	InvoiceID  string           `json:"invoice_id"`
	UserID     string           `json:"user_id"`
	PeriodKey  string           `json:"period_key,omitempty"`
	MessageID  string           `json:"message_id,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
