package ports

import (
	"context"
	"io"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

// DocumentAnalyzer classifies an uploaded document; nil means unclassified.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, data []byte, contentType string) *domain.ExtractedInvoice
}

// InvoiceIngestor is the inbound contract for document upload orchestration.
type InvoiceIngestor interface {
	Upload(ctx context.Context, req domain.UploadRequest, body io.Reader) (*domain.IngestResult, error)
}

// InvoiceReader is the inbound read model for invoices.
type InvoiceReader interface {
	GetByID(ctx context.Context, userID, id string) (*domain.Invoice, error)
}

type AliasService interface {
	GetOrCreateAlias(ctx context.Context, userID string) (string, error)
}

type AliasResolver interface {
	ResolveAlias(ctx context.Context, fullAddress string) (string, error)
}

type AccountantDispatcher interface {
	SendToAccountant(ctx context.Context, invoiceID, userID string) (domain.DispatchResult, error)
}

type PeriodExporter interface {
	ExportPeriod(ctx context.Context, userID, periodKey string) ([]byte, error)
}

type InboundMailHandler interface {
	HandleRaw(ctx context.Context, raw []byte) error
}

// SignedFileOpener serves documents behind signed download links.
type SignedFileOpener interface {
	OpenSigned(ctx context.Context, token string) (io.ReadCloser, string, error)
}
