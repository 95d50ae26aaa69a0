package ports

import (
	"context"
	"io"
	"time"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

// InvoiceRepository persists invoices. Every read and write is scoped by owner.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, userID, id string) (*domain.Invoice, error)
	MarkSentToAccountant(ctx context.Context, userID, id string, sentAt time.Time, messageID string) error
	ListByPeriod(ctx context.Context, userID, periodKey string) ([]domain.Invoice, error)
	// ListMissingPeriod returns invoices stored without a folder path.
	ListMissingPeriod(ctx context.Context, userID string) ([]domain.Invoice, error)
	UpdatePeriod(ctx context.Context, userID, id string, info domain.PeriodInfo) error
}

// AliasRepository stores inbound e-mail aliases. Writes that hit a unique
// constraint fail with domain.ErrUniqueViolation.
type AliasRepository interface {
	GetActiveByUser(ctx context.Context, userID string) (*domain.EmailAlias, error)
	GetActiveByAddress(ctx context.Context, fullAddress string) (*domain.EmailAlias, error)
	Insert(ctx context.Context, alias *domain.EmailAlias) error
	UpdateAddress(ctx context.Context, alias *domain.EmailAlias) error
}

// ProfileRepository reads account profiles owned by the account service.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, keys ...string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// PDFTextExtractor pulls embedded text out of a PDF. It does not OCR.
type PDFTextExtractor interface {
	Extract(ctx context.Context, data []byte) (domain.PDFText, error)
}

// HTMLTextExtractor turns an HTML document into readable text.
type HTMLTextExtractor interface {
	Text(html string) (string, error)
}

// InvoiceAnalyzer calls the AI model and returns its raw JSON answer.
type InvoiceAnalyzer interface {
	Available() bool
	AnalyzeImage(ctx context.Context, data []byte, contentType string) (string, error)
	AnalyzeText(ctx context.Context, text string) (string, error)
}

// EmailSender delivers transactional e-mail and returns the provider message id.
type EmailSender interface {
	Configured() bool
	Send(ctx context.Context, msg domain.OutboundEmail) (string, error)
}

// EventPublisher announces invoice lifecycle events.
type EventPublisher interface {
	PublishInvoiceEvent(ctx context.Context, event domain.InvoiceEvent) error
}

// InboundMailSource delivers raw RFC 5322 messages received on inbound aliases.
type InboundMailSource interface {
	SubscribeInboundMail(ctx context.Context, handler func(context.Context, []byte) error) error
}

type MailParser interface {
	Parse(raw []byte) (*domain.InboundMessage, error)
}

type SpreadsheetRenderer interface {
	RenderInvoices(sheet string, invoices []domain.Invoice) ([]byte, error)
}

// PipelineObserver receives pipeline outcomes for metrics.
type PipelineObserver interface {
	RecordClassification(outcome string)
	RecordRejection(documentType domain.DocumentType)
	RecordAliasAllocation(result string, collisions int)
	RecordDispatch(outcome string)
}
