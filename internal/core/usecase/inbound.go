package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/core/ports"
	"github.com/faktugo/invoice-pipeline/internal/i18n"
)

const inboundHTMLFilename = "email.html"

// InboundMailUseCase routes e-mails received on inbound aliases into the
// ingestion pipeline of the owning users.
type InboundMailUseCase struct {
	parser   ports.MailParser
	resolver ports.AliasResolver
	ingestor ports.InvoiceIngestor
}

func NewInboundMailUseCase(parser ports.MailParser, resolver ports.AliasResolver, ingestor ports.InvoiceIngestor) *InboundMailUseCase {
	return &InboundMailUseCase{parser: parser, resolver: resolver, ingestor: ingestor}
}

// HandleRaw ingests every PDF or image attachment once per recipient user.
// Unknown recipients and rejected documents are logged and skipped; the
// returned error joins the failures that are worth redelivering.
func (uc *InboundMailUseCase) HandleRaw(ctx context.Context, raw []byte) error {
	msg, err := uc.parser.Parse(raw)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "parse inbound mail", err)
	}

	users, errs := uc.resolveRecipients(ctx, msg)
	if len(users) == 0 {
		slog.Info("inbound_mail_unrouted", "message_id", msg.MessageID, "recipients", msg.Recipients)
		return errors.Join(errs...)
	}

	docs := inboundDocuments(msg)
	if len(docs) == 0 {
		slog.Info("inbound_mail_without_documents", "message_id", msg.MessageID, "subject", msg.Subject)
		return errors.Join(errs...)
	}

	for _, userID := range users {
		for _, doc := range docs {
			req := domain.UploadRequest{
				UserID:      userID,
				Filename:    doc.Filename,
				ContentType: doc.ContentType,
				Source:      domain.SourceEmail,
				Lang:        i18n.DefaultLang,
			}
			result, err := uc.ingestor.Upload(ctx, req, bytes.NewReader(doc.Data))
			var rejection *domain.RejectionError
			switch {
			case errors.As(err, &rejection):
				slog.Info("inbound_document_rejected",
					"message_id", msg.MessageID,
					"user_id", userID,
					"filename", doc.Filename,
					"document_type", rejection.Extraction.DocumentType,
					"reason", rejection.Reason,
				)
			case err != nil:
				errs = append(errs, fmt.Errorf("ingest %s for user %s: %w", doc.Filename, userID, err))
			default:
				slog.Info("inbound_document_ingested",
					"message_id", msg.MessageID,
					"user_id", userID,
					"invoice_id", result.Invoice.ID,
					"classified", result.Invoice.Classified,
				)
			}
		}
	}
	return errors.Join(errs...)
}

func (uc *InboundMailUseCase) resolveRecipients(ctx context.Context, msg *domain.InboundMessage) ([]string, []error) {
	var (
		users []string
		errs  []error
	)
	seen := map[string]bool{}
	for _, rcpt := range msg.Recipients {
		userID, err := uc.resolver.ResolveAlias(ctx, rcpt)
		switch {
		case domain.IsKind(err, domain.ErrNotFound), domain.IsKind(err, domain.ErrInvalidInput):
			slog.Info("inbound_unknown_recipient", "message_id", msg.MessageID, "recipient", rcpt)
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("resolve recipient %s: %w", rcpt, err))
			continue
		}
		if !seen[userID] {
			seen[userID] = true
			users = append(users, userID)
		}
	}
	return users, errs
}

// inboundDocuments picks PDF and image attachments; an HTML-only message is
// ingested as a document on its own.
func inboundDocuments(msg *domain.InboundMessage) []domain.InboundAttachment {
	var docs []domain.InboundAttachment
	for _, att := range msg.Attachments {
		if len(att.Data) == 0 {
			continue
		}
		mediaType := detectMediaType(att.Data, att.ContentType)
		if mediaType == "application/pdf" || strings.HasPrefix(mediaType, "image/") {
			att.ContentType = mediaType
			docs = append(docs, att)
		}
	}
	if len(docs) == 0 && strings.TrimSpace(msg.HTML) != "" {
		docs = append(docs, domain.InboundAttachment{
			Filename:    inboundHTMLFilename,
			ContentType: "text/html",
			Data:        []byte(msg.HTML),
		})
	}
	return docs
}
