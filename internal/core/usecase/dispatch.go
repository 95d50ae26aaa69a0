package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/core/ports"
	"github.com/faktugo/invoice-pipeline/internal/i18n"
)

const defaultSignedURLTTL = 7 * 24 * time.Hour

type DispatchOptions struct {
	SignedURLTTL time.Duration
	Lang         string
}

// DispatchCoordinator e-mails a stored invoice to the user's accountant and
// records the delivery on the invoice.
type DispatchCoordinator struct {
	invoices ports.InvoiceRepository
	profiles ports.ProfileRepository
	storage  ports.ObjectStorage
	sender   ports.EmailSender
	events   ports.EventPublisher
	opts     DispatchOptions
	observer ports.PipelineObserver
	now      func() time.Time
}

func NewDispatchCoordinator(
	invoices ports.InvoiceRepository,
	profiles ports.ProfileRepository,
	storage ports.ObjectStorage,
	sender ports.EmailSender,
	events ports.EventPublisher,
	opts DispatchOptions,
) *DispatchCoordinator {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = defaultSignedURLTTL
	}
	if opts.Lang == "" {
		opts.Lang = i18n.DefaultLang
	}
	return &DispatchCoordinator{
		invoices: invoices,
		profiles: profiles,
		storage:  storage,
		sender:   sender,
		events:   events,
		opts:     opts,
		observer: noopObserver{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DispatchCoordinator) WithObserver(observer ports.PipelineObserver) *DispatchCoordinator {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

// SendToAccountant never changes the invoice unless the provider accepted the
// e-mail. When the send succeeded but the status write failed the result is
// still OK and the error wraps domain.ErrStatusNotRecorded.
func (uc *DispatchCoordinator) SendToAccountant(ctx context.Context, invoiceID, userID string) (domain.DispatchResult, error) {
	const op = "send to accountant"
	if strings.TrimSpace(userID) == "" {
		return domain.DispatchResult{}, domain.WrapError(domain.ErrUnauthorized, op, errors.New("user id is required"))
	}

	profile, err := uc.profiles.GetProfile(ctx, userID)
	switch {
	case domain.IsKind(err, domain.ErrNotFound):
		profile = &domain.UserProfile{UserID: userID}
	case err != nil:
		return domain.DispatchResult{}, fmt.Errorf("load profile: %w", err)
	}
	accountant := strings.TrimSpace(profile.AccountantEmail)
	if accountant == "" {
		uc.observer.RecordDispatch("precondition")
		return domain.DispatchResult{}, &domain.PreconditionError{
			Code:    domain.PreconditionAccountantEmailMissing,
			Message: "configure your accountant e-mail before sending invoices",
		}
	}

	inv, err := uc.invoices.GetByID(ctx, userID, invoiceID)
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("load invoice: %w", err)
	}
	if strings.TrimSpace(inv.FilePath) == "" {
		uc.observer.RecordDispatch("precondition")
		return domain.DispatchResult{}, &domain.PreconditionError{
			Code:    domain.PreconditionInvoiceFileMissing,
			Message: "the invoice has no attached document",
		}
	}
	if uc.sender == nil || !uc.sender.Configured() {
		uc.observer.RecordDispatch("precondition")
		return domain.DispatchResult{}, &domain.PreconditionError{
			Code:    domain.PreconditionEmailNotConfigured,
			Message: "e-mail delivery is not configured",
		}
	}

	signedURL, err := uc.storage.SignedURL(ctx, inv.FilePath, uc.opts.SignedURLTTL)
	if err != nil {
		uc.observer.RecordDispatch("failed")
		return domain.DispatchResult{}, domain.WrapError(domain.ErrDispatchFailed, "create signed url", err)
	}

	clientName := profile.SenderName()
	ttlDays := int(uc.opts.SignedURLTTL.Hours() / 24)
	html, text, err := renderDispatchBodies(uc.opts.Lang, inv, clientName, signedURL, ttlDays)
	if err != nil {
		uc.observer.RecordDispatch("failed")
		return domain.DispatchResult{}, domain.WrapError(domain.ErrDispatchFailed, "render dispatch email", err)
	}

	msg := domain.OutboundEmail{
		FromName: clientName,
		To:       []string{accountant},
		ReplyTo:  strings.TrimSpace(profile.Email),
		Subject:  dispatchSubject(uc.opts.Lang, inv, clientName),
		HTML:     html,
		Text:     text,
		Attachments: []domain.EmailAttachment{
			{Path: signedURL, Filename: inv.FileName},
		},
	}

	messageID, err := uc.sender.Send(ctx, msg)
	if err != nil {
		uc.observer.RecordDispatch("failed")
		slog.Warn("dispatch_failed", "invoice_id", inv.ID, "user_id", userID, "error", err)
		return domain.DispatchResult{}, domain.WrapError(domain.ErrDispatchFailed, "send email", err)
	}

	result := domain.DispatchResult{OK: true, MessageID: messageID}
	sentAt := uc.now()
	if err := uc.invoices.MarkSentToAccountant(ctx, userID, inv.ID, sentAt, messageID); err != nil {
		uc.observer.RecordDispatch("status_not_recorded")
		slog.Error("dispatch_status_not_recorded",
			"invoice_id", inv.ID,
			"user_id", userID,
			"message_id", messageID,
			"error", err,
		)
		return result, domain.WrapError(domain.ErrStatusNotRecorded, op, err)
	}

	uc.observer.RecordDispatch("sent")
	slog.Info("invoice_dispatched", "invoice_id", inv.ID, "user_id", userID, "message_id", messageID)

	if uc.events != nil {
		event := domain.InvoiceEvent{
			Type:       domain.EventInvoiceDispatched,
			InvoiceID:  inv.ID,
			UserID:     userID,
			PeriodKey:  inv.PeriodKey,
			MessageID:  messageID,
			OccurredAt: sentAt,
		}
		if err := uc.events.PublishInvoiceEvent(ctx, event); err != nil {
			slog.Warn("invoice_event_publish_failed", "invoice_id", inv.ID, "type", event.Type, "error", err)
		}
	}
	return result, nil
}
