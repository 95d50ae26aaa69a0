package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faktugo/invoice-pipeline/internal/core/acceptance"
	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/core/period"
	"github.com/faktugo/invoice-pipeline/internal/core/ports"
)

const defaultMaxUploadBytes int64 = 20 << 20

type IngestOptions struct {
	MaxUploadBytes    int64
	DefaultPeriodMode domain.PeriodMode
	DefaultRootFolder string
	Policy            acceptance.Policy
}

type IngestInvoiceUseCase struct {
	repo       ports.InvoiceRepository
	profiles   ports.ProfileRepository
	storage    ports.ObjectStorage
	classifier ports.DocumentAnalyzer
	events     ports.EventPublisher
	opts       IngestOptions
	observer   ports.PipelineObserver
	now        func() time.Time
}

func NewIngestInvoiceUseCase(
	repo ports.InvoiceRepository,
	profiles ports.ProfileRepository,
	storage ports.ObjectStorage,
	classifier ports.DocumentAnalyzer,
	events ports.EventPublisher,
	opts IngestOptions,
) *IngestInvoiceUseCase {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	opts.DefaultPeriodMode = period.NormalizeMode(opts.DefaultPeriodMode)
	if opts.DefaultRootFolder == "" {
		opts.DefaultRootFolder = period.DefaultRootFolder
	}
	return &IngestInvoiceUseCase{
		repo:       repo,
		profiles:   profiles,
		storage:    storage,
		classifier: classifier,
		events:     events,
		opts:       opts,
		observer:   noopObserver{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *IngestInvoiceUseCase) WithObserver(observer ports.PipelineObserver) *IngestInvoiceUseCase {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

// Upload classifies, files and persists one document. A classified document
// failing the acceptance policy is not stored and yields a *domain.RejectionError.
func (uc *IngestInvoiceUseCase) Upload(ctx context.Context, req domain.UploadRequest, body io.Reader) (*domain.IngestResult, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "upload invoice", errors.New("user id is required"))
	}
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload invoice", errors.New("body is required"))
	}

	data, err := io.ReadAll(io.LimitReader(body, uc.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload invoice", errors.New("file is empty"))
	}
	if int64(len(data)) > uc.opts.MaxUploadBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload invoice", fmt.Errorf("file exceeds %d bytes", uc.opts.MaxUploadBytes))
	}

	contentType := detectMediaType(data, req.ContentType)

	var extraction *domain.ExtractedInvoice
	if uc.classifier != nil {
		extraction = uc.classifier.Analyze(ctx, data, contentType)
	}
	if extraction != nil && !uc.opts.Policy.IsValidInvoice(extraction) {
		uc.observer.RecordRejection(extraction.DocumentType)
		return nil, &domain.RejectionError{
			Reason:     uc.opts.Policy.RejectionReason(req.Lang, extraction),
			Extraction: *extraction,
		}
	}

	mode, root, err := uc.archiveSettings(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	inv := &domain.Invoice{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		FileName:  displayFilename(req.Filename),
		MimeType:  contentType,
		FileSize:  int64(len(data)),
		Source:    req.Source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if inv.Source == "" {
		inv.Source = domain.SourceUpload
	}
	inv.ApplyExtraction(extraction)

	info, err := period.Compute(inv.Date, mode, root)
	if err != nil && extraction != nil {
		slog.Info("period_defaulted", "invoice_id", inv.ID, "date", inv.Date)
	}
	inv.ApplyPeriod(info)
	inv.FilePath = storageKey(info.FolderPath, inv.ID, req.Filename)

	if err := uc.storage.Save(ctx, inv.FilePath, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	if err := uc.repo.Create(ctx, inv); err != nil {
		if rmErr := uc.storage.Remove(ctx, inv.FilePath); rmErr != nil {
			slog.Warn("storage_cleanup_failed", "invoice_id", inv.ID, "path", inv.FilePath, "error", rmErr)
		}
		return nil, fmt.Errorf("create invoice metadata: %w", err)
	}

	if uc.events != nil {
		event := domain.InvoiceEvent{
			Type:       domain.EventInvoiceIngested,
			InvoiceID:  inv.ID,
			UserID:     inv.UserID,
			PeriodKey:  inv.PeriodKey,
			OccurredAt: now,
		}
		if err := uc.events.PublishInvoiceEvent(ctx, event); err != nil {
			slog.Warn("invoice_event_publish_failed", "invoice_id", inv.ID, "type", event.Type, "error", err)
		}
	}

	return &domain.IngestResult{Invoice: inv, Extraction: extraction}, nil
}

func (uc *IngestInvoiceUseCase) archiveSettings(ctx context.Context, userID string) (domain.PeriodMode, string, error) {
	return archiveSettings(ctx, uc.profiles, userID, uc.opts.DefaultPeriodMode, uc.opts.DefaultRootFolder)
}

// archiveSettings returns the user's period mode and archive root, falling
// back to the given defaults when the profile is missing or leaves them empty.
func archiveSettings(ctx context.Context, profiles ports.ProfileRepository, userID string, mode domain.PeriodMode, root string) (domain.PeriodMode, string, error) {
	if profiles == nil {
		return mode, root, nil
	}
	profile, err := profiles.GetProfile(ctx, userID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return mode, root, nil
		}
		return "", "", fmt.Errorf("load profile: %w", err)
	}
	if profile.PeriodMode != "" {
		mode = period.NormalizeMode(profile.PeriodMode)
	}
	if strings.TrimSpace(profile.ArchiveRootFolder) != "" {
		root = strings.TrimSpace(profile.ArchiveRootFolder)
	}
	return mode, root, nil
}

// storageKey is "{folder}/{id}_{filename}" without the leading slash of the
// archive root, so the key stays relative to the storage bucket.
func storageKey(folderPath, id, filename string) string {
	folder := strings.Trim(folderPath, "/")
	name := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func displayFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" {
		return "document.bin"
	}
	return base
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "/" {
		return "document.bin"
	}
	return base
}
