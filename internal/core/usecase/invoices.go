package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/core/period"
	"github.com/faktugo/invoice-pipeline/internal/core/ports"
)

// InvoiceQueryUseCase reads invoices. Invoices written without period
// metadata get it computed from the profile settings and stored back.
type InvoiceQueryUseCase struct {
	invoices    ports.InvoiceRepository
	profiles    ports.ProfileRepository
	defaultMode domain.PeriodMode
	defaultRoot string
}

func NewInvoiceQueryUseCase(invoices ports.InvoiceRepository, profiles ports.ProfileRepository, defaultMode domain.PeriodMode, defaultRoot string) *InvoiceQueryUseCase {
	if defaultRoot == "" {
		defaultRoot = period.DefaultRootFolder
	}
	return &InvoiceQueryUseCase{
		invoices:    invoices,
		profiles:    profiles,
		defaultMode: period.NormalizeMode(defaultMode),
		defaultRoot: defaultRoot,
	}
}

func (uc *InvoiceQueryUseCase) GetByID(ctx context.Context, userID, id string) (*domain.Invoice, error) {
	inv, err := uc.invoices.GetByID(ctx, userID, id)
	if err != nil || inv.FolderPath != "" {
		return inv, err
	}

	mode, root, err := archiveSettings(ctx, uc.profiles, userID, uc.defaultMode, uc.defaultRoot)
	if err != nil {
		return nil, err
	}
	if err := uc.fill(ctx, inv, mode, root); err != nil {
		// The computed period is still returned; the next read retries the write.
		slog.Warn("invoice_period_backfill_failed", "user_id", userID, "invoice_id", id, "error", err)
	}
	return inv, nil
}

// Backfill stores the period of every invoice of userID that has none, so
// period listings see them.
func (uc *InvoiceQueryUseCase) Backfill(ctx context.Context, userID string) error {
	missing, err := uc.invoices.ListMissingPeriod(ctx, userID)
	if err != nil {
		return fmt.Errorf("list invoices without period: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	mode, root, err := archiveSettings(ctx, uc.profiles, userID, uc.defaultMode, uc.defaultRoot)
	if err != nil {
		return err
	}
	for i := range missing {
		if err := uc.fill(ctx, &missing[i], mode, root); err != nil {
			return err
		}
	}
	slog.Info("invoice_periods_backfilled", "user_id", userID, "count", len(missing))
	return nil
}

func (uc *InvoiceQueryUseCase) fill(ctx context.Context, inv *domain.Invoice, mode domain.PeriodMode, root string) error {
	period.Ensure(inv, mode, root)
	info := domain.PeriodInfo{PeriodType: inv.PeriodType, PeriodKey: inv.PeriodKey, FolderPath: inv.FolderPath}
	if err := uc.invoices.UpdatePeriod(ctx, inv.UserID, inv.ID, info); err != nil {
		return fmt.Errorf("update invoice period: %w", err)
	}
	return nil
}
