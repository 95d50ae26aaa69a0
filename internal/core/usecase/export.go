package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/core/period"
	"github.com/faktugo/invoice-pipeline/internal/core/ports"
)

// periodBackfiller assigns periods to invoices stored without one.
type periodBackfiller interface {
	Backfill(ctx context.Context, userID string) error
}

type ExportPeriodUseCase struct {
	invoices ports.InvoiceRepository
	periods  periodBackfiller
	renderer ports.SpreadsheetRenderer
}

// NewExportPeriodUseCase builds the exporter; periods may be nil.
func NewExportPeriodUseCase(invoices ports.InvoiceRepository, periods periodBackfiller, renderer ports.SpreadsheetRenderer) *ExportPeriodUseCase {
	return &ExportPeriodUseCase{invoices: invoices, periods: periods, renderer: renderer}
}

// ExportPeriod renders the user's invoices of one period as a spreadsheet.
func (uc *ExportPeriodUseCase) ExportPeriod(ctx context.Context, userID, periodKey string) ([]byte, error) {
	const op = "export period"
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, op, errors.New("user id is required"))
	}
	if !period.ValidKey(periodKey) {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("invalid period key %q", periodKey))
	}

	if uc.periods != nil {
		if err := uc.periods.Backfill(ctx, userID); err != nil {
			return nil, err
		}
	}
	invoices, err := uc.invoices.ListByPeriod(ctx, userID, periodKey)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	out, err := uc.renderer.RenderInvoices(periodKey, invoices)
	if err != nil {
		return nil, fmt.Errorf("render spreadsheet: %w", err)
	}
	return out, nil
}
