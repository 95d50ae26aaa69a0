package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

const invoiceColumns = `id, user_id, supplier, category, invoice_date, total_amount, currency, invoice_number,
	document_type, document_type_confidence, classified, period_type, period_key, folder_path,
	file_path, file_name, mime_type, file_size, source,
	sent_to_gestoria_at, sent_to_gestoria_status, sent_to_gestoria_message_id, created_at, updated_at`

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO invoices (`+invoiceColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
`,
		inv.ID, inv.UserID, inv.Supplier, inv.Category, inv.Date, nullFloat(inv.TotalAmount), inv.Currency, inv.InvoiceNumber,
		string(inv.DocumentType), inv.DocumentTypeConfidence, inv.Classified, string(inv.PeriodType), nullString(inv.PeriodKey), inv.FolderPath,
		inv.FilePath, inv.FileName, inv.MimeType, inv.FileSize, string(inv.Source),
		nullTime(inv.SentToGestoriaAt), nullString(string(inv.SentToGestoriaStatus)), nullString(inv.SentToGestoriaMessageID),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return classifyWriteError("insert invoice", err)
	}
	return nil
}

// GetByID only returns invoices owned by userID; foreign ids look missing.
func (r *InvoiceRepository) GetByID(ctx context.Context, userID, id string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE user_id = $1 AND id = $2
`, userID, id)

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get invoice", fmt.Errorf("invoice not found: id=%s", id))
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	return &inv, nil
}

// MarkSentToAccountant records a successful delivery. The write is scoped
// by owner so another account can never flip the status.
func (r *InvoiceRepository) MarkSentToAccountant(ctx context.Context, userID, id string, sentAt time.Time, messageID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE invoices
SET sent_to_gestoria_at = $3, sent_to_gestoria_status = $4, sent_to_gestoria_message_id = $5, updated_at = $3
WHERE user_id = $1 AND id = $2
`, userID, id, sentAt, string(domain.DispatchStatusSent), messageID)
	if err != nil {
		return fmt.Errorf("mark invoice sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark invoice sent rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "mark invoice sent", fmt.Errorf("invoice not found: id=%s", id))
	}
	return nil
}

func (r *InvoiceRepository) ListByPeriod(ctx context.Context, userID, periodKey string) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE user_id = $1 AND period_key = $2
ORDER BY invoice_date ASC, created_at ASC
`, userID, periodKey)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return collectInvoices(rows)
}

// ListMissingPeriod returns invoices written without a folder path, e.g. by
// the account service importing older documents.
func (r *InvoiceRepository) ListMissingPeriod(ctx context.Context, userID string) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE user_id = $1 AND folder_path = ''
ORDER BY created_at ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list invoices without period: %w", err)
	}
	return collectInvoices(rows)
}

func (r *InvoiceRepository) UpdatePeriod(ctx context.Context, userID, id string, info domain.PeriodInfo) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE invoices
SET period_type = $3, period_key = $4, folder_path = $5
WHERE user_id = $1 AND id = $2
`, userID, id, string(info.PeriodType), nullString(info.PeriodKey), info.FolderPath)
	if err != nil {
		return fmt.Errorf("update invoice period: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invoice period rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update invoice period", fmt.Errorf("invoice not found: id=%s", id))
	}
	return nil
}

func collectInvoices(rows *sql.Rows) ([]domain.Invoice, error) {
	defer rows.Close()

	out := make([]domain.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, nil
}

func scanInvoice(row rowScanner) (domain.Invoice, error) {
	var (
		inv         domain.Invoice
		docType     string
		periodType  string
		source      string
		totalAmount sql.NullFloat64
		periodKey   sql.NullString
		sentAt      sql.NullTime
		sentStatus  sql.NullString
		sentMessage sql.NullString
	)
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.Supplier, &inv.Category, &inv.Date, &totalAmount, &inv.Currency, &inv.InvoiceNumber,
		&docType, &inv.DocumentTypeConfidence, &inv.Classified, &periodType, &periodKey, &inv.FolderPath,
		&inv.FilePath, &inv.FileName, &inv.MimeType, &inv.FileSize, &source,
		&sentAt, &sentStatus, &sentMessage, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invoice{}, err
	}

	if docType != "" {
		inv.DocumentType = domain.ParseDocumentType(docType)
	}
	inv.PeriodType = domain.PeriodMode(periodType)
	inv.Source = domain.InvoiceSource(source)
	if totalAmount.Valid {
		amount := totalAmount.Float64
		inv.TotalAmount = &amount
	}
	inv.PeriodKey = periodKey.String
	if sentAt.Valid {
		at := sentAt.Time
		inv.SentToGestoriaAt = &at
	}
	inv.SentToGestoriaStatus = domain.DispatchStatus(sentStatus.String)
	inv.SentToGestoriaMessageID = sentMessage.String
	return inv, nil
}
