package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/i18n"
)

var columns = []struct {
	key   string
	width float64
}{
	{"export.date", 12},
	{"export.supplier", 30},
	{"export.category", 18},
	{"export.number", 18},
	{"export.type", 12},
	{"export.amount", 12},
	{"export.currency", 9},
	{"export.sent", 20},
}

// Renderer writes period exports as XLSX workbooks for the accountant.
type Renderer struct {
	lang string
}

func NewRenderer(lang string) *Renderer {
	if lang == "" {
		lang = i18n.DefaultLang
	}
	return &Renderer{lang: lang}
}

func (r *Renderer) RenderInvoices(sheet string, invoices []domain.Invoice) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet = sheetName(sheet)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("amount style: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, i18n.T(r.lang, col.key)); err != nil {
			return nil, err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, col.width); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for idx, inv := range invoices {
		row := idx + 2
		values := []any{
			inv.Date,
			inv.Supplier,
			inv.Category,
			inv.InvoiceNumber,
			i18n.T(r.lang, "doctype."+string(documentType(inv.DocumentType))),
			amountCell(inv.TotalAmount),
			strings.ToUpper(inv.Currency),
			r.sentLabel(inv),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		amount, _ := excelize.CoordinatesToCellName(6, row)
		if err := f.SetCellStyle(sheet, amount, amount, amountStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) sentLabel(inv domain.Invoice) string {
	if inv.SentToGestoriaStatus == domain.DispatchStatusSent && inv.SentToGestoriaAt != nil {
		return i18n.T(r.lang, "export.yes") + " (" + inv.SentToGestoriaAt.Format("02/01/2006") + ")"
	}
	return i18n.T(r.lang, "export.no")
}

// amountCell keeps cents exact; a missing amount stays an empty cell.
func amountCell(amount *float64) any {
	if amount == nil {
		return nil
	}
	v, _ := decimal.NewFromFloat(*amount).Round(2).Float64()
	return v
}

func documentType(t domain.DocumentType) domain.DocumentType {
	if t == "" {
		return domain.DocumentTypeOther
	}
	return t
}

// sheetName applies the workbook limits: 31 characters, no []:*?/\ characters.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "Facturas"
	}
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}
