package spreadsheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestRenderInvoices(t *testing.T) {
	sentAt := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)
	invoices := []domain.Invoice{
		{
			Date: "2024-03-14", Supplier: "Iberdrola", Category: "Suministros", InvoiceNumber: "F-17",
			DocumentType: domain.DocumentTypeInvoice, TotalAmount: floatPtr(121.004), Currency: "eur",
			SentToGestoriaStatus: domain.DispatchStatusSent, SentToGestoriaAt: &sentAt,
		},
		{Supplier: "Repsol", DocumentType: domain.DocumentTypeTicket},
	}

	out, err := NewRenderer("es").RenderInvoices("2024-Q1", invoices)
	if err != nil {
		t.Fatalf("RenderInvoices() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("2024-Q1")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Fecha" || rows[0][7] != "Enviada a gestoría" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][1] != "Iberdrola" || rows[1][4] != "Factura" || rows[1][6] != "EUR" || rows[1][7] != "Sí (02/04/2024)" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	raw, err := f.GetCellValue("2024-Q1", "F2", excelize.Options{RawCellValue: true})
	if err != nil || raw != "121" {
		t.Fatalf("amount cell = %q, %v", raw, err)
	}
	if rows[2][4] != "Ticket" || rows[2][7] != "No" {
		t.Fatalf("unexpected second row %v", rows[2])
	}
}

func TestSheetName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"2024-03", "2024-03"},
		{"a/b:c", "a-b-c"},
		{"", "Facturas"},
		{"0123456789012345678901234567890123", "0123456789012345678901234567890"},
	}
	for _, tc := range cases {
		if got := sheetName(tc.in); got != tc.want {
			t.Fatalf("sheetName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEnglishHeaders(t *testing.T) {
	out, err := NewRenderer("en").RenderInvoices("2024", nil)
	if err != nil {
		t.Fatalf("RenderInvoices() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("2024", "B1"); v != "Supplier" {
		t.Fatalf("B1 = %q", v)
	}
}
