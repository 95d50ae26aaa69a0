package usecase

import (
	"testing"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

func TestParseExtractionNormalizesTypeAndConfidence(t *testing.T) {
	cases := []struct {
		name       string
		raw        string
		wantType   domain.DocumentType
		wantConf   float64
		wantAmount *float64
	}{
		{"missing type", `{"documentTypeConfidence":0.8}`, domain.DocumentTypeOther, 0.8, nil},
		{"unknown type", `{"documentType":"delivery_note","documentTypeConfidence":0.8}`, domain.DocumentTypeOther, 0.8, nil},
		{"uppercase type", `{"documentType":" Receipt ","documentTypeConfidence":0.8}`, domain.DocumentTypeReceipt, 0.8, nil},
		{"confidence above one", `{"documentType":"invoice","documentTypeConfidence":7}`, domain.DocumentTypeInvoice, 1, nil},
		{"negative confidence", `{"documentType":"invoice","documentTypeConfidence":-0.2}`, domain.DocumentTypeInvoice, 0, nil},
		{"missing confidence", `{"documentType":"invoice"}`, domain.DocumentTypeInvoice, 0, nil},
		{"string confidence", `{"documentType":"invoice","documentTypeConfidence":"0.75"}`, domain.DocumentTypeInvoice, 0.75, nil},
		{"garbage confidence", `{"documentType":"invoice","documentTypeConfidence":"high"}`, domain.DocumentTypeInvoice, 0, nil},
		{"null confidence", `{"documentType":"invoice","documentTypeConfidence":null}`, domain.DocumentTypeInvoice, 0, nil},
		{"numeric amount", `{"documentType":"ticket","totalAmount":12.5}`, domain.DocumentTypeTicket, 0, floatPtr(12.5)},
		{"spanish amount", `{"documentType":"ticket","totalAmount":"1.234,56 €"}`, domain.DocumentTypeTicket, 0, floatPtr(1234.56)},
		{"english amount", `{"documentType":"ticket","totalAmount":"1,234.56"}`, domain.DocumentTypeTicket, 0, floatPtr(1234.56)},
		{"decimal comma", `{"documentType":"ticket","totalAmount":"12,5"}`, domain.DocumentTypeTicket, 0, floatPtr(12.5)},
		{"text amount", `{"documentType":"ticket","totalAmount":"n/a"}`, domain.DocumentTypeTicket, 0, nil},
		{"null amount", `{"documentType":"ticket","totalAmount":null}`, domain.DocumentTypeTicket, 0, nil},
	}
	for _, tc := range cases {
		got, err := parseExtraction(tc.raw)
		if err != nil {
			t.Fatalf("%s: parseExtraction() error = %v", tc.name, err)
		}
		if got.DocumentType != tc.wantType {
			t.Fatalf("%s: type = %q, want %q", tc.name, got.DocumentType, tc.wantType)
		}
		if got.DocumentTypeConfidence != tc.wantConf {
			t.Fatalf("%s: confidence = %v, want %v", tc.name, got.DocumentTypeConfidence, tc.wantConf)
		}
		switch {
		case tc.wantAmount == nil && got.TotalAmount != nil:
			t.Fatalf("%s: expected nil amount, got %v", tc.name, *got.TotalAmount)
		case tc.wantAmount != nil && (got.TotalAmount == nil || *got.TotalAmount != *tc.wantAmount):
			t.Fatalf("%s: amount = %v, want %v", tc.name, got.TotalAmount, *tc.wantAmount)
		}
	}
}

func TestParseExtractionRejectsInvalidJSON(t *testing.T) {
	if _, err := parseExtraction("```json nope"); err == nil {
		t.Fatalf("expected error")
	}
}
