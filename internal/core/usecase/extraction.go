package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

// rawExtraction mirrors the model schema with loose types; models do not
// always respect the declared JSON types.
type rawExtraction struct {
	Supplier               any `json:"supplier"`
	Category               any `json:"category"`
	Date                   any `json:"date"`
	TotalAmount            any `json:"totalAmount"`
	Currency               any `json:"currency"`
	InvoiceNumber          any `json:"invoiceNumber"`
	DocumentType           any `json:"documentType"`
	DocumentTypeConfidence any `json:"documentTypeConfidence"`
}

func parseExtraction(raw string) (domain.ExtractedInvoice, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(raw))))
	decoder.UseNumber()

	var parsed rawExtraction
	if err := decoder.Decode(&parsed); err != nil {
		return domain.ExtractedInvoice{}, fmt.Errorf("parse extraction json: %w", err)
	}

	return domain.ExtractedInvoice{
		Supplier:               stringValue(parsed.Supplier),
		Category:               stringValue(parsed.Category),
		Date:                   stringValue(parsed.Date),
		TotalAmount:            amountValue(parsed.TotalAmount),
		Currency:               strings.ToUpper(stringValue(parsed.Currency)),
		InvoiceNumber:          stringValue(parsed.InvoiceNumber),
		DocumentType:           domain.ParseDocumentType(stringValue(parsed.DocumentType)),
		DocumentTypeConfidence: confidenceValue(parsed.DocumentTypeConfidence),
	}, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// confidenceValue clamps to [0,1]; missing or non-finite values become 0.
func confidenceValue(v any) float64 {
	f, ok := numberValue(v)
	if !ok {
		return 0
	}
	return math.Min(1, math.Max(0, f))
}

func amountValue(v any) *float64 {
	f, ok := numberValue(v)
	if !ok {
		return nil
	}
	return &f
}

func numberValue(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, ok := parseLocalizedNumber(val)
		if !ok {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseLocalizedNumber reads "1.234,56", "1,234.56", "12,5" or "€ 12.50".
func parseLocalizedNumber(raw string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, raw)
	if cleaned == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") == 1 && len(cleaned)-lastComma-1 <= 2 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
