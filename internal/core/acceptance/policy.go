// Package acceptance judges classified documents and explains rejections.
// It never talks to the model: classification, judgement and explanation are
// separate steps so the threshold can move without touching the AI adapter.
package acceptance

import (
	"math"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/i18n"
)

const DefaultThreshold = 0.7

var acceptedTypes = map[domain.DocumentType]bool{
	domain.DocumentTypeInvoice: true,
	domain.DocumentTypeReceipt: true,
	domain.DocumentTypeTicket:  true,
}

type Policy struct {
	Threshold float64
}

func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold}
}

func (p Policy) threshold() float64 {
	if p.Threshold <= 0 || p.Threshold > 1 || math.IsNaN(p.Threshold) {
		return DefaultThreshold
	}
	return p.Threshold
}

// IsValidInvoice accepts invoices, receipts and tickets at or above the threshold.
func (p Policy) IsValidInvoice(ex *domain.ExtractedInvoice) bool {
	if ex == nil {
		return false
	}
	return acceptedTypes[ex.DocumentType] && ex.DocumentTypeConfidence >= p.threshold()
}

// RejectionReason explains in lang why ex was not accepted.
func (p Policy) RejectionReason(lang string, ex *domain.ExtractedInvoice) string {
	if ex == nil {
		return i18n.T(lang, "reject.unanalyzable")
	}
	percent := int(math.Round(ex.DocumentTypeConfidence * 100))
	switch {
	case ex.DocumentType == domain.DocumentTypeInvoice && ex.DocumentTypeConfidence < p.threshold():
		return i18n.T(lang, "reject.low_confidence", percent)
	case ex.DocumentType == domain.DocumentTypeProforma:
		return i18n.T(lang, "reject.proforma")
	case ex.DocumentType == domain.DocumentTypeQuote:
		return i18n.T(lang, "reject.quote")
	default:
		return i18n.T(lang, "reject.generic", TypeLabel(lang, ex.DocumentType), percent)
	}
}

func IsValidInvoice(ex *domain.ExtractedInvoice) bool {
	return DefaultPolicy().IsValidInvoice(ex)
}

func RejectionReason(lang string, ex *domain.ExtractedInvoice) string {
	return DefaultPolicy().RejectionReason(lang, ex)
}

// TypeLabel is the human label of a document type ("Factura", "Quote", ...).
func TypeLabel(lang string, t domain.DocumentType) string {
	return i18n.T(lang, "doctype."+string(domain.ParseDocumentType(string(t))))
}
