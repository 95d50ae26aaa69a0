package ollama

import "fmt"

const systemPrompt = `You extract data from Spanish and European business documents.
Classify the document as exactly one of: invoice, proforma, quote, receipt, ticket, other.
documentTypeConfidence is your confidence in that classification, a number from 0 to 1.
Use null for fields that do not appear in the document.
date must be YYYY-MM-DD. totalAmount is the grand total including taxes, as a number.
currency is an ISO 4217 code. Answer with the JSON object only.`

// extractionSchema is sent as the structured output format.
var extractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"supplier":      map[string]any{"type": []string{"string", "null"}},
		"category":      map[string]any{"type": []string{"string", "null"}},
		"date":          map[string]any{"type": []string{"string", "null"}},
		"totalAmount":   map[string]any{"type": []string{"number", "null"}},
		"currency":      map[string]any{"type": []string{"string", "null"}},
		"invoiceNumber": map[string]any{"type": []string{"string", "null"}},
		"documentType": map[string]any{
			"type": "string",
			"enum": []string{"invoice", "proforma", "quote", "receipt", "ticket", "other"},
		},
		"documentTypeConfidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
	},
	"required": []string{"documentType", "documentTypeConfidence"},
}

func buildImagePrompt(contentType string) string {
	return fmt.Sprintf("The attached image (%s) is a scanned or photographed document. Extract its data.", contentType)
}

func buildTextPrompt(text string) string {
	return `Extract the data of the document below.

Document:
` + text
}
