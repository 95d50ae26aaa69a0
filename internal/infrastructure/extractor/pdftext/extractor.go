package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

var infoKeys = []string{"Title", "Author", "Subject", "Creator", "Producer", "CreationDate"}

// Extractor reads the embedded text layer of a PDF. Scanned PDFs without a
// text layer come back with empty text.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, data []byte) (out domain.PDFText, err error) {
	if err := ctx.Err(); err != nil {
		return domain.PDFText{}, err
	}
	if len(data) == 0 {
		return domain.PDFText{}, domain.WrapError(domain.ErrInvalidInput, "pdf extract", fmt.Errorf("empty document"))
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			out = domain.PDFText{}
			err = domain.WrapError(domain.ErrInvalidInput, "pdf extract", fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.PDFText{}, domain.WrapError(domain.ErrInvalidInput, "pdf open", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return domain.PDFText{}, fmt.Errorf("pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return domain.PDFText{}, fmt.Errorf("read pdf text: %w", err)
	}

	return domain.PDFText{
		Text:     strings.TrimSpace(string(raw)),
		NumPages: reader.NumPage(),
		Metadata: readInfo(reader),
	}, nil
}

func readInfo(reader *pdf.Reader) map[string]string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return map[string]string{}
	}
	meta := make(map[string]string, len(infoKeys))
	for _, key := range infoKeys {
		value := strings.TrimSpace(info.Key(key).Text())
		if value != "" {
			meta[key] = value
		}
	}
	return meta
}
