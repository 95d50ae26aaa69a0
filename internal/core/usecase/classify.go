package usecase

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/core/ports"
)

const (
	defaultMinTextChars = 50
	defaultMaxTextChars = 8000
)

var errNoUsableText = errors.New("document has no usable embedded text")

type ClassifierOptions struct {
	MinTextChars int
	MaxTextChars int
}

// ClassifyDocumentUseCase extracts invoice fields with the AI analyzer. It
// never fails: every problem degrades to a nil (unclassified) result.
type ClassifyDocumentUseCase struct {
	analyzer ports.InvoiceAnalyzer
	pdf      ports.PDFTextExtractor
	html     ports.HTMLTextExtractor
	opts     ClassifierOptions
	observer ports.PipelineObserver
}

func NewClassifyDocumentUseCase(
	analyzer ports.InvoiceAnalyzer,
	pdf ports.PDFTextExtractor,
	html ports.HTMLTextExtractor,
	opts ClassifierOptions,
) *ClassifyDocumentUseCase {
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = defaultMinTextChars
	}
	if opts.MaxTextChars <= 0 {
		opts.MaxTextChars = defaultMaxTextChars
	}
	return &ClassifyDocumentUseCase{
		analyzer: analyzer,
		pdf:      pdf,
		html:     html,
		opts:     opts,
		observer: noopObserver{},
	}
}

func (uc *ClassifyDocumentUseCase) WithObserver(observer ports.PipelineObserver) *ClassifyDocumentUseCase {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

func (uc *ClassifyDocumentUseCase) Analyze(ctx context.Context, data []byte, contentType string) *domain.ExtractedInvoice {
	if uc.analyzer == nil || !uc.analyzer.Available() {
		uc.observer.RecordClassification("unavailable")
		return nil
	}

	mediaType := detectMediaType(data, contentType)
	var (
		raw string
		err error
	)
	switch {
	case mediaType == "application/pdf":
		raw, err = uc.analyzePDF(ctx, data)
	case strings.HasPrefix(mediaType, "image/"):
		raw, err = uc.analyzer.AnalyzeImage(ctx, data, mediaType)
	case mediaType == "text/html":
		raw, err = uc.analyzeHTML(ctx, data)
	default:
		slog.Info("classification_skipped", "reason", "unsupported_content_type", "content_type", mediaType)
		uc.observer.RecordClassification("unsupported")
		return nil
	}
	if errors.Is(err, errNoUsableText) {
		slog.Info("classification_skipped", "reason", "no_embedded_text", "content_type", mediaType)
		uc.observer.RecordClassification("no_text")
		return nil
	}
	if err != nil {
		slog.Warn("classification_failed", "content_type", mediaType, "error", err)
		uc.observer.RecordClassification("error")
		return nil
	}

	extraction, err := parseExtraction(raw)
	if err != nil {
		slog.Warn("classification_failed", "content_type", mediaType, "error", err)
		uc.observer.RecordClassification("error")
		return nil
	}
	uc.observer.RecordClassification("classified")
	return &extraction
}

func (uc *ClassifyDocumentUseCase) analyzePDF(ctx context.Context, data []byte) (string, error) {
	if uc.pdf == nil {
		return "", errors.New("pdf extractor is not configured")
	}
	parsed, err := uc.pdf.Extract(ctx, data)
	if err != nil {
		return "", err
	}
	return uc.analyzeText(ctx, parsed.Text)
}

func (uc *ClassifyDocumentUseCase) analyzeHTML(ctx context.Context, data []byte) (string, error) {
	if uc.html == nil {
		return "", errors.New("html extractor is not configured")
	}
	text, err := uc.html.Text(string(data))
	if err != nil {
		return "", err
	}
	return uc.analyzeText(ctx, text)
}

func (uc *ClassifyDocumentUseCase) analyzeText(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < uc.opts.MinTextChars {
		return "", errNoUsableText
	}
	return uc.analyzer.AnalyzeText(ctx, truncateRunes(text, uc.opts.MaxTextChars))
}

func detectMediaType(data []byte, contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	return strings.ToLower(mediaType)
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
