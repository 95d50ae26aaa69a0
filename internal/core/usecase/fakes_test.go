package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

type invoiceRepoFake struct {
	mu        sync.Mutex
	invoices  map[string]*domain.Invoice
	createErr error
	markErr   error
	listErr   error
	updateErr error
	markCalls int

	periodUpdates int
}

func newInvoiceRepoFake(invoices ...*domain.Invoice) *invoiceRepoFake {
	f := &invoiceRepoFake{invoices: map[string]*domain.Invoice{}}
	for _, inv := range invoices {
		f.invoices[inv.ID] = inv
	}
	return f
}

func (f *invoiceRepoFake) Create(_ context.Context, inv *domain.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copyInv := *inv
	f.invoices[inv.ID] = &copyInv
	return nil
}

func (f *invoiceRepoFake) GetByID(_ context.Context, userID, id string) (*domain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok || inv.UserID != userID {
		return nil, domain.WrapError(domain.ErrNotFound, "get invoice", errors.New("missing"))
	}
	copyInv := *inv
	return &copyInv, nil
}

func (f *invoiceRepoFake) MarkSentToAccountant(_ context.Context, userID, id string, sentAt time.Time, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	if f.markErr != nil {
		return f.markErr
	}
	inv, ok := f.invoices[id]
	if !ok || inv.UserID != userID {
		return domain.WrapError(domain.ErrNotFound, "mark sent", errors.New("missing"))
	}
	inv.SentToGestoriaAt = &sentAt
	inv.SentToGestoriaStatus = domain.DispatchStatusSent
	inv.SentToGestoriaMessageID = messageID
	return nil
}

func (f *invoiceRepoFake) ListByPeriod(_ context.Context, userID, periodKey string) ([]domain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Invoice
	for _, inv := range f.invoices {
		if inv.UserID == userID && inv.PeriodKey == periodKey {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *invoiceRepoFake) ListMissingPeriod(_ context.Context, userID string) ([]domain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Invoice
	for _, inv := range f.invoices {
		if inv.UserID == userID && inv.FolderPath == "" {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *invoiceRepoFake) UpdatePeriod(_ context.Context, userID, id string, info domain.PeriodInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	inv, ok := f.invoices[id]
	if !ok || inv.UserID != userID {
		return domain.WrapError(domain.ErrNotFound, "update period", errors.New("missing"))
	}
	inv.ApplyPeriod(info)
	f.periodUpdates++
	return nil
}

type profileRepoFake struct {
	profiles map[string]*domain.UserProfile
	err      error
}

func (f *profileRepoFake) GetProfile(_ context.Context, userID string) (*domain.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get profile", errors.New("missing"))
	}
	copyProfile := *p
	return &copyProfile, nil
}

type storageFake struct {
	saved     map[string][]byte
	removed   []string
	saveErr   error
	signErr   error
	signedKey string
	signedTTL time.Duration
}

func newStorageFake() *storageFake {
	return &storageFake{saved: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.saved[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Remove(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.saved, key)
		f.removed = append(f.removed, key)
	}
	return nil
}

func (f *storageFake) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	f.signedKey = key
	f.signedTTL = ttl
	return "https://files.example.test/v1/files/signed-token", nil
}

type analyzerFake struct {
	available  bool
	response   string
	err        error
	textCalls  []string
	imageCalls []string
}

func (f *analyzerFake) Available() bool { return f.available }

func (f *analyzerFake) AnalyzeImage(_ context.Context, _ []byte, contentType string) (string, error) {
	f.imageCalls = append(f.imageCalls, contentType)
	return f.response, f.err
}

func (f *analyzerFake) AnalyzeText(_ context.Context, text string) (string, error) {
	f.textCalls = append(f.textCalls, text)
	return f.response, f.err
}

type pdfFake struct {
	text string
	err  error
}

func (f *pdfFake) Extract(context.Context, []byte) (domain.PDFText, error) {
	if f.err != nil {
		return domain.PDFText{}, f.err
	}
	return domain.PDFText{Text: f.text, NumPages: 1}, nil
}

type htmlFake struct {
	text string
}

func (f *htmlFake) Text(string) (string, error) { return f.text, nil }

type classifierFake struct {
	result *domain.ExtractedInvoice
	calls  int
}

func (f *classifierFake) Analyze(context.Context, []byte, string) *domain.ExtractedInvoice {
	f.calls++
	return f.result
}

type publisherFake struct {
	events []domain.InvoiceEvent
	err    error
}

func (f *publisherFake) PublishInvoiceEvent(_ context.Context, event domain.InvoiceEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type senderFake struct {
	configured bool
	messageID  string
	err        error
	sent       []domain.OutboundEmail
}

func (f *senderFake) Configured() bool { return f.configured }

func (f *senderFake) Send(_ context.Context, msg domain.OutboundEmail) (string, error) {
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return "", f.err
	}
	return f.messageID, nil
}

type observerFake struct {
	classifications []string
	rejections      []domain.DocumentType
	aliasResults    []string
	aliasCollisions int
	dispatches      []string
}

func (f *observerFake) RecordClassification(outcome string) {
	f.classifications = append(f.classifications, outcome)
}

func (f *observerFake) RecordRejection(t domain.DocumentType) {
	f.rejections = append(f.rejections, t)
}

func (f *observerFake) RecordAliasAllocation(result string, collisions int) {
	f.aliasResults = append(f.aliasResults, result)
	f.aliasCollisions += collisions
}

func (f *observerFake) RecordDispatch(outcome string) {
	f.dispatches = append(f.dispatches, outcome)
}

func floatPtr(v float64) *float64 { return &v }
