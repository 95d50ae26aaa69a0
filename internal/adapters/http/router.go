package httpadapter

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/faktugo/invoice-pipeline/internal/config"
	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/core/ports"
	"github.com/faktugo/invoice-pipeline/internal/observability/metrics"
)

const (
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	multipartMemory     = 10 << 20
	maxInboundMailBytes = 30 << 20
)

// InboundMailPublisher queues raw inbound e-mail for the worker.
type InboundMailPublisher interface {
	PublishInboundMail(ctx context.Context, raw []byte) error
}

type Dependencies struct {
	Ingestor   ports.InvoiceIngestor
	Invoices   ports.InvoiceReader
	Aliases    ports.AliasService
	Dispatcher ports.AccountantDispatcher
	Exporter   ports.PeriodExporter
	Files      ports.SignedFileOpener
	Inbound    InboundMailPublisher
	Metrics    *metrics.HTTPServerMetrics
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}
	mux.HandleFunc("POST /v1/invoices", rt.uploadInvoice)
	mux.HandleFunc("GET /v1/invoices/{id}", rt.getInvoice)
	mux.HandleFunc("POST /v1/invoices/{id}/send-to-accountant", rt.sendToAccountant)
	mux.HandleFunc("GET /v1/inbound-alias", rt.getInboundAlias)
	mux.HandleFunc("GET /v1/periods/{key}/export", rt.exportPeriod)
	mux.HandleFunc("GET /v1/files/{token}", rt.downloadFile)
	mux.HandleFunc("POST /v1/inbound-mail", rt.receiveInboundMail)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = langMiddleware(handler)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware("api", handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadInvoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+multipartMemory)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	result, err := rt.deps.Ingestor.Upload(r.Context(), domain.UploadRequest{
		UserID:      userID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Source:      domain.SourceUpload,
		Lang:        langFromContext(r.Context()),
	}, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (rt *Router) getInvoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	inv, err := rt.deps.Invoices.GetByID(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (rt *Router) sendToAccountant(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	result, err := rt.deps.Dispatcher.SendToAccountant(r.Context(), r.PathValue("id"), userID)
	if domain.IsKind(err, domain.ErrStatusNotRecorded) {
		// The e-mail is out; the client must not retry.
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"ok":         result.OK,
			"message_id": result.MessageID,
			"warning":    "status_not_recorded",
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getInboundAlias(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	address, err := rt.deps.Aliases.GetOrCreateAlias(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": address})
}

func (rt *Router) exportPeriod(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	data, err := rt.deps.Exporter.ExportPeriod(r.Context(), userID, key)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "facturas_" + key + ".xlsx",
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) downloadFile(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Files == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	body, filename, err := rt.deps.Files.OpenSigned(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("file_download_interrupted", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
}

// receiveInboundMail accepts one raw message from the mail provider webhook.
func (rt *Router) receiveInboundMail(w http.ResponseWriter, r *http.Request) {
	secret := rt.cfg.InboundWebhookSecret
	if secret == "" || rt.deps.Inbound == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Inbound-Secret")), []byte(secret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInboundMailBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "message too large"})
		return
	}
	if err := rt.deps.Inbound.PublishInboundMail(r.Context(), raw); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing user identity"})
		return "", false
	}
	return userID, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rejection *domain.RejectionError
	if errors.As(err, &rejection) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "document_rejected",
			"reason":     rejection.Reason,
			"extraction": rejection.Extraction,
		})
		return
	}
	var precondition *domain.PreconditionError
	if errors.As(err, &precondition) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": precondition.Message,
			"code":  precondition.Code,
		})
		return
	}

	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
