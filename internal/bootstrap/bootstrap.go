package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/faktugo/invoice-pipeline/internal/config"
	"github.com/faktugo/invoice-pipeline/internal/core/acceptance"
	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/core/ports"
	"github.com/faktugo/invoice-pipeline/internal/core/usecase"
	"github.com/faktugo/invoice-pipeline/internal/i18n"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/email/resend"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/extractor/htmltext"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/extractor/pdftext"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/llm/ollama"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/mailparse"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/queue/nats"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/repository/postgres"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/resilience"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/spreadsheet"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/storage/localfs"
	"github.com/faktugo/invoice-pipeline/internal/observability/metrics"
)

// Options carries per-binary wiring. Registerer receives the pipeline metrics
// and may be nil.
type Options struct {
	Service    string
	Registerer prometheus.Registerer
}

type App struct {
	Config config.Config

	Queue   *nats.Queue
	Inbox   ports.InboundMailSource
	Storage *localfs.Storage

	Invoices   ports.InvoiceReader
	IngestUC   ports.InvoiceIngestor
	AliasUC    *usecase.AliasUseCase
	DispatchUC ports.AccountantDispatcher
	ExportUC   ports.PeriodExporter
	InboundUC  ports.InboundMailHandler

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.EnsureSchema {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	invoices := postgres.NewInvoiceRepository(db)
	aliases := postgres.NewAliasRepository(db)
	profiles := postgres.NewProfileRepository(db)

	var observer ports.PipelineObserver
	var breakerObserver resilience.StateObserver
	if opts.Registerer != nil {
		pipelineMetrics := metrics.NewPipelineMetrics(opts.Service, opts.Registerer)
		observer = pipelineMetrics
		breakerObserver = pipelineMetrics.ObserveBreaker
	}
	newExecutor := func(cfg resilience.Config) *resilience.Executor {
		return resilience.NewExecutor(cfg).WithStateObserver(breakerObserver)
	}

	storage, err := localfs.New(cfg.StoragePath, localfs.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		SigningSecret: cfg.SigningSecret,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, nats.Options{
		InboundSubject:     cfg.NATSInboundSubject,
		EventsSubject:      cfg.NATSEventsSubject,
		ResilienceExecutor: newExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	// Model and e-mail calls are never retried; only the breaker applies.
	analyzer := ollama.NewAnalyzer(ollama.New(ollama.Config{
		BaseURL:     cfg.OllamaURL,
		TextModel:   cfg.OllamaModel,
		VisionModel: cfg.OllamaVisionModel,
		APIKey:      cfg.OllamaAPIKey,
		Timeout:     cfg.OllamaTimeout,
	}, newExecutor(resilience.ProviderConfig())))
	if !analyzer.Available() {
		slog.Warn("classification_disabled", "reason", "OLLAMA_URL is empty")
	}
	sender := resend.New(resend.Config{
		BaseURL: cfg.ResendBaseURL,
		APIKey:  cfg.ResendAPIKey,
		From:    cfg.EmailFrom,
	}, newExecutor(resilience.ProviderConfig()))

	classifier := usecase.NewClassifyDocumentUseCase(analyzer, pdftext.NewExtractor(), htmltext.NewExtractor(), usecase.ClassifierOptions{
		MinTextChars: cfg.PDFMinTextChars,
		MaxTextChars: cfg.AITextMaxChars,
	})
	ingestUC := usecase.NewIngestInvoiceUseCase(invoices, profiles, storage, classifier, queue, usecase.IngestOptions{
		MaxUploadBytes:    cfg.MaxUploadBytes,
		DefaultPeriodMode: domain.PeriodMode(cfg.DefaultPeriodMode),
		DefaultRootFolder: cfg.ArchiveRootFolder,
		Policy:            acceptance.Policy{Threshold: cfg.AcceptanceThreshold},
	})
	aliasUC := usecase.NewAliasUseCase(aliases, profiles, usecase.AliasOptions{
		Domain:             cfg.InboundEmailDomain,
		LegacyDomains:      cfg.LegacyInboundDomains,
		LegacyPrefixes:     cfg.LegacyAliasPrefixes,
		MaxAttempts:        cfg.AliasMaxAttempts,
		SlugMaxLen:         cfg.AliasSlugMaxLen,
		LegacyLocalPartLen: cfg.AliasLegacyLocalLen,
	})
	invoiceQueries := usecase.NewInvoiceQueryUseCase(invoices, profiles, domain.PeriodMode(cfg.DefaultPeriodMode), cfg.ArchiveRootFolder)
	dispatchUC := usecase.NewDispatchCoordinator(invoices, profiles, storage, sender, queue, usecase.DispatchOptions{
		SignedURLTTL: cfg.SignedURLTTL,
		Lang:         i18n.DefaultLang,
	})
	if observer != nil {
		classifier.WithObserver(observer)
		ingestUC.WithObserver(observer)
		aliasUC.WithObserver(observer)
		dispatchUC.WithObserver(observer)
	}

	return &App{
		Config:  cfg,
		Queue:   queue,
		Inbox:   queue,
		Storage: storage,

		Invoices:   invoiceQueries,
		IngestUC:   ingestUC,
		AliasUC:    aliasUC,
		DispatchUC: dispatchUC,
		ExportUC:   usecase.NewExportPeriodUseCase(invoices, invoiceQueries, spreadsheet.NewRenderer(i18n.DefaultLang)),
		InboundUC:  usecase.NewInboundMailUseCase(mailparse.NewParser(), aliasUC, ingestUC),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
