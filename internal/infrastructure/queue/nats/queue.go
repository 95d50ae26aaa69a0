package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/resilience"
)

const (
	publishOperation = "nats.publish"
	inboundQueue     = "inbound-mail-workers"
)

// Queue carries raw inbound e-mail to the worker and invoice events out of the pipeline.
type Queue struct {
	conn           *nats.Conn
	inboundSubject string
	eventsSubject  string
	executor       *resilience.Executor
}

type Options struct {
	InboundSubject       string
	EventsSubject        string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	inboundSubject := options.InboundSubject
	if inboundSubject == "" {
		inboundSubject = "mail.inbound"
	}
	eventsSubject := options.EventsSubject
	if eventsSubject == "" {
		eventsSubject = "invoice.events"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("faktugo-invoice-pipeline"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		inboundSubject: inboundSubject,
		eventsSubject:  eventsSubject,
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// PublishInvoiceEvent publishes the event as JSON on the events subject.
func (q *Queue) PublishInvoiceEvent(ctx context.Context, event domain.InvoiceEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal invoice event: %w", err)
	}
	return q.publish(ctx, q.eventsSubject, payload)
}

// PublishInboundMail hands a raw RFC 5322 message to the inbound workers.
func (q *Queue) PublishInboundMail(ctx context.Context, raw []byte) error {
	if len(raw) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "publish inbound mail", errors.New("empty message"))
	}
	return q.publish(ctx, q.inboundSubject, raw)
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, publishOperation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return publishError(err)
	}
	return nil
}

// SubscribeInboundMail blocks until ctx is done, then drains the subscription.
func (q *Queue) SubscribeInboundMail(ctx context.Context, handler func(context.Context, []byte) error) error {
	sub, err := q.conn.QueueSubscribe(q.inboundSubject, inboundQueue, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, msg.Data); err != nil {
			slog.Error("inbound_mail_failed", "subject", msg.Subject, "bytes", len(msg.Data), "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
