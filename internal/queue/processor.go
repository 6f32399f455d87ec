package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mailroom-io/mailroom/internal/mailer"
	"github.com/mailroom-io/mailroom/internal/metrics"
)

// MessageSource is the subset of kafka.Reader the processor depends on.
type MessageSource interface {
	// FetchMessage blocks until a message is available or ctx is cancelled.
	FetchMessage(ctx context.Context) (kafka.Message, error)
	// CommitMessages acknowledges the messages, permanently removing them
	// from the consumer group's pending work.
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ErrorFunc is invoked once per failed message (or failed fetch, with a nil
// message). The message is left uncommitted; redelivery is the broker's
// concern.
type ErrorFunc func(err error, msg *kafka.Message)

// ProcessorConfig configures a Processor.
type ProcessorConfig struct {
	// Source supplies queue messages. In production this is a *kafka.Reader
	// from NewReader.
	Source MessageSource

	// Transport sends the resulting transmissions.
	Transport mailer.Transport

	// From is the sender address stamped on every transmission.
	From string

	// Logger receives processing events. Required.
	Logger *slog.Logger

	// OnError overrides the default error handling (structured logging).
	// It is called exactly once per failed message.
	OnError ErrorFunc
}

// Processor is the long-running consumer loop: it receives delivery
// requests from the queue, sends them through the mail transport, and
// acknowledges each message only after its send has succeeded.
type Processor struct {
	source    MessageSource
	transport mailer.Transport
	from      string
	logger    *slog.Logger
	onError   ErrorFunc
}

// NewProcessor creates a Processor. When cfg.OnError is nil, failures are
// logged with full message context and processing continues.
func NewProcessor(cfg ProcessorConfig) *Processor {
	p := &Processor{
		source:    cfg.Source,
		transport: cfg.Transport,
		from:      cfg.From,
		logger:    cfg.Logger,
		onError:   cfg.OnError,
	}
	if p.onError == nil {
		p.onError = p.logError
	}
	return p
}

// Run receives and processes messages until ctx is cancelled. A failure on
// one message never stops the loop; the message stays uncommitted and the
// processor moves on. Run returns nil on cooperative shutdown.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("queue processor started", slog.String("from", p.from))

	for {
		msg, err := p.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("queue processor stopping")
				return nil
			}
			metrics.QueueMessagesTotal.WithLabelValues("fetch_error").Inc()
			p.onError(fmt.Errorf("fetching message: %w", err), nil)
			continue
		}
		p.handle(ctx, msg)
	}
}

// handle processes a single message. The send and its acknowledgement run
// detached from the shutdown signal: cancellation stops the fetch loop, it
// never aborts an in-flight delivery into an ambiguous state.
func (p *Processor) handle(ctx context.Context, msg kafka.Message) {
	sendCtx := context.WithoutCancel(ctx)

	req, err := DecodeDeliveryRequest(msg.Value)
	if err != nil {
		metrics.QueueMessagesTotal.WithLabelValues("decode_error").Inc()
		p.onError(err, &msg)
		return
	}

	tr := mailer.Transmission{
		From:    p.from,
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
		// Queued bodies are produced as markup; sent as HTML by policy.
		HTML: true,
	}

	start := time.Now()
	if err := p.transport.Send(sendCtx, tr); err != nil {
		metrics.QueueMessagesTotal.WithLabelValues("send_error").Inc()
		p.onError(fmt.Errorf("sending mail to %q: %w", req.To, err), &msg)
		return
	}

	// Acknowledge strictly after the send has returned success.
	if err := p.source.CommitMessages(sendCtx, msg); err != nil {
		metrics.QueueMessagesTotal.WithLabelValues("commit_error").Inc()
		p.onError(fmt.Errorf("committing message at offset %d: %w", msg.Offset, err), &msg)
		return
	}

	metrics.QueueMessagesTotal.WithLabelValues("acked").Inc()
	p.logger.Info("mail delivered",
		slog.String("to", req.To),
		slog.String("subject", req.Subject),
		slog.Int64("offset", msg.Offset),
		slog.Duration("duration", time.Since(start)),
	)
}

// logError is the default ErrorFunc.
func (p *Processor) logError(err error, msg *kafka.Message) {
	attrs := []any{slog.Any("error", err)}
	if msg != nil {
		attrs = append(attrs,
			slog.String("topic", msg.Topic),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
		)
	}
	p.logger.Error("queue processing failed", attrs...)
}

// NewReader creates the kafka.Reader backing a production Processor. The
// reader joins the configured consumer group, so uncommitted messages are
// redelivered according to the broker's own policy.
func NewReader(cfg BrokerConfig, groupID string) (*kafka.Reader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if groupID == "" {
		return nil, fmt.Errorf("consumer group id is required")
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		TLS:       cfg.tlsConfig(),
	}
	if m := cfg.saslMechanism(); m != nil {
		dialer.SASLMechanism = *m
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  groupID,
		Topic:    cfg.Topic,
		Dialer:   dialer,
		MinBytes: 1,
		MaxBytes: 10e6,
	}), nil
}
