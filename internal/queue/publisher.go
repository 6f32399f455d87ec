package queue

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/mailroom-io/mailroom/internal/metrics"
)

// BrokerConfig holds the Kafka connection parameters shared by the
// publisher and the consumer reader.
type BrokerConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string

	// Topic is the queue name. Producer and consumer must use the same value.
	Topic string

	// SASLUsername and SASLPassword enable SASL PLAIN when both are set.
	SASLUsername string
	SASLPassword string

	// TLS enables TLS on the broker connection.
	TLS bool
}

func (c BrokerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one Kafka broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("Kafka topic is required")
	}
	return nil
}

func (c BrokerConfig) tlsConfig() *tls.Config {
	if !c.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

func (c BrokerConfig) saslMechanism() *plain.Mechanism {
	if c.SASLUsername == "" {
		return nil
	}
	return &plain.Mechanism{Username: c.SASLUsername, Password: c.SASLPassword}
}

// Publisher enqueues delivery requests onto the queue topic. It is safe for
// concurrent use; the underlying writer batches and flushes on its own.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher creates a Publisher for the given broker configuration.
func NewPublisher(cfg BrokerConfig, logger *slog.Logger) (*Publisher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	transport := &kafka.Transport{TLS: cfg.tlsConfig()}
	if m := cfg.saslMechanism(); m != nil {
		transport.SASL = *m
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           100 * time.Millisecond,
		Transport:              transport,
		AllowAutoTopicCreation: true,
	}

	logger.Info("queue publisher created",
		slog.Any("brokers", cfg.Brokers),
		slog.String("topic", cfg.Topic),
		slog.Bool("tls", cfg.TLS),
		slog.Bool("sasl", cfg.SASLUsername != ""),
	)

	return &Publisher{writer: writer, logger: logger}, nil
}

// Publish serializes the request and writes it to the topic. It returns once
// the broker has acknowledged the write, which says nothing about delivery
// to the final recipient.
func (p *Publisher) Publish(ctx context.Context, req DeliveryRequest) error {
	value, err := req.Encode()
	if err != nil {
		metrics.QueuePublishTotal.WithLabelValues("error").Inc()
		return err
	}

	msg := kafka.Message{
		Key:   []byte(uuid.NewString()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "enqueued-at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.QueuePublishTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("enqueueing delivery request: %w", err)
	}

	metrics.QueuePublishTotal.WithLabelValues("success").Inc()
	p.logger.Debug("delivery request enqueued",
		slog.String("to", req.To),
		slog.String("subject", req.Subject),
	)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("closing queue writer: %w", err)
	}
	return nil
}
