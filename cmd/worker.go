package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mailroom-io/mailroom/internal/config"
	"github.com/mailroom-io/mailroom/internal/logger"
	"github.com/mailroom-io/mailroom/internal/mailer"
	"github.com/mailroom-io/mailroom/internal/queue"
	"github.com/mailroom-io/mailroom/internal/server"
	"github.com/mailroom-io/mailroom/internal/telemetry"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the delivery worker",
	Long:  "Consume delivery requests from the queue and send them over SMTP until interrupted.",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, _ []string) error {
	// A missing connection string is fatal here, before any client exists.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogDir, cfg.SlogLevel())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, otelHandler, shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Options{
		Enabled:       cfg.OTelEnabled,
		Endpoint:      cfg.OTelEndpoint,
		Insecure:      cfg.OTelInsecure,
		SamplingRatio: cfg.OTelSamplingRatio,
		Extended:      cfg.ExtendedTelemetry,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()
	if otelHandler != nil {
		log = logger.Fanout(log, slog.New(otelHandler))
	}

	smtp, err := mailer.NewSMTPTransport(cfg.SMTPURL)
	if err != nil {
		return fmt.Errorf("configuring mail transport: %w", err)
	}
	transport := mailer.NewTracingTransport(smtp, tp, smtp.Endpoint())

	brokerCfg := queue.BrokerConfig{
		Brokers:      cfg.Brokers(),
		Topic:        cfg.MailQueue,
		SASLUsername: cfg.KafkaSASLUsername,
		SASLPassword: cfg.KafkaSASLPassword,
		TLS:          cfg.KafkaTLS,
	}
	reader, err := queue.NewReader(brokerCfg, cfg.KafkaGroupID)
	if err != nil {
		return fmt.Errorf("configuring queue reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			log.Warn("closing queue reader failed", slog.Any("error", err))
		}
	}()

	ops := server.New(cfg.Port, log)
	go func() {
		if err := ops.Run(ctx); err != nil {
			log.Error("ops server failed", slog.Any("error", err))
		}
	}()

	log.Info("worker starting",
		slog.String("queue", cfg.MailQueue),
		slog.String("group", cfg.KafkaGroupID),
		slog.String("smtp", smtp.Endpoint()),
		slog.Int("ops_port", cfg.Port),
	)

	processor := queue.NewProcessor(queue.ProcessorConfig{
		Source:    reader,
		Transport: transport,
		From:      cfg.MailFrom,
		Logger:    log,
	})
	return processor.Run(ctx)
}
