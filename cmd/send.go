package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailroom-io/mailroom/internal/config"
	"github.com/mailroom-io/mailroom/internal/identity"
	"github.com/mailroom-io/mailroom/internal/logger"
	"github.com/mailroom-io/mailroom/internal/mailer"
	"github.com/mailroom-io/mailroom/internal/queue"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single identity email",
	Long:  "Send one account-lifecycle email, either directly over SMTP or through the queue.",
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().String("mode", "queue", "Delivery mode: direct or queue")
	sendCmd.Flags().String("op", "confirm", "Operation: confirm, reset-code or reset-link")
	sendCmd.Flags().String("to", "", "Recipient email address (required)")
	sendCmd.Flags().String("value", "", "Link or code to embed in the body (required)")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("value")
}

func runSend(cmd *cobra.Command, _ []string) error {
	mode, _ := cmd.Flags().GetString("mode")
	op, _ := cmd.Flags().GetString("op")
	to, _ := cmd.Flags().GetString("to")
	value, _ := cmd.Flags().GetString("value")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogDir, cfg.SlogLevel())
	if err != nil {
		return err
	}

	var sender identity.Sender
	switch mode {
	case "direct":
		transport, err := mailer.NewSMTPTransport(cfg.SMTPURL)
		if err != nil {
			return fmt.Errorf("configuring mail transport: %w", err)
		}
		sender = identity.NewDirectSender(transport, cfg.MailFrom)

	case "queue":
		publisher, err := queue.NewPublisher(queue.BrokerConfig{
			Brokers:      cfg.Brokers(),
			Topic:        cfg.MailQueue,
			SASLUsername: cfg.KafkaSASLUsername,
			SASLPassword: cfg.KafkaSASLPassword,
			TLS:          cfg.KafkaTLS,
		}, log)
		if err != nil {
			return fmt.Errorf("configuring queue publisher: %w", err)
		}
		defer func() { _ = publisher.Close() }()
		sender = identity.NewQueuedSender(publisher)

	default:
		return fmt.Errorf("unknown mode %q: use direct or queue", mode)
	}

	ctx := cmd.Context()
	switch op {
	case "confirm":
		err = sender.SendConfirmationLink(ctx, to, value)
	case "reset-code":
		err = sender.SendPasswordResetCode(ctx, to, value)
	case "reset-link":
		err = sender.SendPasswordResetLink(ctx, to, value)
	default:
		return fmt.Errorf("unknown op %q: use confirm, reset-code or reset-link", op)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s email for %s accepted (%s)\n", op, to, mode)
	return nil
}
