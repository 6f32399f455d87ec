// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// QueueName is the logical queue shared by producers and the worker.
// Producer enqueue and consumer receive must use the exact same name.
const QueueName = "emails"

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// SMTPURL is the mail transport connection string:
	// smtp://[user[:password]@]host[:port]. Required — the worker refuses to
	// start without a configured transport.
	SMTPURL string `envconfig:"SMTP_URL"`

	// KafkaBrokers is the comma-separated list of Kafka broker addresses. Required.
	KafkaBrokers string `envconfig:"KAFKA_BROKERS"`

	// KafkaGroupID is the consumer group used by the worker. Defaults to "mailroom".
	KafkaGroupID string `envconfig:"KAFKA_GROUP_ID" default:"mailroom"`

	// KafkaSASLUsername and KafkaSASLPassword enable SASL PLAIN when both are set.
	KafkaSASLUsername string `envconfig:"KAFKA_SASL_USERNAME"`
	KafkaSASLPassword string `envconfig:"KAFKA_SASL_PASSWORD"`

	// KafkaTLS enables TLS on the broker connection.
	KafkaTLS bool `envconfig:"KAFKA_TLS"`

	// MailFrom is the sender address stamped on every outgoing transmission.
	MailFrom string `envconfig:"MAIL_FROM" default:"noreply@mailroom.local"`

	// MailQueue overrides the queue name. Both the worker and queued producers
	// read it, so a mismatch is impossible within one deployment.
	MailQueue string `envconfig:"MAIL_QUEUE" default:"emails"`

	// Port is the ops HTTP server port (health, metrics). Defaults to 8990.
	Port int `envconfig:"PORT" default:"8990"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogDir is the log directory. Empty means log to stderr only.
	LogDir string `envconfig:"LOG_DIR"`

	// OTelEnabled turns on OpenTelemetry trace export.
	OTelEnabled bool `envconfig:"OTEL_ENABLED"`

	// OTelEndpoint is the OTLP gRPC collector endpoint (e.g. "otel-collector:4317").
	OTelEndpoint string `envconfig:"OTEL_EXPORTER_ENDPOINT" default:"localhost:4317"`

	// OTelInsecure disables TLS on the OTLP connection.
	OTelInsecure bool `envconfig:"OTEL_INSECURE"`

	// OTelSamplingRatio is the trace sampling probability (0.0-1.0). Defaults to 1.0.
	OTelSamplingRatio float64 `envconfig:"OTEL_SAMPLING_RATIO" default:"1.0"`

	// ExtendedTelemetry additionally ships application logs to the OTLP
	// collector via the otelslog bridge. Implies nothing unless OTelEnabled.
	ExtendedTelemetry bool `envconfig:"EXTENDED_TELEMETRY"`
}

// Load reads AppConfig from environment variables using envconfig.
// It validates the connection strings the process cannot run without, so a
// misconfigured worker fails at startup rather than on first use.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.SMTPURL == "" {
		return nil, fmt.Errorf("SMTP_URL is not set: the mail transport connection string is required")
	}
	if c.KafkaBrokers == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS is not set: at least one broker address is required")
	}
	if c.MailQueue == "" {
		c.MailQueue = QueueName
	}
	return &c, nil
}

// Brokers returns the broker list split from KafkaBrokers.
func (c *AppConfig) Brokers() []string {
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
