package mailer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mailroom-io/mailroom/internal/metrics"
)

// sendSpanName is the span emitted for every transport send attempt.
const sendSpanName = "SendMail"

// TracingTransport decorates a Transport with an OpenTelemetry span per send
// attempt. The span is ended on every exit path; failures are recorded on
// the span and the original error is returned unchanged.
type TracingTransport struct {
	next   Transport
	tracer trace.Tracer
	peer   string
}

// NewTracingTransport wraps next with tracing. peer is the transport
// endpoint (host:port) tagged on every span.
func NewTracingTransport(next Transport, tp trace.TracerProvider, peer string) *TracingTransport {
	return &TracingTransport{
		next:   next,
		tracer: tp.Tracer("github.com/mailroom-io/mailroom/internal/mailer"),
		peer:   peer,
	}
}

// Send opens the "SendMail" span, delegates to the wrapped transport, and
// records the outcome.
func (t *TracingTransport) Send(ctx context.Context, tr Transmission) error {
	ctx, span := t.tracer.Start(ctx, sendSpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("mail.from", tr.From),
			attribute.String("mail.to", tr.To),
			attribute.String("mail.subject", tr.Subject),
			attribute.String("peer.address", t.peer),
		),
	)
	defer span.End()

	start := time.Now()
	err := t.next.Send(ctx, tr)
	metrics.MailSendDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(
			attribute.String("exception.type", fmt.Sprintf("%T", err)),
			attribute.String("exception.message", err.Error()),
		)
		span.SetStatus(codes.Error, err.Error())
		metrics.MailSendTotal.WithLabelValues("error").Inc()
		return err
	}

	span.SetStatus(codes.Ok, "")
	metrics.MailSendTotal.WithLabelValues("success").Inc()
	return nil
}
