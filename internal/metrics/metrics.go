// Package metrics defines the Prometheus collectors exposed on the ops server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MailSendTotal counts transport send attempts by outcome ("success" or "error").
	MailSendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailroom_mail_send_total",
		Help: "Total mail transport send attempts by outcome.",
	}, []string{"outcome"})

	// MailSendDuration observes transport send latency in seconds.
	MailSendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mailroom_mail_send_duration_seconds",
		Help:    "Mail transport send latency.",
		Buckets: prometheus.DefBuckets,
	})

	// QueueMessagesTotal counts processed queue messages by outcome
	// ("acked", "decode_error", "send_error", "fetch_error").
	QueueMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailroom_queue_messages_total",
		Help: "Total queue messages handled by the worker, by outcome.",
	}, []string{"outcome"})

	// QueuePublishTotal counts enqueue attempts by outcome ("success" or "error").
	QueuePublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailroom_queue_publish_total",
		Help: "Total delivery requests enqueued, by outcome.",
	}, []string{"outcome"})
)
