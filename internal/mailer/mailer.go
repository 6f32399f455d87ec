// Package mailer provides the outbound mail transport: a minimal send
// capability, an SMTP implementation, and a tracing decorator composed
// around it.
package mailer

import "context"

// Transmission is one outbound email. It is constructed immediately before a
// send call and not persisted.
type Transmission struct {
	From    string
	To      string
	Subject string
	Body    string
	HTML    bool
}

// Transport is the interface for mail delivery backends.
type Transport interface {
	// Send delivers the transmission. The returned error is the transport's
	// own; callers decide whether to retry, requeue, or surface it.
	Send(ctx context.Context, t Transmission) error
}
