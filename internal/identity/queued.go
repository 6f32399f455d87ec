package identity

import (
	"context"

	"github.com/mailroom-io/mailroom/internal/queue"
)

// Enqueuer is the publishing capability QueuedSender depends on.
// *queue.Publisher satisfies it.
type Enqueuer interface {
	Publish(ctx context.Context, req queue.DeliveryRequest) error
}

// QueuedSender enqueues identity emails for asynchronous delivery by the
// worker. Its methods return once the broker has accepted the enqueue;
// delivery failures surface on the worker side, never to the caller.
type QueuedSender struct {
	enqueuer Enqueuer
}

// NewQueuedSender creates a QueuedSender on top of the given enqueuer.
func NewQueuedSender(enqueuer Enqueuer) *QueuedSender {
	return &QueuedSender{enqueuer: enqueuer}
}

// SendConfirmationLink enqueues the account-confirmation email.
func (s *QueuedSender) SendConfirmationLink(ctx context.Context, email, link string) error {
	return s.enqueuer.Publish(ctx, queue.DeliveryRequest{
		To:      email,
		Subject: SubjectConfirmation,
		Body:    confirmationBody(link),
	})
}

// SendPasswordResetCode enqueues the reset code email.
func (s *QueuedSender) SendPasswordResetCode(ctx context.Context, email, code string) error {
	return s.enqueuer.Publish(ctx, queue.DeliveryRequest{
		To:      email,
		Subject: SubjectPasswordReset,
		Body:    resetCodeBody(code),
	})
}

// SendPasswordResetLink enqueues the reset link email.
func (s *QueuedSender) SendPasswordResetLink(ctx context.Context, email, link string) error {
	return s.enqueuer.Publish(ctx, queue.DeliveryRequest{
		To:      email,
		Subject: SubjectPasswordReset,
		Body:    resetLinkBody(link),
	})
}
