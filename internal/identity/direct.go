package identity

import (
	"context"

	"github.com/mailroom-io/mailroom/internal/mailer"
)

// DirectSender delivers identity emails synchronously through the mail
// transport, without queue indirection. Transport errors propagate to the
// caller.
type DirectSender struct {
	transport mailer.Transport
	from      string
}

// NewDirectSender creates a DirectSender using the given transport and
// sender address.
func NewDirectSender(transport mailer.Transport, from string) *DirectSender {
	return &DirectSender{transport: transport, from: from}
}

// SendConfirmationLink sends the account-confirmation email inline.
func (s *DirectSender) SendConfirmationLink(ctx context.Context, email, link string) error {
	return s.transport.Send(ctx, mailer.Transmission{
		From:    s.from,
		To:      email,
		Subject: SubjectConfirmation,
		Body:    confirmationBody(link),
		HTML:    true,
	})
}

// SendPasswordResetCode sends the reset code inline as plain text.
func (s *DirectSender) SendPasswordResetCode(ctx context.Context, email, code string) error {
	return s.transport.Send(ctx, mailer.Transmission{
		From:    s.from,
		To:      email,
		Subject: SubjectPasswordReset,
		Body:    resetCodeBody(code),
		HTML:    false,
	})
}

// SendPasswordResetLink sends the reset link inline.
func (s *DirectSender) SendPasswordResetLink(ctx context.Context, email, link string) error {
	return s.transport.Send(ctx, mailer.Transmission{
		From:    s.from,
		To:      email,
		Subject: SubjectPasswordReset,
		Body:    resetLinkBody(link),
		HTML:    true,
	})
}
