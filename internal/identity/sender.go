// Package identity originates account-lifecycle emails. Two interchangeable
// senders implement the same contract: one delivers synchronously through
// the mail transport, the other enqueues a delivery request and lets the
// worker deliver it later.
package identity

import "context"

// Sender sends account-lifecycle emails for identity events.
type Sender interface {
	// SendConfirmationLink emails an account-confirmation link.
	SendConfirmationLink(ctx context.Context, email, link string) error
	// SendPasswordResetCode emails a plain-text password reset code.
	SendPasswordResetCode(ctx context.Context, email, code string) error
	// SendPasswordResetLink emails a password reset link.
	SendPasswordResetLink(ctx context.Context, email, link string) error
}
