package identity

import (
	"fmt"
	"html/template"
)

// Subjects are fixed per operation. Both sender implementations use these
// builders, so the produced subject and body are byte-for-byte identical
// regardless of the delivery path.
const (
	SubjectConfirmation  = "Confirmation email"
	SubjectPasswordReset = "Reset password"
)

// confirmationBody renders the account-confirmation HTML body embedding the
// link as an anchor.
func confirmationBody(link string) string {
	return fmt.Sprintf(`Please confirm your account by <a href="%s">clicking here</a>.`,
		template.HTMLEscapeString(link))
}

// resetCodeBody renders the plain-text password reset body containing the
// code verbatim.
func resetCodeBody(code string) string {
	return fmt.Sprintf("Please reset your password using the following code: %s", code)
}

// resetLinkBody renders the password-reset HTML body embedding the link as
// an anchor.
func resetLinkBody(link string) string {
	return fmt.Sprintf(`Please reset your password by <a href="%s">clicking here</a>.`,
		template.HTMLEscapeString(link))
}
