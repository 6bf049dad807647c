// Package mail delivers transactional and digest email over SMTP.
package mail

import "context"

// Mailer sends a single message. htmlBody may be empty, in which case a
// plain-text message is sent. Errors are returned to the caller; whether
// a failure is fatal is the caller's call (verification mail is, digest
// mail is not).
type Mailer interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}
