package email

import "context"

// Message is a single-recipient email. HTML is optional; From overrides the
// client's default sender when set.
type Message struct {
	To      string
	From    string
	Subject string
	Text    string
	HTML    string
}

// EmailSender provides a testable abstraction over SES delivery. Send returns
// the provider's message id.
type EmailSender interface {
	Send(ctx context.Context, msg Message) (string, error)
}
